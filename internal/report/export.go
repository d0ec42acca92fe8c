/*
battery-monitor - Records battery telemetry and reports usage trends
Copyright (C) 2026, The Cacophony Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DefaultExportPath names an export file after the timeframe and the local
// time it was made, "battery_monitor_last_3_hours_2025-11-28_01-30-42_NZDT.csv".
func DefaultExportPath(label, dir string, now time.Time, ext string) string {
	if dir == "" {
		dir = "."
	}
	name := fmt.Sprintf("battery_monitor_%s_%s_%s.%s",
		strings.ReplaceAll(label, "-", "_"),
		now.Format("2006-01-02_15-04-05"),
		sanitize(now.Format("MST")),
		strings.TrimPrefix(ext, "."),
	)
	return filepath.Join(dir, name)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
