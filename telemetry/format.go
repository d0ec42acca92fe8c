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

package telemetry

import (
	"fmt"
	"math"
	"time"
)

const missing = "--"

// FormatPower renders watts as "4.80W".
func FormatPower(w *float64) string {
	if w == nil {
		return missing
	}
	return fmt.Sprintf("%.2fW", *w)
}

// FormatPercent renders a percentage as "52.5%".
func FormatPercent(p *float64) string {
	if p == nil {
		return missing
	}
	return fmt.Sprintf("%.1f%%", *p)
}

// FormatEnergy renders watt hours as "12.34Wh".
func FormatEnergy(wh *float64) string {
	if wh == nil {
		return missing
	}
	return fmt.Sprintf("%.2fWh", *wh)
}

// FormatRuntime renders hours as "12h30m", rounding down to the minute.
func FormatRuntime(hours *float64) string {
	if hours == nil || *hours < 0 || math.IsNaN(*hours) || math.IsInf(*hours, 0) {
		return missing
	}
	minutes := int64(math.Floor(*hours * 60))
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}

// FormatFrequency renders megahertz as "1800MHz".
func FormatFrequency(mhz *float64) string {
	if mhz == nil {
		return missing
	}
	return fmt.Sprintf("%.0fMHz", *mhz)
}

// FormatTemperature renders degrees Celsius as "45.2C".
func FormatTemperature(c *float64) string {
	if c == nil {
		return missing
	}
	return fmt.Sprintf("%.1fC", *c)
}

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// FormatBytes renders a byte count with binary units, "1.5GiB". Whole bytes
// have no decimals.
func FormatBytes(b *float64) string {
	if b == nil {
		return missing
	}
	v := *b
	unit := byteUnits[0]
	for i, next := range byteUnits {
		unit = next
		if math.Abs(v) < 1024 || i == len(byteUnits)-1 {
			break
		}
		v /= 1024
	}
	if unit == "B" {
		return fmt.Sprintf("%.0f%s", v, unit)
	}
	return fmt.Sprintf("%.1f%s", v, unit)
}

// FormatByteRate renders bytes per second as "1.5MiB/s".
func FormatByteRate(b *float64) string {
	if b == nil {
		return missing
	}
	return FormatBytes(b) + "/s"
}

// FormatBucket labels a bucket start with as much precision as its width needs.
func FormatBucket(start time.Time, width time.Duration) string {
	switch {
	case width < time.Hour:
		return start.Format("01-02 15:04")
	case width < day:
		return start.Format("01-02 15:00")
	case width <= day:
		return start.Format("2006-01-02")
	}
	return fmt.Sprintf("%s (+%dd)", start.Format("2006-01-02"), int(width/day))
}
