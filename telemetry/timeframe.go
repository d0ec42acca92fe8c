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
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	day   = 24 * time.Hour
	month = 30 * day
)

var (
	ErrInvalidHours  = errors.New("hours must be at least 1 when days and months are zero")
	ErrNegativeValue = errors.New("must be zero or greater")
)

// Timeframe is the window a report covers, ending now.
// A zero Duration means all recorded history.
type Timeframe struct {
	Label    string
	Duration time.Duration
	Hours    int
	Days     int
	Months   int
}

// AllTime is the unbounded timeframe.
var AllTime = Timeframe{Label: "all"}

// BuildTimeframe picks the window from the largest non-zero unit. Months are
// approximated as 30 days.
func BuildTimeframe(hours, days, months int, all bool) (Timeframe, error) {
	for _, v := range []struct {
		name  string
		value int
	}{{"hours", hours}, {"days", days}, {"months", months}} {
		if v.value < 0 {
			return Timeframe{}, fmt.Errorf("%s %w", v.name, ErrNegativeValue)
		}
	}

	switch {
	case all:
		return AllTime, nil
	case months > 0:
		return Timeframe{
			Label:    windowLabel(months, "month"),
			Duration: time.Duration(months) * month,
			Months:   months,
		}, nil
	case days > 0:
		return Timeframe{
			Label:    windowLabel(days, "day"),
			Duration: time.Duration(days) * day,
			Days:     days,
		}, nil
	case hours == 0:
		return Timeframe{}, ErrInvalidHours
	}
	return Timeframe{
		Label:    windowLabel(hours, "hour"),
		Duration: time.Duration(hours) * time.Hour,
		Hours:    hours,
	}, nil
}

func windowLabel(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("last_%d_%s", n, unit)
}

// Unbounded reports whether the timeframe covers all history.
func (t Timeframe) Unbounded() bool {
	return t.Duration <= 0
}

// Since returns the start of the window ending at now. It returns false for
// an unbounded timeframe.
func (t Timeframe) Since(now time.Time) (time.Time, bool) {
	if t.Unbounded() {
		return time.Time{}, false
	}
	return now.Add(-t.Duration), true
}

// Title is the label for display, "last 6 hours".
func (t Timeframe) Title() string {
	return strings.ReplaceAll(t.Label, "_", " ")
}
