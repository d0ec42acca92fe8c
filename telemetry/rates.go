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
	"strings"
	"time"
)

// MaxGap is the longest interval between two readings that still counts
// towards a rate. Longer gaps are usually suspend or missed polls.
const MaxGap = 5 * time.Minute

// RateEstimate is the average power flowing out of and into the batteries.
// A nil rate means no qualifying transition was seen.
type RateEstimate struct {
	Discharge *float64 `json:"discharge_w,omitempty"`
	Charge    *float64 `json:"charge_w,omitempty"`
}

type rateAccumulator struct {
	deltaWh float64
	hours   float64
}

func (a *rateAccumulator) record(deltaWh, hours float64) {
	a.deltaWh += deltaWh
	a.hours += hours
}

func (a rateAccumulator) average() *float64 {
	if a.hours == 0 || a.deltaWh == 0 {
		return nil
	}
	return Float(a.deltaWh / a.hours)
}

// AverageRates estimates discharge and charge power from consecutive events
// that report EnergyNow. Backwards steps and gaps longer than MaxGap are
// skipped, as are transitions across a status change.
func AverageRates(events []Event) RateEstimate {
	var discharge, charge rateAccumulator
	maxGapHours := MaxGap.Hours()

	var prev *Event
	for i := range events {
		curr := &events[i]
		if curr.EnergyNow == nil {
			continue
		}
		if prev == nil || curr.Timestamp < prev.Timestamp {
			prev = curr
			continue
		}

		hours := (curr.Timestamp - prev.Timestamp) / 3600
		if hours > 0 && hours <= maxGapHours {
			delta := *curr.EnergyNow - *prev.EnergyNow
			if delta < 0 && isDischarging(prev) && isDischarging(curr) {
				discharge.record(-delta, hours)
			} else if delta > 0 && isCharging(prev) && isCharging(curr) {
				charge.record(delta, hours)
			}
		}
		prev = curr
	}

	return RateEstimate{
		Discharge: discharge.average(),
		Charge:    charge.average(),
	}
}

// isDischarging treats a missing status as discharging.
func isDischarging(e *Event) bool {
	return e.Status == "" || strings.EqualFold(e.Status, "discharging")
}

func isCharging(e *Event) bool {
	return e.Status != "" && strings.EqualFold(e.Status, "charging")
}
