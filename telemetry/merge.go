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
	"sort"
	"strings"
)

// MixedStatus is reported when the batteries in one event disagree.
const MixedStatus = "mixed"

// MergeError is returned when a merge is attempted on an empty group.
type MergeError struct {
	Timestamp float64
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("cannot merge an empty sample group at %.3f", e.Timestamp)
}

// timestampKey groups samples on whole milliseconds.
func timestampKey(ts float64) int64 {
	return int64(math.Round(ts * 1000))
}

// MergeByTimestamp collapses the samples sharing a timestamp into one Event
// per timestamp. The result is ordered by timestamp.
func MergeByTimestamp(samples []Sample) ([]Event, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	sorted := samples
	if !sort.SliceIsSorted(samples, func(i, j int) bool {
		return timestampKey(samples[i].Timestamp) < timestampKey(samples[j].Timestamp)
	}) {
		sorted = make([]Sample, len(samples))
		copy(sorted, samples)
		sort.SliceStable(sorted, func(i, j int) bool {
			return timestampKey(sorted[i].Timestamp) < timestampKey(sorted[j].Timestamp)
		})
	}

	events := make([]Event, 0, len(sorted))
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && timestampKey(sorted[i].Timestamp) == timestampKey(sorted[start].Timestamp) {
			continue
		}
		event, err := mergeGroup(sorted[start:i])
		if err != nil {
			return nil, err
		}
		events = append(events, event)
		start = i
	}
	return events, nil
}

func mergeGroup(group []Sample) (Event, error) {
	if len(group) == 0 {
		return Event{}, &MergeError{}
	}

	energyNow := sumOrNil(group, KindEnergyNow)
	energyFull := sumOrNil(group, KindEnergyFull)
	energyFullDesign := sumOrNil(group, KindEnergyFullDesign)

	percentage := percentOf(energyNow, energyFull)
	if percentage == nil {
		percentage = meanOrNil(group, KindPercentage)
	}
	health := percentOf(energyFull, energyFullDesign)
	if health == nil {
		health = meanOrNil(group, KindHealth)
	}

	return Event{
		Timestamp:        group[0].Timestamp,
		Percentage:       percentage,
		CapacityPct:      meanOrNil(group, KindCapacity),
		HealthPct:        health,
		EnergyNow:        energyNow,
		EnergyFull:       energyFull,
		EnergyFullDesign: energyFullDesign,
		Status:           mergeStatus(group),
		Sources:          mergeSources(group),
	}, nil
}

func sumOrNil(group []Sample, k Kind) *float64 {
	var total float64
	found := false
	for _, s := range group {
		if v := s.Value(k); v != nil {
			total += *v
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}

func meanOrNil(group []Sample, k Kind) *float64 {
	var total float64
	count := 0
	for _, s := range group {
		if v := s.Value(k); v != nil {
			total += *v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return Float(total / float64(count))
}

func percentOf(numerator, denominator *float64) *float64 {
	if numerator == nil || denominator == nil || *denominator == 0 {
		return nil
	}
	return Float(*numerator / *denominator * 100)
}

func mergeStatus(group []Sample) string {
	status := ""
	for _, s := range group {
		if s.Status == "" {
			continue
		}
		if status == "" {
			status = s.Status
		} else if status != s.Status {
			return MixedStatus
		}
	}
	return status
}

func mergeSources(group []Sample) string {
	seen := make(map[string]bool, len(group))
	names := make([]string, 0, len(group))
	for _, s := range group {
		name := s.SourceName()
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}
