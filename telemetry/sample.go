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

// Package telemetry merges raw battery readings into events and derives
// rates, time buckets and runtime projections from them. System metrics are
// summarised over the same buckets.
package telemetry

import (
	"fmt"
	"path/filepath"
)

// Sample is a single reading from one battery at one instant.
// Nil fields were not reported by the source; they are never treated as zero.
type Sample struct {
	Timestamp        float64  `json:"ts"`
	Percentage       *float64 `json:"percentage,omitempty"`
	CapacityPct      *float64 `json:"capacity_pct,omitempty"`
	HealthPct        *float64 `json:"health_pct,omitempty"`
	EnergyNow        *float64 `json:"energy_now_wh,omitempty"`
	EnergyFull       *float64 `json:"energy_full_wh,omitempty"`
	EnergyFullDesign *float64 `json:"energy_full_design_wh,omitempty"`
	Status           string   `json:"status,omitempty"`
	Source           string   `json:"source"`
}

// Event is every Sample sharing one timestamp combined into one observation.
type Event struct {
	Timestamp        float64  `json:"ts"`
	Percentage       *float64 `json:"percentage,omitempty"`
	CapacityPct      *float64 `json:"capacity_pct,omitempty"`
	HealthPct        *float64 `json:"health_pct,omitempty"`
	EnergyNow        *float64 `json:"energy_now_wh,omitempty"`
	EnergyFull       *float64 `json:"energy_full_wh,omitempty"`
	EnergyFullDesign *float64 `json:"energy_full_design_wh,omitempty"`
	Status           string   `json:"status,omitempty"`
	Sources          string   `json:"sources"`
}

// Sample converts the event back into a reading so it can be merged again.
func (e Event) Sample() Sample {
	return Sample{
		Timestamp:        e.Timestamp,
		Percentage:       e.Percentage,
		CapacityPct:      e.CapacityPct,
		HealthPct:        e.HealthPct,
		EnergyNow:        e.EnergyNow,
		EnergyFull:       e.EnergyFull,
		EnergyFullDesign: e.EnergyFullDesign,
		Status:           e.Status,
		Source:           e.Sources,
	}
}

// SourceName is the basename of the sample's source path, "BAT0" for
// "/sys/class/power_supply/BAT0".
func (s Sample) SourceName() string {
	return filepath.Base(s.Source)
}

// Float returns a pointer to v, for filling optional fields.
func Float(v float64) *float64 {
	return &v
}

// Kind identifies one numeric battery field or one system metric.
type Kind int

const (
	KindPercentage Kind = iota
	KindCapacity
	KindHealth
	KindEnergyNow
	KindEnergyFull
	KindEnergyFullDesign

	KindCPUUsage
	KindCPUFrequency
	KindGPUUsage
	KindGPUFrequency
	KindNetworkBytes
	KindMemoryUsage
	KindDiskUsage
	KindTemperature
	KindPowerDraw
)

// BatteryKinds are the kinds carried by a Sample, in storage order.
var BatteryKinds = []Kind{
	KindPercentage,
	KindCapacity,
	KindHealth,
	KindEnergyNow,
	KindEnergyFull,
	KindEnergyFullDesign,
}

// SystemKinds are the kinds carried by a Metric.
var SystemKinds = []Kind{
	KindCPUUsage,
	KindCPUFrequency,
	KindGPUUsage,
	KindGPUFrequency,
	KindNetworkBytes,
	KindMemoryUsage,
	KindDiskUsage,
	KindTemperature,
	KindPowerDraw,
}

// Kinds lists every Kind.
var Kinds = append(append([]Kind{}, BatteryKinds...), SystemKinds...)

var kindNames = map[Kind]string{
	KindPercentage:       "battery_percentage",
	KindCapacity:         "battery_capacity",
	KindHealth:           "battery_health",
	KindEnergyNow:        "battery_energy_now",
	KindEnergyFull:       "battery_energy_full",
	KindEnergyFullDesign: "battery_energy_full_design",
	KindCPUUsage:         "cpu_usage",
	KindCPUFrequency:     "cpu_frequency",
	KindGPUUsage:         "gpu_usage",
	KindGPUFrequency:     "gpu_frequency",
	KindNetworkBytes:     "network_bytes",
	KindMemoryUsage:      "memory_usage",
	KindDiskUsage:        "disk_usage",
	KindTemperature:      "temperature",
	KindPowerDraw:        "power_draw",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsBattery reports whether k is a Sample field.
func (k Kind) IsBattery() bool {
	return k >= KindPercentage && k <= KindEnergyFullDesign
}

// Unit is the display unit of the kind's values.
func (k Kind) Unit() string {
	switch k {
	case KindEnergyNow, KindEnergyFull, KindEnergyFullDesign:
		return "Wh"
	case KindCPUFrequency, KindGPUFrequency:
		return "MHz"
	case KindNetworkBytes, KindMemoryUsage, KindDiskUsage:
		return "bytes"
	case KindTemperature:
		return "C"
	case KindPowerDraw:
		return "W"
	default:
		return "%"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown metric kind: %s", name)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown metric kind: %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (s *Sample) field(k Kind) **float64 {
	switch k {
	case KindPercentage:
		return &s.Percentage
	case KindCapacity:
		return &s.CapacityPct
	case KindHealth:
		return &s.HealthPct
	case KindEnergyNow:
		return &s.EnergyNow
	case KindEnergyFull:
		return &s.EnergyFull
	case KindEnergyFullDesign:
		return &s.EnergyFullDesign
	}
	return nil
}

// Value returns the field for k, or nil when it is absent.
func (s Sample) Value(k Kind) *float64 {
	if f := s.field(k); f != nil {
		return *f
	}
	return nil
}

// SetValue sets the field for k.
func (s *Sample) SetValue(k Kind, v *float64) {
	if f := s.field(k); f != nil {
		*f = v
	}
}

// Values returns the present fields keyed by kind.
func (s Sample) Values() map[Kind]float64 {
	values := make(map[Kind]float64)
	for _, k := range BatteryKinds {
		if v := s.Value(k); v != nil {
			values[k] = *v
		}
	}
	return values
}

// SampleFromValues builds a Sample from kind-tagged values. System kinds are
// ignored.
func SampleFromValues(ts float64, source, status string, values map[Kind]float64) Sample {
	s := Sample{
		Timestamp: ts,
		Status:    status,
		Source:    source,
	}
	for k, v := range values {
		s.SetValue(k, Float(v))
	}
	return s
}
