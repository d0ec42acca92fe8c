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
	"slices"
	"strings"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
)

// Preset selects one section of the report.
type Preset string

const (
	PresetBattery     Preset = "battery"
	PresetCPU         Preset = "cpu"
	PresetGPU         Preset = "gpu"
	PresetMemory      Preset = "memory"
	PresetNetwork     Preset = "network"
	PresetTemperature Preset = "temperature"
	PresetDisk        Preset = "disk"
)

// Presets in the order their sections are reported.
var Presets = []Preset{
	PresetBattery,
	PresetCPU,
	PresetGPU,
	PresetMemory,
	PresetNetwork,
	PresetTemperature,
	PresetDisk,
}

// The battery section reads power draw as its preferred discharge figure.
var presetKinds = map[Preset][]telemetry.Kind{
	PresetBattery:     {telemetry.KindPowerDraw},
	PresetCPU:         {telemetry.KindCPUUsage, telemetry.KindCPUFrequency},
	PresetGPU:         {telemetry.KindGPUUsage, telemetry.KindGPUFrequency},
	PresetMemory:      {telemetry.KindMemoryUsage},
	PresetNetwork:     {telemetry.KindNetworkBytes},
	PresetTemperature: {telemetry.KindTemperature},
	PresetDisk:        {telemetry.KindDiskUsage},
}

func ParsePreset(name string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := presetKinds[p]; !ok {
		return "", fmt.Errorf("unknown preset %q", name)
	}
	return p, nil
}

func (p *Preset) UnmarshalText(b []byte) error {
	parsed, err := ParsePreset(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// NormalizePresets returns the distinct presets in report order, or just
// the battery preset when none are given.
func NormalizePresets(presets []Preset) []Preset {
	if len(presets) == 0 {
		return []Preset{PresetBattery}
	}
	var out []Preset
	for _, p := range Presets {
		if slices.Contains(presets, p) {
			out = append(out, p)
		}
	}
	return out
}

// kindsFor lists the system metric kinds the presets read, sorted by name.
func kindsFor(presets []Preset) []telemetry.Kind {
	var kinds []telemetry.Kind
	for _, p := range presets {
		for _, k := range presetKinds[p] {
			if !slices.Contains(kinds, k) {
				kinds = append(kinds, k)
			}
		}
	}
	slices.SortFunc(kinds, func(a, b telemetry.Kind) int {
		return strings.Compare(a.String(), b.String())
	})
	return kinds
}
