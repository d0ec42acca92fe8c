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

// Package sysfs reads battery state from the Linux power_supply class.
package sysfs

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
)

const DefaultRoot = "/sys/class/power_supply"

// Values in sysfs are micro-units.
const (
	microToUnit = 1_000_000.0
	picoToUnit  = 1_000_000_000_000.0
)

// FindBatteryPaths returns the BAT* supplies under root whose type is
// "Battery", sorted by name. A missing root yields no paths.
func FindBatteryPaths(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "BAT") {
			continue
		}
		path := filepath.Join(root, entry.Name())
		kind, ok := readString(filepath.Join(path, "type"))
		if ok && strings.EqualFold(kind, "battery") {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

type supply struct {
	path   string
	uevent map[string]string
}

func parseUevent(path string) map[string]string {
	values := make(map[string]string)
	f, err := os.Open(filepath.Join(path, "uevent"))
	if err != nil {
		return values
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if ok {
			values[key] = value
		}
	}
	return values
}

func readString(path string) (string, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	s := strings.TrimSpace(string(raw))
	return s, s != ""
}

func readFloat(path string) *float64 {
	s, ok := readString(path)
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// value looks up the first parsable uevent key, then the first readable file.
func (s supply) value(keys []string, files ...string) *float64 {
	for _, key := range keys {
		if raw, ok := s.uevent[key]; ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				return &v
			}
		}
	}
	for _, name := range files {
		if v := readFloat(filepath.Join(s.path, name)); v != nil {
			return v
		}
	}
	return nil
}

func (s supply) field(name string) *float64 {
	return s.value([]string{"POWER_SUPPLY_" + strings.ToUpper(name)}, name)
}

func (s supply) status() string {
	if v, ok := s.uevent["POWER_SUPPLY_STATUS"]; ok {
		return v
	}
	v, _ := readString(filepath.Join(s.path, "status"))
	return v
}

func (s supply) voltage() *float64 {
	return s.value(
		[]string{"POWER_SUPPLY_VOLTAGE_NOW", "POWER_SUPPLY_VOLTAGE_MIN_DESIGN", "POWER_SUPPLY_VOLTAGE_MAX_DESIGN"},
		"voltage_now", "voltage_min_design", "voltage_max_design",
	)
}

func scaled(v *float64, divisor float64) *float64 {
	if v == nil {
		return nil
	}
	return telemetry.Float(*v / divisor)
}

// energy is the named energy value in Wh, falling back to the matching
// charge (µAh) multiplied by voltage (µV).
func (s supply) energy(name string, voltage *float64) *float64 {
	if e := s.field("energy_" + name); e != nil {
		return scaled(e, microToUnit)
	}
	charge := s.field("charge_" + name)
	if charge == nil || voltage == nil {
		return nil
	}
	return telemetry.Float(*charge * *voltage / picoToUnit)
}

func ratio(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return telemetry.Float(*num / *den * 100)
}

// ReadBattery reads one supply into a sample stamped ts. Unreadable values are
// left absent.
func ReadBattery(path string, ts float64) telemetry.Sample {
	s := supply{path: path, uevent: parseUevent(path)}
	voltage := s.voltage()

	sample := telemetry.Sample{
		Timestamp:        ts,
		CapacityPct:      s.field("capacity"),
		EnergyNow:        s.energy("now", voltage),
		EnergyFull:       s.energy("full", voltage),
		EnergyFullDesign: s.energy("full_design", voltage),
		Status:           s.status(),
		Source:           path,
	}
	sample.Percentage = ratio(sample.EnergyNow, sample.EnergyFull)
	sample.HealthPct = ratio(sample.EnergyFull, sample.EnergyFullDesign)
	return sample
}

// ReadAll reads every battery under root with a shared timestamp.
func ReadAll(root string, ts float64) []telemetry.Sample {
	paths := FindBatteryPaths(root)
	samples := make([]telemetry.Sample, 0, len(paths))
	for _, path := range paths {
		samples = append(samples, ReadBattery(path, ts))
	}
	return samples
}
