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

package sysfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSupply(t *testing.T, root, name string, files map[string]string) string {
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for file, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0644))
	}
	return dir
}

func TestFindBatteryPaths(t *testing.T) {
	root := t.TempDir()
	bat1 := writeSupply(t, root, "BAT1", map[string]string{"type": "Battery\n"})
	bat0 := writeSupply(t, root, "BAT0", map[string]string{"type": "battery\n"})
	writeSupply(t, root, "AC", map[string]string{"type": "Mains\n"})
	writeSupply(t, root, "BAT2", map[string]string{"type": "UPS\n"})
	writeSupply(t, root, "BAT3", nil)

	assert.Equal(t, []string{bat0, bat1}, FindBatteryPaths(root))
	assert.Empty(t, FindBatteryPaths(filepath.Join(root, "missing")))
}

func TestReadBatteryEnergyFiles(t *testing.T) {
	path := writeSupply(t, t.TempDir(), "BAT1", map[string]string{
		"type":               "Battery\n",
		"energy_now":         "40000000\n",
		"energy_full":        "80000000\n",
		"energy_full_design": "90000000\n",
		"capacity":           "95\n",
		"status":             "Discharging\n",
	})

	s := ReadBattery(path, 42)
	assert.Equal(t, 42.0, s.Timestamp)
	assert.Equal(t, path, s.Source)
	assert.Equal(t, 40.0, *s.EnergyNow)
	assert.Equal(t, 80.0, *s.EnergyFull)
	assert.Equal(t, 90.0, *s.EnergyFullDesign)
	assert.InDelta(t, 50.0, *s.Percentage, 1e-6)
	assert.InDelta(t, 80.0/90.0*100, *s.HealthPct, 1e-6)
	assert.Equal(t, 95.0, *s.CapacityPct)
	assert.Equal(t, "Discharging", s.Status)
}

func TestReadBatteryChargeAndVoltage(t *testing.T) {
	path := writeSupply(t, t.TempDir(), "BAT0", map[string]string{
		"type":               "Battery\n",
		"charge_now":         "2000000\n",
		"charge_full":        "4000000\n",
		"charge_full_design": "4500000\n",
		"voltage_min_design": "11000000\n",
		"capacity":           "90\n",
		"status":             "Charging\n",
	})

	s := ReadBattery(path, 1)
	assert.InDelta(t, 22.0, *s.EnergyNow, 1e-9)
	assert.InDelta(t, 44.0, *s.EnergyFull, 1e-9)
	assert.InDelta(t, 49.5, *s.EnergyFullDesign, 1e-9)
	assert.InDelta(t, 50.0, *s.Percentage, 1e-6)
	assert.InDelta(t, 44.0/49.5*100, *s.HealthPct, 1e-6)
	assert.Equal(t, "Charging", s.Status)
}

func TestReadBatteryPrefersUevent(t *testing.T) {
	path := writeSupply(t, t.TempDir(), "BAT2", map[string]string{
		"uevent": strings.Join([]string{
			"POWER_SUPPLY_ENERGY_NOW=30000000",
			"POWER_SUPPLY_ENERGY_FULL=60000000",
			"POWER_SUPPLY_ENERGY_FULL_DESIGN=80000000",
			"POWER_SUPPLY_CAPACITY=85",
			"POWER_SUPPLY_STATUS=Discharging",
		}, "\n"),
		"energy_now": "1000000\n",
		"status":     "Full\n",
	})

	s := ReadBattery(path, 1)
	assert.Equal(t, 30.0, *s.EnergyNow)
	assert.Equal(t, 60.0, *s.EnergyFull)
	assert.Equal(t, 80.0, *s.EnergyFullDesign)
	assert.InDelta(t, 50.0, *s.Percentage, 1e-6)
	assert.InDelta(t, 75.0, *s.HealthPct, 1e-6)
	assert.Equal(t, 85.0, *s.CapacityPct)
	assert.Equal(t, "Discharging", s.Status)
}

func TestReadBatteryMissingValues(t *testing.T) {
	path := writeSupply(t, t.TempDir(), "BAT0", map[string]string{
		"type":        "Battery\n",
		"energy_now":  "garbage\n",
		"energy_full": "0\n",
		"charge_now":  "2000000\n",
	})

	s := ReadBattery(path, 1)
	assert.Nil(t, s.EnergyNow, "charge without voltage cannot be converted")
	assert.Equal(t, 0.0, *s.EnergyFull)
	assert.Nil(t, s.EnergyFullDesign)
	assert.Nil(t, s.Percentage)
	assert.Nil(t, s.HealthPct)
	assert.Nil(t, s.CapacityPct)
	assert.Equal(t, "", s.Status)
}

func TestReadAllSharesTimestamp(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT0", map[string]string{"type": "Battery", "energy_now": "1000000"})
	writeSupply(t, root, "BAT1", map[string]string{"type": "Battery", "energy_now": "2000000"})

	samples := ReadAll(root, 99.5)
	require.Len(t, samples, 2)
	for _, s := range samples {
		assert.Equal(t, 99.5, s.Timestamp)
	}
	assert.Equal(t, "BAT0", samples[0].SourceName())
	assert.Equal(t, 2.0, *samples[1].EnergyNow)
}
