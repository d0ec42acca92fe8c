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
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRuntime(t *testing.T) {
	assert.Equal(t, "12h30m", FormatRuntime(Float(12.5)))
	assert.Equal(t, "0h00m", FormatRuntime(Float(0)))
	assert.Equal(t, "1h59m", FormatRuntime(Float(1.999)))
	assert.Equal(t, "--", FormatRuntime(nil))
	assert.Equal(t, "--", FormatRuntime(Float(-1)))
	assert.Equal(t, "--", FormatRuntime(Float(math.NaN())))
	assert.Equal(t, "--", FormatRuntime(Float(math.Inf(1))))
}

func TestFormatValues(t *testing.T) {
	assert.Equal(t, "4.80W", FormatPower(Float(4.8)))
	assert.Equal(t, "--", FormatPower(nil))
	assert.Equal(t, "79.5%", FormatPercent(Float(79.5)))
	assert.Equal(t, "--", FormatPercent(nil))
	assert.Equal(t, "59.20Wh", FormatEnergy(Float(59.2)))
	assert.Equal(t, "--", FormatEnergy(nil))
}

func TestFormatBucket(t *testing.T) {
	start := time.Date(2025, 3, 9, 14, 20, 0, 0, time.UTC)
	assert.Equal(t, "03-09 14:20", FormatBucket(start, 20*time.Minute))
	assert.Equal(t, "03-09 14:00", FormatBucket(start, 2*time.Hour))
	assert.Equal(t, "2025-03-09", FormatBucket(start, 24*time.Hour))
	assert.Equal(t, "2025-03-09 (+7d)", FormatBucket(start, 7*24*time.Hour))
}

func TestFormatSystemValues(t *testing.T) {
	assert.Equal(t, "512B", FormatBytes(Float(512)))
	assert.Equal(t, "1.5KiB", FormatBytes(Float(1536)))
	assert.Equal(t, "2.0GiB", FormatBytes(Float(2*1024*1024*1024)))
	assert.Equal(t, "2048.0TiB", FormatBytes(Float(2048*1024*1024*1024*1024)))
	assert.Equal(t, "--", FormatBytes(nil))
	assert.Equal(t, "1.0MiB/s", FormatByteRate(Float(1024*1024)))
	assert.Equal(t, "--", FormatByteRate(nil))
	assert.Equal(t, "1800MHz", FormatFrequency(Float(1800.4)))
	assert.Equal(t, "45.3C", FormatTemperature(Float(45.25)))
	assert.Equal(t, "--", FormatTemperature(nil))
}
