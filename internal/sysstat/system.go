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

package sysstat

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
)

// Memory reports used memory in bytes from /proc/meminfo, as total minus
// available.
func (r *Reader) Memory(ts float64) []telemetry.Metric {
	f, err := os.Open(r.proc("meminfo"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var total, available *float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = telemetry.Float(kb * 1024)
		case "MemAvailable:":
			available = telemetry.Float(kb * 1024)
		}
	}
	if total == nil || available == nil {
		return nil
	}
	used := max(*total-*available, 0)
	m := newMetric(ts, telemetry.KindMemoryUsage, "memory", telemetry.Float(used))
	m.Details = map[string]float64{
		telemetry.DetailTotalBytes:     *total,
		telemetry.DetailAvailableBytes: *available,
		telemetry.DetailUsedBytes:      used,
	}
	return []telemetry.Metric{m}
}

// Network reports each interface's received and transmitted byte counters
// from /proc/net/dev. The value is their sum.
func (r *Reader) Network(ts float64) []telemetry.Metric {
	f, err := os.Open(r.proc("net", "dev"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var metrics []telemetry.Metric
	scanner := bufio.NewScanner(f)
	for line := 0; scanner.Scan(); line++ {
		if line < 2 {
			continue
		}
		iface, counters, ok := strings.Cut(scanner.Text(), ":")
		iface = strings.TrimSpace(iface)
		if !ok || iface == "" {
			continue
		}
		fields := strings.Fields(counters)
		if len(fields) < 16 {
			continue
		}
		m := newMetric(ts, telemetry.KindNetworkBytes, iface, nil)
		m.Details = make(map[string]float64)
		rx, rxErr := strconv.ParseFloat(fields[0], 64)
		if rxErr == nil {
			m.Details[telemetry.DetailRxBytes] = rx
		}
		tx, txErr := strconv.ParseFloat(fields[8], 64)
		if txErr == nil {
			m.Details[telemetry.DetailTxBytes] = tx
		}
		if rxErr == nil && txErr == nil {
			m.Value = telemetry.Float(rx + tx)
		}
		metrics = append(metrics, m)
	}
	return metrics
}

// Temperature reports each thermal zone in degrees Celsius, labelled by the
// zone's type.
func (r *Reader) Temperature(ts float64) []telemetry.Metric {
	root := r.sys("class", "thermal")
	var metrics []telemetry.Metric
	for _, name := range entries(root, "thermal_zone") {
		milli := readFloat(filepath.Join(root, name, "temp"))
		if milli == nil {
			continue
		}
		label, ok := readString(filepath.Join(root, name, "type"))
		if !ok {
			label = name
		}
		metrics = append(metrics, newMetric(ts, telemetry.KindTemperature, label, telemetry.Float(*milli/1000)))
	}
	return metrics
}

var gpuBusyFiles = []string{"gpu_busy_percent", "busy_percent", "gt_busy_percent"}

// activeClock finds the selected "*" line of an amdgpu pp_dpm_sclk table,
// "1: 1800Mhz *", and returns its frequency.
func activeClock(path string) *float64 {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if !strings.Contains(line, "*") {
			continue
		}
		for _, token := range strings.Fields(line) {
			num, ok := strings.CutSuffix(token, "Mhz")
			if !ok {
				num, ok = strings.CutSuffix(token, "MHz")
			}
			if !ok {
				continue
			}
			if v, err := strconv.ParseFloat(num, 64); err == nil {
				return &v
			}
		}
	}
	return nil
}

// GPU reports each DRM card's busy percentage and current frequency in MHz.
func (r *Reader) GPU(ts float64) []telemetry.Metric {
	root := r.sys("class", "drm")
	var metrics []telemetry.Metric
	for _, name := range entries(root, "card") {
		device := filepath.Join(root, name, "device")
		for _, file := range gpuBusyFiles {
			if v := readFloat(filepath.Join(device, file)); v != nil {
				metrics = append(metrics, newMetric(ts, telemetry.KindGPUUsage, name, v))
				break
			}
		}
		freq := readFloat(filepath.Join(device, "gt_cur_freq_mhz"))
		if freq == nil {
			freq = activeClock(filepath.Join(device, "pp_dpm_sclk"))
		}
		if freq != nil {
			metrics = append(metrics, newMetric(ts, telemetry.KindGPUFrequency, name, freq))
		}
	}
	return metrics
}

// PowerDraw reports every hwmon power*_input sensor in watts, as
// "<chip>:<sensor>". Readings outside 0 to 500W are skipped.
func (r *Reader) PowerDraw(ts float64) []telemetry.Metric {
	root := r.sys("class", "hwmon")
	var metrics []telemetry.Metric
	for _, hwmon := range entries(root, "") {
		dir := filepath.Join(root, hwmon)
		chip, ok := readString(filepath.Join(dir, "name"))
		if !ok {
			chip = hwmon
		}
		for _, file := range entries(dir, "power") {
			sensor, ok := strings.CutSuffix(file, "_input")
			if !ok {
				continue
			}
			micro := readFloat(filepath.Join(dir, file))
			if micro == nil {
				continue
			}
			watts := *micro / 1_000_000
			if watts < 0 || watts > maxPowerWatts {
				continue
			}
			source := fmt.Sprintf("%s:%s", chip, sensor)
			metrics = append(metrics, newMetric(ts, telemetry.KindPowerDraw, source, telemetry.Float(watts)))
		}
	}
	return metrics
}
