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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
)

// cpuTimes is one cpu line of /proc/stat, in clock ticks.
type cpuTimes struct {
	label  string
	fields [8]uint64 // user nice system idle iowait irq softirq steal
}

func (c cpuTimes) total() uint64 {
	var t uint64
	for _, f := range c.fields {
		t += f
	}
	return t
}

func (c cpuTimes) idle() uint64 {
	return c.fields[3] + c.fields[4]
}

func readCPUTimes(path string) []cpuTimes {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var times []cpuTimes
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 9 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}
		t := cpuTimes{label: fields[0]}
		ok := true
		for i := range t.fields {
			v, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				ok = false
				break
			}
			t.fields[i] = v
		}
		if ok {
			times = append(times, t)
		}
	}
	return times
}

func sub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

// CPUUsage reads /proc/stat twice, CPUInterval apart, and reports the busy
// percentage of the aggregate "cpu" line and of each core.
func (r *Reader) CPUUsage(ts float64) []telemetry.Metric {
	path := r.proc("stat")
	first := readCPUTimes(path)
	if len(first) == 0 {
		return nil
	}
	sleepFn(r.CPUInterval)
	second := make(map[string]cpuTimes)
	for _, t := range readCPUTimes(path) {
		second[t.label] = t
	}

	var metrics []telemetry.Metric
	for _, prev := range first {
		next, ok := second[prev.label]
		if !ok {
			continue
		}
		total := sub(next.total(), prev.total())
		if total == 0 {
			continue
		}
		busy := sub(total, sub(next.idle(), prev.idle()))
		usage := float64(busy) / float64(total) * 100
		metrics = append(metrics, newMetric(ts, telemetry.KindCPUUsage, prev.label, telemetry.Float(usage)))
	}
	return metrics
}

// CPUFrequency reports each core's current scaling frequency in MHz.
func (r *Reader) CPUFrequency(ts float64) []telemetry.Metric {
	root := r.sys("devices", "system", "cpu")
	var metrics []telemetry.Metric
	for _, name := range entries(root, "cpu") {
		if len(name) < 4 {
			continue
		}
		khz := readFloat(filepath.Join(root, name, "cpufreq", "scaling_cur_freq"))
		if khz == nil {
			continue
		}
		metrics = append(metrics, newMetric(ts, telemetry.KindCPUFrequency, name, telemetry.Float(*khz/1000)))
	}
	return metrics
}
