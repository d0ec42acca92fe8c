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

// Package sysstat reads system metrics from /proc and /sys: CPU, GPU,
// memory, disk, network, temperature and power draw.
package sysstat

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
)

const (
	DefaultProcRoot = "/proc"
	DefaultSysRoot  = "/sys"
	DefaultDiskPath = "/"

	// CPU usage is measured across this interval.
	DefaultCPUInterval = 100 * time.Millisecond

	// Power readings above this are sensor glitches.
	maxPowerWatts = 500.0
)

var sleepFn = time.Sleep

// Reader collects system metrics from the given roots.
type Reader struct {
	ProcRoot    string
	SysRoot     string
	DiskPath    string
	CPUInterval time.Duration
}

// NewReader returns a Reader, using the default root for any empty argument.
func NewReader(procRoot, sysRoot, diskPath string) *Reader {
	r := &Reader{
		ProcRoot:    procRoot,
		SysRoot:     sysRoot,
		DiskPath:    diskPath,
		CPUInterval: DefaultCPUInterval,
	}
	if r.ProcRoot == "" {
		r.ProcRoot = DefaultProcRoot
	}
	if r.SysRoot == "" {
		r.SysRoot = DefaultSysRoot
	}
	if r.DiskPath == "" {
		r.DiskPath = DefaultDiskPath
	}
	return r
}

// Collect reads every metric, stamping each with ts. CPU usage is measured
// while the other readings are taken. Sources that cannot be read are left
// out.
func (r *Reader) Collect(ts float64) []telemetry.Metric {
	cpu := make(chan []telemetry.Metric, 1)
	go func() {
		cpu <- r.CPUUsage(ts)
	}()

	var metrics []telemetry.Metric
	metrics = append(metrics, r.CPUFrequency(ts)...)
	metrics = append(metrics, r.Memory(ts)...)
	metrics = append(metrics, r.Network(ts)...)
	metrics = append(metrics, r.Disk(ts)...)
	metrics = append(metrics, r.Temperature(ts)...)
	metrics = append(metrics, r.GPU(ts)...)
	metrics = append(metrics, r.PowerDraw(ts)...)
	return append(metrics, <-cpu...)
}

func (r *Reader) proc(parts ...string) string {
	return filepath.Join(append([]string{r.ProcRoot}, parts...)...)
}

func (r *Reader) sys(parts ...string) string {
	return filepath.Join(append([]string{r.SysRoot}, parts...)...)
}

func newMetric(ts float64, kind telemetry.Kind, source string, value *float64) telemetry.Metric {
	return telemetry.Metric{Timestamp: ts, Kind: kind, Source: source, Value: value}
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

// entries lists the names in dir starting with prefix, in name order.
func entries(dir, prefix string) []string {
	list, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range list {
		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	return names
}
