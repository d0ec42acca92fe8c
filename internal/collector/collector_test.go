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

package collector

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/internal/settings"
	"github.com/TheCacophonyProject/battery-monitor/internal/sysstat"
	"github.com/TheCacophonyProject/battery-monitor/store"
	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"github.com/TheCacophonyProject/event-reporter/v3/eventclient"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type testRig struct {
	t       *testing.T
	root    string
	db      *store.Store
	conf    *settings.Settings
	events  []eventclient.Event
	signals []estimate
}

func newTestRig(t *testing.T) *testRig {
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "battery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conf := settings.DefaultSettings()
	conf.SysfsRoot = filepath.Join(dir, "power_supply")
	conf.DatabasePath = filepath.Join(dir, "battery.db")
	conf.SystemMetrics = false

	rig := &testRig{t: t, root: conf.SysfsRoot, db: db, conf: &conf}

	origAdd, origEmit, origNow := addEvent, emitSignal, nowFn
	t.Cleanup(func() {
		addEvent, emitSignal, nowFn = origAdd, origEmit, origNow
	})
	addEvent = func(e eventclient.Event) error {
		rig.events = append(rig.events, e)
		return nil
	}
	emitSignal = func(est estimate) error {
		rig.signals = append(rig.signals, est)
		return nil
	}
	return rig
}

// setBattery writes a supply whose energies are given in Wh.
func (r *testRig) setBattery(name string, now, full, design float64, status string) {
	dir := filepath.Join(r.root, name)
	require.NoError(r.t, os.MkdirAll(dir, 0755))
	files := map[string]string{
		"type":               "Battery",
		"energy_now":         fmt.Sprintf("%d", int64(now*1e6)),
		"energy_full":        fmt.Sprintf("%d", int64(full*1e6)),
		"energy_full_design": fmt.Sprintf("%d", int64(design*1e6)),
		"status":             status,
	}
	for file, content := range files {
		require.NoError(r.t, os.WriteFile(filepath.Join(dir, file), []byte(content+"\n"), 0644))
	}
}

func (r *testRig) collectAt(c *collector, at time.Time) {
	nowFn = func() time.Time { return at }
	require.NoError(r.t, c.collectOnce())
}

func (r *testRig) eventsOfType(eventType string) []eventclient.Event {
	var out []eventclient.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func TestCollectOnceSharesTimestamp(t *testing.T) {
	rig := newTestRig(t)
	rig.setBattery("BAT0", 30, 60, 70, "Discharging")
	rig.setBattery("BAT1", 20, 40, 50, "Discharging")
	c := newCollector(rig.db, rig.conf)

	rig.collectAt(c, start)

	samples, err := rig.db.FetchSamples(time.Time{})
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, samples[0].Timestamp, samples[1].Timestamp)
	assert.Equal(t, float64(start.Unix()), samples[0].Timestamp)

	events, err := rig.db.CountEvents(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, events)

	require.Len(t, rig.signals, 1)
	assert.Equal(t, "BAT0+BAT1", rig.signals[0].latest.Sources)
	assert.InDelta(t, 50.0, *rig.signals[0].latest.Percentage, 1e-9)
	assert.InDelta(t, 50.0, testutil.ToFloat64(batteryPercent), 1e-9)
	assert.Equal(t, 30.0, testutil.ToFloat64(batteryEnergy.WithLabelValues("BAT0")))
}

func TestCollectReportsEventsAndRuntimeWarning(t *testing.T) {
	rig := newTestRig(t)
	c := newCollector(rig.db, rig.conf)

	steps := []struct{ bat0, bat1 float64 }{
		{30, 20},     // 50%, first report
		{29.5, 19.5}, // 49%, small change
		{25, 15},     // 40%, reported, runtime now low
		{24.5, 14.5}, // 39%, still low, no repeat warning
	}
	for i, step := range steps {
		rig.setBattery("BAT0", step.bat0, 60, 70, "Discharging")
		rig.setBattery("BAT1", step.bat1, 40, 50, "Discharging")
		rig.collectAt(c, start.Add(time.Duration(i)*5*time.Minute))
	}

	history := rig.eventsOfType(historyEventType)
	require.Len(t, history, 2)
	assert.Equal(t, 50, history[0].Details["battery"])
	assert.Equal(t, 40, history[1].Details["battery"])
	assert.Equal(t, "BAT0+BAT1", history[1].Details["sources"])
	assert.Equal(t, start, history[0].Timestamp)

	warnings := rig.eventsOfType(warningEventType)
	require.Len(t, warnings, 1)
	assert.InDelta(t, 0.67, warnings[0].Details["remainingHours"], 0.01)
	assert.Equal(t, 60.0, warnings[0].Details["dischargeW"])

	assert.Len(t, rig.signals, 4)
	assert.InDelta(t, 39.0, testutil.ToFloat64(batteryPercent), 1e-9)
}

func TestRuntimeWarningResetsWhenCharging(t *testing.T) {
	rig := newTestRig(t)
	c := newCollector(rig.db, rig.conf)

	low := estimate{latest: telemetry.Event{Status: "Discharging"}, remaining: telemetry.Float(1)}
	c.checkRuntime(low, start)
	c.checkRuntime(low, start)
	assert.Len(t, rig.eventsOfType(warningEventType), 1)

	c.checkRuntime(estimate{latest: telemetry.Event{Status: "Charging"}, remaining: telemetry.Float(1)}, start)
	assert.False(t, c.runtimeWarned)

	c.checkRuntime(low, start)
	assert.Len(t, rig.eventsOfType(warningEventType), 2)
}

func TestShouldReportEvent(t *testing.T) {
	rig := newTestRig(t)
	c := newCollector(rig.db, rig.conf)

	assert.False(t, c.shouldReportEvent(telemetry.Event{}))
	assert.True(t, c.shouldReportEvent(telemetry.Event{Percentage: telemetry.Float(80)}))
	assert.Equal(t, -1.0, c.lastReportedPercent, "checking does not record")

	c.lastReportedPercent = 80
	assert.False(t, c.shouldReportEvent(telemetry.Event{Percentage: telemetry.Float(76)}))
	assert.True(t, c.shouldReportEvent(telemetry.Event{Percentage: telemetry.Float(75)}))
	assert.True(t, c.shouldReportEvent(telemetry.Event{Percentage: telemetry.Float(85)}))
}

func TestFailedEventIsRetried(t *testing.T) {
	rig := newTestRig(t)
	c := newCollector(rig.db, rig.conf)
	rig.setBattery("BAT0", 30, 60, 70, "Discharging")

	addEvent = func(e eventclient.Event) error {
		return errors.New("event reporter unavailable")
	}
	rig.collectAt(c, start)
	assert.Empty(t, rig.events)
	assert.Equal(t, -1.0, c.lastReportedPercent)

	addEvent = func(e eventclient.Event) error {
		rig.events = append(rig.events, e)
		return nil
	}
	rig.collectAt(c, start.Add(5*time.Minute))
	history := rig.eventsOfType(historyEventType)
	require.Len(t, history, 1)
	assert.Equal(t, 50, history[0].Details["battery"])
	assert.InDelta(t, 50.0, c.lastReportedPercent, 1e-9)

	rig.collectAt(c, start.Add(10*time.Minute))
	assert.Len(t, rig.eventsOfType(historyEventType), 1)
}

func TestCollectWithoutBatteries(t *testing.T) {
	rig := newTestRig(t)
	c := newCollector(rig.db, rig.conf)
	rig.collectAt(c, start)

	n, err := rig.db.CountSamples(time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rig.events)
	assert.Empty(t, rig.signals)
}

// enableSystemMetrics points the collector at a fake /proc and /sys.
func (r *testRig) enableSystemMetrics(c *collector) {
	dir := r.t.TempDir()
	files := map[string]string{
		"proc/meminfo":                         "MemTotal: 8000 kB\nMemAvailable: 2000 kB\n",
		"sys/class/thermal/thermal_zone0/temp": "41000\n",
		"sys/class/thermal/thermal_zone0/type": "cpu-thermal\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(r.t, os.WriteFile(path, []byte(content), 0644))
	}
	r.conf.SystemMetrics = true
	c.system = sysstat.NewReader(filepath.Join(dir, "proc"), filepath.Join(dir, "sys"), dir)
	c.system.CPUInterval = 0
}

func TestCollectStoresSystemMetrics(t *testing.T) {
	rig := newTestRig(t)
	rig.setBattery("BAT0", 30, 60, 70, "Discharging")
	c := newCollector(rig.db, rig.conf)
	rig.enableSystemMetrics(c)

	rig.collectAt(c, start)

	metrics, err := rig.db.FetchMetrics(time.Time{}, []telemetry.Kind{telemetry.KindMemoryUsage, telemetry.KindTemperature})
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	for _, m := range metrics {
		assert.Equal(t, float64(start.Unix()), m.Timestamp)
	}
	assert.Equal(t, 41.0, testutil.ToFloat64(systemValue.WithLabelValues("temperature", "cpu-thermal")))
	assert.Len(t, rig.signals, 1)
}

func TestCollectSystemMetricsWithoutBatteries(t *testing.T) {
	rig := newTestRig(t)
	c := newCollector(rig.db, rig.conf)
	rig.enableSystemMetrics(c)

	rig.collectAt(c, start)

	n, err := rig.db.CountSamples(time.Time{})
	require.NoError(t, err)
	assert.Zero(t, n)
	m, err := rig.db.CountMetrics(time.Time{})
	require.NoError(t, err)
	assert.Positive(t, m)
	assert.Empty(t, rig.signals)
	assert.Equal(t, start, c.lastPrune)
}

func TestNewCollectorSystemReader(t *testing.T) {
	rig := newTestRig(t)
	assert.Nil(t, newCollector(rig.db, rig.conf).system)

	rig.conf.SystemMetrics = true
	rig.conf.ProcRoot = "/tmp/proc"
	c := newCollector(rig.db, rig.conf)
	require.NotNil(t, c.system)
	assert.Equal(t, "/tmp/proc", c.system.ProcRoot)
}

func TestCollectPrunesOldSamples(t *testing.T) {
	rig := newTestRig(t)
	rig.conf.Retention = 24 * time.Hour
	old := telemetry.Sample{Timestamp: float64(start.Add(-48 * time.Hour).Unix()), EnergyNow: telemetry.Float(1), Source: "BAT0"}
	require.NoError(t, rig.db.InsertSamples([]telemetry.Sample{old}))

	rig.setBattery("BAT0", 30, 60, 70, "Discharging")
	c := newCollector(rig.db, rig.conf)
	rig.collectAt(c, start)

	samples, err := rig.db.FetchSamples(time.Time{})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, float64(start.Unix()), samples[0].Timestamp)
	assert.Equal(t, start, c.lastPrune)
}

func TestCollectWithClockNearEpochKeepsHistory(t *testing.T) {
	rig := newTestRig(t)
	early := telemetry.Sample{Timestamp: 100, EnergyNow: telemetry.Float(31), Source: "BAT0"}
	require.NoError(t, rig.db.InsertSamples([]telemetry.Sample{early}))

	rig.setBattery("BAT0", 30, 60, 70, "Discharging")
	c := newCollector(rig.db, rig.conf)
	rig.collectAt(c, time.Unix(3600, 0))

	n, err := rig.db.CountSamples(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestApplyArgs(t *testing.T) {
	t.Setenv(settings.DBEnvVar, "")
	conf := settings.DefaultSettings()
	applyArgs(&conf, Args{})
	assert.Equal(t, settings.DefaultDB, conf.DatabasePath)
	assert.True(t, conf.SystemMetrics)
	assert.Equal(t, 5*time.Minute, conf.PollInterval)

	applyArgs(&conf, Args{
		DB:             "/tmp/battery.db",
		Interval:       time.Minute,
		SysfsRoot:      "/tmp/power_supply",
		MetricsAddress: ":9100",
		NoSystem:       true,
	})
	assert.Equal(t, "/tmp/battery.db", conf.DatabasePath)
	assert.Equal(t, time.Minute, conf.PollInterval)
	assert.Equal(t, "/tmp/power_supply", conf.SysfsRoot)
	assert.Equal(t, ":9100", conf.MetricsAddress)
	assert.False(t, conf.SystemMetrics)
}
