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
	"fmt"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/internal/settings"
	"github.com/TheCacophonyProject/battery-monitor/internal/sysfs"
	"github.com/TheCacophonyProject/battery-monitor/internal/sysstat"
	"github.com/TheCacophonyProject/battery-monitor/store"
	"github.com/TheCacophonyProject/battery-monitor/telemetry"
)

const (
	// Rates for the live estimate are averaged over this window.
	rateWindow    = time.Hour
	pruneInterval = 24 * time.Hour
)

var nowFn = time.Now

type collector struct {
	db     *store.Store
	conf   *settings.Settings
	system *sysstat.Reader

	lastReportedPercent float64
	runtimeWarned       bool
	lastPrune           time.Time
}

func newCollector(db *store.Store, conf *settings.Settings) *collector {
	c := &collector{
		db:                  db,
		conf:                conf,
		lastReportedPercent: -1,
	}
	if conf.SystemMetrics {
		c.system = sysstat.NewReader(conf.ProcRoot, conf.SysRoot, conf.DiskPath)
	}
	return c
}

// estimate is the live state derived from the most recent samples.
type estimate struct {
	latest    telemetry.Event
	rates     telemetry.RateEstimate
	remaining *float64
	runtime   *float64
}

type sampleSource interface {
	FetchSamples(from time.Time) ([]telemetry.Sample, error)
}

// currentEstimate merges the samples of the last rate window. It returns
// false when nothing has been recorded in that window.
func currentEstimate(src sampleSource, now time.Time) (estimate, bool, error) {
	samples, err := src.FetchSamples(now.Add(-rateWindow))
	if err != nil {
		return estimate{}, false, err
	}
	events, err := telemetry.MergeByTimestamp(samples)
	if err != nil || len(events) == 0 {
		return estimate{}, false, err
	}
	est := estimate{
		latest: events[len(events)-1],
		rates:  telemetry.AverageRates(events),
	}
	est.remaining = telemetry.EstimateRemainingHours(est.rates.Discharge, est.latest)
	est.runtime = telemetry.EstimateRuntimeHours(est.rates.Discharge, est.latest)
	return est, true, nil
}

// collectOnce reads every battery and the system metrics with one shared
// timestamp, stores the readings and reports on the merged result.
func (c *collector) collectOnce() error {
	now := nowFn()
	ts := float64(now.UnixNano()) / 1e9

	samples := sysfs.ReadAll(c.conf.SysfsRoot, ts)
	metrics, err := c.collectSystem(ts)
	if err != nil {
		collectionErrors.Inc()
		return err
	}
	if len(samples) == 0 {
		if len(metrics) == 0 {
			log.Warn("No batteries found in ", c.conf.SysfsRoot)
			return nil
		}
		return c.prune(now)
	}
	if err := c.db.InsertSamples(samples); err != nil {
		collectionErrors.Inc()
		return fmt.Errorf("storing samples: %w", err)
	}
	samplesCollected.Add(float64(len(samples)))
	for _, s := range samples {
		log.Debugf("Logged record for %s: percent=%s health=%s status=%s",
			s.SourceName(),
			telemetry.FormatPercent(s.Percentage),
			telemetry.FormatPercent(s.HealthPct),
			s.Status)
	}

	est, ok, err := currentEstimate(c.db, now)
	if err != nil {
		collectionErrors.Inc()
		return err
	}
	if !ok {
		return nil
	}

	updateMetrics(samples, est)
	if c.shouldReportEvent(est.latest) {
		c.reportBatteryEvent(est, now)
	}
	c.checkRuntime(est, now)
	if err := emitSignal(est); err != nil {
		log.Debug("Failed to send battery signal: ", err)
	}
	return c.prune(now)
}

// collectSystem reads and stores the system metrics when they are enabled.
func (c *collector) collectSystem(ts float64) ([]telemetry.Metric, error) {
	if c.system == nil {
		return nil, nil
	}
	metrics := c.system.Collect(ts)
	if len(metrics) == 0 {
		return nil, nil
	}
	if err := c.db.InsertMetrics(metrics); err != nil {
		return nil, fmt.Errorf("storing system metrics: %w", err)
	}
	metricsCollected.Add(float64(len(metrics)))
	updateSystemMetrics(metrics)
	log.Debugf("Logged %d system metrics", len(metrics))
	return metrics, nil
}

// prune drops samples than the retention period, at most once per
// prune interval.
func (c *collector) prune(now time.Time) error {
	if c.conf.Retention <= 0 || now.Sub(c.lastPrune) < pruneInterval {
		return nil
	}
	removed, err := c.db.Prune(now.Add(-c.conf.Retention))
	if err != nil {
		return fmt.Errorf("pruning samples: %w", err)
	}
	c.lastPrune = now
	if removed > 0 {
		log.Infof("Removed %d records older than %s", removed, c.conf.Retention)
	}
	return nil
}
