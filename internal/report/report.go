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
	"slices"
	"sort"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
)

// SampleSource is where the report reads stored samples from.
type SampleSource interface {
	FetchSamples(from time.Time) ([]telemetry.Sample, error)
}

// MetricSource is implemented by sources that also store system metrics.
type MetricSource interface {
	FetchMetrics(from time.Time, kinds []telemetry.Kind) ([]telemetry.Metric, error)
}

// ProcessorBucket is the usage and frequency of a CPU or GPU within one
// bucket.
type ProcessorBucket struct {
	Start     time.Time             `json:"start"`
	Usage     telemetry.NumberStats `json:"usage_percent"`
	Frequency telemetry.NumberStats `json:"frequency_mhz"`
}

// Samples is the larger of the usage and frequency counts.
func (b ProcessorBucket) Samples() int {
	return max(b.Usage.Count, b.Frequency.Count)
}

// Report is the usage summary for one timeframe.
type Report struct {
	Timeframe     string                    `json:"timeframe"`
	GeneratedAt   time.Time                 `json:"generated_at"`
	Since         *time.Time                `json:"since,omitempty"`
	Presets       []Preset                  `json:"presets"`
	Records       int                       `json:"records"`
	MetricRecords int                       `json:"metric_records"`
	EventCount    int                       `json:"events"`
	Sources       []string                  `json:"sources"`
	Rates         telemetry.RateEstimate    `json:"rates"`
	PowerDraw     *float64                  `json:"avg_power_draw_w,omitempty"`
	RuntimeHours  *float64                  `json:"runtime_hours,omitempty"`
	Latest        *telemetry.Event          `json:"latest,omitempty"`
	BucketWidth   time.Duration             `json:"bucket_width"`
	Buckets       []telemetry.BucketSummary `json:"buckets"`

	CPU         []ProcessorBucket         `json:"cpu,omitempty"`
	GPU         []ProcessorBucket         `json:"gpu,omitempty"`
	Memory      []telemetry.UsageBucket   `json:"memory,omitempty"`
	Network     []telemetry.NetworkBucket `json:"network,omitempty"`
	Temperature []telemetry.StatsBucket   `json:"temperature,omitempty"`
	Disk        []telemetry.UsageBucket   `json:"disk,omitempty"`

	Events  []telemetry.Event `json:"-"`
	metrics []telemetry.Metric
	title   string
}

// Build reads the samples and metrics inside tf ending at now and
// summarises them with buckets aligned to loc. With no presets only the
// battery section is built. Metrics are only read when src is also a
// MetricSource.
func Build(src SampleSource, tf telemetry.Timeframe, now time.Time, loc *time.Location, presets ...Preset) (*Report, error) {
	r := &Report{
		Timeframe:   tf.Label,
		GeneratedAt: now.In(loc),
		Presets:     NormalizePresets(presets),
		BucketWidth: telemetry.BucketWidth(tf),
		Sources:     []string{},
		title:       tf.Title(),
	}

	var from time.Time
	if since, ok := tf.Since(now); ok {
		from = since
		r.Since = &since
	}
	if ms, ok := src.(MetricSource); ok {
		metrics, err := ms.FetchMetrics(from, kindsFor(r.Presets))
		if err != nil {
			return nil, err
		}
		r.metrics = metrics
		r.MetricRecords = len(metrics)
	}
	if r.Has(PresetBattery) {
		if err := r.buildBattery(src, from, loc); err != nil {
			return nil, err
		}
	}
	r.buildSystem(loc)
	return r, nil
}

// buildBattery fills the battery section. Recorded power draw is preferred
// over the battery rates as the discharge figure, for the whole window and
// per bucket.
func (r *Report) buildBattery(src SampleSource, from time.Time, loc *time.Location) error {
	samples, err := src.FetchSamples(from)
	if err != nil {
		return err
	}
	events, err := telemetry.MergeByTimestamp(samples)
	if err != nil {
		return err
	}

	r.Records = len(samples)
	r.EventCount = len(events)
	r.Events = events
	r.Sources = sourceNames(samples)
	r.Rates = telemetry.AverageRates(events)
	r.PowerDraw = telemetry.KindStats(r.metrics, telemetry.KindPowerDraw).Average()
	if r.PowerDraw != nil {
		r.Rates.Discharge = r.PowerDraw
	}
	if len(events) > 0 {
		latest := events[len(events)-1]
		r.Latest = &latest
		r.RuntimeHours = telemetry.EstimateRuntimeHours(r.Rates.Discharge, latest)
	}

	r.Buckets = telemetry.SummarizeBuckets(events, r.BucketWidth, loc)
	draw := make(map[int64]*float64)
	for _, b := range telemetry.BucketStats(r.metrics, telemetry.KindPowerDraw, r.BucketWidth, loc) {
		draw[b.Start.Unix()] = b.Stats.Average()
	}
	for i := range r.Buckets {
		if avg := draw[r.Buckets[i].Start.Unix()]; avg != nil {
			r.Buckets[i].Rates.Discharge = avg
		}
	}
	return nil
}

func (r *Report) buildSystem(loc *time.Location) {
	width := r.BucketWidth
	for _, p := range r.Presets {
		switch p {
		case PresetCPU:
			r.CPU = processorBuckets(r.metrics, telemetry.KindCPUUsage, telemetry.KindCPUFrequency, width, loc)
		case PresetGPU:
			r.GPU = processorBuckets(r.metrics, telemetry.KindGPUUsage, telemetry.KindGPUFrequency, width, loc)
		case PresetMemory:
			r.Memory = telemetry.BucketUsage(r.metrics, telemetry.KindMemoryUsage, width, loc)
		case PresetNetwork:
			r.Network = telemetry.BucketNetworkRates(telemetry.NetworkRates(r.metrics), width, loc)
		case PresetTemperature:
			r.Temperature = telemetry.BucketStats(r.metrics, telemetry.KindTemperature, width, loc)
		case PresetDisk:
			r.Disk = telemetry.BucketUsage(r.metrics, telemetry.KindDiskUsage, width, loc)
		}
	}
}

// processorBuckets joins usage and frequency statistics on bucket start. A
// bucket is kept when either series has a reading in it.
func processorBuckets(metrics []telemetry.Metric, usage, freq telemetry.Kind, width time.Duration, loc *time.Location) []ProcessorBucket {
	index := make(map[int64]int)
	var out []ProcessorBucket
	bucket := func(start time.Time) *ProcessorBucket {
		i, ok := index[start.Unix()]
		if !ok {
			i = len(out)
			index[start.Unix()] = i
			out = append(out, ProcessorBucket{Start: start})
		}
		return &out[i]
	}
	for _, b := range telemetry.BucketStats(metrics, usage, width, loc) {
		bucket(b.Start).Usage = b.Stats
	}
	for _, b := range telemetry.BucketStats(metrics, freq, width, loc) {
		bucket(b.Start).Frequency = b.Stats
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func sourceNames(samples []telemetry.Sample) []string {
	seen := make(map[string]bool)
	names := []string{}
	for _, s := range samples {
		name := s.SourceName()
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Has reports whether the preset's section is included.
func (r *Report) Has(p Preset) bool {
	return slices.Contains(r.Presets, p)
}

// HasData reports whether any selected section has something to show.
func (r *Report) HasData() bool {
	for _, p := range r.Presets {
		if p == PresetBattery && r.Records > 0 {
			return true
		}
		for _, m := range r.metrics {
			if slices.Contains(presetKinds[p], m.Kind) {
				return true
			}
		}
	}
	return false
}

// Title is the human readable timeframe, "last 6 hours".
func (r *Report) Title() string {
	if r.title != "" {
		return r.title
	}
	return r.Timeframe
}
