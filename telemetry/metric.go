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
	"sort"
	"time"
)

// Detail keys carried by system metrics alongside their value.
const (
	DetailTotalBytes     = "total_bytes"
	DetailAvailableBytes = "available_bytes"
	DetailUsedBytes      = "used_bytes"
	DetailFreeBytes      = "free_bytes"
	DetailRxBytes        = "rx_bytes"
	DetailTxBytes        = "tx_bytes"
)

// Metric is one system reading: a CPU core's usage, a thermal zone's
// temperature, an interface's byte counters.
type Metric struct {
	Timestamp float64            `json:"ts"`
	Kind      Kind               `json:"kind"`
	Source    string             `json:"source"`
	Value     *float64           `json:"value,omitempty"`
	Details   map[string]float64 `json:"details,omitempty"`
}

// Detail returns the named detail, or nil when it was not recorded.
func (m Metric) Detail(key string) *float64 {
	if v, ok := m.Details[key]; ok {
		return Float(v)
	}
	return nil
}

// Unit is the display unit of the metric's value.
func (m Metric) Unit() string {
	return m.Kind.Unit()
}

type bucketGroup[T any] struct {
	start time.Time
	items []T
}

// groupBuckets splits items into buckets of the given width, oldest first,
// keeping input order within each bucket.
func groupBuckets[T any](items []T, ts func(T) float64, width time.Duration, loc *time.Location) []bucketGroup[T] {
	index := make(map[int64]int)
	var groups []bucketGroup[T]
	for _, item := range items {
		start := BucketStartIn(ts(item), width, loc)
		i, ok := index[start.Unix()]
		if !ok {
			i = len(groups)
			index[start.Unix()] = i
			groups = append(groups, bucketGroup[T]{start: start})
		}
		groups[i].items = append(groups[i].items, item)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].start.Before(groups[j].start) })
	return groups
}

func ofKind(metrics []Metric, kind Kind) []Metric {
	var out []Metric
	for _, m := range metrics {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func metricTime(m Metric) float64 { return m.Timestamp }

// KindStats collects every present value of kind.
func KindStats(metrics []Metric, kind Kind) NumberStats {
	var stats NumberStats
	for _, m := range ofKind(metrics, kind) {
		stats.RecordOpt(m.Value)
	}
	return stats
}

// StatsBucket is the statistics of one kind within one bucket.
type StatsBucket struct {
	Start time.Time   `json:"start"`
	Stats NumberStats `json:"stats"`
}

// BucketStats summarises the present values of kind per bucket. Metrics
// without a value do not open a bucket.
func BucketStats(metrics []Metric, kind Kind, width time.Duration, loc *time.Location) []StatsBucket {
	var present []Metric
	for _, m := range ofKind(metrics, kind) {
		if m.Value != nil {
			present = append(present, m)
		}
	}
	groups := groupBuckets(present, metricTime, width, loc)
	out := make([]StatsBucket, 0, len(groups))
	for _, g := range groups {
		b := StatsBucket{Start: g.start}
		for _, m := range g.items {
			b.Stats.Record(*m.Value)
		}
		out = append(out, b)
	}
	return out
}

// UsageStats tracks used bytes and, when the total is known, used percent.
type UsageStats struct {
	Used    NumberStats `json:"used_bytes"`
	Percent NumberStats `json:"used_percent"`
}

// Record adds one reading. A missing used value is ignored, and the percent
// is only recorded for a positive total.
func (u *UsageStats) Record(used, total *float64) {
	if used == nil {
		return
	}
	u.Used.Record(*used)
	if total != nil && *total > 0 {
		u.Percent.Record(*used / *total * 100)
	}
}

// UsageBucket is the memory or disk usage within one bucket.
type UsageBucket struct {
	Start time.Time  `json:"start"`
	Usage UsageStats `json:"usage"`
}

// BucketUsage summarises a usage kind (memory or disk) per bucket, taking
// the total from each metric's total_bytes detail.
func BucketUsage(metrics []Metric, kind Kind, width time.Duration, loc *time.Location) []UsageBucket {
	groups := groupBuckets(ofKind(metrics, kind), metricTime, width, loc)
	out := make([]UsageBucket, 0, len(groups))
	for _, g := range groups {
		b := UsageBucket{Start: g.start}
		for _, m := range g.items {
			b.Usage.Record(m.Value, m.Detail(DetailTotalBytes))
		}
		out = append(out, b)
	}
	return out
}

// NetworkRate is the receive and transmit throughput of one interface
// between two readings, in bytes per second.
type NetworkRate struct {
	Timestamp float64  `json:"ts"`
	Source    string   `json:"source"`
	Rx        *float64 `json:"rx_bytes_per_sec,omitempty"`
	Tx        *float64 `json:"tx_bytes_per_sec,omitempty"`
}

func counterRate(prev, next *float64, seconds float64) *float64 {
	if prev == nil || next == nil || *next < *prev || seconds <= 0 {
		return nil
	}
	return Float((*next - *prev) / seconds)
}

// NetworkRates derives per-interface throughput from consecutive byte
// counter readings. A counter that went backwards gives no rate for that
// step; a step with neither rate is dropped. Rates are timestamped at the
// later reading.
func NetworkRates(metrics []Metric) []NetworkRate {
	bySource := make(map[string][]Metric)
	var sources []string
	for _, m := range ofKind(metrics, KindNetworkBytes) {
		if _, ok := bySource[m.Source]; !ok {
			sources = append(sources, m.Source)
		}
		bySource[m.Source] = append(bySource[m.Source], m)
	}
	sort.Strings(sources)

	var rates []NetworkRate
	for _, source := range sources {
		readings := bySource[source]
		sort.SliceStable(readings, func(i, j int) bool { return readings[i].Timestamp < readings[j].Timestamp })
		for i := 1; i < len(readings); i++ {
			prev, next := readings[i-1], readings[i]
			seconds := next.Timestamp - prev.Timestamp
			if seconds <= 0 {
				continue
			}
			rx := counterRate(prev.Detail(DetailRxBytes), next.Detail(DetailRxBytes), seconds)
			tx := counterRate(prev.Detail(DetailTxBytes), next.Detail(DetailTxBytes), seconds)
			if rx == nil && tx == nil {
				continue
			}
			rates = append(rates, NetworkRate{Timestamp: next.Timestamp, Source: source, Rx: rx, Tx: tx})
		}
	}
	return rates
}

// RateStats tracks receive and transmit throughput.
type RateStats struct {
	Rx NumberStats `json:"rx_bytes_per_sec"`
	Tx NumberStats `json:"tx_bytes_per_sec"`
}

// Samples is the larger of the receive and transmit counts.
func (r RateStats) Samples() int {
	return max(r.Rx.Count, r.Tx.Count)
}

// NetworkBucket is the network throughput within one bucket.
type NetworkBucket struct {
	Start time.Time `json:"start"`
	Rates RateStats `json:"rates"`
}

// BucketNetworkRates summarises network rates per bucket.
func BucketNetworkRates(rates []NetworkRate, width time.Duration, loc *time.Location) []NetworkBucket {
	groups := groupBuckets(rates, func(r NetworkRate) float64 { return r.Timestamp }, width, loc)
	out := make([]NetworkBucket, 0, len(groups))
	for _, g := range groups {
		b := NetworkBucket{Start: g.start}
		for _, r := range g.items {
			b.Rates.Rx.RecordOpt(r.Rx)
			b.Rates.Tx.RecordOpt(r.Tx)
		}
		out = append(out, b)
	}
	return out
}
