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
	"encoding/json"
	"math"
	"time"
)

var bucketWidths = []struct {
	upTo  time.Duration
	width time.Duration
}{
	{6 * time.Hour, 20 * time.Minute},
	{24 * time.Hour, time.Hour},
	{3 * day, 2 * time.Hour},
	{7 * day, 6 * time.Hour},
	{30 * day, day},
	{90 * day, 3 * day},
}

// LargestBucket is used for unbounded and very long timeframes.
const LargestBucket = 7 * day

// BucketWidth chooses the summary granularity for a timeframe.
func BucketWidth(t Timeframe) time.Duration {
	if t.Unbounded() {
		return LargestBucket
	}
	for _, b := range bucketWidths {
		if t.Duration <= b.upTo {
			return b.width
		}
	}
	return LargestBucket
}

// BucketStart is BucketStartIn using the local time zone.
func BucketStart(ts float64, width time.Duration) time.Time {
	return BucketStartIn(ts, width, time.Local)
}

// BucketStartIn returns the start of the bucket containing ts. Boundaries are
// aligned to wall-clock time in loc, so hourly buckets start on the local
// hour. The result is never before the epoch.
func BucketStartIn(ts float64, width time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	_, offset := time.Unix(int64(ts), 0).In(loc).Zone()
	w := width.Seconds()
	shift := float64(offset)
	aligned := math.Floor((ts+shift)/w)*w - shift
	if aligned < 0 {
		aligned = 0
	}
	return time.Unix(int64(aligned), 0).In(loc)
}

// BucketSummary is the statistics for the events falling in one bucket.
type BucketSummary struct {
	Start        time.Time     `json:"start"`
	Width        time.Duration `json:"width"`
	Count        int           `json:"count"`
	MinPercent   *float64      `json:"min_percent,omitempty"`
	AvgPercent   *float64      `json:"avg_percent,omitempty"`
	MaxPercent   *float64      `json:"max_percent,omitempty"`
	Rates        RateEstimate  `json:"rates"`
	LatestStatus string        `json:"latest_status"`
}

// SummarizeBuckets groups events into buckets of the given width and
// summarises each one. Buckets are returned oldest first; empty buckets are
// not included.
func SummarizeBuckets(events []Event, width time.Duration, loc *time.Location) []BucketSummary {
	groups := groupBuckets(events, func(e Event) float64 { return e.Timestamp }, width, loc)
	summaries := make([]BucketSummary, 0, len(groups))
	for _, g := range groups {
		bucket := g.items
		var pct NumberStats
		for _, e := range bucket {
			pct.RecordOpt(e.Percentage)
		}
		latest := bucket[len(bucket)-1].Status
		if latest == "" {
			latest = "unknown"
		}
		summaries = append(summaries, BucketSummary{
			Start:        g.start,
			Width:        width,
			Count:        len(bucket),
			MinPercent:   pct.Min(),
			AvgPercent:   pct.Average(),
			MaxPercent:   pct.Max(),
			Rates:        AverageRates(bucket),
			LatestStatus: latest,
		})
	}
	return summaries
}

// NumberStats tracks the count, total and range of a series of values.
type NumberStats struct {
	Count int
	total float64
	min   float64
	max   float64
}

// Record adds v to the series.
func (s *NumberStats) Record(v float64) {
	if s.Count == 0 {
		s.min, s.max = v, v
	} else {
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
	}
	s.total += v
	s.Count++
}

// RecordOpt records v if it is present.
func (s *NumberStats) RecordOpt(v *float64) {
	if v != nil {
		s.Record(*v)
	}
}

// Average is the mean of the recorded values, nil when there are none.
func (s NumberStats) Average() *float64 {
	if s.Count == 0 {
		return nil
	}
	return Float(s.total / float64(s.Count))
}

// Min is the smallest recorded value, nil when there are none.
func (s NumberStats) Min() *float64 {
	if s.Count == 0 {
		return nil
	}
	return Float(s.min)
}

// Max is the largest recorded value, nil when there are none.
func (s NumberStats) Max() *float64 {
	if s.Count == 0 {
		return nil
	}
	return Float(s.max)
}

// MarshalJSON writes the count with min, avg and max, leaving out absent values.
func (s NumberStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int      `json:"count"`
		Min   *float64 `json:"min,omitempty"`
		Avg   *float64 `json:"avg,omitempty"`
		Max   *float64 `json:"max,omitempty"`
	}{s.Count, s.Min(), s.Average(), s.Max()})
}
