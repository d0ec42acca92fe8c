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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var metricBase = float64(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC).Unix())

func metric(offset float64, kind Kind, source string, value *float64, details map[string]float64) Metric {
	return Metric{Timestamp: metricBase + offset, Kind: kind, Source: source, Value: value, Details: details}
}

func TestBucketStats(t *testing.T) {
	metrics := []Metric{
		metric(3700, KindCPUUsage, "cpu", Float(80), nil),
		metric(60, KindCPUUsage, "cpu", Float(20), nil),
		metric(120, KindCPUUsage, "cpu0", Float(40), nil),
		metric(180, KindCPUUsage, "cpu", nil, nil),
		metric(240, KindCPUFrequency, "cpu0", Float(1800), nil),
		metric(7300, KindCPUUsage, "cpu", nil, nil),
	}
	buckets := BucketStats(metrics, KindCPUUsage, time.Hour, time.UTC)
	require.Len(t, buckets, 2, "a bucket with only absent values is not opened")

	assert.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), buckets[0].Start)
	assert.Equal(t, 2, buckets[0].Stats.Count)
	assert.Equal(t, 30.0, *buckets[0].Stats.Average())
	assert.Equal(t, 20.0, *buckets[0].Stats.Min())
	assert.Equal(t, 40.0, *buckets[0].Stats.Max())
	assert.Equal(t, time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC), buckets[1].Start)
	assert.Equal(t, 80.0, *buckets[1].Stats.Max())

	assert.Empty(t, BucketStats(metrics, KindGPUUsage, time.Hour, time.UTC))

	all := KindStats(metrics, KindCPUUsage)
	assert.Equal(t, 3, all.Count)
	assert.InDelta(t, 46.67, *all.Average(), 0.01)
}

func TestBucketUsage(t *testing.T) {
	gib := 1024.0 * 1024 * 1024
	metrics := []Metric{
		metric(0, KindMemoryUsage, "memory", Float(2*gib), map[string]float64{DetailTotalBytes: 8 * gib}),
		metric(300, KindMemoryUsage, "memory", Float(4*gib), map[string]float64{DetailTotalBytes: 8 * gib}),
		metric(600, KindMemoryUsage, "memory", Float(6*gib), nil),
		metric(900, KindMemoryUsage, "memory", nil, map[string]float64{DetailTotalBytes: 8 * gib}),
		metric(1200, KindMemoryUsage, "memory", Float(gib), map[string]float64{DetailTotalBytes: 0}),
	}
	buckets := BucketUsage(metrics, KindMemoryUsage, time.Hour, time.UTC)
	require.Len(t, buckets, 1)
	usage := buckets[0].Usage
	assert.Equal(t, 4, usage.Used.Count)
	assert.Equal(t, gib, *usage.Used.Min())
	assert.Equal(t, 2, usage.Percent.Count, "percent needs a positive total")
	assert.Equal(t, 25.0, *usage.Percent.Min())
	assert.Equal(t, 50.0, *usage.Percent.Max())
}

func TestNetworkRates(t *testing.T) {
	counters := func(rx, tx float64) map[string]float64 {
		return map[string]float64{DetailRxBytes: rx, DetailTxBytes: tx}
	}
	metrics := []Metric{
		metric(100, KindNetworkBytes, "eth0", Float(3000), counters(2000, 1000)),
		metric(0, KindNetworkBytes, "eth0", Float(0), counters(0, 0)),
		metric(200, KindNetworkBytes, "eth0", Float(500), counters(100, 1400)), // rx reset
		metric(200, KindNetworkBytes, "eth0", Float(500), counters(100, 1400)), // no time passed
		metric(0, KindNetworkBytes, "wlan0", Float(0), map[string]float64{DetailRxBytes: 10}),
		metric(10, KindNetworkBytes, "wlan0", Float(0), nil),
	}
	rates := NetworkRates(metrics)
	require.Len(t, rates, 2)

	assert.Equal(t, "eth0", rates[0].Source)
	assert.Equal(t, metricBase+100, rates[0].Timestamp)
	assert.Equal(t, 20.0, *rates[0].Rx)
	assert.Equal(t, 10.0, *rates[0].Tx)

	assert.Nil(t, rates[1].Rx)
	assert.Equal(t, 4.0, *rates[1].Tx)

	buckets := BucketNetworkRates(rates, 20*time.Minute, time.UTC)
	require.Len(t, buckets, 1)
	assert.Equal(t, 2, buckets[0].Rates.Samples())
	assert.Equal(t, 1, buckets[0].Rates.Rx.Count)
	assert.Equal(t, 7.0, *buckets[0].Rates.Tx.Average())
	assert.Equal(t, 10.0, *buckets[0].Rates.Tx.Max())
}

func TestMetricJSON(t *testing.T) {
	m := metric(0, KindTemperature, "x86_pkg_temp", Float(45.5), nil)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"temperature"`)

	var decoded Metric
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"fan_rpm"}`), &decoded))

	var stats NumberStats
	stats.Record(2)
	stats.Record(4)
	data, err = json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2,"min":2,"avg":3,"max":4}`, string(data))
	data, err = json.Marshal(NumberStats{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0}`, string(data))
}

func TestKindGroups(t *testing.T) {
	for _, k := range BatteryKinds {
		assert.True(t, k.IsBattery(), k.String())
	}
	for _, k := range SystemKinds {
		assert.False(t, k.IsBattery(), k.String())
	}
	assert.Len(t, Kinds, len(BatteryKinds)+len(SystemKinds))
	assert.Equal(t, "MHz", KindCPUFrequency.Unit())
	assert.Equal(t, "bytes", KindNetworkBytes.Unit())
	assert.Equal(t, "W", KindPowerDraw.Unit())
	assert.Equal(t, "C", KindTemperature.Unit())
	assert.Equal(t, "%", KindGPUUsage.Unit())

	s := SampleFromValues(1, "BAT0", "", map[Kind]float64{KindCPUUsage: 50, KindHealth: 90})
	assert.Equal(t, map[Kind]float64{KindHealth: 90}, s.Values())
}
