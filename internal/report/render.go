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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
)

// Formats accepted by Write.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Write renders the report in the named format.
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatTable, "":
		return WriteTable(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	}
	return fmt.Errorf("unknown report format: %s", format)
}

// WriteTable prints each selected section as aligned text.
func WriteTable(w io.Writer, r *Report) error {
	if r.Has(PresetBattery) {
		if err := writeBatteryTable(w, r); err != nil {
			return err
		}
	}
	for _, p := range r.Presets {
		var err error
		switch p {
		case PresetCPU:
			err = writeSection(w, r, "CPU", processorHeader, processorRows(r.CPU, r.BucketWidth))
		case PresetGPU:
			err = writeSection(w, r, "GPU", processorHeader, processorRows(r.GPU, r.BucketWidth))
		case PresetMemory:
			err = writeSection(w, r, "Memory", usageHeader, usageRows(r.Memory, r.BucketWidth))
		case PresetNetwork:
			err = writeSection(w, r, "Network", networkHeader, networkRows(r.Network, r.BucketWidth))
		case PresetTemperature:
			err = writeSection(w, r, "Temperature", temperatureHeader, temperatureRows(r.Temperature, r.BucketWidth))
		case PresetDisk:
			err = writeSection(w, r, "Disk", usageHeader, usageRows(r.Disk, r.BucketWidth))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeBatteryTable(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Battery summary (%s)\n", r.Title())
	fmt.Fprintf(tw, "Records in window\t%d\n", r.Records)
	fmt.Fprintf(tw, "Events in window\t%d\n", r.EventCount)
	if len(r.Sources) > 0 {
		fmt.Fprintf(tw, "Batteries\t%s\n", strings.Join(r.Sources, ", "))
	}
	if r.Latest != nil {
		fmt.Fprintf(tw, "Latest charge\t%s (%s)\n", telemetry.FormatPercent(r.Latest.Percentage), statusOrUnknown(r.Latest.Status))
		fmt.Fprintf(tw, "Battery health\t%s\n", telemetry.FormatPercent(r.Latest.HealthPct))
	}
	fmt.Fprintf(tw, "Avg discharge power\t%s\n", telemetry.FormatPower(r.Rates.Discharge))
	fmt.Fprintf(tw, "Avg charge power\t%s\n", telemetry.FormatPower(r.Rates.Charge))
	fmt.Fprintf(tw, "Est runtime (full)\t%s\n", telemetry.FormatRuntime(r.RuntimeHours))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Buckets) == 0 {
		_, err := fmt.Fprintf(w, "\nNo battery samples available for buckets in %s.\n", r.Title())
		return err
	}

	fmt.Fprintf(w, "\nBattery stats (%s)\n", r.Title())
	fmt.Fprintln(tw, "Window\tRecords\tMin %\tAvg %\tMax %\tAvg discharge W\tAvg charge W\tLatest status")
	for _, b := range r.Buckets {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			telemetry.FormatBucket(b.Start, b.Width),
			b.Count,
			telemetry.FormatPercent(b.MinPercent),
			telemetry.FormatPercent(b.AvgPercent),
			telemetry.FormatPercent(b.MaxPercent),
			telemetry.FormatPower(b.Rates.Discharge),
			telemetry.FormatPower(b.Rates.Charge),
			b.LatestStatus,
		)
	}
	return tw.Flush()
}

var (
	processorHeader   = []string{"Window", "Samples", "Min usage", "Avg usage", "Peak usage", "Min freq", "Avg freq", "Peak freq"}
	usageHeader       = []string{"Window", "Samples", "Min used", "Avg used", "Min used %", "Avg used %", "Peak used %"}
	networkHeader     = []string{"Window", "Samples", "Avg down", "Peak down", "Avg up", "Peak up"}
	temperatureHeader = []string{"Window", "Samples", "Min temp", "Avg temp", "Peak temp"}
)

// writeSection prints one system section, or a note when it has no rows.
func writeSection(w io.Writer, r *Report, name string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "\nNo %s samples available for %s.\n", name, r.Title())
		return err
	}
	fmt.Fprintf(w, "\n%s stats (%s)\n", name, r.Title())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func processorRows(buckets []ProcessorBucket, width time.Duration) [][]string {
	var rows [][]string
	for _, b := range buckets {
		rows = append(rows, []string{
			telemetry.FormatBucket(b.Start, width),
			strconv.Itoa(b.Samples()),
			telemetry.FormatPercent(b.Usage.Min()),
			telemetry.FormatPercent(b.Usage.Average()),
			telemetry.FormatPercent(b.Usage.Max()),
			telemetry.FormatFrequency(b.Frequency.Min()),
			telemetry.FormatFrequency(b.Frequency.Average()),
			telemetry.FormatFrequency(b.Frequency.Max()),
		})
	}
	return rows
}

func usageRows(buckets []telemetry.UsageBucket, width time.Duration) [][]string {
	var rows [][]string
	for _, b := range buckets {
		rows = append(rows, []string{
			telemetry.FormatBucket(b.Start, width),
			strconv.Itoa(b.Usage.Used.Count),
			telemetry.FormatBytes(b.Usage.Used.Min()),
			telemetry.FormatBytes(b.Usage.Used.Average()),
			telemetry.FormatPercent(b.Usage.Percent.Min()),
			telemetry.FormatPercent(b.Usage.Percent.Average()),
			telemetry.FormatPercent(b.Usage.Percent.Max()),
		})
	}
	return rows
}

func networkRows(buckets []telemetry.NetworkBucket, width time.Duration) [][]string {
	var rows [][]string
	for _, b := range buckets {
		rows = append(rows, []string{
			telemetry.FormatBucket(b.Start, width),
			strconv.Itoa(b.Rates.Samples()),
			telemetry.FormatByteRate(b.Rates.Rx.Average()),
			telemetry.FormatByteRate(b.Rates.Rx.Max()),
			telemetry.FormatByteRate(b.Rates.Tx.Average()),
			telemetry.FormatByteRate(b.Rates.Tx.Max()),
		})
	}
	return rows
}

func temperatureRows(buckets []telemetry.StatsBucket, width time.Duration) [][]string {
	var rows [][]string
	for _, b := range buckets {
		rows = append(rows, []string{
			telemetry.FormatBucket(b.Start, width),
			strconv.Itoa(b.Stats.Count),
			telemetry.FormatTemperature(b.Stats.Min()),
			telemetry.FormatTemperature(b.Stats.Average()),
			telemetry.FormatTemperature(b.Stats.Max()),
		})
	}
	return rows
}

func statusOrUnknown(status string) string {
	if status == "" {
		return "unknown"
	}
	return status
}

func csvNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

var bucketHeader = []string{
	"bucket_start", "bucket_seconds", "records",
	"min_percent", "avg_percent", "max_percent",
	"avg_discharge_w", "avg_charge_w", "latest_status",
}

// WriteCSV writes one row per bucket. Absent values are empty cells. A
// report with system sections is written in the long form of WriteStatsCSV.
func WriteCSV(w io.Writer, r *Report) error {
	if !slices.Equal(r.Presets, []Preset{PresetBattery}) {
		return WriteStatsCSV(w, r)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(bucketHeader); err != nil {
		return err
	}
	for _, b := range r.Buckets {
		row := []string{
			b.Start.Format(time.RFC3339),
			strconv.FormatInt(int64(b.Width/time.Second), 10),
			strconv.Itoa(b.Count),
			csvNumber(b.MinPercent),
			csvNumber(b.AvgPercent),
			csvNumber(b.MaxPercent),
			csvNumber(b.Rates.Discharge),
			csvNumber(b.Rates.Charge),
			b.LatestStatus,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var statsHeader = []string{
	"bucket_start", "bucket_seconds", "section", "stat",
	"samples", "min", "avg", "max",
}

// statsWriter writes the long form rows, one per bucket and statistic.
type statsWriter struct {
	cw    *csv.Writer
	width time.Duration
	err   error
}

func (s *statsWriter) row(start time.Time, section Preset, stat string, count int, lo, avg, hi *float64) {
	if s.err != nil {
		return
	}
	s.err = s.cw.Write([]string{
		start.Format(time.RFC3339),
		strconv.FormatInt(int64(s.width/time.Second), 10),
		string(section),
		stat,
		strconv.Itoa(count),
		csvNumber(lo),
		csvNumber(avg),
		csvNumber(hi),
	})
}

func (s *statsWriter) stats(start time.Time, section Preset, stat string, n telemetry.NumberStats) {
	s.row(start, section, stat, n.Count, n.Min(), n.Average(), n.Max())
}

// WriteStatsCSV writes every selected section as rows of bucket, section,
// statistic and its sample count with min, avg and max.
func WriteStatsCSV(w io.Writer, r *Report) error {
	sw := &statsWriter{cw: csv.NewWriter(w), width: r.BucketWidth}
	sw.err = sw.cw.Write(statsHeader)
	for _, p := range r.Presets {
		switch p {
		case PresetBattery:
			for _, b := range r.Buckets {
				sw.row(b.Start, p, "percent", b.Count, b.MinPercent, b.AvgPercent, b.MaxPercent)
				sw.row(b.Start, p, "discharge_w", b.Count, nil, b.Rates.Discharge, nil)
				sw.row(b.Start, p, "charge_w", b.Count, nil, b.Rates.Charge, nil)
			}
		case PresetCPU, PresetGPU:
			buckets := r.CPU
			if p == PresetGPU {
				buckets = r.GPU
			}
			for _, b := range buckets {
				sw.stats(b.Start, p, "usage_percent", b.Usage)
				sw.stats(b.Start, p, "frequency_mhz", b.Frequency)
			}
		case PresetMemory, PresetDisk:
			buckets := r.Memory
			if p == PresetDisk {
				buckets = r.Disk
			}
			for _, b := range buckets {
				sw.stats(b.Start, p, "used_bytes", b.Usage.Used)
				sw.stats(b.Start, p, "used_percent", b.Usage.Percent)
			}
		case PresetNetwork:
			for _, b := range r.Network {
				sw.stats(b.Start, p, "rx_bytes_per_sec", b.Rates.Rx)
				sw.stats(b.Start, p, "tx_bytes_per_sec", b.Rates.Tx)
			}
		case PresetTemperature:
			for _, b := range r.Temperature {
				sw.stats(b.Start, p, "celsius", b.Stats)
			}
		}
	}
	if sw.err != nil {
		return sw.err
	}
	sw.cw.Flush()
	return sw.cw.Error()
}

func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var eventHeader = []string{
	"ts", "time", "sources", "status",
	"percentage", "capacity_pct", "health_pct",
	"energy_now_wh", "energy_full_wh", "energy_full_design_wh",
}

// WriteEventsCSV writes the merged events, one row each, with times in loc.
func WriteEventsCSV(w io.Writer, events []telemetry.Event, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventHeader); err != nil {
		return err
	}
	for _, e := range events {
		sec := int64(e.Timestamp)
		nsec := int64((e.Timestamp - float64(sec)) * 1e9)
		row := []string{
			strconv.FormatFloat(e.Timestamp, 'f', 3, 64),
			time.Unix(sec, nsec).In(loc).Format(time.RFC3339),
			e.Sources,
			e.Status,
			csvNumber(e.Percentage),
			csvNumber(e.CapacityPct),
			csvNumber(e.HealthPct),
			csvNumber(e.EnergyNow),
			csvNumber(e.EnergyFull),
			csvNumber(e.EnergyFullDesign),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
