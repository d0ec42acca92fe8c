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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/internal/settings"
	"github.com/TheCacophonyProject/battery-monitor/store"
	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"github.com/TheCacophonyProject/go-config"
	"github.com/TheCacophonyProject/go-utils/logging"
	arg "github.com/alexflint/go-arg"
)

var version = "No version provided"

var log = logging.NewLogger("info")

var nowFn = time.Now

type Args struct {
	ConfigDir    string   `arg:"-c,--config" help:"path to configuration directory"`
	DB           string   `arg:"--db" help:"database path, overrides the config and $BATTERY_MONITOR_DB"`
	Hours        int      `arg:"--hours" help:"report on the last N hours"`
	Days         int      `arg:"--days" help:"report on the last N days, overrides --hours"`
	Months       int      `arg:"--months" help:"report on the last N months of 30 days, overrides --days"`
	All          bool     `arg:"--all" help:"report on all recorded history"`
	Format       string   `arg:"-f,--format" help:"output format (table, csv, json)"`
	Output       string   `arg:"-o,--output" help:"write the report to this file instead of stdout"`
	ExportEvents bool     `arg:"--export-events" help:"also write the merged events as CSV"`
	ExportDir    string   `arg:"--export-dir" help:"directory for exported event files"`
	Presets      []Preset `arg:"--preset,separate" help:"report section to include, repeatable (battery, cpu, gpu, memory, network, temperature, disk)"`
	logging.LogArgs
}

func (Args) Version() string {
	return version
}

var defaultArgs = Args{
	ConfigDir: config.DefaultConfigDir,
	Hours:     6,
	Format:    FormatTable,
}

func procArgs(input []string) (Args, error) {
	args := defaultArgs

	parser, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return Args{}, err
	}
	err = parser.Parse(input)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if errors.Is(err, arg.ErrVersion) {
		fmt.Println(version)
		os.Exit(0)
	}
	return args, err
}

func Run(inputArgs []string, ver string) error {
	version = ver
	args, err := procArgs(inputArgs)
	if err != nil {
		return fmt.Errorf("failed to parse args: %v", err)
	}

	log = logging.NewLogger(args.LogLevel)
	store.SetLogger(log)
	log.Debug("Running version: ", version)

	tf, err := telemetry.BuildTimeframe(args.Hours, args.Days, args.Months, args.All)
	if err != nil {
		return err
	}

	conf, err := settings.Parse(args.ConfigDir)
	if err != nil {
		return err
	}
	dbPath := conf.ResolveDatabasePath(args.DB)
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no battery database at %s: %w", dbPath, err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	now := nowFn()
	r, err := Build(db, tf, now, time.Local, args.Presets...)
	if err != nil {
		return err
	}
	log.Debugf("Loaded %d records (%d events) and %d metrics for %s",
		r.Records, r.EventCount, r.MetricRecords, r.Title())
	if !r.HasData() {
		return fmt.Errorf("no records for the selected presets in %s; try a broader timeframe or enable those collectors", r.Title())
	}

	if err := writeReport(r, args.Format, args.Output); err != nil {
		return err
	}

	if args.ExportEvents {
		path := DefaultExportPath(tf.Label, args.ExportDir, now.In(time.Local), "csv")
		if err := writeFile(path, func(w io.Writer) error {
			return WriteEventsCSV(w, r.Events, time.Local)
		}); err != nil {
			return err
		}
		log.Infof("Exported %d events to %s", len(r.Events), path)
	}
	return nil
}

func writeReport(r *Report, format, output string) error {
	if output == "" {
		return Write(os.Stdout, r, format)
	}
	if err := writeFile(output, func(w io.Writer) error { return Write(w, r, format) }); err != nil {
		return err
	}
	log.Info("Report written to ", output)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
