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
	"time"

	"github.com/TheCacophonyProject/battery-monitor/internal/settings"
	"github.com/TheCacophonyProject/battery-monitor/store"
	"github.com/TheCacophonyProject/go-config"
	"github.com/TheCacophonyProject/go-utils/logging"
	arg "github.com/alexflint/go-arg"
)

var version = "No version provided"

var log = logging.NewLogger("info")

var sleepFn = time.Sleep

type Args struct {
	ConfigDir      string        `arg:"-c,--config" help:"path to configuration directory"`
	DB             string        `arg:"--db" help:"database path, overrides the config and $BATTERY_MONITOR_DB"`
	Interval       time.Duration `arg:"--interval" help:"time between collections, overrides the config"`
	SysfsRoot      string        `arg:"--sysfs-root" help:"power_supply directory to read batteries from"`
	MetricsAddress string        `arg:"--metrics-address" help:"address to serve /metrics and /api on"`
	NoSystem       bool          `arg:"--no-system-metrics" help:"only record batteries"`
	Service        bool          `arg:"--service" help:"export the dbus service"`
	Once           bool          `arg:"--once" help:"collect a single sample and exit"`
	logging.LogArgs
}

func (Args) Version() string {
	return version
}

var defaultArgs = Args{
	ConfigDir: config.DefaultConfigDir,
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

// applyArgs overrides the configured settings with any flags given.
func applyArgs(conf *settings.Settings, args Args) {
	conf.DatabasePath = conf.ResolveDatabasePath(args.DB)
	if args.Interval > 0 {
		conf.PollInterval = args.Interval
	}
	if args.SysfsRoot != "" {
		conf.SysfsRoot = args.SysfsRoot
	}
	if args.MetricsAddress != "" {
		conf.MetricsAddress = args.MetricsAddress
	}
	if args.NoSystem {
		conf.SystemMetrics = false
	}
}

func Run(inputArgs []string, ver string) error {
	version = ver
	args, err := procArgs(inputArgs)
	if err != nil {
		return fmt.Errorf("failed to parse args: %v", err)
	}

	log = logging.NewLogger(args.LogLevel)
	store.SetLogger(log)
	log.Info("Running version: ", version)

	conf, err := settings.Parse(args.ConfigDir)
	if err != nil {
		return err
	}
	applyArgs(conf, args)

	db, err := store.Open(conf.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("Recording battery samples to ", conf.DatabasePath)

	if args.Service {
		log.Info("Starting dbus service")
		if err := startService(db); err != nil {
			return err
		}
	}

	if conf.MetricsAddress != "" {
		go func() {
			if err := serveHTTP(conf.MetricsAddress, db); err != nil {
				log.Error("HTTP server stopped: ", err)
			}
		}()
	}

	c := newCollector(db, conf)
	log.Debug("Collecting every ", conf.PollInterval)
	for {
		if err := c.collectOnce(); err != nil {
			return err
		}
		if args.Once {
			return nil
		}
		sleepFn(conf.PollInterval)
	}
}
