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

package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheCacophonyProject/go-config"
)

const (
	Key       = "battery-monitor"
	DBEnvVar  = "BATTERY_MONITOR_DB"
	DefaultDB = "/var/lib/battery-monitor/battery.db"
)

type Settings struct {
	DatabasePath        string        `mapstructure:"database-path"`
	PollInterval        time.Duration `mapstructure:"poll-interval"`
	SysfsRoot           string        `mapstructure:"sysfs-root"`
	Retention           time.Duration `mapstructure:"retention"`
	ReportPercentChange float64       `mapstructure:"report-percent-change"`
	RuntimeWarningHours float64       `mapstructure:"runtime-warning-hours"`
	MetricsAddress      string        `mapstructure:"metrics-address"`
	SystemMetrics       bool          `mapstructure:"system-metrics"`
	ProcRoot            string        `mapstructure:"proc-root"`
	SysRoot             string        `mapstructure:"sys-root"`
	DiskPath            string        `mapstructure:"disk-path"`
}

func DefaultSettings() Settings {
	return Settings{
		DatabasePath:        DefaultDB,
		PollInterval:        5 * time.Minute,
		SysfsRoot:           "/sys/class/power_supply",
		Retention:           365 * 24 * time.Hour,
		ReportPercentChange: 5.0,
		RuntimeWarningHours: 2,
		SystemMetrics:       true,
		ProcRoot:            "/proc",
		SysRoot:             "/sys",
		DiskPath:            "/",
	}
}

// Parse reads the battery-monitor section from the config in configDir on
// top of the defaults, then applies the database environment override.
func Parse(configDir string) (*Settings, error) {
	conf, err := config.New(configDir)
	if err != nil {
		return nil, err
	}

	s := DefaultSettings()
	if err := conf.Unmarshal(Key, &s); err != nil {
		return nil, fmt.Errorf("reading %s config: %w", Key, err)
	}
	s.applyEnv()
	return &s, s.Validate()
}

func (s *Settings) applyEnv() {
	if env := os.Getenv(DBEnvVar); env != "" {
		s.DatabasePath = ExpandHome(env)
	}
}

// ResolveDatabasePath returns override when set, otherwise the configured path.
func (s *Settings) ResolveDatabasePath(override string) string {
	if override != "" {
		return ExpandHome(override)
	}
	if s.DatabasePath == "" {
		return DefaultDB
	}
	return s.DatabasePath
}

func (s *Settings) Validate() error {
	var errs []error
	if s.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll-interval must be positive, got %s", s.PollInterval))
	}
	if s.Retention < 0 {
		errs = append(errs, fmt.Errorf("retention must not be negative, got %s", s.Retention))
	}
	if s.ReportPercentChange <= 0 {
		errs = append(errs, fmt.Errorf("report-percent-change must be positive, got %.2f", s.ReportPercentChange))
	}
	return errors.Join(errs...)
}

// ExpandHome replaces a leading "~/" with the user's home directory. The path
// is returned unchanged when the home directory is unknown.
func ExpandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
