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

package main

import (
	"fmt"
	"os"

	"github.com/TheCacophonyProject/battery-monitor/internal/collector"
	"github.com/TheCacophonyProject/battery-monitor/internal/report"
	"github.com/TheCacophonyProject/go-utils/logging"
)

var version = "<not set>"

var log = logging.NewLogger("info")

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

type subcommandFunc func(args []string, version string) error

var subcommands = map[string]subcommandFunc{
	"collect": collector.Run,
	"report":  report.Run,
}

func runMain() error {
	if len(os.Args) < 2 {
		log.Info("Usage: battery-monitor <collect|report> [args]")
		return fmt.Errorf("no subcommand given")
	}
	return dispatch(os.Args[1], os.Args[2:])
}

func dispatch(subcommand string, args []string) error {
	run, ok := subcommands[subcommand]
	if !ok {
		return fmt.Errorf("unknown subcommand: %s", subcommand)
	}
	return run(args, version)
}
