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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	orig := subcommands
	t.Cleanup(func() { subcommands = orig })

	var gotArgs []string
	var gotVersion string
	subcommands = map[string]subcommandFunc{
		"report": func(args []string, ver string) error {
			gotArgs, gotVersion = args, ver
			return nil
		},
		"collect": func([]string, string) error { return errors.New("collect failed") },
	}

	require.NoError(t, dispatch("report", []string{"--hours", "3"}))
	assert.Equal(t, []string{"--hours", "3"}, gotArgs)
	assert.Equal(t, version, gotVersion)

	assert.EqualError(t, dispatch("collect", nil), "collect failed")
	assert.EqualError(t, dispatch("graph", nil), "unknown subcommand: graph")
}
