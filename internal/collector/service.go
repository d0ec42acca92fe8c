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
	"bytes"
	"errors"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/internal/report"
	"github.com/TheCacophonyProject/battery-monitor/store"
	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"
)

const (
	dbusName = "org.cacophony.BatteryMonitor"
	dbusPath = "/org/cacophony/BatteryMonitor"
)

type service struct {
	db *store.Store
}

func startService(db *store.Store) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{db: db}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

// Report returns the JSON report for the last given hours, or for all
// history when hours is zero or less.
func (s service) Report(hours int32) (string, *dbus.Error) {
	tf := telemetry.AllTime
	if hours > 0 {
		var err error
		if tf, err = telemetry.BuildTimeframe(int(hours), 0, 0, false); err != nil {
			return "", makeDbusError(".Report", err)
		}
	}
	r, err := report.Build(s.db, tf, nowFn(), time.Local)
	if err != nil {
		return "", makeDbusError(".Report", err)
	}
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, r); err != nil {
		return "", makeDbusError(".Report", err)
	}
	return buf.String(), nil
}

// RuntimeRemaining returns the projected hours left on the current charge
// and the same value formatted as "2h05m". Hours is -1 when unknown.
func (s service) RuntimeRemaining() (float64, string, *dbus.Error) {
	est, ok, err := currentEstimate(s.db, nowFn())
	if err != nil {
		return -1, "", makeDbusError(".RuntimeRemaining", err)
	}
	if !ok || est.remaining == nil {
		return -1, telemetry.FormatRuntime(nil), nil
	}
	return *est.remaining, telemetry.FormatRuntime(est.remaining), nil
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + name,
		Body: []interface{}{err.Error()},
	}
}

var emitSignal = sendBatterySignal

func orMissing(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

// sendBatterySignal broadcasts the latest percentage, stored energy, status
// and remaining hours. Absent values are sent as -1.
func sendBatterySignal(est estimate) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	sig := &dbus.Signal{
		Path: dbus.ObjectPath(dbusPath),
		Name: dbusName + ".Battery",
		Body: []interface{}{
			orMissing(est.latest.Percentage),
			orMissing(est.latest.EnergyNow),
			est.latest.Status,
			orMissing(est.remaining),
		},
	}
	return conn.Emit(sig.Path, sig.Name, sig.Body...)
}
