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
	"math"
	"strings"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"github.com/TheCacophonyProject/event-reporter/v3/eventclient"
)

const (
	historyEventType = "batteryHistory"
	warningEventType = "batteryRuntimeWarning"
)

var addEvent = eventclient.AddEvent

// shouldReportEvent reports when the charge has moved by at least the
// configured percentage since the last reported event.
func (c *collector) shouldReportEvent(e telemetry.Event) bool {
	if e.Percentage == nil {
		return false
	}
	return c.lastReportedPercent < 0 ||
		math.Abs(*e.Percentage-c.lastReportedPercent) >= c.conf.ReportPercentChange
}

func details(est estimate) map[string]interface{} {
	d := map[string]interface{}{
		"sources": est.latest.Sources,
		"status":  est.latest.Status,
	}
	put := func(key string, v *float64) {
		if v != nil {
			d[key] = math.Round(*v*100) / 100
		}
	}
	if est.latest.Percentage != nil {
		d["battery"] = int(math.Round(*est.latest.Percentage))
	}
	put("energyNowWh", est.latest.EnergyNow)
	put("healthPercent", est.latest.HealthPct)
	put("dischargeW", est.rates.Discharge)
	put("chargeW", est.rates.Charge)
	put("remainingHours", est.remaining)
	put("fullRuntimeHours", est.runtime)
	return d
}

func sendEvent(eventType string, est estimate, now time.Time) error {
	err := addEvent(eventclient.Event{
		Timestamp: now,
		Type:      eventType,
		Details:   details(est),
	})
	if err != nil {
		log.Errorf("Error sending %s event: %v", eventType, err)
		return err
	}
	eventsReported.WithLabelValues(eventType).Inc()
	return nil
}

// reportBatteryEvent sends a history event. The reported percentage only
// moves once the event has been accepted, so a failed send is retried on
// the next collection.
func (c *collector) reportBatteryEvent(est estimate, now time.Time) {
	if err := sendEvent(historyEventType, est, now); err != nil {
		return
	}
	c.lastReportedPercent = *est.latest.Percentage
	log.Infof("Battery event: percent=%s status=%s",
		telemetry.FormatPercent(est.latest.Percentage), est.latest.Status)
}

// checkRuntime sends one warning each time the projected remaining runtime
// drops below the threshold while discharging.
func (c *collector) checkRuntime(est estimate, now time.Time) {
	threshold := c.conf.RuntimeWarningHours
	discharging := est.latest.Status == "" || strings.EqualFold(est.latest.Status, "discharging")
	low := threshold > 0 && discharging && est.remaining != nil && *est.remaining < threshold
	if !low {
		c.runtimeWarned = false
		return
	}
	if c.runtimeWarned {
		return
	}
	c.runtimeWarned = true
	log.Warnf("Battery runtime low: %s remaining", telemetry.FormatRuntime(est.remaining))
	_ = sendEvent(warningEventType, est, now)
}
