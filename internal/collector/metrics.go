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

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batteryPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "battery_monitor_percentage",
			Help: "Combined state of charge of all batteries",
		},
	)

	batteryHealth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "battery_monitor_health_percent",
			Help: "Combined full capacity as a percentage of the design capacity",
		},
	)

	batteryEnergy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "battery_monitor_energy_now_wh",
			Help: "Energy currently stored in each battery",
		},
		[]string{"source"},
	)

	dischargeRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "battery_monitor_discharge_watts",
			Help: "Average discharge power over the recent window",
		},
	)

	chargeRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "battery_monitor_charge_watts",
			Help: "Average charge power over the recent window",
		},
	)

	remainingHours = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "battery_monitor_remaining_hours",
			Help: "Projected hours until the current charge is used",
		},
	)

	samplesCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "battery_monitor_samples_collected_total",
			Help: "Total number of battery samples stored",
		},
	)

	metricsCollected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "battery_monitor_system_metrics_collected_total",
			Help: "Total number of system metric readings stored",
		},
	)

	systemValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "battery_monitor_system_value",
			Help: "Latest system metric reading by kind and source",
		},
		[]string{"kind", "source"},
	)

	collectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "battery_monitor_collection_errors_total",
			Help: "Total number of failed collections",
		},
	)

	eventsReported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "battery_monitor_events_reported_total",
			Help: "Total number of events sent to the event reporter",
		},
		[]string{"type"},
	)
)

// setOptional sets g to v, or NaN when v is absent.
func setOptional(g prometheus.Gauge, v *float64) {
	if v == nil {
		g.Set(math.NaN())
		return
	}
	g.Set(*v)
}

func updateMetrics(samples []telemetry.Sample, e estimate) {
	for _, s := range samples {
		setOptional(batteryEnergy.WithLabelValues(s.SourceName()), s.EnergyNow)
	}
	setOptional(batteryPercent, e.latest.Percentage)
	setOptional(batteryHealth, e.latest.HealthPct)
	setOptional(dischargeRate, e.rates.Discharge)
	setOptional(chargeRate, e.rates.Charge)
	setOptional(remainingHours, e.remaining)
}

func updateSystemMetrics(metrics []telemetry.Metric) {
	for _, m := range metrics {
		setOptional(systemValue.WithLabelValues(m.Kind.String(), m.Source), m.Value)
	}
}
