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

// EstimateRuntimeHours projects how long a full battery lasts at the given
// discharge rate. The capacity comes from the latest event, preferring the
// current full charge over the design capacity.
func EstimateRuntimeHours(dischargeW *float64, latest Event) *float64 {
	if dischargeW == nil || *dischargeW <= 0 {
		return nil
	}
	capacity := latest.EnergyFull
	if capacity == nil {
		capacity = latest.EnergyFullDesign
	}
	if capacity == nil || *capacity <= 0 {
		return nil
	}
	return Float(*capacity / *dischargeW)
}

// EstimateRemainingHours projects how long the charge in the latest event
// lasts at the given discharge rate.
func EstimateRemainingHours(dischargeW *float64, latest Event) *float64 {
	if dischargeW == nil || *dischargeW <= 0 || latest.EnergyNow == nil || *latest.EnergyNow < 0 {
		return nil
	}
	return Float(*latest.EnergyNow / *dischargeW)
}
