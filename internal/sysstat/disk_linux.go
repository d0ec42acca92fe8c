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

package sysstat

import (
	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"golang.org/x/sys/unix"
)

// Disk reports used bytes on the filesystem holding DiskPath.
func (r *Reader) Disk(ts float64) []telemetry.Metric {
	var st unix.Statfs_t
	if err := unix.Statfs(r.DiskPath, &st); err != nil {
		return nil
	}
	blockSize := uint64(st.Frsize)
	if blockSize == 0 {
		blockSize = uint64(st.Bsize)
	}
	total := float64(blockSize * st.Blocks)
	free := float64(blockSize * st.Bfree)
	available := float64(blockSize * st.Bavail)
	used := max(total-free, 0)

	m := newMetric(ts, telemetry.KindDiskUsage, r.DiskPath, telemetry.Float(used))
	m.Details = map[string]float64{
		telemetry.DetailTotalBytes:     total,
		telemetry.DetailAvailableBytes: available,
		telemetry.DetailFreeBytes:      free,
	}
	return []telemetry.Metric{m}
}
