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

package store

import (
	"encoding/json"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"github.com/boltdb/bolt"
)

// metricKey orders metrics by time, then kind and source.
func metricKey(m telemetry.Metric) ([]byte, error) {
	ms := millis(m.Timestamp)
	if ms < 0 {
		return nil, ErrNegativeTimestamp
	}
	key := append(timeKey(ms), m.Kind.String()...)
	key = append(key, 0)
	return append(key, m.Source...), nil
}

func encodeMetric(m telemetry.Metric) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return append(data, crc8Sum(data)), nil
}

func decodeMetric(raw []byte) (telemetry.Metric, error) {
	data, err := checked(raw)
	if err != nil {
		return telemetry.Metric{}, err
	}
	var m telemetry.Metric
	err = json.Unmarshal(data, &m)
	return m, err
}

// InsertMetrics writes all metrics in one transaction. A metric with the same
// millisecond timestamp, kind and source as an existing one replaces it.
func (s *Store) InsertMetrics(metrics []telemetry.Metric) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(metricsBucket)
		for _, m := range metrics {
			key, err := metricKey(m)
			if err != nil {
				return err
			}
			value, err := encodeMetric(m)
			if err != nil {
				return err
			}
			if err := b.Put(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// FetchMetrics returns the metrics of the given kinds recorded at or after
// from, oldest first. No kinds means every kind. Records that fail to decode
// are logged and skipped.
func (s *Store) FetchMetrics(from time.Time, kinds []telemetry.Kind) ([]telemetry.Metric, error) {
	wanted := make(map[telemetry.Kind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}
	metrics := []telemetry.Metric{}
	err := s.each(metricsBucket, from, func(k, v []byte) bool {
		m, err := decodeMetric(v)
		if err != nil {
			log.Warnf("Skipping corrupt metric at %d: %v", keyMillis(k), err)
			return true
		}
		if len(wanted) == 0 || wanted[m.Kind] {
			metrics = append(metrics, m)
		}
		return true
	})
	return metrics, err
}

// CountMetrics counts the metrics recorded at or after from.
func (s *Store) CountMetrics(from time.Time) (int, error) {
	count := 0
	err := s.each(metricsBucket, from, func(_, _ []byte) bool {
		count++
		return true
	})
	return count, err
}
