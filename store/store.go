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

// Package store persists battery samples in a bolt database.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"github.com/TheCacophonyProject/go-utils/logging"
	"github.com/boltdb/bolt"
	"github.com/sigurn/crc8"
)

var log = logging.NewLogger("info")

// SetLogger replaces the logger used to report skipped records.
func SetLogger(l *logging.Logger) {
	log = l
}

var (
	samplesBucket = []byte("samples")
	metricsBucket = []byte("metrics")
	crcTable      = crc8.MakeTable(crc8.CRC8)

	ErrNegativeTimestamp = errors.New("sample timestamp is before the epoch")
	errBadCRC            = errors.New("bad crc")
)

const keyPrefixLen = 8

// Store is a bolt database holding one record per battery per collection,
// plus one record per system metric source per collection.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path, creating parent directories.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{samplesBucket, metricsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type record struct {
	Timestamp float64            `json:"ts"`
	Source    string             `json:"source"`
	Status    string             `json:"status,omitempty"`
	Values    map[string]float64 `json:"values"`
}

func millis(ts float64) int64 {
	return int64(math.Round(ts * 1000))
}

func timeKey(ms int64) []byte {
	key := make([]byte, keyPrefixLen)
	binary.BigEndian.PutUint64(key, uint64(ms))
	return key
}

func sampleKey(s telemetry.Sample) ([]byte, error) {
	ms := millis(s.Timestamp)
	if ms < 0 {
		return nil, ErrNegativeTimestamp
	}
	return append(timeKey(ms), s.Source...), nil
}

func keyMillis(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[:keyPrefixLen]))
}

func encodeSample(s telemetry.Sample) ([]byte, error) {
	r := record{
		Timestamp: s.Timestamp,
		Source:    s.Source,
		Status:    s.Status,
		Values:    make(map[string]float64),
	}
	for k, v := range s.Values() {
		r.Values[k.String()] = v
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, crc8Sum(data)), nil
}

func crc8Sum(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}

// checked strips and verifies the crc trailer of a stored value.
func checked(raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("record too short: %d bytes", len(raw))
	}
	data, sum := raw[:len(raw)-1], raw[len(raw)-1]
	if crc8Sum(data) != sum {
		return nil, errBadCRC
	}
	return data, nil
}

func decodeSample(raw []byte) (telemetry.Sample, error) {
	data, err := checked(raw)
	if err != nil {
		return telemetry.Sample{}, err
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return telemetry.Sample{}, err
	}
	values := make(map[telemetry.Kind]float64, len(r.Values))
	for name, v := range r.Values {
		k, err := telemetry.ParseKind(name)
		if err != nil {
			log.Debugf("Ignoring value in record at %.3f: %v", r.Timestamp, err)
			continue
		}
		values[k] = v
	}
	return telemetry.SampleFromValues(r.Timestamp, r.Source, r.Status, values), nil
}

// InsertSamples writes all samples in one transaction. A sample with the
// same millisecond timestamp and source as an existing one replaces it.
func (s *Store) InsertSamples(samples []telemetry.Sample) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(samplesBucket)
		for _, sample := range samples {
			key, err := sampleKey(sample)
			if err != nil {
				return err
			}
			value, err := encodeSample(sample)
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

// each calls fn for every record in bucket at or after from, in timestamp
// order. Returning false from fn stops the walk.
func (s *Store) each(bucket []byte, from time.Time, fn func(k, v []byte) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		var k, v []byte
		if from.IsZero() || from.UnixMilli() <= 0 {
			k, v = c.First()
		} else {
			k, v = c.Seek(timeKey(from.UnixMilli()))
		}
		for ; k != nil; k, v = c.Next() {
			if len(k) < keyPrefixLen {
				log.Warnf("Skipping record with malformed key %x", k)
				continue
			}
			if !fn(k, v) {
				return nil
			}
		}
		return nil
	})
}

// scan calls fn for every decodable sample at or after from. Records that
// fail to decode are logged and skipped.
func (s *Store) scan(from time.Time, fn func(key []byte, sample telemetry.Sample) bool) error {
	return s.each(samplesBucket, from, func(k, v []byte) bool {
		sample, err := decodeSample(v)
		if err != nil {
			log.Warnf("Skipping corrupt record at %d: %v", keyMillis(k), err)
			return true
		}
		return fn(k, sample)
	})
}

// FetchSamples returns the samples recorded at or after from, oldest first.
// A zero from returns everything.
func (s *Store) FetchSamples(from time.Time) ([]telemetry.Sample, error) {
	samples := []telemetry.Sample{}
	err := s.scan(from, func(_ []byte, sample telemetry.Sample) bool {
		samples = append(samples, sample)
		return true
	})
	return samples, err
}

// CountSamples counts the samples recorded at or after from.
func (s *Store) CountSamples(from time.Time) (int, error) {
	count := 0
	err := s.scan(from, func(_ []byte, _ telemetry.Sample) bool {
		count++
		return true
	})
	return count, err
}

// CountEvents counts the distinct collection timestamps at or after from.
func (s *Store) CountEvents(from time.Time) (int, error) {
	count := 0
	last := int64(-1)
	err := s.scan(from, func(k []byte, _ telemetry.Sample) bool {
		if ms := keyMillis(k); ms != last {
			count++
			last = ms
		}
		return true
	})
	return count, err
}

// eventAt merges the samples stored under one millisecond timestamp.
func (s *Store) eventAt(tx *bolt.Tx, ms int64) (*telemetry.Event, error) {
	prefix := timeKey(ms)
	c := tx.Bucket(samplesBucket).Cursor()
	var samples []telemetry.Sample
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		sample, err := decodeSample(v)
		if err != nil {
			log.Warnf("Skipping corrupt record at %d: %v", ms, err)
			continue
		}
		samples = append(samples, sample)
	}
	if len(samples) == 0 {
		return nil, nil
	}
	events, err := telemetry.MergeByTimestamp(samples)
	if err != nil {
		return nil, err
	}
	return &events[0], nil
}

// FirstEvent returns the oldest merged event, or nil for an empty store.
func (s *Store) FirstEvent() (*telemetry.Event, error) {
	first := int64(-1)
	err := s.scan(time.Time{}, func(k []byte, _ telemetry.Sample) bool {
		first = keyMillis(k)
		return false
	})
	if err != nil || first < 0 {
		return nil, err
	}
	var event *telemetry.Event
	err = s.db.View(func(tx *bolt.Tx) error {
		var err error
		event, err = s.eventAt(tx, first)
		return err
	})
	return event, err
}

// LatestEvent returns the newest merged event, or nil for an empty store.
func (s *Store) LatestEvent() (*telemetry.Event, error) {
	events, err := s.RecentEvents(1)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

// RecentEvents returns up to limit merged events, newest first.
func (s *Store) RecentEvents(limit int) ([]telemetry.Event, error) {
	events := []telemetry.Event{}
	if limit <= 0 {
		return events, nil
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(samplesBucket).Cursor()
		last := int64(-1)
		for k, _ := c.Last(); k != nil && len(events) < limit; k, _ = c.Prev() {
			ms := keyMillis(k)
			if ms == last {
				continue
			}
			last = ms
			event, err := s.eventAt(tx, ms)
			if err != nil {
				return err
			}
			if event != nil {
				events = append(events, *event)
			}
		}
		return nil
	})
	return events, err
}

// Prune deletes every sample and metric recorded before the given time and
// returns how many were removed. A cutoff at or before the epoch removes
// nothing.
func (s *Store) Prune(before time.Time) (int, error) {
	ms := before.UnixMilli()
	if ms <= 0 {
		return 0, nil
	}
	limit := timeKey(ms)
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{samplesBucket, metricsBucket} {
			b := tx.Bucket(name)
			var keys [][]byte
			c := b.Cursor()
			for k, _ := c.First(); k != nil && bytes.Compare(k[:min(len(k), keyPrefixLen)], limit) < 0; k, _ = c.Next() {
				keys = append(keys, append([]byte(nil), k...))
			}
			for _, k := range keys {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
			removed += len(keys)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Sources lists the distinct sources recorded at or after from.
func (s *Store) Sources(from time.Time) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.scan(from, func(_ []byte, sample telemetry.Sample) bool {
		seen[sample.Source] = struct{}{}
		return true
	})
	sources := make([]string, 0, len(seen))
	for src := range seen {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources, err
}
