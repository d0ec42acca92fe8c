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
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TheCacophonyProject/battery-monitor/internal/report"
	"github.com/TheCacophonyProject/battery-monitor/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type eventStore interface {
	sampleSource
	report.MetricSource
	LatestEvent() (*telemetry.Event, error)
}

func newRouter(db eventStore) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/api/report", reportHandler(db)).Methods("GET")
	router.HandleFunc("/api/latest", latestHandler(db)).Methods("GET")
	router.Use(loggingMiddleware)
	return router
}

func serveHTTP(addr string, db eventStore) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      newRouter(db),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Info("Serving metrics and report API on ", addr)
	return server.ListenAndServe()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debugf("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// timeframeFromQuery reads hours, days, months and all the same way the
// report command reads its flags. Hours defaults to 6.
func timeframeFromQuery(r *http.Request) (telemetry.Timeframe, error) {
	values := map[string]int{"hours": 6}
	for _, name := range []string{"hours", "days", "months"} {
		if r.URL.Query().Get(name) == "" {
			continue
		}
		v, err := queryInt(r, name)
		if err != nil {
			return telemetry.Timeframe{}, err
		}
		values[name] = v
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	return telemetry.BuildTimeframe(values["hours"], values["days"], values["months"], all)
}

// presetsFromQuery reads repeated or comma separated preset values.
func presetsFromQuery(r *http.Request) ([]report.Preset, error) {
	var presets []report.Preset
	for _, raw := range r.URL.Query()["preset"] {
		for _, name := range strings.Split(raw, ",") {
			p, err := report.ParsePreset(name)
			if err != nil {
				return nil, err
			}
			presets = append(presets, p)
		}
	}
	return presets, nil
}

func reportHandler(db eventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tf, err := timeframeFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		presets, err := presetsFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rep, err := report.Build(db, tf, nowFn(), time.Local, presets...)
		if err != nil {
			log.Error("Building report: ", err)
			http.Error(w, "failed to build report", http.StatusInternalServerError)
			return
		}
		format := r.URL.Query().Get("format")
		if format == "" {
			format = report.FormatJSON
		}
		switch format {
		case report.FormatJSON:
			w.Header().Set("Content-Type", "application/json")
		case report.FormatCSV:
			w.Header().Set("Content-Type", "text/csv")
		case report.FormatTable:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		default:
			http.Error(w, "unknown format: "+format, http.StatusBadRequest)
			return
		}
		if err := report.Write(w, rep, format); err != nil {
			log.Error("Writing report: ", err)
		}
	}
}

func latestHandler(db eventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, err := db.LatestEvent()
		if err != nil {
			log.Error("Reading latest event: ", err)
			http.Error(w, "failed to read latest event", http.StatusInternalServerError)
			return
		}
		if latest == nil {
			http.Error(w, "no samples recorded", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(latest); err != nil {
			log.Error("Writing latest event: ", err)
		}
	}
}
