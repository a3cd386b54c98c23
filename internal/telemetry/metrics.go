// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry exports tracker and journal counters to Prometheus and
// optionally logs a periodic summary of them.
package telemetry

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ptrack"
	"ptrack/internal/diag"
)

// Config controls the telemetry module.
//
// MetricsAddr, when non-empty and Enabled is set, starts a dedicated HTTP
// server that serves /metrics. Only the first such call starts a server.
// Leave it empty when promhttp is already mounted elsewhere.
// LogInterval enables the summary logger; 0 disables it.
type Config struct {
	Enabled     bool
	MetricsAddr string
	LogInterval time.Duration
}

var (
	modEnabled atomic.Bool

	samplesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ptrack_samples_total",
		Help: "Samples applied to the slot table, by phase",
	}, []string{"phase"})
	failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ptrack_failures_total",
		Help: "Rejected or recovered tracker operations, by failure kind",
	}, []string{"kind"})
	batchFlushSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ptrack_batch_flush_size",
		Help:    "Distribution of move samples replayed per batch pump",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	})
	activePointers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ptrack_active_pointers",
		Help: "Occupied slots at the last notification",
	})
	journalFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ptrack_journal_frames_total",
		Help: "Frames written by the journal persister",
	})
	journalErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ptrack_journal_errors_total",
		Help: "Failed journal batch writes",
	})
)

func init() {
	prometheus.MustRegister(samplesTotal, failuresTotal, batchFlushSize, activePointers, journalFramesTotal, journalErrorsTotal)
}

// Enable configures the module. Safe to call multiple times; later calls replace the config.
func Enable(cfg Config) {
	modEnabled.Store(cfg.Enabled)
	startOrUpdateExporter(cfg)
	if cfg.Enabled && cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
}

// Enabled reports whether recording is active.
func Enabled() bool { return modEnabled.Load() }

// Recorder feeds tracker events into the metrics. The zero value is ready to use.
type Recorder struct{}

var _ ptrack.Recorder = Recorder{}

func (Recorder) RecordSample(p ptrack.Phase) {
	if !modEnabled.Load() {
		return
	}
	samplesTotal.WithLabelValues(p.String()).Inc()
	if p == ptrack.PhaseMove {
		movesInternal.Add(1)
	}
}

func (Recorder) RecordFailure(err error) {
	if !modEnabled.Load() || err == nil {
		return
	}
	failuresTotal.WithLabelValues(FailureKind(err)).Inc()
	failuresInternal.Add(1)
}

func (Recorder) RecordFlush(size int) {
	if !modEnabled.Load() || size <= 0 {
		return
	}
	batchFlushSize.Observe(float64(size))
	flushesInternal.Add(1)
	batchedInternal.Add(int64(size))
}

func (Recorder) RecordActive(n int) {
	if !modEnabled.Load() {
		return
	}
	activePointers.Set(float64(n))
	activeInternal.Store(int64(n))
}

// ObserveJournalBatch records a persisted batch of frames.
func ObserveJournalBatch(size int) {
	if !modEnabled.Load() || size <= 0 {
		return
	}
	journalFramesTotal.Add(float64(size))
}

// ObserveJournalError counts a failed batch write.
func ObserveJournalError(n int) {
	if !modEnabled.Load() || n <= 0 {
		return
	}
	journalErrorsTotal.Add(float64(n))
}

// FailureKind maps a tracker error to its metric label.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ptrack.ErrCapacityExceeded):
		return "capacity"
	case errors.Is(err, ptrack.ErrUnregisteredPointer):
		return "unregistered"
	case errors.Is(err, ptrack.ErrDuplicatePointer):
		return "duplicate"
	case errors.Is(err, ptrack.ErrReentrantPump):
		return "reentrant"
	case errors.Is(err, ptrack.ErrEmptySplit):
		return "empty_split"
	case errors.Is(err, ptrack.ErrPurgeUnderflow):
		return "purge_underflow"
	case errors.Is(err, ptrack.ErrInvalidIdentity):
		return "invalid_identity"
	default:
		return "other"
	}
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

var (
	metricsMu     sync.Mutex
	metricsServer *http.Server

	// serveMetrics is replaced in tests.
	serveMetrics = func(s *http.Server) error { return s.ListenAndServe() }
)

// startMetricsEndpoint exposes /metrics on addr in a background goroutine,
// once per process.
func startMetricsEndpoint(addr string) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsServer != nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	metricsServer = server
	go func() {
		if err := serveMetrics(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			diag.Logf("[telemetry] metrics endpoint %s: %v", addr, err)
		}
	}()
}
