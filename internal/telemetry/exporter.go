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

package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"ptrack/internal/diag"
)

// Process-local mirrors of the exported counters, used by the summary logger.
var (
	movesInternal    atomic.Int64
	batchedInternal  atomic.Int64
	flushesInternal  atomic.Int64
	failuresInternal atomic.Int64
	activeInternal   atomic.Int64

	exporterMu   sync.Mutex
	exporterStop chan struct{}
	exporterDone chan struct{}
)

// Snapshot is a point-in-time copy of the summary counters.
type Snapshot struct {
	Moves    int64
	Batched  int64
	Flushes  int64
	Failures int64
	Active   int64
}

// Coalescing returns the fraction of batched moves that did not cause a
// notification of their own.
func (s Snapshot) Coalescing() float64 {
	if s.Batched == 0 {
		return 0
	}
	return 1 - float64(s.Flushes)/float64(s.Batched)
}

// Sub returns the counter deltas from prev to s. Active is not a counter and is kept.
func (s Snapshot) Sub(prev Snapshot) Snapshot {
	return Snapshot{
		Moves:    s.Moves - prev.Moves,
		Batched:  s.Batched - prev.Batched,
		Flushes:  s.Flushes - prev.Flushes,
		Failures: s.Failures - prev.Failures,
		Active:   s.Active,
	}
}

// Current returns the counters accumulated since the process started.
func Current() Snapshot {
	return Snapshot{
		Moves:    movesInternal.Load(),
		Batched:  batchedInternal.Load(),
		Flushes:  flushesInternal.Load(),
		Failures: failuresInternal.Load(),
		Active:   activeInternal.Load(),
	}
}

func startOrUpdateExporter(cfg Config) {
	exporterMu.Lock()
	defer exporterMu.Unlock()

	if exporterStop != nil {
		close(exporterStop)
		<-exporterDone
		exporterStop, exporterDone = nil, nil
	}
	if !cfg.Enabled || cfg.LogInterval <= 0 {
		return
	}
	exporterStop = make(chan struct{})
	exporterDone = make(chan struct{})
	go exporterLoop(cfg.LogInterval, exporterStop, exporterDone)
}

// Stop halts the summary logger if it is running.
func Stop() {
	startOrUpdateExporter(Config{})
}

func exporterLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	prev := Current()
	for {
		select {
		case <-ticker.C:
			cur := Current()
			publishSnapshot(cur.Sub(prev), interval)
			prev = cur
		case <-stop:
			return
		}
	}
}

func publishSnapshot(d Snapshot, interval time.Duration) {
	secs := interval.Seconds()
	diag.Logf("[telemetry] moves/s=%.1f batches=%d coalesced=%.1f%% failures=%d active=%d",
		float64(d.Moves)/secs, d.Flushes, d.Coalescing()*100, d.Failures, d.Active)
}
