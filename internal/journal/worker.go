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

package journal

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ptrack/internal/diag"
	"ptrack/internal/telemetry"
)

// Worker drains captured frames into a Persister in the background and
// evicts pointer traces that have gone quiet.
type Worker struct {
	store            *Store
	persister        Persister
	batchSize        int
	flushInterval    time.Duration
	evictionAge      time.Duration
	evictionInterval time.Duration
	timeout          time.Duration
	stopChan         chan struct{}
	wg               sync.WaitGroup
	stopped          uint32

	persisted atomic.Int64
	batches   atomic.Int64
	failures  atomic.Int64
}

// WorkerStats summarizes a Worker.
type WorkerStats struct {
	Persisted int64 `json:"persisted"`
	Batches   int64 `json:"batches"`
	Failures  int64 `json:"failures"`
}

// NewWorker creates and configures a background worker.
//
// batchSize caps the frames handed to the persister in one call; the store's
// flush threshold should normally match it. flushInterval bounds how long a
// frame waits when traffic is too low to fill a batch. evictionAge of 0
// disables trace eviction.
func NewWorker(store *Store, persister Persister, batchSize int, flushInterval, evictionAge, evictionInterval time.Duration) *Worker {
	if batchSize <= 0 {
		batchSize = 64
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Worker{
		store:            store,
		persister:        persister,
		batchSize:        batchSize,
		flushInterval:    flushInterval,
		evictionAge:      evictionAge,
		evictionInterval: evictionInterval,
		timeout:          5 * time.Second,
		stopChan:         make(chan struct{}),
	}
}

// Start launches the background goroutines.
func (w *Worker) Start() {
	fmt.Println("Starting journal worker...")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.flushLoop()
	}()
	if w.evictionAge > 0 && w.evictionInterval > 0 {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.evictionLoop()
		}()
	}
}

// Stop flushes every pending frame and waits for the goroutines to exit.
func (w *Worker) Stop() {
	if !atomic.CompareAndSwapUint32(&w.stopped, 0, 1) {
		return
	}
	fmt.Println("Stopping journal worker...")
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Persisted: w.persisted.Load(),
		Batches:   w.batches.Load(),
		Failures:  w.failures.Load(),
	}
}

func (w *Worker) flushLoop() {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.store.Ready():
			w.runFlushCycle()
		case <-ticker.C:
			w.runFlushCycle()
		case <-w.stopChan:
			w.runFlushCycle()
			return
		}
	}
}

// runFlushCycle persists pending frames batch by batch until the store is
// empty or a batch fails. Failed frames go back to the store for the next cycle.
func (w *Worker) runFlushCycle() {
	for {
		frames := w.store.Drain(w.batchSize)
		if len(frames) == 0 {
			return
		}
		if err := w.persist(frames); err != nil {
			w.store.Requeue(frames)
			w.failures.Add(1)
			telemetry.ObserveJournalError(1)
			diag.Logf("ERROR: Failed to persist %d frames: %v", len(frames), err)
			return
		}
		w.persisted.Add(int64(len(frames)))
		w.batches.Add(1)
		telemetry.ObserveJournalBatch(len(frames))
	}
}

func (w *Worker) persist(frames []Frame) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return w.persister.AppendBatch(ctx, frames)
}

func (w *Worker) evictionLoop() {
	ticker := time.NewTicker(w.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runEvictionCycle(time.Now())
		case <-w.stopChan:
			return
		}
	}
}

func (w *Worker) runEvictionCycle(now time.Time) {
	var evict []string
	w.store.ForEach(func(id string, p *PointerTrace) {
		last := atomic.LoadInt64(&p.lastSeen)
		if now.Sub(time.Unix(0, last)) > w.evictionAge {
			evict = append(evict, id)
		}
	})
	for _, id := range evict {
		w.store.Delete(id)
	}
}
