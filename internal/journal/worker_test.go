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
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ptrack"
)

// fakePersister can be toggled to fail to exercise the requeue path.
type fakePersister struct {
	mu        sync.Mutex
	returnErr atomic.Bool
	batches   [][]Frame
	closed    bool
}

func (p *fakePersister) AppendBatch(_ context.Context, frames []Frame) error {
	if p.returnErr.Load() {
		return errors.New("forced persister error")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]Frame, len(frames))
	copy(cp, frames)
	p.batches = append(p.batches, cp)
	return nil
}

func (p *fakePersister) PrintFinalMetrics() {}

func (p *fakePersister) Close() error {
	p.closed = true
	return nil
}

func (p *fakePersister) seqs() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []uint64
	for _, b := range p.batches {
		for _, f := range b {
			out = append(out, f.Seq)
		}
	}
	return out
}

func capture(t *testing.T, s *Store, n int) {
	t.Helper()
	tr := ptrack.NewWithOptions(ptrack.Options{Capacity: 1, Clock: func() int64 { return 0 }})
	tr.Subscribe(s.Capture)
	require.NoError(t, tr.Add(ptrack.IntID(0), 0, 0, 0, 0))
	for i := 1; i < n; i++ {
		require.NoError(t, tr.Move(ptrack.IntID(0), float64(i), 0, 0, 0))
	}
}

func TestWorker_FlushCycleBatches(t *testing.T) {
	s := NewStore(0)
	p := &fakePersister{}
	w := NewWorker(s, p, 2, time.Hour, 0, 0)
	capture(t, s, 5)

	w.runFlushCycle()
	require.Len(t, p.batches, 3)
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, p.seqs())
	require.Equal(t, WorkerStats{Persisted: 5, Batches: 3}, w.Stats())
}

func TestWorker_FailureRequeues(t *testing.T) {
	s := NewStore(0)
	p := &fakePersister{}
	p.returnErr.Store(true)
	w := NewWorker(s, p, 10, time.Hour, 0, 0)
	capture(t, s, 3)

	w.runFlushCycle()
	require.Equal(t, 3, s.Len())
	require.Equal(t, int64(1), w.Stats().Failures)

	p.returnErr.Store(false)
	w.runFlushCycle()
	require.Equal(t, 0, s.Len())
	require.Equal(t, []uint64{1, 2, 3}, p.seqs())
}

func TestWorker_StartStopFinalFlush(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewStoreWithOptions(StoreOptions{FlushThreshold: 100})
	p := &fakePersister{}
	w := NewWorker(s, p, 100, time.Hour, time.Hour, time.Hour)
	w.Start()
	capture(t, s, 4)
	w.Stop()
	w.Stop()

	require.Equal(t, []uint64{1, 2, 3, 4}, p.seqs())
}

func TestWorker_ReadyTriggersFlush(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewStoreWithOptions(StoreOptions{FlushThreshold: 3})
	p := &fakePersister{}
	w := NewWorker(s, p, 3, time.Hour, 0, 0)
	w.Start()
	defer w.Stop()
	capture(t, s, 3)

	require.Eventually(t, func() bool { return len(p.seqs()) == 3 }, time.Second, 5*time.Millisecond)
}

func TestWorker_Eviction(t *testing.T) {
	s := NewStore(0)
	w := NewWorker(s, &fakePersister{}, 1, time.Hour, time.Minute, time.Minute)
	capture(t, s, 1)
	require.Len(t, s.Pointers(), 1)

	w.runEvictionCycle(time.Now())
	require.Len(t, s.Pointers(), 1)
	w.runEvictionCycle(time.Now().Add(2 * time.Minute))
	require.Empty(t, s.Pointers())
}

func TestLogPersister(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPersisterTo(&buf)
	require.NoError(t, p.AppendBatch(context.Background(), nil))
	require.NoError(t, p.AppendBatch(context.Background(), []Frame{{Seq: 7, Count: 1, Samples: []Record{{ID: "0"}}}}))
	SetThresholdInt("journal.batch_size", 64)
	p.PrintFinalMetrics()
	require.NoError(t, p.Close())

	out := buf.String()
	require.Contains(t, out, "Persisting batch of 1 frames")
	require.Contains(t, out, "SEQ: 7")
	require.Contains(t, out, "Final journal metrics")
	require.Contains(t, out, "journal.batch_size")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, p.AppendBatch(ctx, []Frame{{Seq: 8}}), context.Canceled)
}
