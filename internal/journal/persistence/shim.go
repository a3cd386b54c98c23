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

package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"ptrack/internal/journal"
)

// IdemShim adapts an IdempotentPersister to journal.Persister, minting one
// batch id per AppendBatch call.
type IdemShim struct {
	impl IdempotentPersister

	mu      sync.Mutex
	frames  int64
	batches int64
	samples int64
}

func NewIdemShim(impl IdempotentPersister) *IdemShim { return &IdemShim{impl: impl} }

func (s *IdemShim) AppendBatch(ctx context.Context, frames []journal.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	batchID := uuid.NewString()
	entries := make([]Entry, len(frames))
	var n int64
	for i, f := range frames {
		entries[i] = Entry{Frame: f, BatchID: batchID}
		n += int64(f.SampleCount())
	}
	if err := s.impl.AppendEntries(ctx, entries); err != nil {
		return err
	}
	s.mu.Lock()
	s.frames += int64(len(frames))
	s.batches++
	s.samples += n
	s.mu.Unlock()
	return nil
}

func (s *IdemShim) PrintFinalMetrics() {
	s.mu.Lock()
	frames, batches, samples := s.frames, s.batches, s.samples
	s.mu.Unlock()
	journal.PrintSummary(stdout, frames, batches, samples)
}

func (s *IdemShim) Close() error { return s.impl.Close() }
