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
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ptrack"
)

// PointerTrace is the running summary of one identity seen in captured frames.
type PointerTrace struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Frames int64  `json:"frames"`
	Last   Record `json:"last"`
	// lastSeen is unix nanos, read by the eviction loop.
	lastSeen int64
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// MaxPending caps frames waiting for the worker; the oldest are dropped
	// first. 0 means unbounded.
	MaxPending int
	// FlushThreshold wakes the worker once this many frames are pending.
	FlushThreshold int
	// Now defaults to time.Now.
	Now func() time.Time
	// RunID tags every captured frame. Defaults to a fresh uuid.
	RunID string
}

// Stats summarizes a Store.
type Stats struct {
	Captured uint64 `json:"captured"`
	Pending  int    `json:"pending"`
	Dropped  int64  `json:"dropped"`
	Pointers int    `json:"pointers"`
}

// Store buffers frames between the tracker goroutine and the worker. It is
// safe for concurrent use.
type Store struct {
	opts    StoreOptions
	mu      sync.Mutex
	pending []Frame
	latest  Frame
	has     bool
	seq     uint64
	dropped atomic.Int64
	ready   chan struct{}

	traces sync.Map // id -> *PointerTrace
}

func NewStore(maxPending int) *Store {
	return NewStoreWithOptions(StoreOptions{MaxPending: maxPending})
}

func NewStoreWithOptions(opts StoreOptions) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Store{opts: opts, ready: make(chan struct{}, 1)}
}

// RunID returns the id stamped on this store's frames.
func (s *Store) RunID() string { return s.opts.RunID }

// Capture snapshots t. Its signature matches ptrack.Observer so it can be
// subscribed directly.
func (s *Store) Capture(t *ptrack.Tracker) {
	now := s.opts.Now()
	s.mu.Lock()
	s.seq++
	f := frameOf(t, s.opts.RunID, s.seq, now.UnixMilli())
	s.latest, s.has = f, true
	if s.opts.MaxPending > 0 && len(s.pending) >= s.opts.MaxPending {
		n := len(s.pending) - s.opts.MaxPending + 1
		s.pending = append(s.pending[:0], s.pending[n:]...)
		s.dropped.Add(int64(n))
	}
	s.pending = append(s.pending, f)
	wake := s.opts.FlushThreshold > 0 && len(s.pending) >= s.opts.FlushThreshold
	s.mu.Unlock()

	recordCapture(f)
	s.trace(f, now.UnixNano())
	if wake {
		select {
		case s.ready <- struct{}{}:
		default:
		}
	}
}

func (s *Store) trace(f Frame, now int64) {
	for _, r := range f.Samples {
		v, ok := s.traces.Load(r.ID)
		if !ok {
			v, _ = s.traces.LoadOrStore(r.ID, &PointerTrace{ID: r.ID, Kind: r.Kind})
		}
		pt := v.(*PointerTrace)
		atomic.AddInt64(&pt.Frames, 1)
		atomic.StoreInt64(&pt.lastSeen, now)
		s.mu.Lock()
		pt.Last = r
		s.mu.Unlock()
	}
}

// Ready is signalled when the pending frames reach the flush threshold.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Drain removes and returns up to max pending frames, oldest first. max <= 0 drains everything.
func (s *Store) Drain(max int) []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.pending)
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]Frame, n)
	copy(out, s.pending[:n])
	s.pending = append(s.pending[:0], s.pending[n:]...)
	return out
}

// Requeue puts frames that failed to persist back in front of the pending ones.
func (s *Store) Requeue(frames []Frame) {
	if len(frames) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make([]Frame, 0, len(frames)+len(s.pending))
	merged = append(merged, frames...)
	merged = append(merged, s.pending...)
	if max := s.opts.MaxPending; max > 0 && len(merged) > max {
		s.dropped.Add(int64(len(merged) - max))
		merged = merged[len(merged)-max:]
	}
	s.pending = merged
}

// Latest returns the most recently captured frame.
func (s *Store) Latest() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.has
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ForEach visits every traced pointer.
func (s *Store) ForEach(f func(id string, p *PointerTrace)) {
	s.traces.Range(func(key, value interface{}) bool {
		f(key.(string), value.(*PointerTrace))
		return true
	})
}

// Delete forgets a traced pointer. Used by the eviction loop.
func (s *Store) Delete(id string) { s.traces.Delete(id) }

// Pointers returns a copy of every trace sorted by id.
func (s *Store) Pointers() []PointerTrace {
	var out []PointerTrace
	s.mu.Lock()
	s.ForEach(func(_ string, p *PointerTrace) {
		out = append(out, PointerTrace{ID: p.ID, Kind: p.Kind, Frames: atomic.LoadInt64(&p.Frames), Last: p.Last})
	})
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Stats() Stats {
	st := Stats{Dropped: s.dropped.Load()}
	s.mu.Lock()
	st.Captured = s.seq
	st.Pending = len(s.pending)
	s.mu.Unlock()
	s.ForEach(func(string, *PointerTrace) { st.Pointers++ })
	return st
}
