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

// Package ptrack tracks multiple concurrent pointers (fingers, pens, mouse
// buttons) reported by an input source.
//
// A Tracker owns a fixed number of slots. Each pointer that goes down is given
// the first free slot and keeps it until it lifts or is cancelled, so consumers
// can follow one physical pointer by slot across updates. High-frequency moves
// can be batched: samples arriving inside one window are replayed together and
// the observer is notified once, with every intermediate sample available
// through History.
//
// A Tracker is not safe for concurrent use. Hosts that receive input on
// several goroutines must serialize calls to a single instance.
package ptrack

import (
	"fmt"
	"strings"
	"time"

	"ptrack/internal/diag"
)

// Observer is notified once per logical update. It may read the tracker but
// must not feed samples back into it while a batch is being replayed.
type Observer func(t *Tracker)

// Recorder receives operational counters. internal/telemetry provides a
// prometheus implementation.
type Recorder interface {
	RecordSample(phase Phase)
	RecordFailure(err error)
	RecordFlush(size int)
	RecordActive(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordSample(Phase)  {}
func (nopRecorder) RecordFailure(error) {}
func (nopRecorder) RecordFlush(int)     {}
func (nopRecorder) RecordActive(int)    {}

// Options configures a Tracker. The zero value is a permissive tracker with no
// slots.
type Options struct {
	// Capacity is the number of slots. No pointer can go down until it is > 0.
	Capacity int
	// Strict makes capacity, unregistered pointer, duplicate pointer and purge
	// underflow failures return errors. Otherwise they are logged and the
	// tracker recovers on its own.
	Strict bool
	// BatchWindow is how long MoveBatched holds samples. Defaults to DefaultBatchWindow.
	BatchWindow time.Duration
	// Clock returns the current time in milliseconds. Defaults to the wall clock.
	Clock func() int64
	// Logf receives diagnostics. Defaults to diag.Logf.
	Logf func(format string, args ...interface{})
	// Recorder receives counters. Defaults to a no-op.
	Recorder Recorder
	// Debug traces add, remove and pump activity through Logf.
	Debug bool
	// TraceMoves logs every applied move through Logf.
	TraceMoves bool
}

// Tracker is the multi-pointer slot table.
type Tracker struct {
	opts     Options
	table    table
	batcher  batcher
	observer Observer
	history  []Sample
	batching bool
}

// New returns a permissive tracker with capacity slots.
func New(capacity int) *Tracker {
	return NewWithOptions(Options{Capacity: capacity})
}

// NewWithOptions returns a tracker configured by opts.
func NewWithOptions(opts Options) *Tracker {
	if opts.BatchWindow <= 0 {
		opts.BatchWindow = DefaultBatchWindow
	}
	if opts.Clock == nil {
		opts.Clock = wallClock
	}
	if opts.Logf == nil {
		opts.Logf = func(format string, args ...interface{}) { diag.Logf(format, args...) }
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Capacity < 0 {
		opts.Capacity = 0
	}
	t := &Tracker{opts: opts, observer: func(*Tracker) {}}
	t.batcher.window = opts.BatchWindow.Milliseconds()
	t.table.resize(opts.Capacity)
	return t
}

func wallClock() int64 { return time.Now().UnixMilli() }

// SetCapacity discards every slot and queued sample and rebuilds the table
// with n slots.
func (t *Tracker) SetCapacity(n int) error {
	if t.batcher.active || t.table.purging {
		return opError("set capacity", Identity{}, ErrReentrantPump)
	}
	if n < 0 {
		n = 0
	}
	t.opts.Capacity = n
	t.table.resize(n)
	t.batcher.reset()
	t.history = t.history[:0]
	t.opts.Recorder.RecordActive(0)
	return nil
}

// SetStrict switches the failure policy.
func (t *Tracker) SetStrict(strict bool) { t.opts.Strict = strict }

func (t *Tracker) Strict() bool { return t.opts.Strict }

// Subscribe replaces the observer. A nil fn silences notifications.
func (t *Tracker) Subscribe(fn Observer) {
	if fn == nil {
		fn = func(*Tracker) {}
	}
	t.observer = fn
}

func (t *Tracker) notify() {
	t.opts.Recorder.RecordActive(t.table.count)
	t.observer(t)
}

func (t *Tracker) now() int64 { return t.opts.Clock() }

func (t *Tracker) logf(format string, args ...interface{}) {
	t.opts.Logf("ptrack: "+format, args...)
}

func (t *Tracker) debugf(format string, args ...interface{}) {
	if t.opts.Debug {
		t.logf(format, args...)
	}
}

// Capacity returns the number of slots.
func (t *Tracker) Capacity() int { return len(t.table.slots) }

// Count returns the number of occupied slots.
func (t *Tracker) Count() int { return t.table.count }

// Index returns the slot touched by the last operation.
func (t *Tracker) Index() int { return t.table.index }

// SampleAt returns the sample held by slot i.
func (t *Tracker) SampleAt(i int) (Sample, bool) {
	if i < 0 || i >= len(t.table.slots) {
		return Sample{}, false
	}
	return t.table.slots[i].sample, true
}

// Current returns the sample of the slot touched by the last operation.
func (t *Tracker) Current() (Sample, bool) { return t.SampleAt(t.table.index) }

// Occupied reports whether slot i is held by a pointer.
func (t *Tracker) Occupied(i int) bool {
	return i >= 0 && i < len(t.table.slots) && t.table.slots[i].used
}

// PointerIDBits returns the identities of every visible sample.
func (t *Tracker) PointerIDBits() IDBits {
	var b IDBits
	for i := range t.table.slots {
		if s := t.table.slots[i].sample; s.Visible() {
			b.Set(s.Identity)
		}
	}
	return b
}

// History returns the samples replayed silently by the batch being delivered.
// It is only populated while the observer runs at the end of a pump.
func (t *Tracker) History() []Sample {
	out := make([]Sample, len(t.history))
	copy(out, t.history)
	return out
}

func (t *Tracker) HistorySize() int { return len(t.history) }

func (t *Tracker) HistoryAt(i int) (Sample, bool) {
	if i < 0 || i >= len(t.history) {
		return Sample{}, false
	}
	return t.history[i], true
}

// HistoryFor returns the history entries of a single identity.
func (t *Tracker) HistoryFor(id Identity) []Sample {
	var out []Sample
	for _, s := range t.history {
		if s.Identity.Equal(id) {
			out = append(out, s)
		}
	}
	return out
}

// Pending returns the batched samples not yet replayed.
func (t *Tracker) Pending() []Sample { return t.batcher.snapshot() }

// OffsetLocation shifts the location of every visible sample that has one.
func (t *Tracker) OffsetLocation(dx, dy float64) {
	for i := range t.table.slots {
		s := &t.table.slots[i].sample
		if s.Visible() && s.HasLocation {
			s.Location.X += dx
			s.Location.Y += dy
		}
	}
}

// Split returns an independent tracker holding copies of the visible slots
// whose identity is in bits, in slot order, along with their history. The
// copy shares this tracker's options but has no observer and nothing queued.
// Split only reads this tracker, so observers may call it mid-batch.
func (t *Tracker) Split(bits IDBits) (*Tracker, error) {
	var picked []int
	for i := range t.table.slots {
		if s := t.table.slots[i].sample; s.Visible() && bits.Has(s.Identity) {
			picked = append(picked, i)
		}
	}
	if len(picked) == 0 {
		t.opts.Recorder.RecordFailure(ErrEmptySplit)
		return nil, opError("split", Identity{}, ErrEmptySplit)
	}
	opts := t.opts
	opts.Capacity = len(picked)
	out := NewWithOptions(opts)
	out.table.index = len(picked) - 1
	for j, i := range picked {
		out.table.slots[j] = t.table.slots[i]
		if out.table.slots[j].used {
			out.table.count++
		}
		if i == t.table.index {
			out.table.index = j
		}
	}
	for _, s := range t.history {
		if bits.Has(s.Identity) {
			out.history = append(out.history, s)
		}
	}
	return out, nil
}

func (t *Tracker) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tracker{capacity=%d count=%d index=%d pending=%d history=%d}",
		len(t.table.slots), t.table.count, t.table.index, t.batcher.len(), len(t.history))
	for i := range t.table.slots {
		s := t.table.slots[i]
		fmt.Fprintf(&sb, "\n  [%d] used=%t %s", i, s.used, s.sample)
	}
	return sb.String()
}
