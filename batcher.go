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

package ptrack

import "time"

// DefaultBatchWindow is how long batched moves are held before a pump replays them.
const DefaultBatchWindow = 20 * time.Millisecond

// batcher queues move samples until the window opened by the first of them
// has elapsed.
type batcher struct {
	queue  []Sample
	head   int
	start  int64
	window int64
	active bool
}

func (b *batcher) len() int { return len(b.queue) - b.head }

func (b *batcher) enqueue(s Sample, now int64) {
	if b.len() == 0 {
		b.start = now
	}
	b.queue = append(b.queue, s)
}

func (b *batcher) peek() Sample { return b.queue[b.head] }

func (b *batcher) pop() {
	b.queue[b.head] = Sample{}
	b.head++
	if b.head == len(b.queue) {
		b.queue = b.queue[:0]
		b.head = 0
	}
}

func (b *batcher) due(now int64, force bool) bool {
	return b.len() > 0 && (force || now-b.start >= b.window)
}

// pending reports whether a queued sample names id.
func (b *batcher) pending(id Identity) bool {
	for _, s := range b.queue[b.head:] {
		if s.Identity.Equal(id) {
			return true
		}
	}
	return false
}

func (b *batcher) snapshot() []Sample {
	out := make([]Sample, b.len())
	copy(out, b.queue[b.head:])
	return out
}

func (b *batcher) reset() {
	b.queue = b.queue[:0]
	b.head = 0
	b.start = 0
}

// pump replays the queue when it is due. Every sample but the last is applied
// in batching mode, which appends to the history instead of notifying; the
// last one notifies once. On failure the history is discarded and the samples
// after the failing one stay queued.
func (t *Tracker) pump(force bool) (bool, error) {
	b := &t.batcher
	if b.active {
		return false, ErrReentrantPump
	}
	now := t.now()
	if !b.due(now, force) {
		return false, nil
	}
	b.active = true
	defer func() { b.active = false }()

	n := b.len()
	t.debugf("pumping %d batched sample(s), window opened %dms ago", n, now-b.start)
	// A sample leaves the queue only after it is applied, so the sweep run
	// by the move still sees it as pending.
	replay := func() error {
		err := t.applyMove(b.peek())
		b.pop()
		return err
	}
	t.batching = true
	for b.len() > 1 {
		if err := replay(); err != nil {
			t.batching = false
			t.history = t.history[:0]
			return false, err
		}
	}
	t.batching = false
	if err := replay(); err != nil {
		t.history = t.history[:0]
		return false, err
	}
	t.opts.Recorder.RecordFlush(n)
	return true, nil
}
