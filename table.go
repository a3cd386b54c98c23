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

// slot is one entry of the table arena. A slot can be unused while its sample
// still carries a terminal phase: the pointer has lifted and the sample stays
// readable until the next sweep clears it.
type slot struct {
	used   bool
	sample Sample
}

// table is the fixed-capacity slot arena. Slots are addressed by index only.
type table struct {
	slots   []slot
	count   int
	index   int
	purging bool
}

func (tb *table) resize(n int) {
	if n < 0 {
		n = 0
	}
	tb.slots = make([]slot, n)
	tb.count = 0
	tb.index = 0
}

// find returns the used slot holding id, or -1.
func (tb *table) find(id Identity) int {
	for i := range tb.slots {
		if tb.slots[i].used && tb.slots[i].sample.Identity.Equal(id) {
			return i
		}
	}
	return -1
}

func (tb *table) firstFree() int {
	for i := range tb.slots {
		if !tb.slots[i].used {
			return i
		}
	}
	return -1
}

func (tb *table) firstUsed() int {
	for i := range tb.slots {
		if tb.slots[i].used {
			return i
		}
	}
	return -1
}

// vacate releases every slot. Slot target keeps s, every other slot is reset.
func (tb *table) vacate(target int, s Sample) {
	for i := range tb.slots {
		tb.slots[i].used = false
		if i == target {
			tb.slots[i].sample = s
		} else {
			tb.slots[i].sample.reset()
		}
	}
	tb.count = 0
	tb.index = target
}

// sweep moves every terminal slot one stage closer to reuse. A used slot whose
// pointer lifted is released but keeps its sample; a released slot that still
// carries a sample is reset. Lifted pointers with batched samples still queued
// are left alone.
//
// It reports false when the sweep gave up and cancelled every pointer.
func (t *Tracker) sweep() (bool, error) {
	tb := &t.table
	if tb.purging {
		return false, ErrReentrantPump
	}
	tb.purging = true
	underflow := false
	for i := range tb.slots {
		s := &tb.slots[i]
		switch {
		case s.used && s.sample.Phase.Terminal():
			if t.batcher.pending(s.sample.Identity) {
				continue
			}
			if tb.count == 0 {
				underflow = true
			} else {
				s.used = false
				tb.count--
			}
		case !s.used && s.sample.Phase != PhaseNone:
			s.sample.reset()
		}
		if underflow {
			break
		}
	}
	tb.purging = false
	if !underflow {
		return true, nil
	}
	t.opts.Recorder.RecordFailure(ErrPurgeUnderflow)
	if t.opts.Strict {
		return false, ErrPurgeUnderflow
	}
	t.logf("purge: %v, cancelling all pointers", ErrPurgeUnderflow)
	t.cancelAll()
	return false, nil
}
