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

import "iter"

// Iterator walks the visible slots of a tracker, including slots whose
// pointer lifted since the last sweep. It must not be used across an
// ingestion call.
type Iterator struct {
	t    *Tracker
	next int
	last int
}

func (t *Tracker) Iterator() *Iterator {
	return &Iterator{t: t, last: -1}
}

// HasNext positions the cursor on the next visible slot without consuming it.
func (it *Iterator) HasNext() bool {
	slots := it.t.table.slots
	for ; it.next < len(slots); it.next++ {
		if slots[it.next].sample.Visible() {
			return true
		}
	}
	return false
}

// Next returns the next visible sample, or the zero Sample once exhausted.
func (it *Iterator) Next() Sample {
	if !it.HasNext() {
		return Sample{}
	}
	it.last = it.next
	it.next++
	return it.t.table.slots[it.last].sample
}

// Index returns the slot of the sample last returned by Next, or -1.
func (it *Iterator) Index() int { return it.last }

// Samples yields the slot index and sample of every visible slot.
func (t *Tracker) Samples() iter.Seq2[int, Sample] {
	return func(yield func(int, Sample) bool) {
		for i := range t.table.slots {
			s := t.table.slots[i].sample
			if !s.Visible() {
				continue
			}
			if !yield(i, s) {
				return
			}
		}
	}
}
