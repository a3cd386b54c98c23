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

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeClock struct{ now int64 }

func (c *fakeClock) Now() int64 { return c.now }

// harness wires a tracker to a fake clock and records every notification.
type harness struct {
	tr        *Tracker
	clock     *fakeClock
	logs      []string
	notes     []Sample
	histories [][]Sample
	rec       *countingRecorder
}

func newHarness(t *testing.T, capacity int, strict bool) *harness {
	t.Helper()
	h := &harness{clock: &fakeClock{}, rec: &countingRecorder{phases: map[Phase]int{}}}
	h.tr = NewWithOptions(Options{
		Capacity: capacity,
		Strict:   strict,
		Clock:    h.clock.Now,
		Recorder: h.rec,
		Logf: func(format string, args ...interface{}) {
			h.logs = append(h.logs, fmt.Sprintf(format, args...))
		},
	})
	h.tr.Subscribe(func(tr *Tracker) {
		s, _ := tr.Current()
		h.notes = append(h.notes, s)
		h.histories = append(h.histories, tr.History())
	})
	return h
}

type countingRecorder struct {
	phases   map[Phase]int
	failures []error
	flushes  []int
	active   int
}

func (r *countingRecorder) RecordSample(p Phase)    { r.phases[p]++ }
func (r *countingRecorder) RecordFailure(err error) { r.failures = append(r.failures, err) }
func (r *countingRecorder) RecordFlush(n int)       { r.flushes = append(r.flushes, n) }
func (r *countingRecorder) RecordActive(n int)      { r.active = n }

var identityComparer = cmp.Comparer(func(a, b Identity) bool {
	return a.Equal(b) || (!a.IsValid() && !b.IsValid())
})

// visible collects the slot indexes and samples an iteration pass would see.
func visible(tr *Tracker) map[int]Sample {
	out := map[int]Sample{}
	for i, s := range tr.Samples() {
		out[i] = s
	}
	return out
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
