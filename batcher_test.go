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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type move struct {
	id           int64
	x, y, nx, ny float64
}

// TestBatcher_Equivalence replays the same moves directly and through the
// batcher. The tables must end up identical while the batched tracker
// notifies once, exposing the earlier samples as history.
func TestBatcher_Equivalence(t *testing.T) {
	moves := []move{
		{0, 1, 1, 0.1, 0.1},
		{1, 8, 8, 0.8, 0.8},
		{0, 2, 2, 0.2, 0.2},
		{0, 2, 2, 0.2, 0.2},
		{1, 7, 9, 0.7, 0.9},
	}
	direct := newHarness(t, 3, true)
	batched := newHarness(t, 3, true)
	for _, h := range []*harness{direct, batched} {
		mustNoErr(t, h.tr.Add(IntID(0), 0, 0, 0, 0, At(0)))
		mustNoErr(t, h.tr.Add(IntID(1), 9, 9, 0.9, 0.9, At(0)))
	}

	for i, m := range moves {
		mustNoErr(t, direct.tr.Move(IntID(m.id), m.x, m.y, m.nx, m.ny, At(int64(i+1))))
		flushed, err := batched.tr.MoveBatched(IntID(m.id), m.x, m.y, m.nx, m.ny, At(int64(i+1)))
		if err != nil || flushed {
			t.Fatalf("MoveBatched #%d = (%t, %v), want the window to stay open", i, flushed, err)
		}
	}
	if len(batched.notes) != 2 || len(batched.tr.Pending()) != len(moves) {
		t.Fatalf("before pump: notes=%d pending=%d", len(batched.notes), len(batched.tr.Pending()))
	}

	flushed, err := batched.tr.TryForcePump()
	if err != nil || !flushed {
		t.Fatalf("TryForcePump() = (%t, %v)", flushed, err)
	}
	if got := len(batched.notes) - 2; got != 1 {
		t.Errorf("batched observer fired %d times, want 1", got)
	}
	if diff := cmp.Diff(visible(direct.tr), visible(batched.tr), identityComparer); diff != "" {
		t.Errorf("final table mismatch (-direct +batched):\n%s", diff)
	}
	if direct.tr.Count() != batched.tr.Count() || direct.tr.Index() != batched.tr.Index() {
		t.Errorf("count/index: direct (%d, %d), batched (%d, %d)",
			direct.tr.Count(), direct.tr.Index(), batched.tr.Count(), batched.tr.Index())
	}

	hist := batched.histories[len(batched.histories)-1]
	if len(hist) != len(moves)-1 {
		t.Fatalf("history at notification = %d samples, want %d", len(hist), len(moves)-1)
	}
	for i, s := range hist {
		if s.Timestamp != int64(i+1) || !s.Identity.Equal(IntID(moves[i].id)) {
			t.Errorf("history[%d] = %v", i, s)
		}
	}
	if batched.tr.HistorySize() != 0 {
		t.Errorf("history should be cleared after delivery, has %d", batched.tr.HistorySize())
	}
	if diff := cmp.Diff([]int{len(moves)}, batched.rec.flushes); diff != "" {
		t.Errorf("flush sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestBatcher_Window(t *testing.T) {
	h := newHarness(t, 1, true)
	mustNoErr(t, h.tr.Add(IntID(0), 0, 0, 0, 0))

	steps := []struct {
		now  int64
		want bool
	}{
		{0, false},
		{19, false},
		{20, true},
		{21, false},
	}
	for _, st := range steps {
		h.clock.now = st.now
		flushed, err := h.tr.MoveBatched(IntID(0), float64(st.now), 0, 0, 0)
		if err != nil || flushed != st.want {
			t.Errorf("MoveBatched at %d = (%t, %v), want %t", st.now, flushed, err, st.want)
		}
	}

	if flushed, _ := h.tr.Pump(); flushed {
		t.Errorf("Pump() inside the window flushed")
	}
	h.clock.now = 41
	if flushed, err := h.tr.Pump(); err != nil || !flushed {
		t.Errorf("Pump() after the window = (%t, %v)", flushed, err)
	}
	if flushed, _ := h.tr.Pump(); flushed {
		t.Errorf("Pump() on an empty queue flushed")
	}
}

func TestBatcher_DirectMoveDrainsQueue(t *testing.T) {
	h := newHarness(t, 1, true)
	mustNoErr(t, h.tr.Add(IntID(0), 0, 0, 0, 0))
	if _, err := h.tr.MoveBatched(IntID(0), 1, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	mustNoErr(t, h.tr.Move(IntID(0), 2, 0, 0, 0))
	if len(h.notes) != 3 || h.notes[1].Location.X != 1 || h.notes[2].Location.X != 2 {
		t.Errorf("notes = %v, want the queued move delivered before the direct one", h.notes)
	}
}

func TestBatcher_Reentrancy(t *testing.T) {
	h := newHarness(t, 1, true)
	mustNoErr(t, h.tr.Add(IntID(0), 0, 0, 0, 0))

	var errs []error
	var split *Tracker
	h.tr.Subscribe(func(tr *Tracker) {
		errs = append(errs, tr.Move(IntID(0), 1, 1, 0, 0))
		errs = append(errs, tr.Add(IntID(1), 1, 1, 0, 0))
		errs = append(errs, tr.CancelAll())
		_, err := tr.TryForcePump()
		errs = append(errs, err)
		_, err = tr.MoveBatched(IntID(0), 1, 1, 0, 0)
		errs = append(errs, err)
		errs = append(errs, tr.SetCapacity(3))

		var serr error
		split, serr = tr.Split(NewIDBits(IntID(0)))
		if serr != nil {
			t.Errorf("Split from observer: %v", serr)
		}
	})

	for x := 2.0; x < 5; x++ {
		if _, err := h.tr.MoveBatched(IntID(0), x, 0, 0, 0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := h.tr.TryForcePump(); err != nil {
		t.Fatalf("TryForcePump() = %v", err)
	}
	if len(errs) != 6 {
		t.Fatalf("observer ran %d checks, want 6", len(errs))
	}
	for i, err := range errs {
		if !errors.Is(err, ErrReentrantPump) {
			t.Errorf("re-entrant call #%d err = %v, want ErrReentrantPump", i, err)
		}
	}
	if split == nil || split.HistorySize() != 2 {
		t.Errorf("split taken mid-batch should carry the history")
	}

	h.tr.Subscribe(nil)
	mustNoErr(t, h.tr.Move(IntID(0), 9, 9, 0, 0))
	if h.tr.Capacity() != 1 {
		t.Errorf("rejected SetCapacity changed the table")
	}
}

func TestBatcher_FailureDuringReplay(t *testing.T) {
	h := newHarness(t, 2, true)
	mustNoErr(t, h.tr.Add(IntID(0), 0, 0, 0, 0))
	for _, m := range []move{{0, 1, 0, 0, 0}, {9, 1, 0, 0, 0}, {0, 3, 0, 0, 0}} {
		if _, err := h.tr.MoveBatched(IntID(m.id), m.x, m.y, m.nx, m.ny); err != nil {
			t.Fatal(err)
		}
	}

	_, err := h.tr.TryForcePump()
	if !errors.Is(err, ErrUnregisteredPointer) {
		t.Fatalf("TryForcePump() err = %v, want ErrUnregisteredPointer", err)
	}
	if h.tr.HistorySize() != 0 || h.tr.batching || h.tr.batcher.active {
		t.Errorf("failed replay left batch state behind: history=%d batching=%t active=%t",
			h.tr.HistorySize(), h.tr.batching, h.tr.batcher.active)
	}
	if len(h.notes) != 1 {
		t.Errorf("failed replay notified %d times", len(h.notes)-1)
	}
	if pending := h.tr.Pending(); len(pending) != 1 || pending[0].Location.X != 3 {
		t.Errorf("pending = %v, want the unreplayed move", pending)
	}

	flushed, err := h.tr.TryForcePump()
	if err != nil || !flushed {
		t.Fatalf("second TryForcePump() = (%t, %v)", flushed, err)
	}
	if s, _ := h.tr.Current(); s.Location.X != 3 {
		t.Errorf("current = %v", s)
	}
}

// TestBatcher_PendingKeepsLiftedSlot checks that a lifted pointer with moves
// still queued is not purged by a sweep in the middle of the replay.
func TestBatcher_PendingKeepsLiftedSlot(t *testing.T) {
	h := newHarness(t, 2, true)
	mustNoErr(t, h.tr.Add(IntID(0), 0, 0, 0, 0))
	mustNoErr(t, h.tr.Add(IntID(1), 0, 0, 0, 0))
	mustNoErr(t, h.tr.Remove(IntID(0), 0, 0, 0, 0))
	if _, err := h.tr.MoveBatched(IntID(1), 1, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.tr.MoveBatched(IntID(0), 1, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.tr.TryForcePump(); err != nil {
		t.Fatalf("TryForcePump() = %v", err)
	}
	if s, _ := h.tr.SampleAt(0); s.Phase != PhaseMove || !h.tr.Occupied(0) {
		t.Errorf("slot 0 = %v occupied=%t", s, h.tr.Occupied(0))
	}
}
