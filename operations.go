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

type sampleConfig struct {
	ts       int64
	hasTS    bool
	size     float64
	pressure float64
}

// SampleOption adjusts a sample built by the coordinate helpers.
type SampleOption func(*sampleConfig)

// At sets the sample timestamp in milliseconds. Without it the tracker clock is used.
func At(ts int64) SampleOption {
	return func(c *sampleConfig) { c.ts, c.hasTS = ts, true }
}

func WithSize(v float64) SampleOption { return func(c *sampleConfig) { c.size = v } }

func WithPressure(v float64) SampleOption { return func(c *sampleConfig) { c.pressure = v } }

func (t *Tracker) build(id Identity, x, y, nx, ny float64, phase Phase, opts []SampleOption) Sample {
	cfg := sampleConfig{size: 1, pressure: 1}
	for _, o := range opts {
		o(&cfg)
	}
	if !cfg.hasTS {
		cfg.ts = t.now()
	}
	return NewSample(id, cfg.ts, x, y, nx, ny, cfg.size, cfg.pressure, phase)
}

// Add reports a pointer going down at (x, y), normalized (nx, ny).
func (t *Tracker) Add(id Identity, x, y, nx, ny float64, opts ...SampleOption) error {
	return t.AddSample(t.build(id, x, y, nx, ny, PhaseDown, opts))
}

// Move reports a pointer moving. Batched samples still queued are replayed first.
func (t *Tracker) Move(id Identity, x, y, nx, ny float64, opts ...SampleOption) error {
	return t.MoveSample(t.build(id, x, y, nx, ny, PhaseMove, opts))
}

// MoveBatched queues a move and reports whether the queue was replayed.
func (t *Tracker) MoveBatched(id Identity, x, y, nx, ny float64, opts ...SampleOption) (bool, error) {
	return t.MoveSampleBatched(t.build(id, x, y, nx, ny, PhaseMove, opts))
}

// Remove reports a pointer lifting.
func (t *Tracker) Remove(id Identity, x, y, nx, ny float64, opts ...SampleOption) error {
	return t.RemoveSample(t.build(id, x, y, nx, ny, PhaseUp, opts))
}

// Cancel aborts every pointer, reporting the sample on the pointer it names.
func (t *Tracker) Cancel(id Identity, x, y, nx, ny float64, opts ...SampleOption) error {
	return t.CancelSample(t.build(id, x, y, nx, ny, PhaseCancelled, opts))
}

// enter rejects calls made while a pump or sweep is running and, when
// checkID is set, samples without a valid identity.
func (t *Tracker) enter(op string, id Identity, checkID bool) error {
	if t.batcher.active || t.table.purging {
		t.opts.Recorder.RecordFailure(ErrReentrantPump)
		return opError(op, id, ErrReentrantPump)
	}
	if checkID && !id.IsValid() {
		t.opts.Recorder.RecordFailure(ErrInvalidIdentity)
		return opError(op, id, ErrInvalidIdentity)
	}
	return nil
}

// reject applies the failure policy to a dropped sample.
func (t *Tracker) reject(op string, id Identity, err error) error {
	t.opts.Recorder.RecordFailure(err)
	if t.opts.Strict {
		return opError(op, id, err)
	}
	t.logf("%s %s: %v, dropping sample", op, id, err)
	return nil
}

// rejectAndCancel applies the failure policy to a sample that leaves the
// table out of step with the input source. Permissive trackers cancel every
// pointer to get back to a known state.
func (t *Tracker) rejectAndCancel(op string, id Identity, err error) error {
	t.opts.Recorder.RecordFailure(err)
	if t.opts.Strict {
		return opError(op, id, err)
	}
	t.logf("%s %s: %v, cancelling all pointers", op, id, err)
	t.cancelAll()
	return nil
}

// AddSample places s in the first free slot as a DOWN sample.
func (t *Tracker) AddSample(s Sample) error {
	const op = "add"
	if err := t.enter(op, s.Identity, true); err != nil {
		return err
	}
	if _, err := t.pump(true); err != nil {
		return opError(op, s.Identity, err)
	}
	ok, err := t.sweep()
	if err != nil || !ok {
		return opError(op, s.Identity, err)
	}
	t.debugf("adding pointer %s", s.Identity)
	if t.table.find(s.Identity) >= 0 {
		return t.reject(op, s.Identity, ErrDuplicatePointer)
	}
	i := t.table.firstFree()
	if i < 0 {
		return t.reject(op, s.Identity, ErrCapacityExceeded)
	}
	s.Phase = PhaseDown
	s.DownTime = s.Timestamp
	s.MoveTime, s.UpTime, s.CancelTime = 0, 0, 0
	s.LocationMoved, s.NormalizedMoved, s.Moved = false, false, false

	t.table.slots[i] = slot{used: true, sample: s}
	t.table.count++
	t.table.index = i
	t.opts.Recorder.RecordSample(PhaseDown)
	t.notify()
	return nil
}

// MoveSample applies s to the slot holding its identity.
func (t *Tracker) MoveSample(s Sample) error {
	const op = "move"
	if err := t.enter(op, s.Identity, true); err != nil {
		return err
	}
	if _, err := t.pump(true); err != nil {
		return opError(op, s.Identity, err)
	}
	return t.applyMove(s)
}

// MoveSampleBatched queues s and pumps the queue if its window has elapsed.
func (t *Tracker) MoveSampleBatched(s Sample) (bool, error) {
	const op = "move"
	if err := t.enter(op, s.Identity, true); err != nil {
		return false, err
	}
	s.Phase = PhaseMove
	t.batcher.enqueue(s, t.now())
	flushed, err := t.pump(false)
	if err != nil {
		return false, opError(op, s.Identity, err)
	}
	return flushed, nil
}

// applyMove is the move path shared by direct moves, batch replay and the
// implicit move made by a remove.
func (t *Tracker) applyMove(s Sample) error {
	const op = "move"
	ok, err := t.sweep()
	if err != nil || !ok {
		return opError(op, s.Identity, err)
	}
	i := t.table.find(s.Identity)
	if i < 0 {
		return t.rejectAndCancel(op, s.Identity, ErrUnregisteredPointer)
	}
	sl := &t.table.slots[i]
	s.Phase = PhaseMove
	s.flagMovement(sl.sample)
	s.carry(sl.sample)
	sl.sample = s
	t.table.index = i
	t.opts.Recorder.RecordSample(PhaseMove)
	if t.opts.TraceMoves {
		t.logf("moved %s", s)
	}
	if t.batching {
		t.history = append(t.history, s)
		return nil
	}
	t.notify()
	t.history = t.history[:0]
	return nil
}

// RemoveSample turns the pointer's slot into an UP sample. A pointer that
// lifts somewhere other than its last location is first moved there, so the
// observer sees a MOVE followed by the UP, and the UP is stamped with the
// tracker clock.
func (t *Tracker) RemoveSample(s Sample) error {
	const op = "remove"
	if err := t.enter(op, s.Identity, true); err != nil {
		return err
	}
	if _, err := t.pump(true); err != nil {
		return opError(op, s.Identity, err)
	}
	ok, err := t.sweep()
	if err != nil || !ok {
		return opError(op, s.Identity, err)
	}
	i := t.table.find(s.Identity)
	if i < 0 {
		return t.rejectAndCancel(op, s.Identity, ErrUnregisteredPointer)
	}
	before := t.table.slots[i].sample
	t.debugf("removing pointer %s", s.Identity)
	if s.locationDiffers(before) {
		mv := s
		mv.Phase = PhaseMove
		mv.Timestamp = t.now()
		if err := t.applyMove(mv); err != nil {
			return opError(op, s.Identity, err)
		}
		// the observer may have cancelled the pointer
		if i = t.table.find(s.Identity); i < 0 {
			return t.rejectAndCancel(op, s.Identity, ErrUnregisteredPointer)
		}
	}
	sl := &t.table.slots[i]
	s.Phase = PhaseUp
	s.flagMovement(before)
	s.carry(sl.sample)
	sl.sample = s
	t.table.index = i
	t.opts.Recorder.RecordSample(PhaseUp)
	t.notify()
	return nil
}

// CancelSample cancels every pointer. The slot holding s's identity, or the
// first occupied slot when none does, receives s as a CANCELLED sample; every
// other slot is reset.
func (t *Tracker) CancelSample(s Sample) error {
	const op = "cancel"
	if err := t.enter(op, s.Identity, false); err != nil {
		return err
	}
	if _, err := t.pump(true); err != nil {
		return opError(op, s.Identity, err)
	}
	if len(t.table.slots) == 0 {
		t.cancelEmpty()
		return nil
	}
	target := t.table.find(s.Identity)
	if target < 0 {
		target = t.cancelTarget()
	}
	prev := t.table.slots[target].sample
	s.Phase = PhaseCancelled
	s.flagMovement(prev)
	s.carry(prev)
	t.table.vacate(target, s)
	t.opts.Recorder.RecordSample(PhaseCancelled)
	t.notify()
	return nil
}

// CancelAll cancels every pointer at the current time.
func (t *Tracker) CancelAll() error {
	if err := t.enter("cancel", Identity{}, false); err != nil {
		return err
	}
	if _, err := t.pump(true); err != nil {
		return opError("cancel", Identity{}, err)
	}
	t.cancelAll()
	return nil
}

// cancelAll re-phases the first occupied slot (or slot 0) to CANCELLED and
// releases everything. It never pumps, so it is safe on the failure paths.
func (t *Tracker) cancelAll() {
	if len(t.table.slots) == 0 {
		t.cancelEmpty()
		return
	}
	target := t.cancelTarget()
	c := t.table.slots[target].sample
	c.Timestamp = t.now()
	c.Phase = PhaseCancelled
	c.CancelTime = c.Timestamp
	c.LocationMoved, c.NormalizedMoved, c.Moved = false, false, false
	t.table.vacate(target, c)
	t.opts.Recorder.RecordSample(PhaseCancelled)
	t.notify()
}

func (t *Tracker) cancelTarget() int {
	if i := t.table.firstUsed(); i >= 0 {
		return i
	}
	return 0
}

func (t *Tracker) cancelEmpty() {
	t.logf("cancel: no slots to cancel, capacity is 0")
	t.table.count = 0
	t.table.index = 0
	t.notify()
}

// Pump replays batched moves if their window has elapsed and reports whether it did.
func (t *Tracker) Pump() (bool, error) {
	flushed, err := t.pump(false)
	return flushed, opError("pump", Identity{}, err)
}

// TryForcePump replays batched moves immediately.
func (t *Tracker) TryForcePump() (bool, error) {
	flushed, err := t.pump(true)
	return flushed, opError("pump", Identity{}, err)
}
