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

package main

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"ptrack"
	"ptrack/internal/api"
	"ptrack/internal/diag"
)

const (
	width  = 1920.0
	height = 1080.0
)

// finger is one synthetic contact: it touches down, wanders for a number of
// steps and lifts.
type finger struct {
	id     ptrack.Identity
	down   bool
	x, y   float64
	dx, dy float64
	steps  int
}

type simulator struct {
	rng     *rand.Rand
	fingers []*finger
	nextID  int64
}

func newSimulator(n int, rng *rand.Rand) *simulator {
	s := &simulator{rng: rng}
	for i := 0; i < n; i++ {
		s.fingers = append(s.fingers, &finger{})
	}
	return s
}

func (s *simulator) run(ctx context.Context, srv *api.Server, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(srv)
		}
	}
}

// tick runs one step and logs what the tracker rejected while pumping.
func (s *simulator) tick(srv *api.Server) {
	if err := srv.Do(s.step); err != nil {
		diag.Logf("[sim] %v", err)
	}
}

// step advances every finger once and pumps whatever batched moves are due.
func (s *simulator) step(t *ptrack.Tracker) error {
	for _, f := range s.fingers {
		if err := s.advance(t, f); err != nil && !errors.Is(err, ptrack.ErrCapacityExceeded) {
			diag.Logf("[sim] %v", err)
		}
	}
	_, err := t.Pump()
	return err
}

func (s *simulator) advance(t *ptrack.Tracker, f *finger) error {
	if !f.down {
		if s.rng.Intn(4) != 0 {
			return nil
		}
		s.nextID++
		f.id = ptrack.IntID(s.nextID)
		f.x, f.y = s.rng.Float64()*width, s.rng.Float64()*height
		angle := s.rng.Float64() * 2 * math.Pi
		f.dx, f.dy = 4*math.Cos(angle), 4*math.Sin(angle)
		f.steps = 10 + s.rng.Intn(40)
		if err := t.Add(f.id, f.x, f.y, f.x/width, f.y/height, ptrack.WithPressure(0.5+s.rng.Float64()/2)); err != nil {
			return err
		}
		// A permissive tracker drops the sample when it is full.
		f.down = held(t, f.id)
		return nil
	}
	if !held(t, f.id) {
		// Cancelled underneath us.
		f.down = false
		return nil
	}

	if f.steps == 0 {
		f.down = false
		return t.Remove(f.id, f.x, f.y, f.x/width, f.y/height)
	}
	f.steps--
	f.x = clamp(f.x+f.dx, 0, width)
	f.y = clamp(f.y+f.dy, 0, height)
	_, err := t.MoveBatched(f.id, f.x, f.y, f.x/width, f.y/height)
	return err
}

// held reports whether id occupies a slot. Lifted and cancelled samples stay
// visible until purged, so visibility is not enough.
func held(t *ptrack.Tracker, id ptrack.Identity) bool {
	for i := 0; i < t.Capacity(); i++ {
		if s, ok := t.SampleAt(i); ok && t.Occupied(i) && s.Identity.Equal(id) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// liftAll removes every finger that is still down.
func (s *simulator) liftAll(t *ptrack.Tracker) error {
	var errs []error
	for _, f := range s.fingers {
		if f.down {
			f.down = false
			errs = append(errs, t.Remove(f.id, f.x, f.y, f.x/width, f.y/height))
		}
	}
	return errors.Join(errs...)
}
