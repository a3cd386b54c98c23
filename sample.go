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
	"math"
)

// Phase is a pointer's lifecycle stage.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseDown
	PhaseMove
	PhaseUp
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "NONE"
	case PhaseDown:
		return "DOWN"
	case PhaseMove:
		return "MOVE"
	case PhaseUp:
		return "UP"
	case PhaseCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Terminal reports whether p ends a pointer's lifetime.
func (p Phase) Terminal() bool { return p == PhaseUp || p == PhaseCancelled }

type Point struct {
	X, Y float64
}

func (p Point) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// Sample is a single observation of a pointer. Samples are plain values and
// copying one is how a snapshot is taken.
//
// DownTime, MoveTime, UpTime and CancelTime hold the last time each phase was
// observed for the identity; they are carried forward from sample to sample so
// a consumer can always ask when every phase last occurred.
type Sample struct {
	Identity  Identity
	Timestamp int64 // milliseconds

	DownTime   int64
	MoveTime   int64
	UpTime     int64
	CancelTime int64

	// Location is only meaningful when HasLocation is set. Devices that report
	// NaN or infinite coordinates produce samples without a location.
	Location    Point
	HasLocation bool
	Normalized  Point

	Size     float64
	Pressure float64
	Phase    Phase

	LocationMoved   bool
	NormalizedMoved bool
	Moved           bool
}

// NewSample builds a sample. Non-finite x or y leave the sample without a location.
func NewSample(id Identity, ts int64, x, y, nx, ny, size, pressure float64, phase Phase) Sample {
	s := Sample{
		Identity:   id,
		Timestamp:  ts,
		Normalized: Point{X: nx, Y: ny},
		Size:       size,
		Pressure:   pressure,
		Phase:      phase,
	}
	if finite(x) && finite(y) {
		s.Location = Point{X: x, Y: y}
		s.HasLocation = true
	}
	return s
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// PhaseTime returns the last time phase p was observed, or 0.
func (s Sample) PhaseTime(p Phase) int64 {
	switch p {
	case PhaseDown:
		return s.DownTime
	case PhaseMove:
		return s.MoveTime
	case PhaseUp:
		return s.UpTime
	case PhaseCancelled:
		return s.CancelTime
	default:
		return 0
	}
}

// Visible reports whether the sample should be seen by iteration.
func (s Sample) Visible() bool { return s.Phase != PhaseNone }

// locationDiffers reports whether s lands somewhere other than prev.
func (s Sample) locationDiffers(prev Sample) bool {
	if !s.HasLocation {
		return false
	}
	return !prev.HasLocation || s.Location != prev.Location
}

// flagMovement sets the movement flags of s relative to prev.
func (s *Sample) flagMovement(prev Sample) {
	s.LocationMoved = s.locationDiffers(prev)
	s.NormalizedMoved = s.Normalized != prev.Normalized
	s.Moved = s.LocationMoved || s.NormalizedMoved
}

// carry copies the phase timestamps of prev into s and stamps s's own phase.
func (s *Sample) carry(prev Sample) {
	s.DownTime = prev.DownTime
	s.MoveTime = prev.MoveTime
	s.UpTime = prev.UpTime
	s.CancelTime = prev.CancelTime
	switch s.Phase {
	case PhaseDown:
		s.DownTime = s.Timestamp
	case PhaseMove:
		s.MoveTime = s.Timestamp
	case PhaseUp:
		s.UpTime = s.Timestamp
	case PhaseCancelled:
		s.CancelTime = s.Timestamp
	}
}

// reset clears everything but the identity.
func (s *Sample) reset() {
	*s = Sample{Identity: s.Identity}
}

func (s Sample) String() string {
	loc := "none"
	if s.HasLocation {
		loc = s.Location.String()
	}
	return fmt.Sprintf("%s id=%s t=%d loc=%s norm=%s size=%g pressure=%g moved=%t down=%d move=%d up=%d cancel=%d",
		s.Phase, s.Identity, s.Timestamp, loc, s.Normalized, s.Size, s.Pressure, s.Moved,
		s.DownTime, s.MoveTime, s.UpTime, s.CancelTime)
}
