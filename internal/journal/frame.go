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

// Package journal captures tracker notifications as frames and writes them
// to a persister from a background worker.
package journal

import "ptrack"

// Record is the serialized form of a sample.
type Record struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Phase       string  `json:"phase"`
	Timestamp   int64   `json:"ts"`
	DownTime    int64   `json:"down,omitempty"`
	MoveTime    int64   `json:"move,omitempty"`
	UpTime      int64   `json:"up,omitempty"`
	CancelTime  int64   `json:"cancel,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	HasLocation bool    `json:"has_location"`
	NX          float64 `json:"nx"`
	NY          float64 `json:"ny"`
	Size        float64 `json:"size"`
	Pressure    float64 `json:"pressure"`
	Moved       bool    `json:"moved"`
}

// RecordOf converts a sample.
func RecordOf(s ptrack.Sample) Record {
	return Record{
		ID:          s.Identity.String(),
		Kind:        s.Identity.Kind().String(),
		Phase:       s.Phase.String(),
		Timestamp:   s.Timestamp,
		DownTime:    s.DownTime,
		MoveTime:    s.MoveTime,
		UpTime:      s.UpTime,
		CancelTime:  s.CancelTime,
		X:           s.Location.X,
		Y:           s.Location.Y,
		HasLocation: s.HasLocation,
		NX:          s.Normalized.X,
		NY:          s.Normalized.Y,
		Size:        s.Size,
		Pressure:    s.Pressure,
		Moved:       s.Moved,
	}
}

// Frame is one observer notification: the visible slots and the history of
// the batch that produced it. Seq restarts with every Store, so (Run, Seq)
// identifies a frame across process restarts.
type Frame struct {
	Run     string   `json:"run,omitempty"`
	Seq     uint64   `json:"seq"`
	Time    int64    `json:"time"` // unix ms at capture
	Count   int      `json:"count"`
	Index   int      `json:"index"`
	Slots   []int    `json:"slots"`
	Samples []Record `json:"samples"`
	History []Record `json:"history,omitempty"`
}

// SampleCount returns the number of samples the frame carries, history included.
func (f Frame) SampleCount() int { return len(f.Samples) + len(f.History) }

func frameOf(t *ptrack.Tracker, run string, seq uint64, now int64) Frame {
	f := Frame{Run: run, Seq: seq, Time: now, Count: t.Count(), Index: t.Index()}
	for i, s := range t.Samples() {
		f.Slots = append(f.Slots, i)
		f.Samples = append(f.Samples, RecordOf(s))
	}
	for _, s := range t.History() {
		f.History = append(f.History, RecordOf(s))
	}
	return f
}
