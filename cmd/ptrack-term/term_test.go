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
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"ptrack"
)

func TestMouse_ButtonTransitions(t *testing.T) {
	tr := ptrack.New(3)
	var phases []ptrack.Phase
	tr.Subscribe(func(t *ptrack.Tracker) {
		if s, ok := t.Current(); ok {
			phases = append(phases, s.Phase)
		}
	})
	m := &mouse{}

	steps := []struct {
		mask tcell.ButtonMask
		x, y int
	}{
		{tcell.Button1, 1, 1},
		{tcell.Button1, 2, 1},
		{tcell.Button1 | tcell.Button3, 3, 1},
		{tcell.Button3, 3, 2},
		{tcell.ButtonNone, 3, 2},
	}
	for _, st := range steps {
		if err := m.apply(tr, st.mask, st.x, st.y, 80, 24); err != nil {
			t.Fatal(err)
		}
	}

	// Releasing button 1 away from its last location moves it first.
	want := []ptrack.Phase{
		ptrack.PhaseDown, ptrack.PhaseMove,
		ptrack.PhaseMove, ptrack.PhaseDown,
		ptrack.PhaseMove, ptrack.PhaseUp, ptrack.PhaseMove,
		ptrack.PhaseUp,
	}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase %d = %v, want %v", i, phases[i], want[i])
		}
	}
	if m.held != 0 {
		t.Errorf("held = %v, want none", m.held)
	}
}

func TestMouse_BatchedMovesWaitForPump(t *testing.T) {
	tr := ptrack.New(1)
	m := &mouse{batched: true}
	if err := m.apply(tr, tcell.Button1, 0, 0, 10, 10); err != nil {
		t.Fatal(err)
	}
	if err := m.apply(tr, tcell.Button1, 5, 5, 10, 10); err != nil {
		t.Fatal(err)
	}
	if n := len(tr.Pending()); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}
	if _, err := tr.TryForcePump(); err != nil {
		t.Fatal(err)
	}
	s, _ := tr.Current()
	if s.Location != (ptrack.Point{X: 5, Y: 5}) || s.Normalized != (ptrack.Point{X: 5.0 / 9, Y: 5.0 / 9}) {
		t.Errorf("sample = %v", s)
	}
}

func TestView_Draw(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()
	screen.SetSize(40, 10)

	v := newView(screen)
	tr := ptrack.New(2)
	tr.Subscribe(v.draw)
	if err := tr.Add(ptrack.IntID(1), 20, 5, 0.5, 0.5); err != nil {
		t.Fatal(err)
	}

	r, _, _, _ := screen.GetContent(20, 5)
	if r != '0' {
		t.Errorf("glyph at pointer = %q, want '0'", r)
	}
	var line strings.Builder
	for x := 0; x < 40; x++ {
		r, _, _, _ := screen.GetContent(x, 0)
		line.WriteRune(r)
	}
	if !strings.HasPrefix(line.String(), "[0] 1 DOWN") {
		t.Errorf("slot line = %q", line.String())
	}
}

func TestNormalize(t *testing.T) {
	if got := normalize(0, 1); got != 0 {
		t.Errorf("normalize(0, 1) = %v", got)
	}
	if got := normalize(9, 10); got != 1 {
		t.Errorf("normalize(9, 10) = %v", got)
	}
}
