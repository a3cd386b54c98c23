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
	"fmt"

	"github.com/gdamore/tcell/v2"

	"ptrack"
)

var phaseStyles = map[ptrack.Phase]tcell.Style{
	ptrack.PhaseDown:      tcell.StyleDefault.Foreground(tcell.ColorGreen),
	ptrack.PhaseMove:      tcell.StyleDefault.Foreground(tcell.ColorYellow),
	ptrack.PhaseUp:        tcell.StyleDefault.Foreground(tcell.ColorBlue),
	ptrack.PhaseCancelled: tcell.StyleDefault.Foreground(tcell.ColorRed),
}

// view renders the visible samples: one glyph per pointer at its location,
// a line per slot at the top and a status line at the bottom.
type view struct {
	screen tcell.Screen
	msg    string
}

func newView(s tcell.Screen) *view { return &view{screen: s} }

func (v *view) draw(t *ptrack.Tracker) {
	s := v.screen
	s.Clear()
	_, h := s.Size()
	row := 0
	for i, smp := range t.Samples() {
		style, ok := phaseStyles[smp.Phase]
		if !ok {
			style = tcell.StyleDefault
		}
		if smp.HasLocation {
			glyph := '0' + rune(i%10)
			s.SetContent(int(smp.Location.X), int(smp.Location.Y), glyph, nil, style.Reverse(true))
		}
		v.text(0, row, style, fmt.Sprintf("[%d] %s %s p=%.2f moved=%t", i, smp.Identity, smp.Phase, smp.Pressure, smp.Moved))
		row++
	}
	v.text(0, h-1, tcell.StyleDefault.Dim(true), fmt.Sprintf("count=%d index=%d pending=%d  %s", t.Count(), t.Index(), len(t.Pending()), v.msg))
	s.Show()
}

func (v *view) text(x, y int, style tcell.Style, str string) {
	for _, r := range str {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (v *view) status(format string, args ...interface{}) {
	v.msg = fmt.Sprintf(format, args...)
}

func (v *view) report(err error) {
	if err != nil {
		v.status("%v", err)
	}
}
