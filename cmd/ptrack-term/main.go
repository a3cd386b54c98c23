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

// Command ptrack-term tracks mouse buttons in a terminal. Each button is its
// own pointer: pressing it adds the pointer, dragging moves it and releasing
// lifts it. Keys: c cancels all pointers, b toggles batched moves, q or Esc quits.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"ptrack"
	"ptrack/internal/diag"
)

func main() {
	capacity := flag.Int("capacity", 3, "Tracker capacity")
	strict := flag.Bool("strict", false, "Return errors instead of dropping bad samples")
	batched := flag.Bool("batched", true, "Queue drag moves and pump them on the frame tick")
	flag.Parse()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		log.Fatal(err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	v := newView(screen)
	// The screen owns stdout; keep tracker messages on the status line.
	diag.SetLogger(v.status)

	tr := ptrack.NewWithOptions(ptrack.Options{Capacity: *capacity, Strict: *strict})
	tr.Subscribe(v.draw)
	m := &mouse{batched: *batched}
	v.draw(tr)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
					return
				case ev.Rune() == 'c':
					v.report(tr.CancelAll())
					m.reset()
				case ev.Rune() == 'b':
					m.batched = !m.batched
					v.status("batched moves: %t", m.batched)
				}
			case *tcell.EventMouse:
				x, y := ev.Position()
				w, h := screen.Size()
				v.report(m.apply(tr, ev.Buttons(), x, y, w, h))
			case *tcell.EventResize:
				screen.Sync()
				v.draw(tr)
			}
		case <-ticker.C:
			if _, err := tr.Pump(); err != nil {
				v.report(err)
			}
		}
	}
}
