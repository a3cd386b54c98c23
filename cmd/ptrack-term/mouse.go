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
	"errors"

	"github.com/gdamore/tcell/v2"

	"ptrack"
)

var buttons = []tcell.ButtonMask{tcell.Button1, tcell.Button2, tcell.Button3}

// mouse turns button mask transitions into tracker operations. Button n is
// pointer n.
type mouse struct {
	held    tcell.ButtonMask
	batched bool
}

func (m *mouse) apply(t *ptrack.Tracker, mask tcell.ButtonMask, x, y, w, h int) error {
	fx, fy := float64(x), float64(y)
	nx, ny := normalize(x, w), normalize(y, h)
	var errs []error
	for i, b := range buttons {
		id := ptrack.IntID(int64(i + 1))
		was, is := m.held&b != 0, mask&b != 0
		switch {
		case !was && is:
			errs = append(errs, t.Add(id, fx, fy, nx, ny))
		case was && is:
			if m.batched {
				_, err := t.MoveBatched(id, fx, fy, nx, ny)
				errs = append(errs, err)
			} else {
				errs = append(errs, t.Move(id, fx, fy, nx, ny))
			}
		case was && !is:
			errs = append(errs, t.Remove(id, fx, fy, nx, ny))
		}
	}
	m.held = mask & (tcell.Button1 | tcell.Button2 | tcell.Button3)
	return errors.Join(errs...)
}

func (m *mouse) reset() { m.held = 0 }

func normalize(v, extent int) float64 {
	if extent <= 1 {
		return 0
	}
	return float64(v) / float64(extent-1)
}
