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
	"math"
	"strconv"

	"github.com/google/uuid"
)

// Kind names the variant held by an Identity.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindString
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindHandle:
		return "handle"
	default:
		return "invalid"
	}
}

// Identity is the opaque key an input source attaches to a physical pointer.
// Two identities are equal only when they hold the same Kind and their payloads
// compare equal under that Kind's rule. Input sources that identify pointers by
// object reference mint one handle per object with NewHandle and reuse it.
//
// The zero Identity is invalid and equals nothing, itself included.
type Identity struct {
	kind Kind
	i    int64
	f    float64
	s    string
	h    uuid.UUID
}

// IntID covers every integral pointer id (device ids, button numbers, chars).
func IntID(v int64) Identity { return Identity{kind: KindInt, i: v} }

func FloatID(v float64) Identity { return Identity{kind: KindFloat, f: v} }

func StringID(v string) Identity { return Identity{kind: KindString, s: v} }

func HandleID(h uuid.UUID) Identity { return Identity{kind: KindHandle, h: h} }

// NewHandle returns a fresh reference identity.
func NewHandle() Identity { return HandleID(uuid.New()) }

func (id Identity) Kind() Kind { return id.kind }

func (id Identity) IsValid() bool { return id.kind != KindInvalid }

// Int returns the integral payload and whether id is an int identity.
func (id Identity) Int() (int64, bool) { return id.i, id.kind == KindInt }

// Equal reports whether id and o name the same pointer.
func (id Identity) Equal(o Identity) bool {
	if id.kind != o.kind {
		return false
	}
	switch id.kind {
	case KindInt:
		return id.i == o.i
	case KindFloat:
		return floatEqual(id.f, o.f)
	case KindString:
		return id.s == o.s
	case KindHandle:
		return id.h == o.h
	default:
		return false
	}
}

// floatEqual treats NaN as equal to NaN and any infinity as equal to any infinity.
func floatEqual(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return math.IsNaN(b)
	case math.IsInf(a, 0):
		return math.IsInf(b, 0)
	default:
		return a == b
	}
}

func (id Identity) String() string {
	switch id.kind {
	case KindInt:
		return strconv.FormatInt(id.i, 10)
	case KindFloat:
		return strconv.FormatFloat(id.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(id.s)
	case KindHandle:
		return id.h.String()
	default:
		return "<invalid>"
	}
}
