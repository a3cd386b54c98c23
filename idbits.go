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

import "github.com/bits-and-blooms/bitset"

// IDBits is a set of pointer identities. Non-negative int identities live in a
// bitset indexed by their value; identities of every other kind are kept in a
// short list compared with Identity.Equal.
//
// The zero value is an empty set ready to use.
type IDBits struct {
	ints   *bitset.BitSet
	others []Identity
}

// NewIDBits returns a set holding ids.
func NewIDBits(ids ...Identity) IDBits {
	var b IDBits
	for _, id := range ids {
		b.Set(id)
	}
	return b
}

// Set adds id to the set. Invalid identities are ignored.
func (b *IDBits) Set(id Identity) {
	if !id.IsValid() {
		return
	}
	if v, ok := id.Int(); ok && v >= 0 {
		if b.ints == nil {
			b.ints = bitset.New(64)
		}
		b.ints.Set(uint(v))
		return
	}
	if b.hasOther(id) {
		return
	}
	b.others = append(b.others, id)
}

func (b IDBits) Has(id Identity) bool {
	if v, ok := id.Int(); ok && v >= 0 {
		return b.ints != nil && b.ints.Test(uint(v))
	}
	return b.hasOther(id)
}

func (b IDBits) hasOther(id Identity) bool {
	for _, o := range b.others {
		if o.Equal(id) {
			return true
		}
	}
	return false
}

func (b IDBits) Len() int {
	n := len(b.others)
	if b.ints != nil {
		n += int(b.ints.Count())
	}
	return n
}

func (b IDBits) IsEmpty() bool { return b.Len() == 0 }

// Union returns a new set holding the members of b and o.
func (b IDBits) Union(o IDBits) IDBits {
	var out IDBits
	switch {
	case b.ints != nil && o.ints != nil:
		out.ints = b.ints.Union(o.ints)
	case b.ints != nil:
		out.ints = b.ints.Clone()
	case o.ints != nil:
		out.ints = o.ints.Clone()
	}
	out.others = append(out.others, b.others...)
	for _, id := range o.others {
		out.Set(id)
	}
	return out
}

// Intersect returns a new set holding the members present in both b and o.
func (b IDBits) Intersect(o IDBits) IDBits {
	var out IDBits
	if b.ints != nil && o.ints != nil {
		out.ints = b.ints.Intersection(o.ints)
	}
	for _, id := range b.others {
		if o.hasOther(id) {
			out.others = append(out.others, id)
		}
	}
	return out
}

// Identities lists the members, integers first in ascending order.
func (b IDBits) Identities() []Identity {
	out := make([]Identity, 0, b.Len())
	if b.ints != nil {
		for i, ok := b.ints.NextSet(0); ok; i, ok = b.ints.NextSet(i + 1) {
			out = append(out, IntID(int64(i)))
		}
	}
	return append(out, b.others...)
}
