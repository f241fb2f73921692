// Copyright 2024 Dolthub, Inc.
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

// Package symbol implements the opaque, globally-unique column identifiers
// that every plan node and expression use to refer to values (spec §3.1).
package symbol

import (
	"fmt"
	"sort"

	"github.com/dolthub/queryplancore/sqltype"
)

// Symbol names a column-valued stream position. Two symbols are equal iff
// their ids are equal; textual name collisions never cause ambiguity
// because every Symbol is minted by an Allocator.
type Symbol struct {
	id   uint64
	name string
	typ  sqltype.Type
}

// Name returns the (non-unique, human-readable) name the symbol was
// allocated with.
func (s Symbol) Name() string { return s.name }

// Type returns the SQL type resolved for this symbol.
func (s Symbol) Type() sqltype.Type { return s.typ }

// Equal reports whether s and o name the same stream position.
func (s Symbol) Equal(o Symbol) bool { return s.id == o.id }

// ID returns the symbol's raw numeric identifier. Symbol itself is not a
// `comparable` type (it embeds sqltype.Type, which carries a Fields slice
// for ROW types), so code that needs a symbol-keyed map — SetOperation's
// SymbolMapping, the equality-inference union-find, tupledomain.TupleDomain
// — keys by ID() instead of by Symbol.
func (s Symbol) ID() uint64 { return s.id }

func (s Symbol) String() string {
	return fmt.Sprintf("%s#%d", s.name, s.id)
}

// IsZero reports whether s is the zero value (never produced by an
// Allocator, used as a sentinel for "no symbol").
func (s Symbol) IsZero() bool { return s.id == 0 && s.name == "" }

// Allocator mints fresh Symbols with monotonically increasing ids. A
// single Allocator is scoped to one query compilation (spec §5, §9) and
// must never be shared across concurrently-optimized queries.
type Allocator struct {
	next uint64
}

// NewAllocator returns an Allocator whose first minted id is 1 (0 is
// reserved for the zero Symbol).
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// New mints a fresh Symbol with the given display name and type.
func (a *Allocator) New(name string, typ sqltype.Type) Symbol {
	id := a.next
	a.next++
	return Symbol{id: id, name: name, typ: typ}
}

// Clone mints a fresh Symbol that copies the name and type of an existing
// one. Used by passes that need to introduce a renamed duplicate (e.g.
// GroupId's row-duplicating symbols) without inheriting the original's
// identity.
func (a *Allocator) Clone(s Symbol) Symbol {
	return a.New(s.name, s.typ)
}

// Set is a small, order-preserving set of symbols keyed by identity.
type Set struct {
	order []Symbol
	index map[uint64]int
}

// NewSet builds a Set from the given symbols, in order, deduplicated.
func NewSet(syms ...Symbol) *Set {
	s := &Set{index: make(map[uint64]int, len(syms))}
	for _, sym := range syms {
		s.Add(sym)
	}
	return s
}

// Add inserts sym if not already present; returns true if it was new.
func (s *Set) Add(sym Symbol) bool {
	if _, ok := s.index[sym.id]; ok {
		return false
	}
	s.index[sym.id] = len(s.order)
	s.order = append(s.order, sym)
	return true
}

// Contains reports whether sym is a member.
func (s *Set) Contains(sym Symbol) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[sym.id]
	return ok
}

// List returns the members in insertion order.
func (s *Set) List() []Symbol {
	if s == nil {
		return nil
	}
	out := make([]Symbol, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of members.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Intersect returns the members present in both s and o.
func (s *Set) Intersect(o *Set) *Set {
	out := NewSet()
	for _, sym := range s.List() {
		if o.Contains(sym) {
			out.Add(sym)
		}
	}
	return out
}

// Union returns the members present in either s or o.
func (s *Set) Union(o *Set) *Set {
	out := NewSet(s.List()...)
	for _, sym := range o.List() {
		out.Add(sym)
	}
	return out
}

// SortedNames returns the member names sorted lexically, for use in
// stable test fixtures and error messages.
func (s *Set) SortedNames() []string {
	list := s.List()
	names := make([]string, len(list))
	for i, sym := range list {
		names[i] = sym.Name()
	}
	sort.Strings(names)
	return names
}
