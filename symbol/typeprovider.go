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

package symbol

import "github.com/dolthub/queryplancore/sqltype"

// TypeProvider is a total mapping from every live symbol to its SQL type
// (spec §3.1), augmented by each pass that introduces symbols. Symbol
// already carries its own Type(), so TypeProvider mostly exists to let
// passes look up the type of a symbol they didn't allocate themselves
// (e.g. a symbol parsed back out of an expression tree) and to assert
// totality at pass boundaries.
type TypeProvider struct {
	byID map[uint64]sqltype.Type
}

// NewTypeProvider builds a TypeProvider seeded with the given symbols.
func NewTypeProvider(syms ...Symbol) *TypeProvider {
	tp := &TypeProvider{byID: make(map[uint64]sqltype.Type, len(syms))}
	for _, s := range syms {
		tp.Bind(s)
	}
	return tp
}

// Bind registers (or re-registers) sym's type.
func (tp *TypeProvider) Bind(sym Symbol) {
	tp.byID[sym.id] = sym.typ
}

// TypeOf returns the type of sym, and whether it was found. A Symbol
// always carries its own type, so a symbol that was never bound falls
// back to that type and this only returns false for the zero Symbol.
func (tp *TypeProvider) TypeOf(sym Symbol) (sqltype.Type, bool) {
	if t, ok := tp.byID[sym.id]; ok {
		return t, true
	}
	if !sym.IsZero() {
		return sym.typ, true
	}
	return sqltype.Type{}, false
}

// Total reports whether TypeOf finds a type for every symbol in syms
// (bound or carried by the symbol itself), satisfying the totality
// requirement of spec §3.1.
func (tp *TypeProvider) Total(syms []Symbol) bool {
	for _, s := range syms {
		if _, ok := tp.TypeOf(s); !ok {
			return false
		}
	}
	return true
}
