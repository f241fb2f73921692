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

package plan

import (
	"fmt"

	"github.com/dolthub/queryplancore/symbol"
)

// SetOpKind enumerates UNION/INTERSECT/EXCEPT.
type SetOpKind int

const (
	Union SetOpKind = iota
	Intersect
	Except
)

func (k SetOpKind) String() string {
	switch k {
	case Intersect:
		return "INTERSECT"
	case Except:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

// SetOperation combines Sources under Kind. SymbolMapping[out] holds,
// for each output symbol, the corresponding input symbol from each
// source in Sources order (spec §3.2 invariant:
// "SetOperation.symbolMapping[out] has length = number of sources").
type SetOperation struct {
	base
	Kind          SetOpKind
	Sources       []Node
	outputs       []symbol.Symbol
	SymbolMapping map[uint64][]symbol.Symbol // keyed by output symbol id
}

func NewSetOperation(id NodeID, kind SetOpKind, sources []Node, outputs []symbol.Symbol, mapping map[uint64][]symbol.Symbol) *SetOperation {
	return &SetOperation{base: base{id: id}, Kind: kind, Sources: sources, outputs: outputs, SymbolMapping: mapping}
}

func (s *SetOperation) Outputs() []symbol.Symbol { return s.outputs }
func (s *SetOperation) Children() []Node         { return s.Sources }
func (s *SetOperation) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("SetOperation", len(s.Sources), len(c)); err != nil {
		return nil, err
	}
	ns := *s
	ns.Sources = c
	return &ns, nil
}
func (s *SetOperation) WithNodeID(id NodeID) Node {
	ns := *s
	ns.base = base{id: id}
	return &ns
}
func (s *SetOperation) String() string {
	return fmt.Sprintf("%s (%d sources)", s.Kind, len(s.Sources))
}

// InputSymbolFor returns the i'th source's input symbol feeding out, the
// per-source lookup pushdown's Exchange/Union visitor needs to inline an
// inherited predicate before recursing (spec §4.4).
func (s *SetOperation) InputSymbolFor(out symbol.Symbol, sourceIndex int) (symbol.Symbol, bool) {
	mapped, ok := s.SymbolMapping[out.ID()]
	if !ok || sourceIndex >= len(mapped) {
		return symbol.Symbol{}, false
	}
	return mapped[sourceIndex], true
}
