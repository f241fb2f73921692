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

// AssignUniqueId stamps each Source row with a fresh globally-unique value
// in UniqueIDSymbol, used by decorrelation and by writers that need a
// stable per-row identity across an exchange boundary (spec §3.2).
type AssignUniqueId struct {
	base
	Source         Node
	UniqueIDSymbol symbol.Symbol
}

func NewAssignUniqueId(id NodeID, source Node, uniqueIDSymbol symbol.Symbol) *AssignUniqueId {
	return &AssignUniqueId{base: base{id: id}, Source: source, UniqueIDSymbol: uniqueIDSymbol}
}

func (a *AssignUniqueId) Outputs() []symbol.Symbol {
	return append(append([]symbol.Symbol{}, a.Source.Outputs()...), a.UniqueIDSymbol)
}
func (a *AssignUniqueId) Children() []Node { return []Node{a.Source} }
func (a *AssignUniqueId) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("AssignUniqueId", 1, len(c)); err != nil {
		return nil, err
	}
	na := *a
	na.Source = c[0]
	return &na, nil
}
func (a *AssignUniqueId) WithNodeID(id NodeID) Node {
	na := *a
	na.base = base{id: id}
	return &na
}
func (a *AssignUniqueId) String() string { return fmt.Sprintf("AssignUniqueId -> %s", a.UniqueIDSymbol) }

// ExchangeKind enumerates how an Exchange moves data between fragments
// (spec §3.2).
type ExchangeKind int

const (
	Gather ExchangeKind = iota
	Repartition
	ExchangeReplicate
)

func (k ExchangeKind) String() string {
	switch k {
	case Repartition:
		return "repartition"
	case ExchangeReplicate:
		return "replicate"
	default:
		return "gather"
	}
}

// ExchangeScope distinguishes an exchange local to one machine (used to
// reconcile thread-level stream partitioning) from one that crosses the
// network between stage fragments.
type ExchangeScope int

const (
	Local ExchangeScope = iota
	Remote
)

// PartitioningScheme names the columns an Exchange hash-partitions on;
// nil/empty Columns means single-partition (spec §3.2, §4.5).
type PartitioningScheme struct {
	Columns []symbol.Symbol
}

func (p PartitioningScheme) IsSingle() bool { return len(p.Columns) == 0 }

// Exchange moves Source's rows between fragments according to Kind,
// Scope, Partitioning (for Repartition) and MergeOrder (for a merging
// gather that must preserve each source's order) — spec §3.2, §4.5.
type Exchange struct {
	base
	Kind         ExchangeKind
	Scope        ExchangeScope
	Sources      []Node
	Partitioning PartitioningScheme
	MergeOrder   []SortItem
	outputs      []symbol.Symbol
}

func NewExchange(id NodeID, kind ExchangeKind, scope ExchangeScope, sources []Node, outputs []symbol.Symbol, partitioning PartitioningScheme) *Exchange {
	return &Exchange{base: base{id: id}, Kind: kind, Scope: scope, Sources: sources, outputs: outputs, Partitioning: partitioning}
}

func (e *Exchange) Outputs() []symbol.Symbol { return e.outputs }
func (e *Exchange) Children() []Node         { return e.Sources }
func (e *Exchange) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Exchange", len(e.Sources), len(c)); err != nil {
		return nil, err
	}
	ne := *e
	ne.Sources = c
	return &ne, nil
}
func (e *Exchange) WithNodeID(id NodeID) Node {
	ne := *e
	ne.base = base{id: id}
	return &ne
}
func (e *Exchange) String() string {
	return fmt.Sprintf("Exchange[%s, %v](%d source(s))", e.Kind, e.Scope, len(e.Sources))
}

// InputSymbolFor returns source i's symbol corresponding to output out,
// valid when Exchange has exactly one source (a pure repartition/gather
// of a single stream) — the shape unalias treats as an identity mapping
// (spec §4.7: "whenever an exchange has a single source, map each output
// to its corresponding input").
func (e *Exchange) InputSymbolFor(out symbol.Symbol, sourceIndex int) (symbol.Symbol, bool) {
	if sourceIndex >= len(e.Sources) {
		return symbol.Symbol{}, false
	}
	srcOutputs := e.Sources[sourceIndex].Outputs()
	for i, o := range e.outputs {
		if o.Equal(out) && i < len(srcOutputs) {
			return srcOutputs[i], true
		}
	}
	return symbol.Symbol{}, false
}
