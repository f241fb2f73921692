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
	"strings"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/symbol"
)

// AggregationStep distinguishes how much of the aggregate computation a
// node is responsible for, relevant once exchange insertion splits an
// Aggregation across a partitioned exchange (spec §3.2, §4.5).
type AggregationStep int

const (
	Single AggregationStep = iota
	Partial
	Final
	Intermediate
)

func (s AggregationStep) String() string {
	switch s {
	case Partial:
		return "PARTIAL"
	case Final:
		return "FINAL"
	case Intermediate:
		return "INTERMEDIATE"
	default:
		return "SINGLE"
	}
}

// AggregateAssignment is one `symbol := aggregateCall` entry.
type AggregateAssignment struct {
	Symbol symbol.Symbol
	Call   *expr.FunctionCall
}

// Aggregation groups Source by GroupingKeys and computes Aggregates,
// optionally over multiple GroupingSets materialized via a preceding
// GroupId (spec §3.2).
type Aggregation struct {
	base
	Source        Node
	GroupingKeys  []symbol.Symbol
	Aggregates    []AggregateAssignment
	GroupingSets  [][]symbol.Symbol // nil unless multiple grouping sets
	GroupIDSymbol *symbol.Symbol    // non-nil iff GroupingSets is set
	Step          AggregationStep
}

func NewAggregation(id NodeID, source Node, groupingKeys []symbol.Symbol, aggregates []AggregateAssignment) *Aggregation {
	return &Aggregation{base: base{id: id}, Source: source, GroupingKeys: groupingKeys, Aggregates: aggregates}
}

func (a *Aggregation) Outputs() []symbol.Symbol {
	out := append([]symbol.Symbol{}, a.GroupingKeys...)
	for _, agg := range a.Aggregates {
		out = append(out, agg.Symbol)
	}
	if a.GroupIDSymbol != nil {
		out = append(out, *a.GroupIDSymbol)
	}
	return out
}

func (a *Aggregation) Children() []Node { return []Node{a.Source} }
func (a *Aggregation) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Aggregation", 1, len(c)); err != nil {
		return nil, err
	}
	na := *a
	na.Source = c[0]
	return &na, nil
}
func (a *Aggregation) WithNodeID(id NodeID) Node {
	na := *a
	na.base = base{id: id}
	return &na
}
func (a *Aggregation) String() string {
	parts := make([]string, len(a.Aggregates))
	for i, agg := range a.Aggregates {
		parts[i] = fmt.Sprintf("%s := %s", agg.Symbol, agg.Call)
	}
	return fmt.Sprintf("Aggregation[%s](%s) %s", a.Step, strings.Join(parts, ", "), symbolNames(a.GroupingKeys))
}

func (a *Aggregation) Expressions() []expr.Node {
	out := make([]expr.Node, len(a.Aggregates))
	for i, agg := range a.Aggregates {
		out[i] = agg.Call
	}
	return out
}

func (a *Aggregation) WithExpressions(exprs ...expr.Node) (Node, error) {
	if len(exprs) != len(a.Aggregates) {
		return nil, fmt.Errorf("plan: Aggregation.WithExpressions expects %d exprs, got %d", len(a.Aggregates), len(exprs))
	}
	na := *a
	na.Aggregates = make([]AggregateAssignment, len(a.Aggregates))
	for i, agg := range a.Aggregates {
		call, ok := exprs[i].(*expr.FunctionCall)
		if !ok {
			return nil, fmt.Errorf("plan: Aggregation.WithExpressions got non-call expression for %s", agg.Symbol)
		}
		na.Aggregates[i] = AggregateAssignment{Symbol: agg.Symbol, Call: call}
	}
	return &na, nil
}

func symbolNames(syms []symbol.Symbol) string {
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.Name()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// GroupId materializes multiple grouping sets by duplicating rows, one
// per grouping set each row belongs to, and stamping the GroupIDSymbol
// with which set the duplicate represents (spec §3.2).
type GroupId struct {
	base
	Source        Node
	GroupingSets  [][]symbol.Symbol
	GroupIDSymbol symbol.Symbol
	// DuplicatedSymbols maps an original source symbol to the fresh
	// symbol minted for this GroupId's output, for columns that must be
	// nulled out in rows belonging to a grouping set that excludes them.
	DuplicatedSymbols map[uint64]symbol.Symbol
	PassThrough       []symbol.Symbol
}

func NewGroupId(id NodeID, source Node, sets [][]symbol.Symbol, groupIDSymbol symbol.Symbol, duplicated map[uint64]symbol.Symbol, passThrough []symbol.Symbol) *GroupId {
	return &GroupId{base: base{id: id}, Source: source, GroupingSets: sets, GroupIDSymbol: groupIDSymbol, DuplicatedSymbols: duplicated, PassThrough: passThrough}
}

func (g *GroupId) Outputs() []symbol.Symbol {
	out := append([]symbol.Symbol{}, g.PassThrough...)
	for _, s := range g.DuplicatedSymbols {
		out = append(out, s)
	}
	out = append(out, g.GroupIDSymbol)
	return out
}

func (g *GroupId) Children() []Node { return []Node{g.Source} }
func (g *GroupId) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("GroupId", 1, len(c)); err != nil {
		return nil, err
	}
	ng := *g
	ng.Source = c[0]
	return &ng, nil
}
func (g *GroupId) WithNodeID(id NodeID) Node {
	ng := *g
	ng.base = base{id: id}
	return &ng
}
func (g *GroupId) String() string {
	return fmt.Sprintf("GroupId(%d sets)", len(g.GroupingSets))
}
