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

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/symbol"
)

// CorrelationType distinguishes how a correlated Subquery's result feeds
// back into Input rows.
type CorrelationType int

const (
	ScalarSubquery CorrelationType = iota
	ExistsSubquery
	InSubquery
	QuantifiedSubquery
)

// Apply evaluates Subquery once per Input row, substituting CorrelatedSymbols
// from the current Input row before each evaluation (spec §3.2). It is a
// pre-planning-only construct: §6.3 requires it be desugared into Join/
// SemiJoin before predicate pushdown ever inspects the plan.
type Apply struct {
	base
	Input, Subquery   Node
	CorrelatedSymbols []symbol.Symbol
	Type              CorrelationType
	OutputSymbol      *symbol.Symbol // result column for scalar/exists/quantified forms
}

func NewApply(id NodeID, input, subquery Node, correlated []symbol.Symbol, typ CorrelationType) *Apply {
	return &Apply{base: base{id: id}, Input: input, Subquery: subquery, CorrelatedSymbols: correlated, Type: typ}
}

func (a *Apply) Outputs() []symbol.Symbol {
	out := append([]symbol.Symbol{}, a.Input.Outputs()...)
	if a.OutputSymbol != nil {
		out = append(out, *a.OutputSymbol)
	}
	return out
}
func (a *Apply) Children() []Node { return []Node{a.Input, a.Subquery} }
func (a *Apply) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Apply", 2, len(c)); err != nil {
		return nil, err
	}
	na := *a
	na.Input, na.Subquery = c[0], c[1]
	return &na, nil
}
func (a *Apply) WithNodeID(id NodeID) Node {
	na := *a
	na.base = base{id: id}
	return &na
}
func (a *Apply) String() string { return fmt.Sprintf("Apply(correlated=%s)", symbolNames(a.CorrelatedSymbols)) }

// CorrelatedJoin is Apply's desugared form once the subquery has been
// rewritten into a join-shaped plan: a Join/SemiJoin whose right side may
// still reference CorrelatedSymbols from the left, pending decorrelation.
type CorrelatedJoin struct {
	base
	Input, Subquery   Node
	CorrelatedSymbols []symbol.Symbol
	Filter            expr.Node
	Type              JoinType
}

func NewCorrelatedJoin(id NodeID, input, subquery Node, correlated []symbol.Symbol, filter expr.Node, typ JoinType) *CorrelatedJoin {
	return &CorrelatedJoin{base: base{id: id}, Input: input, Subquery: subquery, CorrelatedSymbols: correlated, Filter: filter, Type: typ}
}

func (c *CorrelatedJoin) Outputs() []symbol.Symbol {
	return append(append([]symbol.Symbol{}, c.Input.Outputs()...), c.Subquery.Outputs()...)
}
func (c *CorrelatedJoin) Children() []Node { return []Node{c.Input, c.Subquery} }
func (c *CorrelatedJoin) WithChildren(ch ...Node) (Node, error) {
	if err := validateChildCount("CorrelatedJoin", 2, len(ch)); err != nil {
		return nil, err
	}
	nc := *c
	nc.Input, nc.Subquery = ch[0], ch[1]
	return &nc, nil
}
func (c *CorrelatedJoin) WithNodeID(id NodeID) Node {
	nc := *c
	nc.base = base{id: id}
	return &nc
}
func (c *CorrelatedJoin) String() string {
	return fmt.Sprintf("CorrelatedJoin %s(correlated=%s)", c.Type, symbolNames(c.CorrelatedSymbols))
}
func (c *CorrelatedJoin) GetFilter() expr.Node { return c.Filter }
