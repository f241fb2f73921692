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

// JoinType enumerates the four join kinds of spec §3.2.
type JoinType int

const (
	Inner JoinType = iota
	Left
	Right
	Full
)

func (t JoinType) String() string {
	switch t {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Full:
		return "FULL"
	default:
		return "INNER"
	}
}

// EquiClause is one `(L, R)` equi-join condition pair (spec §3.2 invariant
// "Join.equiClauses[i] = (L,R) with L in left outputs, R in right outputs").
type EquiClause struct {
	Left, Right symbol.Symbol
}

// DistributionType records how an exchange-inserted Join is executed
// (spec §4.5, §6.3 "every Join output carries an explicit distribution
// type after exchange insertion").
type DistributionType int

const (
	DistributionUnknown DistributionType = iota
	Partitioned
	Replicated
)

// Join combines Left and Right rows (spec §3.2).
type Join struct {
	base
	Type         JoinType
	Left, Right  Node
	EquiClauses  []EquiClause
	Filter       expr.Node // non-equi residual, nil if none
	Distribution DistributionType
	// DynamicFilterIDs maps a synthesized dynamic-filter id to the
	// build-side symbol it observes (spec §4.4 dynamic filter synthesis).
	DynamicFilterIDs map[string]symbol.Symbol
}

func NewJoin(id NodeID, typ JoinType, left, right Node, equi []EquiClause, filter expr.Node) *Join {
	return &Join{base: base{id: id}, Type: typ, Left: left, Right: right, EquiClauses: equi, Filter: filter}
}

func (j *Join) Outputs() []symbol.Symbol {
	return append(append([]symbol.Symbol{}, j.Left.Outputs()...), j.Right.Outputs()...)
}
func (j *Join) Children() []Node { return []Node{j.Left, j.Right} }
func (j *Join) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Join", 2, len(c)); err != nil {
		return nil, err
	}
	nj := *j
	nj.Left, nj.Right = c[0], c[1]
	return &nj, nil
}
func (j *Join) WithNodeID(id NodeID) Node {
	nj := *j
	nj.base = base{id: id}
	return &nj
}
func (j *Join) String() string {
	return fmt.Sprintf("Join %s %v filter=%v", j.Type, j.EquiClauses, j.Filter)
}

// GetFilter returns the full join predicate: the conjunction of the
// equi-clauses (as equalities) and the residual Filter, the shape §4.4
// calls "joinPredicate = equi-clauses AND filter".
func (j *Join) GetFilter() expr.Node {
	var conjuncts []expr.Node
	for _, eq := range j.EquiClauses {
		conjuncts = append(conjuncts, expr.NewEquals(expr.NewSymbolRef(eq.Left), expr.NewSymbolRef(eq.Right)))
	}
	if j.Filter != nil {
		conjuncts = append(conjuncts, j.Filter)
	}
	return expr.JoinConjuncts(conjuncts...)
}

func (j *Join) Expressions() []expr.Node {
	if j.Filter == nil {
		return nil
	}
	return []expr.Node{j.Filter}
}
func (j *Join) WithExpressions(exprs ...expr.Node) (Node, error) {
	if j.Filter == nil {
		if len(exprs) != 0 {
			return nil, fmt.Errorf("plan: Join.WithExpressions expects 0 exprs, got %d", len(exprs))
		}
		return j, nil
	}
	if len(exprs) != 1 {
		return nil, fmt.Errorf("plan: Join.WithExpressions expects 1 expr, got %d", len(exprs))
	}
	nj := *j
	nj.Filter = exprs[0]
	return &nj, nil
}

// SemiJoin filters Source rows by the existence of a matching row in
// FilteringSource, optionally exposing a boolean Marker output symbol
// (spec §3.2: "source + filtering-source + output marker symbol").
type SemiJoin struct {
	base
	Source, FilteringSource Node
	SourceJoinKey           symbol.Symbol
	FilteringSourceJoinKey  symbol.Symbol
	Marker                  *symbol.Symbol // nil if the boolean marker is not projected out
	Filter                  expr.Node
}

func NewSemiJoin(id NodeID, source, filteringSource Node, sourceKey, filteringKey symbol.Symbol) *SemiJoin {
	return &SemiJoin{base: base{id: id}, Source: source, FilteringSource: filteringSource, SourceJoinKey: sourceKey, FilteringSourceJoinKey: filteringKey}
}

func (s *SemiJoin) Outputs() []symbol.Symbol {
	out := append([]symbol.Symbol{}, s.Source.Outputs()...)
	if s.Marker != nil {
		out = append(out, *s.Marker)
	}
	return out
}
func (s *SemiJoin) Children() []Node { return []Node{s.Source, s.FilteringSource} }
func (s *SemiJoin) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("SemiJoin", 2, len(c)); err != nil {
		return nil, err
	}
	ns := *s
	ns.Source, ns.FilteringSource = c[0], c[1]
	return &ns, nil
}
func (s *SemiJoin) WithNodeID(id NodeID) Node {
	ns := *s
	ns.base = base{id: id}
	return &ns
}
func (s *SemiJoin) String() string { return fmt.Sprintf("SemiJoin(%s = %s)", s.SourceJoinKey, s.FilteringSourceJoinKey) }

func (s *SemiJoin) GetFilter() expr.Node { return s.Filter }

// IsFiltering reports whether marker is projected out and therefore
// referenceable by an inherited predicate (spec §4.4 "Distinguish
// filtering ... from non-filtering").
func (s *SemiJoin) IsFiltering() bool { return s.Marker != nil }

// SpatialJoin pairs rows whose geometries satisfy SpatialPredicate.
type SpatialJoin struct {
	base
	Left, Right      Node
	SpatialPredicate expr.Node
	Type             JoinType
}

func NewSpatialJoin(id NodeID, typ JoinType, left, right Node, predicate expr.Node) *SpatialJoin {
	return &SpatialJoin{base: base{id: id}, Type: typ, Left: left, Right: right, SpatialPredicate: predicate}
}

func (s *SpatialJoin) Outputs() []symbol.Symbol {
	return append(append([]symbol.Symbol{}, s.Left.Outputs()...), s.Right.Outputs()...)
}
func (s *SpatialJoin) Children() []Node { return []Node{s.Left, s.Right} }
func (s *SpatialJoin) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("SpatialJoin", 2, len(c)); err != nil {
		return nil, err
	}
	ns := *s
	ns.Left, ns.Right = c[0], c[1]
	return &ns, nil
}
func (s *SpatialJoin) WithNodeID(id NodeID) Node {
	ns := *s
	ns.base = base{id: id}
	return &ns
}
func (s *SpatialJoin) String() string { return fmt.Sprintf("SpatialJoin %s(%s)", s.Type, s.SpatialPredicate) }
func (s *SpatialJoin) GetFilter() expr.Node { return s.SpatialPredicate }
