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

package expr

import (
	"fmt"

	"github.com/dolthub/queryplancore/sqltype"
)

// Subquery, Exists and QuantifiedComparison are pre-planning-only forms
// (spec §3.3): the analyzer produces them, and they are desugared into
// Apply/CorrelatedJoin plan nodes before predicate pushdown ever runs
// (spec §6.3 boundary invariant). They carry their subplan as an opaque
// `any` rather than a plan.Node to avoid an import cycle between expr
// and plan (plan nodes embed expr.Node filters, so expr cannot import
// plan); optimizer.Validate type-asserts to plan.Node when checking the
// boundary invariant.
type Subquery struct {
	Plan any
	Typ  sqltype.Type
}

func (s *Subquery) Type() sqltype.Type { return s.Typ }
func (s *Subquery) Children() []Node   { return nil }
func (s *Subquery) WithChildren(c ...Node) (Node, error) {
	if len(c) != 0 {
		return nil, fmt.Errorf("expr: Subquery takes no expression children, got %d", len(c))
	}
	return s, nil
}
func (s *Subquery) Equal(o Node) bool {
	other, ok := o.(*Subquery)
	return ok && s.Plan == other.Plan
}
func (s *Subquery) String() string { return "(SUBQUERY)" }

type Exists struct {
	Plan any
}

func (e *Exists) Type() sqltype.Type { return sqltype.BooleanType }
func (e *Exists) Children() []Node   { return nil }
func (e *Exists) WithChildren(c ...Node) (Node, error) {
	if len(c) != 0 {
		return nil, fmt.Errorf("expr: Exists takes no expression children, got %d", len(c))
	}
	return e, nil
}
func (e *Exists) Equal(o Node) bool {
	other, ok := o.(*Exists)
	return ok && e.Plan == other.Plan
}
func (e *Exists) String() string { return "EXISTS(SUBQUERY)" }

// QuantifiedComparisonOp enumerates ALL/ANY/SOME.
type QuantifiedComparisonOp int

const (
	All QuantifiedComparisonOp = iota
	Any
)

type QuantifiedComparison struct {
	Op       CompareOp
	Quantifier QuantifiedComparisonOp
	Left     Node
	Plan     any
}

func (q *QuantifiedComparison) Type() sqltype.Type { return sqltype.BooleanType }
func (q *QuantifiedComparison) Children() []Node   { return []Node{q.Left} }
func (q *QuantifiedComparison) WithChildren(c ...Node) (Node, error) {
	if len(c) != 1 {
		return nil, fmt.Errorf("expr: QuantifiedComparison expects 1 child, got %d", len(c))
	}
	return &QuantifiedComparison{Op: q.Op, Quantifier: q.Quantifier, Left: c[0], Plan: q.Plan}, nil
}
func (q *QuantifiedComparison) Equal(o Node) bool {
	other, ok := o.(*QuantifiedComparison)
	return ok && q.Op == other.Op && q.Quantifier == other.Quantifier && q.Left.Equal(other.Left) && q.Plan == other.Plan
}
func (q *QuantifiedComparison) String() string {
	return fmt.Sprintf("(%s %s %s (SUBQUERY))", q.Left, q.Op, q.Quantifier)
}

func (q QuantifiedComparisonOp) String() string {
	if q == All {
		return "ALL"
	}
	return "ANY"
}
