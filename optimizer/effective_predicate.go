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

package optimizer

import (
	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
	"github.com/dolthub/queryplancore/tupledomain"
)

// EffectivePredicate returns a deterministic expression guaranteed true of
// every row node produces, computed bottom-up per the node-kind table of
// spec §4.3. A nil return means "no information" (⊤).
func EffectivePredicate(n plan.Node) expr.Node {
	scope := symbol.NewSet(n.Outputs()...)
	switch node := n.(type) {
	case *plan.TableScan:
		if node.EnforcedConstraint == nil {
			return nil
		}
		td := node.EffectiveConstraintAsSymbols()
		return td.ToPredicate(func(id uint64) expr.Node { return symbolRefByID(node.Outputs(), id) })

	case *plan.Filter:
		source := EffectivePredicate(node.Source)
		combined := expr.JoinConjuncts(source, filterDeterministic(node.Predicate))
		return pull(combined, scope)

	case *plan.Project:
		source := EffectivePredicate(node.Source)
		var assignmentEqs expr.Node
		for _, a := range node.Assignments {
			if a.IsIdentity() {
				continue
			}
			if !expr.Deterministic(a.Expr) {
				continue
			}
			eq := expr.NewEquals(expr.NewSymbolRef(a.Symbol), a.Expr)
			assignmentEqs = expr.JoinConjuncts(assignmentEqs, eq)
		}
		return pull(expr.JoinConjuncts(source, assignmentEqs), scope)

	case *plan.Aggregation:
		if len(node.GroupingKeys) == 0 {
			return nil
		}
		keyScope := symbol.NewSet(node.GroupingKeys...)
		return pull(EffectivePredicate(node.Source), keyScope)

	case *plan.Join:
		lhat, rhat := EffectivePredicate(node.Left), EffectivePredicate(node.Right)
		joinPred := joinPredicateOf(node)
		switch node.Type {
		case plan.Inner:
			return pull(expr.JoinConjuncts(lhat, rhat, joinPred), scope)
		case plan.Left:
			rightSet := symbol.NewSet(node.Right.Outputs()...)
			return expr.JoinConjuncts(
				pull(lhat, scope),
				pullNullable(expr.Conjuncts(expr.JoinConjuncts(rhat, joinPred)), scope, rightSet),
			)
		case plan.Right:
			leftSet := symbol.NewSet(node.Left.Outputs()...)
			return expr.JoinConjuncts(
				pull(rhat, scope),
				pullNullable(expr.Conjuncts(expr.JoinConjuncts(lhat, joinPred)), scope, leftSet),
			)
		default: // Full
			leftSet := symbol.NewSet(node.Left.Outputs()...)
			rightSet := symbol.NewSet(node.Right.Outputs()...)
			both := leftSet.Union(rightSet)
			return expr.JoinConjuncts(
				pullNullable(expr.Conjuncts(lhat), scope, leftSet),
				pullNullable(expr.Conjuncts(rhat), scope, rightSet),
				pullNullable(expr.Conjuncts(joinPred), scope, both),
			)
		}

	case *plan.SetOperation:
		var combined expr.Node
		first := true
		for i, src := range node.Sources {
			p := EffectivePredicate(src)
			if p == nil {
				return nil
			}
			rekeyed, ok := rekeySetOperationPredicate(node, i, p)
			if !ok {
				return nil
			}
			if first {
				combined = rekeyed
				first = false
			} else {
				combined = intersectPredicates(combined, rekeyed)
			}
		}
		return combined

	case *plan.Exchange:
		// Only a single-source exchange passes its source's predicate
		// through; a multi-source exchange yields no information.
		if len(node.Sources) != 1 {
			return nil
		}
		return EffectivePredicate(node.Sources[0])

	case *plan.Values:
		return valuesEffectivePredicate(node)

	case *plan.Limit:
		return EffectivePredicate(node.Source)
	case *plan.Sort:
		return EffectivePredicate(node.Source)
	case *plan.TopN:
		return EffectivePredicate(node.Source)
	case *plan.Window:
		return EffectivePredicate(node.Source)
	case *plan.DistinctLimit:
		return EffectivePredicate(node.Source)
	case *plan.AssignUniqueId:
		return EffectivePredicate(node.Source)
	case *plan.Offset:
		return EffectivePredicate(node.Source)

	case *plan.SemiJoin:
		return EffectivePredicate(node.Source)

	case *plan.Unnest:
		switch node.Type {
		case plan.Inner, plan.Left:
			return pull(expr.JoinConjuncts(EffectivePredicate(node.Source), node.Filter), scope)
		default:
			return nil
		}

	default:
		return nil
	}
}

// valuesEffectivePredicate implements spec §4.3's Values row: per output
// column, union the domain of every row's value for that column, unless
// some row's value isn't a deterministic literal, in which case the
// column carries no information and is dropped from the result. Mirrors
// TableScan.EffectiveConstraintAsSymbols' tupledomain.ToPredicate pattern,
// keyed by output symbol id instead of a rekeyed source column name.
func valuesEffectivePredicate(v *plan.Values) expr.Node {
	if len(v.Rows) == 0 {
		return nil
	}
	outputs := v.Outputs()
	td := tupledomain.NewTupleDomain[uint64]()
	for col, sym := range outputs {
		d, ok := columnDomain(v.Rows, col, sym.Type())
		if !ok {
			continue
		}
		td = td.WithColumn(sym.ID(), d)
	}
	return td.ToPredicate(func(id uint64) expr.Node { return symbolRefByID(outputs, id) })
}

// columnDomain unions the per-row domain of rows[*][col], or reports false
// if any row's value there isn't a deterministic literal.
func columnDomain(rows [][]expr.Node, col int, t sqltype.Type) (tupledomain.Domain, bool) {
	d := tupledomain.NoneDomain(t)
	for _, row := range rows {
		lit, ok := row[col].(*expr.Literal)
		if !ok || !expr.Deterministic(lit) {
			return tupledomain.Domain{}, false
		}
		if lit.Value == nil {
			d = d.Union(tupledomain.OnlyNull(t))
			continue
		}
		d = d.Union(tupledomain.Single(t, lit.Value))
	}
	return d, true
}

func joinPredicateOf(j *plan.Join) expr.Node {
	return j.GetFilter()
}

func symbolRefByID(outputs []symbol.Symbol, id uint64) expr.Node {
	for _, s := range outputs {
		if s.ID() == id {
			return expr.NewSymbolRef(s)
		}
	}
	return nil
}

func rekeySetOperationPredicate(node *plan.SetOperation, sourceIndex int, p expr.Node) (expr.Node, bool) {
	out, err := expr.TransformUp(p, func(n expr.Node) (expr.Node, error) {
		ref, ok := n.(*expr.SymbolRef)
		if !ok {
			return n, nil
		}
		for _, o := range node.Outputs() {
			in, ok := node.InputSymbolFor(o, sourceIndex)
			if ok && in.Equal(ref.Symbol) {
				return expr.NewSymbolRef(o), nil
			}
		}
		return n, nil
	})
	if err != nil {
		return nil, false
	}
	return out, true
}

func intersectPredicates(a, b expr.Node) expr.Node {
	if a == nil || b == nil {
		return nil
	}
	aConj := exprSet(expr.Conjuncts(a))
	var kept []expr.Node
	for _, c := range expr.Conjuncts(b) {
		if aConj[exprKey(c)] {
			kept = append(kept, c)
		}
	}
	return expr.JoinConjuncts(kept...)
}

func exprSet(es []expr.Node) map[string]bool {
	m := make(map[string]bool, len(es))
	for _, e := range es {
		m[exprKey(e)] = true
	}
	return m
}

func exprKey(e expr.Node) string { return e.String() }

// filterDeterministic drops non-deterministic conjuncts, since only
// deterministic predicates can be pulled through symbol scopes (spec
// §4.3's Filter row: "filterDeterministic(predicate)").
func filterDeterministic(e expr.Node) expr.Node {
	var kept []expr.Node
	for _, c := range expr.Conjuncts(e) {
		if expr.Deterministic(c) {
			kept = append(kept, c)
		}
	}
	return expr.JoinConjuncts(kept...)
}

// pull implements spec §4.3's `pull(e, scope)`.
func pull(e expr.Node, scope *symbol.Set) expr.Node {
	if e == nil {
		return nil
	}
	inf := NewInference(e)
	var kept []expr.Node
	for _, c := range NonInferrableConjuncts(e) {
		if !expr.Deterministic(c) {
			continue
		}
		if rewritten, ok := inf.Rewrite(c, scope); ok {
			kept = append(kept, rewritten)
		}
	}
	kept = append(kept, inf.GenerateEqualitiesPartitionedBy(scope).ScopeEqualities...)
	if len(kept) == 0 {
		return nil
	}
	return expr.JoinConjuncts(kept...)
}

// pullNullable implements spec §4.3's `pullNullable(conjs, outputs,
// nullScopes...)`: each conjunct c becomes `c OR (s IS NULL)` for every
// null-padded scope symbol s free in c, to account for outer-join
// padding; conjuncts with no free symbols cannot be safely pulled and
// are dropped (replaced by ⊤).
func pullNullable(conjs []expr.Node, scope *symbol.Set, nullScopes ...*symbol.Set) expr.Node {
	var nullSet *symbol.Set
	for _, ns := range nullScopes {
		if nullSet == nil {
			nullSet = ns
		} else {
			nullSet = nullSet.Union(ns)
		}
	}
	var kept []expr.Node
	for _, c := range conjs {
		if !expr.Deterministic(c) {
			continue
		}
		free := expr.FreeSymbols(c)
		if free.Len() == 0 {
			continue
		}
		if !freeSymbolsSubsetOf(c, scope) {
			continue
		}
		var disjuncts []expr.Node
		disjuncts = append(disjuncts, c)
		if nullSet != nil {
			for _, s := range free.List() {
				if nullSet.Contains(s) {
					disjuncts = append(disjuncts, expr.NewIsNull(expr.NewSymbolRef(s)))
				}
			}
		}
		kept = append(kept, expr.JoinDisjuncts(disjuncts...))
	}
	if len(kept) == 0 {
		return nil
	}
	return expr.JoinConjuncts(kept...)
}
