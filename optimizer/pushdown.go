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
	"context"

	uuid "github.com/satori/go.uuid"

	"github.com/dolthub/queryplancore/catalog"
	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/symbol"
)

// Pushdown implements spec §4.4's top-down predicate pushdown rewrite. It
// carries an inherited predicate π through the plan, pushing as much of
// it as possible into each node's children and leaving the rest behind
// as a Filter, grounded on the historical analyzer's single-purpose
// Rule functions (pushdown_test.go's pushdownFiltersToAboveTables-style
// per-node visitors) generalized into one recursive rewrite driven by
// node kind.
type Pushdown struct {
	IDs      *plan.IDAllocator
	Metadata catalog.Metadata
	Session  catalog.Session
}

// Run rewrites node under inherited predicate π (initially TRUE) and
// returns the new subplan.
func (pd *Pushdown) Run(ctx context.Context, node plan.Node, pi expr.Node) (plan.Node, error) {
	switch n := node.(type) {
	case *plan.Filter:
		return pd.visitFilter(ctx, n, pi)
	case *plan.Project:
		return pd.visitProject(ctx, n, pi)
	case *plan.Exchange:
		return pd.visitExchange(ctx, n, pi)
	case *plan.SetOperation:
		return pd.visitSetOperation(ctx, n, pi)
	case *plan.Aggregation:
		return pd.visitAggregation(ctx, n, pi)
	case *plan.Window:
		return pd.visitWindowLike(ctx, n, pi, symbol.NewSet(n.PartitionBy...))
	case *plan.GroupId:
		common := commonGroupingColumns(n.GroupingSets)
		return pd.visitWindowLike(ctx, n, pi, symbol.NewSet(common...))
	case *plan.Join:
		return pd.visitJoin(ctx, n, pi)
	case *plan.SemiJoin:
		return pd.visitSemiJoin(ctx, n, pi)
	case *plan.Unnest:
		return pd.visitUnnest(ctx, n, pi)
	case *plan.TableScan:
		return pd.wrapResidual(n, pi)
	default:
		return pd.visitDefault(ctx, n, pi)
	}
}

// wrapResidual places π above node unchanged as a Filter, the fallback
// every visitor uses for the portion of π it could not push (spec §4.4
// "placing any unpushed portion as a Filter above the rewritten node").
func (pd *Pushdown) wrapResidual(node plan.Node, pi expr.Node) (plan.Node, error) {
	if pi == nil || expr.IsBoolLiteral(pi, true) {
		return node, nil
	}
	return plan.NewFilter(pd.IDs.New(), pi, node), nil
}

// visitDefault recurses into every child with π=TRUE (nothing pushes
// through an opaque node) and re-wraps π above; used for node kinds with
// no explicit pushdown rule (RowNumber, TopNRowNumber, Apply/CorrelatedJoin
// pre-desugar, Values, Sort/TopN/Limit/Offset/DistinctLimit/AssignUniqueId).
func (pd *Pushdown) visitDefault(ctx context.Context, node plan.Node, pi expr.Node) (plan.Node, error) {
	children := node.Children()
	newChildren := make([]plan.Node, len(children))
	for i, c := range children {
		nc, err := pd.Run(ctx, c, expr.TrueLiteral)
		if err != nil {
			return nil, err
		}
		newChildren[i] = nc
	}
	rebuilt := node
	if len(children) > 0 {
		var err error
		rebuilt, err = node.WithChildren(newChildren...)
		if err != nil {
			return nil, err
		}
	}
	return pd.wrapResidual(rebuilt, pi)
}

func (pd *Pushdown) visitFilter(ctx context.Context, f *plan.Filter, pi expr.Node) (plan.Node, error) {
	combined := expr.JoinConjuncts(f.Predicate, pi)
	return pd.Run(ctx, f.Source, combined)
}

// visitProject implements spec §4.4's Project rule: partitions π into
// the part expressible purely in terms of the source (by substituting
// non-identity assignments back), inlines "inlining candidates" —
// conjuncts whose free symbols are each either a literal-valued
// assignment, a renaming assignment, or used exactly once in π — and
// pushes those; the rest is placed above unchanged.
func (pd *Pushdown) visitProject(ctx context.Context, p *plan.Project, pi expr.Node) (plan.Node, error) {
	bySymbol := make(map[uint64]expr.Node, len(p.Assignments))
	for _, a := range p.Assignments {
		bySymbol[a.Symbol.ID()] = a.Expr
	}
	useCounts := make(map[uint64]int)
	for _, c := range expr.Conjuncts(pi) {
		for _, s := range expr.FreeSymbols(c).List() {
			useCounts[s.ID()]++
		}
	}

	isInlinable := func(s symbol.Symbol) bool {
		rhs, ok := bySymbol[s.ID()]
		if !ok {
			return true // not a projected symbol (e.g. an outer reference) — leave as-is
		}
		if _, ok := rhs.(*expr.Literal); ok {
			return true
		}
		if _, ok := rhs.(*expr.SymbolRef); ok {
			return true
		}
		// TODO(pushdown): a single-use non-literal, non-renaming
		// assignment (e.g. a + b used once downstream) is inlined here
		// too, but a multi-use computed assignment never is, even when
		// duplicating it would still be cheaper than blocking pushdown
		// entirely. Extending inlining to cost-aware duplication needs a
		// size/cost estimate this pass doesn't have yet.
		return useCounts[s.ID()] <= 1
	}

	var pushable, residual []expr.Node
	for _, c := range expr.Conjuncts(pi) {
		if !expr.Deterministic(c) {
			residual = append(residual, c)
			continue
		}
		candidate := true
		for _, s := range expr.FreeSymbols(c).List() {
			if !isInlinable(s) {
				candidate = false
				break
			}
		}
		if !candidate {
			residual = append(residual, c)
			continue
		}
		inlined, err := expr.TransformUp(c, func(n expr.Node) (expr.Node, error) {
			ref, ok := n.(*expr.SymbolRef)
			if !ok {
				return n, nil
			}
			if rhs, ok := bySymbol[ref.Symbol.ID()]; ok {
				return rhs, nil
			}
			return n, nil
		})
		if err != nil {
			return nil, err
		}
		pushable = append(pushable, inlined)
	}

	newSource, err := pd.Run(ctx, p.Source, expr.JoinConjuncts(pushable...))
	if err != nil {
		return nil, err
	}
	rebuilt := p
	if newSource != p.Source {
		na := &plan.Project{}
		*na = *p
		na.Source = newSource
		rebuilt = na
	}
	return pd.wrapResidual(rebuilt, expr.JoinConjuncts(residual...))
}

func (pd *Pushdown) visitExchange(ctx context.Context, ex *plan.Exchange, pi expr.Node) (plan.Node, error) {
	newSources := make([]plan.Node, len(ex.Sources))
	for i, src := range ex.Sources {
		rewritten, ok := inlineViaLookup(pi, func(out symbol.Symbol) (symbol.Symbol, bool) {
			return ex.InputSymbolFor(out, i)
		})
		if !ok {
			newSources[i] = mustWrap(pd, src, ctx, pi)
			continue
		}
		ns, err := pd.Run(ctx, src, rewritten)
		if err != nil {
			return nil, err
		}
		newSources[i] = ns
	}
	ne := *ex
	ne.Sources = newSources
	return &ne, nil
}

func (pd *Pushdown) visitSetOperation(ctx context.Context, so *plan.SetOperation, pi expr.Node) (plan.Node, error) {
	newSources := make([]plan.Node, len(so.Sources))
	for i, src := range so.Sources {
		idx := i
		rewritten, ok := inlineViaLookup(pi, func(out symbol.Symbol) (symbol.Symbol, bool) {
			return so.InputSymbolFor(out, idx)
		})
		if !ok {
			nc, err := pd.Run(ctx, src, expr.TrueLiteral)
			if err != nil {
				return nil, err
			}
			newSources[i] = nc
			continue
		}
		ns, err := pd.Run(ctx, src, rewritten)
		if err != nil {
			return nil, err
		}
		newSources[i] = ns
	}
	nso := *so
	nso.Sources = newSources
	if !allRewritable(pi, so) {
		return pd.wrapResidual(&nso, pi)
	}
	return &nso, nil
}

func allRewritable(pi expr.Node, so *plan.SetOperation) bool {
	for i := range so.Sources {
		idx := i
		if _, ok := inlineViaLookup(pi, func(out symbol.Symbol) (symbol.Symbol, bool) { return so.InputSymbolFor(out, idx) }); !ok {
			return false
		}
	}
	return true
}

// inlineViaLookup rewrites every SymbolRef in e via lookup, failing (ok
// = false) if any referenced symbol has no mapping.
func inlineViaLookup(e expr.Node, lookup func(symbol.Symbol) (symbol.Symbol, bool)) (expr.Node, bool) {
	if e == nil {
		return nil, true
	}
	ok := true
	out, err := expr.TransformUp(e, func(n expr.Node) (expr.Node, error) {
		ref, isRef := n.(*expr.SymbolRef)
		if !isRef {
			return n, nil
		}
		mapped, found := lookup(ref.Symbol)
		if !found {
			ok = false
			return n, nil
		}
		return expr.NewSymbolRef(mapped), nil
	})
	if err != nil || !ok {
		return nil, false
	}
	return out, true
}

func mustWrap(pd *Pushdown, src plan.Node, ctx context.Context, pi expr.Node) plan.Node {
	nc, err := pd.Run(ctx, src, expr.TrueLiteral)
	if err != nil {
		return src
	}
	wrapped, err := pd.wrapResidual(nc, pi)
	if err != nil {
		return nc
	}
	return wrapped
}

// visitAggregation implements spec §4.4's Aggregation rule.
func (pd *Pushdown) visitAggregation(ctx context.Context, a *plan.Aggregation, pi expr.Node) (plan.Node, error) {
	if len(a.GroupingKeys) == 0 {
		newSource, err := pd.Run(ctx, a.Source, expr.TrueLiteral)
		if err != nil {
			return nil, err
		}
		na := *a
		na.Source = newSource
		return pd.wrapResidual(&na, pi)
	}
	keyScope := symbol.NewSet(a.GroupingKeys...)
	inf := NewInference(pi)
	var pushable, residual []expr.Node
	for _, c := range expr.Conjuncts(pi) {
		if rewritten, ok := inf.Rewrite(c, keyScope); ok && expr.Deterministic(c) {
			pushable = append(pushable, rewritten)
		} else {
			residual = append(residual, c)
		}
	}
	pushable = append(pushable, inf.GenerateEqualitiesPartitionedBy(keyScope).ScopeEqualities...)
	newSource, err := pd.Run(ctx, a.Source, expr.JoinConjuncts(pushable...))
	if err != nil {
		return nil, err
	}
	na := *a
	na.Source = newSource
	return pd.wrapResidual(&na, expr.JoinConjuncts(residual...))
}

// visitWindowLike implements spec §4.4's Window/GroupId rule: push
// conjuncts whose free symbols are a subset of scope (partition-by for
// Window, common grouping columns for GroupId); never push
// non-deterministic conjuncts.
func (pd *Pushdown) visitWindowLike(ctx context.Context, node plan.Node, pi expr.Node, scope *symbol.Set) (plan.Node, error) {
	var pushable, residual []expr.Node
	for _, c := range expr.Conjuncts(pi) {
		if expr.Deterministic(c) && freeSymbolsSubsetOf(c, scope) {
			pushable = append(pushable, c)
		} else {
			residual = append(residual, c)
		}
	}
	children := node.Children()
	if len(children) != 1 {
		return pd.wrapResidual(node, pi)
	}
	newSource, err := pd.Run(ctx, children[0], expr.JoinConjuncts(pushable...))
	if err != nil {
		return nil, err
	}
	rebuilt, err := node.WithChildren(newSource)
	if err != nil {
		return nil, err
	}
	return pd.wrapResidual(rebuilt, expr.JoinConjuncts(residual...))
}

func commonGroupingColumns(sets [][]symbol.Symbol) []symbol.Symbol {
	if len(sets) == 0 {
		return nil
	}
	common := symbol.NewSet(sets[0]...)
	for _, s := range sets[1:] {
		common = common.Intersect(symbol.NewSet(s...))
	}
	return common.List()
}

// visitJoin implements spec §4.4's core Join rule, including
// outer-to-inner conversion and dynamic filter synthesis.
func (pd *Pushdown) visitJoin(ctx context.Context, j *plan.Join, pi expr.Node) (plan.Node, error) {
	j = pd.convertOuterToInner(j, pi)

	lhat := EffectivePredicate(j.Left)
	rhat := EffectivePredicate(j.Right)
	leftScope := symbol.NewSet(j.Left.Outputs()...)
	rightScope := symbol.NewSet(j.Right.Outputs()...)
	joinPred := j.GetFilter()

	var leftPush, rightPush, newJoinConjuncts, postJoin []expr.Node

	switch j.Type {
	case plan.Inner:
		allInf := NewInference(expr.JoinConjuncts(pi, lhat, rhat, joinPred))
		leaveLeftOut := NewInference(expr.JoinConjuncts(pi, rhat, joinPred))
		leaveRightOut := NewInference(expr.JoinConjuncts(pi, lhat, joinPred))

		leftPush = append(leftPush, leaveLeftOut.GenerateEqualitiesPartitionedBy(leftScope).ScopeEqualities...)
		rightPush = append(rightPush, leaveRightOut.GenerateEqualitiesPartitionedBy(rightScope).ScopeEqualities...)
		newJoinConjuncts = append(newJoinConjuncts, allInf.GenerateEqualitiesPartitionedBy(leftScope).ScopeStraddlingEqualities...)

		for _, c := range expr.Conjuncts(pi) {
			pd.pushConjunctBothSides(c, allInf, leftScope, rightScope, &leftPush, &rightPush, &newJoinConjuncts)
		}
		for _, c := range NonInferrableConjuncts(rhat) {
			if rw, ok := allInf.Rewrite(c, leftScope); ok && expr.Deterministic(c) {
				leftPush = append(leftPush, rw)
			}
		}
		for _, c := range NonInferrableConjuncts(lhat) {
			if rw, ok := allInf.Rewrite(c, rightScope); ok && expr.Deterministic(c) {
				rightPush = append(rightPush, rw)
			}
		}
		for _, c := range NonInferrableConjuncts(joinPred) {
			pd.pushConjunctBothSides(c, allInf, leftScope, rightScope, &leftPush, &rightPush, &newJoinConjuncts)
		}

	case plan.Left, plan.Right:
		outerScope, innerScope := leftScope, rightScope
		if j.Type == plan.Right {
			outerScope, innerScope = rightScope, leftScope
		}
		outerOnly := NewInference(pi)
		var outerOnlyInherited []expr.Node
		for _, c := range expr.Conjuncts(pi) {
			if !expr.Deterministic(c) {
				postJoin = append(postJoin, c)
				continue
			}
			if rw, ok := outerOnly.Rewrite(c, outerScope); ok {
				outerOnlyInherited = append(outerOnlyInherited, rw)
			} else {
				postJoin = append(postJoin, c)
			}
		}
		outerPush := outerOnly.GenerateEqualitiesPartitionedBy(outerScope).ScopeEqualities
		innerInf := NewInference(expr.JoinConjuncts(append(append([]expr.Node{}, outerOnlyInherited...), lhat, rhat, joinPred)...))
		innerPush := innerInf.GenerateEqualitiesPartitionedBy(innerScope).ScopeEqualities
		if j.Type == plan.Left {
			leftPush, rightPush = outerPush, innerPush
		} else {
			rightPush, leftPush = outerPush, innerPush
		}
		newJoinConjuncts = append(newJoinConjuncts, joinPred)

	default: // Full
		leftPush = nil
		rightPush = nil
		postJoin = expr.Conjuncts(pi)
		newJoinConjuncts = []expr.Node{joinPred}
	}

	newLeft, err := pd.Run(ctx, j.Left, expr.JoinConjuncts(leftPush...))
	if err != nil {
		return nil, err
	}
	newRight, err := pd.Run(ctx, j.Right, expr.JoinConjuncts(rightPush...))
	if err != nil {
		return nil, err
	}

	nj := *j
	nj.Left, nj.Right = newLeft, newRight
	nj.EquiClauses, nj.Filter = splitEquiClausesAndResidual(expr.JoinConjuncts(newJoinConjuncts...))

	if j.Type == plan.Inner {
		pd.synthesizeDynamicFilters(&nj)
	}

	return pd.wrapResidual(&nj, expr.JoinConjuncts(postJoin...))
}

func (pd *Pushdown) pushConjunctBothSides(c expr.Node, inf *Inference, leftScope, rightScope *symbol.Set, leftPush, rightPush, joinConjuncts *[]expr.Node) {
	if !expr.Deterministic(c) {
		*joinConjuncts = append(*joinConjuncts, c)
		return
	}
	if rw, ok := inf.Rewrite(c, leftScope); ok {
		*leftPush = append(*leftPush, rw)
		return
	}
	if rw, ok := inf.Rewrite(c, rightScope); ok {
		*rightPush = append(*rightPush, rw)
		return
	}
	*joinConjuncts = append(*joinConjuncts, c)
}

// splitEquiClausesAndResidual re-derives equi-clauses from a rebuilt join
// predicate, keeping simple `symbolA = symbolB` conjuncts as equi-clauses
// and the rest as the residual Filter.
func splitEquiClausesAndResidual(pred expr.Node) ([]plan.EquiClause, expr.Node) {
	var equi []plan.EquiClause
	var residual []expr.Node
	for _, c := range expr.Conjuncts(pred) {
		if cmp, ok := expr.IsEquality(c); ok {
			lr, lok := cmp.Left.(*expr.SymbolRef)
			rr, rok := cmp.Right.(*expr.SymbolRef)
			if lok && rok {
				equi = append(equi, plan.EquiClause{Left: lr.Symbol, Right: rr.Symbol})
				continue
			}
		}
		residual = append(residual, c)
	}
	var filter expr.Node
	if len(residual) > 0 {
		filter = expr.JoinConjuncts(residual...)
	}
	return equi, filter
}

// convertOuterToInner implements spec §4.4's outer-to-inner conversion:
// if π contains a deterministic conjunct that evaluates to NULL or FALSE
// when every inner-side symbol is NULL, the null-padded rows can never
// satisfy π, so the join can be strengthened to INNER.
func (pd *Pushdown) convertOuterToInner(j *plan.Join, pi expr.Node) *plan.Join {
	var innerSymbols *symbol.Set
	switch j.Type {
	case plan.Left:
		innerSymbols = symbol.NewSet(j.Right.Outputs()...)
	case plan.Right:
		innerSymbols = symbol.NewSet(j.Left.Outputs()...)
	case plan.Full:
		innerSymbols = symbol.NewSet(j.Left.Outputs()...).Union(symbol.NewSet(j.Right.Outputs()...))
	default:
		return j
	}

	ip := expr.NewInterpreter(nil)
	resolver := func(s symbol.Symbol) (any, bool) {
		if innerSymbols.Contains(s) {
			return nil, true
		}
		return nil, false
	}
	rejectsNullPadding := false
	for _, c := range expr.Conjuncts(pi) {
		if !expr.Deterministic(c) {
			continue
		}
		outcome := ip.Optimize(c, resolver)
		if outcome.IsValue && (outcome.Value == nil || outcome.Value == false) {
			rejectsNullPadding = true
			break
		}
	}
	if !rejectsNullPadding {
		return j
	}
	nj := *j
	switch j.Type {
	case plan.Left, plan.Right:
		nj.Type = plan.Inner
	case plan.Full:
		// Determine which side's null-padding was rejected to decide
		// between LEFT, RIGHT, and INNER; conservatively promote all the
		// way to INNER since either side's padding is excluded by π.
		nj.Type = plan.Inner
	}
	return &nj
}

// synthesizeDynamicFilters implements spec §4.4's dynamic filter
// synthesis: for each equi-clause of an INNER join, when the session
// enables it, allocate a fresh filter id referencing the probe side and
// record it against the build side.
func (pd *Pushdown) synthesizeDynamicFilters(j *plan.Join) {
	if pd.Session == nil || !pd.Session.BoolProperty(catalog.EnableDynamicFiltering) {
		return
	}
	if len(j.EquiClauses) == 0 {
		return
	}
	ids := make(map[string]symbol.Symbol, len(j.EquiClauses))
	for _, eq := range j.EquiClauses {
		id, err := uuid.NewV4()
		if err != nil {
			continue
		}
		ids[id.String()] = eq.Right // build side; probe side observes it via the id
	}
	j.DynamicFilterIDs = ids
}

func (pd *Pushdown) visitSemiJoin(ctx context.Context, s *plan.SemiJoin, pi expr.Node) (plan.Node, error) {
	sourceScope := symbol.NewSet(s.Source.Outputs()...)
	filteringScope := symbol.NewSet(s.FilteringSource.Outputs()...)
	inf := NewInference(expr.JoinConjuncts(pi, EffectivePredicate(s.Source), EffectivePredicate(s.FilteringSource)))

	var sourcePush, filteringPush, residual []expr.Node
	for _, c := range expr.Conjuncts(pi) {
		if !expr.Deterministic(c) {
			residual = append(residual, c)
			continue
		}
		if !s.IsFiltering() && !freeSymbolsSubsetOf(c, sourceScope) {
			residual = append(residual, c)
			continue
		}
		if rw, ok := inf.Rewrite(c, sourceScope); ok {
			sourcePush = append(sourcePush, rw)
			continue
		}
		if s.IsFiltering() {
			if rw, ok := inf.Rewrite(c, filteringScope); ok {
				filteringPush = append(filteringPush, rw)
				continue
			}
		}
		residual = append(residual, c)
	}

	newSource, err := pd.Run(ctx, s.Source, expr.JoinConjuncts(sourcePush...))
	if err != nil {
		return nil, err
	}
	newFiltering, err := pd.Run(ctx, s.FilteringSource, expr.JoinConjuncts(filteringPush...))
	if err != nil {
		return nil, err
	}
	ns := *s
	ns.Source, ns.FilteringSource = newSource, newFiltering
	return pd.wrapResidual(&ns, expr.JoinConjuncts(residual...))
}

func (pd *Pushdown) visitUnnest(ctx context.Context, u *plan.Unnest, pi expr.Node) (plan.Node, error) {
	if u.Type != plan.Inner && u.Type != plan.Left {
		return pd.wrapResidual(u, pi)
	}
	scope := symbol.NewSet(u.ReplicateSymbols...)
	var pushable, residual []expr.Node
	for _, c := range expr.Conjuncts(pi) {
		if expr.Deterministic(c) && freeSymbolsSubsetOf(c, scope) {
			pushable = append(pushable, c)
		} else {
			residual = append(residual, c)
		}
	}
	newSource, err := pd.Run(ctx, u.Source, expr.JoinConjuncts(pushable...))
	if err != nil {
		return nil, err
	}
	nu := *u
	nu.Source = newSource
	return pd.wrapResidual(&nu, expr.JoinConjuncts(residual...))
}
