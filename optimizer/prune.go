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
	"github.com/dolthub/queryplancore/symbol"
)

// Prune implements spec §4.6: a top-down rewrite carrying the set of
// symbols a node's parent actually needs, restricting every node's
// outputs to that set (plus whatever internal symbols the node itself
// needs to do its job) and dropping subtrees that become entirely dead.
func Prune(node plan.Node, required *symbol.Set) (plan.Node, error) {
	switch n := node.(type) {
	case *plan.Project:
		return pruneProject(n, required)
	case *plan.Filter:
		return pruneFilter(n, required)
	case *plan.TableScan:
		return pruneTableScan(n, required), nil
	case *plan.Aggregation:
		return pruneAggregation(n, required)
	case *plan.Join:
		return pruneJoin(n, required)
	case *plan.SemiJoin:
		return pruneSemiJoin(n, required)
	case *plan.CorrelatedJoin:
		return pruneCorrelatedJoin(n, required)
	default:
		return pruneGeneric(n, required)
	}
}

// requiredFor intersects a node's own outputs with required (a node
// can't usefully retain outputs nobody above it, or it itself, needs).
func requiredFor(outputs []symbol.Symbol, required *symbol.Set) *symbol.Set {
	out := symbol.NewSet()
	for _, s := range outputs {
		if required.Contains(s) {
			out.Add(s)
		}
	}
	return out
}

func pruneGeneric(node plan.Node, required *symbol.Set) (plan.Node, error) {
	childRequired := symbol.NewSet(required.List()...)
	if holder, ok := node.(plan.ExpressionHolder); ok {
		for _, e := range holder.Expressions() {
			for _, s := range expr.FreeSymbols(e).List() {
				childRequired.Add(s)
			}
		}
	}
	if f, ok := node.(plan.Filterable); ok {
		if filt := f.GetFilter(); filt != nil {
			for _, s := range expr.FreeSymbols(filt).List() {
				childRequired.Add(s)
			}
		}
	}
	children := node.Children()
	if len(children) == 0 {
		return node, nil
	}
	newChildren := make([]plan.Node, len(children))
	changed := false
	for i, c := range children {
		nc, err := Prune(c, childRequired)
		if err != nil {
			return nil, err
		}
		newChildren[i] = nc
		if nc != c {
			changed = true
		}
	}
	if !changed {
		return node, nil
	}
	return node.WithChildren(newChildren...)
}

func pruneProject(p *plan.Project, required *symbol.Set) (plan.Node, error) {
	var kept []plan.Assignment
	sourceRequired := symbol.NewSet()
	for _, a := range p.Assignments {
		if !required.Contains(a.Symbol) {
			continue
		}
		kept = append(kept, a)
		for _, s := range expr.FreeSymbols(a.Expr).List() {
			sourceRequired.Add(s)
		}
	}
	newSource, err := Prune(p.Source, sourceRequired)
	if err != nil {
		return nil, err
	}
	if len(kept) == len(p.Assignments) && newSource == p.Source {
		return p, nil
	}
	np := plan.NewProject(p.ID(), newSource, kept)
	return np, nil
}

func pruneFilter(f *plan.Filter, required *symbol.Set) (plan.Node, error) {
	childRequired := symbol.NewSet(required.List()...)
	for _, s := range expr.FreeSymbols(f.Predicate).List() {
		childRequired.Add(s)
	}
	newSource, err := Prune(f.Source, childRequired)
	if err != nil {
		return nil, err
	}
	if newSource == f.Source {
		return f, nil
	}
	return plan.NewFilter(f.ID(), f.Predicate, newSource), nil
}

func pruneTableScan(s *plan.TableScan, required *symbol.Set) plan.Node {
	kept := requiredFor(s.Outputs(), required).List()
	if len(kept) == len(s.Outputs()) {
		return s
	}
	return plan.NewTableScan(s.ID(), s.Table, kept, s.ColumnNames)
}

func pruneAggregation(a *plan.Aggregation, required *symbol.Set) (plan.Node, error) {
	var kept []plan.AggregateAssignment
	sourceRequired := symbol.NewSet(a.GroupingKeys...)
	for _, agg := range a.Aggregates {
		if !required.Contains(agg.Symbol) {
			continue
		}
		kept = append(kept, agg)
		for _, s := range expr.FreeSymbols(agg.Call).List() {
			sourceRequired.Add(s)
		}
	}
	newSource, err := Prune(a.Source, sourceRequired)
	if err != nil {
		return nil, err
	}
	if len(kept) == len(a.Aggregates) && newSource == a.Source {
		return a, nil
	}
	na := plan.NewAggregation(a.ID(), newSource, a.GroupingKeys, kept)
	na.GroupingSets, na.GroupIDSymbol, na.Step = a.GroupingSets, a.GroupIDSymbol, a.Step
	return na, nil
}

func pruneJoin(j *plan.Join, required *symbol.Set) (plan.Node, error) {
	leftRequired := symbol.NewSet()
	rightRequired := symbol.NewSet()
	leftOutputs := symbol.NewSet(j.Left.Outputs()...)
	for _, s := range required.List() {
		if leftOutputs.Contains(s) {
			leftRequired.Add(s)
		} else {
			rightRequired.Add(s)
		}
	}
	for _, eq := range j.EquiClauses {
		leftRequired.Add(eq.Left)
		rightRequired.Add(eq.Right)
	}
	if filt := j.GetFilter(); filt != nil {
		for _, s := range expr.FreeSymbols(filt).List() {
			if leftOutputs.Contains(s) {
				leftRequired.Add(s)
			} else {
				rightRequired.Add(s)
			}
		}
	}
	newLeft, err := Prune(j.Left, leftRequired)
	if err != nil {
		return nil, err
	}
	newRight, err := Prune(j.Right, rightRequired)
	if err != nil {
		return nil, err
	}
	if newLeft == j.Left && newRight == j.Right {
		return j, nil
	}
	nj := *j
	nj.Left, nj.Right = newLeft, newRight
	return &nj, nil
}

// pruneSemiJoin implements spec §4.6's "semi-join whose marker is unused
// becomes the source alone."
func pruneSemiJoin(s *plan.SemiJoin, required *symbol.Set) (plan.Node, error) {
	if s.Marker != nil && !required.Contains(*s.Marker) {
		return Prune(s.Source, required)
	}
	sourceRequired := symbol.NewSet(required.List()...)
	sourceRequired.Add(s.SourceJoinKey)
	filteringRequired := symbol.NewSet(s.FilteringSourceJoinKey)
	if s.Filter != nil {
		for _, sym := range expr.FreeSymbols(s.Filter).List() {
			sourceRequired.Add(sym)
			filteringRequired.Add(sym)
		}
	}
	newSource, err := Prune(s.Source, sourceRequired)
	if err != nil {
		return nil, err
	}
	newFiltering, err := Prune(s.FilteringSource, filteringRequired)
	if err != nil {
		return nil, err
	}
	if newSource == s.Source && newFiltering == s.FilteringSource {
		return s, nil
	}
	ns := *s
	ns.Source, ns.FilteringSource = newSource, newFiltering
	return &ns, nil
}

// pruneCorrelatedJoin implements spec §4.6's "correlated-join whose
// subquery outputs are unused and at-most-scalar becomes the input."
func pruneCorrelatedJoin(c *plan.CorrelatedJoin, required *symbol.Set) (plan.Node, error) {
	subqueryOutputs := symbol.NewSet(c.Subquery.Outputs()...)
	subqueryNeeded := false
	for _, s := range required.List() {
		if subqueryOutputs.Contains(s) {
			subqueryNeeded = true
			break
		}
	}
	if !subqueryNeeded && len(c.Subquery.Outputs()) <= 1 {
		return Prune(c.Input, required)
	}
	inputRequired := symbol.NewSet(required.List()...)
	inputRequired = inputRequired.Union(symbol.NewSet(c.CorrelatedSymbols...))
	if c.Filter != nil {
		for _, s := range expr.FreeSymbols(c.Filter).List() {
			inputRequired.Add(s)
		}
	}
	newInput, err := Prune(c.Input, inputRequired)
	if err != nil {
		return nil, err
	}
	newSubquery, err := Prune(c.Subquery, symbol.NewSet(c.Subquery.Outputs()...))
	if err != nil {
		return nil, err
	}
	if newInput == c.Input && newSubquery == c.Subquery {
		return c, nil
	}
	nc := *c
	nc.Input, nc.Subquery = newInput, newSubquery
	return &nc, nil
}
