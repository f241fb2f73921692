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

// symbolUnionFind is a union-find keyed by symbol id, used by Unalias to
// collapse chains of identity projections, matching equi-join clauses,
// and pass-through exchanges into a single canonical symbol (spec §4.7).
type symbolUnionFind struct {
	parent map[uint64]uint64
	byID   map[uint64]symbol.Symbol
}

func newSymbolUnionFind() *symbolUnionFind {
	return &symbolUnionFind{parent: make(map[uint64]uint64), byID: make(map[uint64]symbol.Symbol)}
}

func (u *symbolUnionFind) add(s symbol.Symbol) {
	if _, ok := u.parent[s.ID()]; !ok {
		u.parent[s.ID()] = s.ID()
		u.byID[s.ID()] = s
	}
}

func (u *symbolUnionFind) find(id uint64) uint64 {
	for u.parent[id] != id {
		u.parent[id] = u.parent[u.parent[id]]
		id = u.parent[id]
	}
	return id
}

// union records a -> b: b becomes a's root, matching spec §4.7's directed
// phrasing ("record a -> b") while still giving a symmetric union-find.
func (u *symbolUnionFind) union(a, b symbol.Symbol) {
	u.add(a)
	u.add(b)
	ra, rb := u.find(a.ID()), u.find(b.ID())
	if ra != rb {
		u.parent[ra] = rb
	}
}

// canonical returns the root symbol for s, or s itself if it was never
// recorded.
func (u *symbolUnionFind) canonical(s symbol.Symbol) symbol.Symbol {
	if _, ok := u.parent[s.ID()]; !ok {
		return s
	}
	return u.byID[u.find(s.ID())]
}

// buildAliases walks the plan collecting the three kinds of alias edge
// spec §4.7 names: identity projections, matching-type equi-join clauses
// whose left side is a live output, and single-source exchanges.
func buildAliases(node plan.Node, uf *symbolUnionFind) {
	for _, s := range node.Outputs() {
		uf.add(s)
	}
	switch n := node.(type) {
	case *plan.Project:
		seenExprs := make(map[string]symbol.Symbol, len(n.Assignments))
		for _, a := range n.Assignments {
			if ref, ok := a.Expr.(*expr.SymbolRef); ok {
				uf.union(a.Symbol, ref.Symbol)
				continue
			}
			// Two assignments in the same Project computing the same
			// expression are aliases of each other: union the later
			// symbol onto the first one seen, so any ancestor reference
			// to the later symbol is rewritten to the earlier one and
			// the now-redundant assignment is left for Prune to drop
			// once nothing references it anymore.
			key := a.Expr.String()
			if first, ok := seenExprs[key]; ok {
				uf.union(a.Symbol, first)
				continue
			}
			seenExprs[key] = a.Symbol
		}
	case *plan.Join:
		if n.Type == plan.Inner {
			leftOutputs := symbol.NewSet(n.Left.Outputs()...)
			for _, eq := range n.EquiClauses {
				if leftOutputs.Contains(eq.Left) && eq.Left.Type().Equal(eq.Right.Type()) {
					uf.union(eq.Right, eq.Left)
				}
			}
		}
	case *plan.Exchange:
		if len(n.Sources) == 1 {
			for _, out := range n.Outputs() {
				if in, ok := n.InputSymbolFor(out, 0); ok {
					uf.union(out, in)
				}
			}
		}
	}
	for _, c := range node.Children() {
		buildAliases(c, uf)
	}
}

// Unalias implements spec §4.7: collapses chains of identity projections,
// inner-join equi-clauses, and pass-through exchanges down to a single
// canonical symbol, then rewrites every symbol reference in the plan to
// its canonical root. Idempotent: a second pass finds no new alias edges
// once every reference already names its root.
func Unalias(node plan.Node) (plan.Node, error) {
	uf := newSymbolUnionFind()
	buildAliases(node, uf)
	return rewriteSymbols(node, uf)
}

func rewriteSymbols(node plan.Node, uf *symbolUnionFind) (plan.Node, error) {
	children := node.Children()
	if len(children) > 0 {
		newChildren := make([]plan.Node, len(children))
		changed := false
		for i, c := range children {
			nc, err := rewriteSymbols(c, uf)
			if err != nil {
				return nil, err
			}
			newChildren[i] = nc
			if nc != c {
				changed = true
			}
		}
		if changed {
			nn, err := node.WithChildren(newChildren...)
			if err != nil {
				return nil, err
			}
			node = nn
		}
	}
	return rewriteNodeSymbols(node, uf)
}

// rewriteNodeSymbols substitutes canonical symbols into a single node's
// own expressions and symbol-typed fields, per node kind.
func rewriteNodeSymbols(node plan.Node, uf *symbolUnionFind) (plan.Node, error) {
	remapExpr := func(e expr.Node) (expr.Node, error) {
		if e == nil {
			return nil, nil
		}
		return expr.TransformUp(e, func(n expr.Node) (expr.Node, error) {
			ref, ok := n.(*expr.SymbolRef)
			if !ok {
				return n, nil
			}
			canon := uf.canonical(ref.Symbol)
			if canon.Equal(ref.Symbol) {
				return n, nil
			}
			return expr.NewSymbolRef(canon), nil
		})
	}

	switch n := node.(type) {
	case *plan.Filter:
		np, err := remapExpr(n.Predicate)
		if err != nil {
			return nil, err
		}
		if np == n.Predicate {
			return n, nil
		}
		return plan.NewFilter(n.ID(), np, n.Source), nil

	case *plan.Project:
		// Assignments are never dropped here even when two of them now
		// compute the same canonicalized expression: dropping a symbol
		// this node advertises as an output without first rewriting every
		// ancestor reference to it would violate the output-scope
		// invariant. buildAliases already unions a same-expression
		// assignment's symbol onto the first one seen, so every ancestor
		// reference gets redirected below; Prune then removes whichever
		// assignment is left unreferenced.
		changed := false
		newAssignments := make([]plan.Assignment, len(n.Assignments))
		for i, a := range n.Assignments {
			ne, err := remapExpr(a.Expr)
			if err != nil {
				return nil, err
			}
			if ne != a.Expr {
				changed = true
			}
			newAssignments[i] = plan.Assignment{Symbol: a.Symbol, Expr: ne}
		}
		if !changed {
			return n, nil
		}
		return plan.NewProject(n.ID(), n.Source, newAssignments), nil

	case *plan.Join:
		changed := false
		newEqui := make([]plan.EquiClause, len(n.EquiClauses))
		for i, eq := range n.EquiClauses {
			l, r := uf.canonical(eq.Left), uf.canonical(eq.Right)
			if !l.Equal(eq.Left) || !r.Equal(eq.Right) {
				changed = true
			}
			newEqui[i] = plan.EquiClause{Left: l, Right: r}
		}
		nf, err := remapExpr(n.Filter)
		if err != nil {
			return nil, err
		}
		if nf != n.Filter {
			changed = true
		}
		if !changed {
			return n, nil
		}
		nj := plan.NewJoin(n.ID(), n.Type, n.Left, n.Right, newEqui, nf)
		nj.Distribution = n.Distribution
		nj.DynamicFilterIDs = n.DynamicFilterIDs
		return nj, nil

	default:
		if holder, ok := node.(plan.ExpressionHolder); ok {
			exprs := holder.Expressions()
			if len(exprs) == 0 {
				return node, nil
			}
			newExprs := make([]expr.Node, len(exprs))
			changed := false
			for i, e := range exprs {
				ne, err := remapExpr(e)
				if err != nil {
					return nil, err
				}
				newExprs[i] = ne
				if ne != e {
					changed = true
				}
			}
			if !changed {
				return node, nil
			}
			return holder.WithExpressions(newExprs...)
		}
		return node, nil
	}
}
