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

// Package optimizer implements the predicate-reasoning and structural
// rewrite passes of spec §4: equality inference, effective-predicate
// extraction, predicate pushdown, exchange insertion, symbol pruning and
// unaliasing, plus the rule-registry driver that sequences them (spec §9
// "visitor pattern ... tagged variants", grounded on the historical
// analyzer's DefaultRules/Rule registry preserved in
// other_examples/213f4502_...rules.go.go).
package optimizer

import (
	"github.com/mitchellh/hashstructure"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/symbol"
)

// structuralHash buckets expressions for the equivalence-class index;
// ties are broken by expr.Node.Equal, so a hash collision only costs an
// extra comparison rather than correctness (spec §9 "identity-keyed
// caches", generalized here to a structural key since expression nodes
// are not otherwise comparable map keys).
func structuralHash(e expr.Node) uint64 {
	h, err := hashstructure.Hash(e, nil)
	if err != nil {
		return 0
	}
	return h
}

// Inference builds equivalence classes over subexpressions a predicate
// asserts equal via deterministic `=` comparisons (spec §4.2), grounded
// on the historical analyzer's dedupStrings/exprToTableFilters style of
// building small auxiliary indexes over expression lists before rewriting.
type Inference struct {
	members []expr.Node
	parent  []int
	buckets map[uint64][]int // structural-hash bucket -> member indices, for O(1) average lookup
}

// NewInference builds an Inference from predicate's deterministic
// top-level equality conjuncts.
func NewInference(predicate expr.Node) *Inference {
	inf := &Inference{buckets: make(map[uint64][]int)}
	for _, c := range expr.Conjuncts(predicate) {
		eq, ok := expr.IsEquality(c)
		if !ok || !expr.Deterministic(c) {
			continue
		}
		li := inf.addMember(eq.Left)
		ri := inf.addMember(eq.Right)
		inf.union(li, ri)
	}
	return inf
}

func (inf *Inference) addMember(e expr.Node) int {
	if idx, ok := inf.lookup(e); ok {
		return idx
	}
	idx := len(inf.members)
	inf.members = append(inf.members, e)
	inf.parent = append(inf.parent, idx)
	h := structuralHash(e)
	inf.buckets[h] = append(inf.buckets[h], idx)
	return idx
}

func (inf *Inference) lookup(e expr.Node) (int, bool) {
	h := structuralHash(e)
	for _, idx := range inf.buckets[h] {
		if inf.members[idx].Equal(e) {
			return idx, true
		}
	}
	return 0, false
}

func (inf *Inference) find(i int) int {
	for inf.parent[i] != i {
		inf.parent[i] = inf.parent[inf.parent[i]]
		i = inf.parent[i]
	}
	return i
}

func (inf *Inference) union(a, b int) {
	ra, rb := inf.find(a), inf.find(b)
	if ra != rb {
		inf.parent[ra] = rb
	}
}

func freeSymbolsSubsetOf(e expr.Node, scope *symbol.Set) bool {
	for _, s := range expr.FreeSymbols(e).List() {
		if !scope.Contains(s) {
			return false
		}
	}
	return true
}

func freeSymbolsDisjointFrom(e expr.Node, scope *symbol.Set) bool {
	for _, s := range expr.FreeSymbols(e).List() {
		if scope.Contains(s) {
			return false
		}
	}
	return true
}

// Rewrite implements spec §4.2 `rewrite(e, scope)`: returns an expression
// semantically equal to e whose free symbols are a subset of scope, or
// ok=false if no such rewrite exists.
func (inf *Inference) Rewrite(e expr.Node, scope *symbol.Set) (expr.Node, bool) {
	if freeSymbolsSubsetOf(e, scope) {
		return e, true
	}
	if idx, ok := inf.lookup(e); ok {
		if rep, ok := inf.representative(idx, scope); ok {
			return rep, true
		}
	}
	children := e.Children()
	if len(children) == 0 {
		return nil, false
	}
	newChildren := make([]expr.Node, len(children))
	for i, c := range children {
		nc, ok := inf.Rewrite(c, scope)
		if !ok {
			return nil, false
		}
		newChildren[i] = nc
	}
	nn, err := e.WithChildren(newChildren...)
	if err != nil {
		return nil, false
	}
	return nn, true
}

// representative picks the class member a rewrite should substitute in,
// preferring a bare symbol reference inside scope, then the candidate
// with fewest free symbols (spec §4.2).
func (inf *Inference) representative(classMember int, scope *symbol.Set) (expr.Node, bool) {
	root := inf.find(classMember)
	var best expr.Node
	bestIsRef := false
	bestCount := -1
	for i, m := range inf.members {
		if inf.find(i) != root || !freeSymbolsSubsetOf(m, scope) {
			continue
		}
		_, isRef := m.(*expr.SymbolRef)
		count := expr.FreeSymbols(m).Len()
		if best == nil || (isRef && !bestIsRef) || (isRef == bestIsRef && count < bestCount) {
			best, bestIsRef, bestCount = m, isRef, count
		}
	}
	return best, best != nil
}

// EqualityPartition is the output of generateEqualitiesPartitionedBy
// (spec §4.2).
type EqualityPartition struct {
	ScopeEqualities           []expr.Node
	ScopeComplementEqualities []expr.Node
	ScopeStraddlingEqualities []expr.Node
}

// GenerateEqualitiesPartitionedBy implements spec §4.2
// `generateEqualitiesPartitionedBy(scope)`.
func (inf *Inference) GenerateEqualitiesPartitionedBy(scope *symbol.Set) EqualityPartition {
	roots := make(map[int][]int)
	for i := range inf.members {
		r := inf.find(i)
		roots[r] = append(roots[r], i)
	}
	var out EqualityPartition
	for _, members := range roots {
		if len(members) < 2 {
			continue
		}
		var inScope, outScope, mixed []int
		for _, idx := range members {
			m := inf.members[idx]
			switch {
			case freeSymbolsSubsetOf(m, scope):
				inScope = append(inScope, idx)
			case freeSymbolsDisjointFrom(m, scope):
				outScope = append(outScope, idx)
			default:
				mixed = append(mixed, idx)
			}
		}
		out.ScopeEqualities = append(out.ScopeEqualities, chainEqualities(inf.members, inScope)...)
		out.ScopeComplementEqualities = append(out.ScopeComplementEqualities, chainEqualities(inf.members, outScope)...)
		switch {
		case len(inScope) > 0 && len(outScope) > 0:
			out.ScopeStraddlingEqualities = append(out.ScopeStraddlingEqualities, expr.NewEquals(inf.members[inScope[0]], inf.members[outScope[0]]))
		}
		anchor := -1
		if len(inScope) > 0 {
			anchor = inScope[0]
		} else if len(outScope) > 0 {
			anchor = outScope[0]
		}
		for _, idx := range mixed {
			if anchor >= 0 {
				out.ScopeStraddlingEqualities = append(out.ScopeStraddlingEqualities, expr.NewEquals(inf.members[anchor], inf.members[idx]))
			}
		}
	}
	return out
}

func chainEqualities(members []expr.Node, idxs []int) []expr.Node {
	if len(idxs) < 2 {
		return nil
	}
	anchor := members[idxs[0]]
	var out []expr.Node
	for _, idx := range idxs[1:] {
		out = append(out, expr.NewEquals(anchor, members[idx]))
	}
	return out
}

// NonInferrableConjuncts implements spec §4.2 `nonInferrableConjuncts(P)`:
// the conjuncts of P that are not themselves deterministic equalities.
func NonInferrableConjuncts(p expr.Node) []expr.Node {
	var out []expr.Node
	for _, c := range expr.Conjuncts(p) {
		if _, ok := expr.IsEquality(c); ok && expr.Deterministic(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}
