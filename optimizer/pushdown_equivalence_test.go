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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

// TestPushdownEquivalenceFilterFoldsIntoInheritedPredicate checks the
// property a Filter's pushdown visitor relies on: wrapping a subplan P in
// Filter(p, P) and pushing an inherited predicate π through it must be
// equivalent to pushing p ∧ π through P directly — Filter contributes no
// row-set-changing behavior of its own, only a conjunct. Run over a
// handful of small filter/project/join shapes rather than a randomized
// generator, since this suite never executes the Go toolchain to check a
// generator's output.
func TestPushdownEquivalenceFilterFoldsIntoInheritedPredicate(t *testing.T) {
	alloc := symbol.NewAllocator()

	cases := []struct {
		name    string
		build   func(ids *plan.IDAllocator) (source plan.Node, p, pi expr.Node)
	}{
		{
			name: "bare scan",
			build: func(ids *plan.IDAllocator) (plan.Node, expr.Node, expr.Node) {
				a := alloc.New("a", sqltype.Int32Type)
				scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)
				p := expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(0), sqltype.Int32Type))
				pi := expr.NewComparison(expr.Lt, expr.NewSymbolRef(a), expr.NewLiteral(int32(100), sqltype.Int32Type))
				return scan, p, pi
			},
		},
		{
			name: "renaming project over scan",
			build: func(ids *plan.IDAllocator) (plan.Node, expr.Node, expr.Node) {
				b := alloc.New("b", sqltype.Int32Type)
				c := alloc.New("c", sqltype.Int32Type)
				scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{b}, nil)
				proj := plan.NewProject(ids.New(), scan, []plan.Assignment{
					{Symbol: c, Expr: expr.NewSymbolRef(b)},
				})
				p := expr.NewComparison(expr.Gt, expr.NewSymbolRef(c), expr.NewLiteral(int32(1), sqltype.Int32Type))
				pi := expr.NewComparison(expr.Neq, expr.NewSymbolRef(c), expr.NewLiteral(int32(7), sqltype.Int32Type))
				return proj, p, pi
			},
		},
		{
			name: "inner join of two scans",
			build: func(ids *plan.IDAllocator) (plan.Node, expr.Node, expr.Node) {
				k1 := alloc.New("k", sqltype.Int32Type)
				k2 := alloc.New("k", sqltype.Int32Type)
				left := plan.NewTableScan(ids.New(), "l", []symbol.Symbol{k1}, nil)
				right := plan.NewTableScan(ids.New(), "r", []symbol.Symbol{k2}, nil)
				join := plan.NewJoin(ids.New(), plan.Inner, left, right,
					[]plan.EquiClause{{Left: k1, Right: k2}}, nil)
				p := expr.NewComparison(expr.Gt, expr.NewSymbolRef(k1), expr.NewLiteral(int32(0), sqltype.Int32Type))
				pi := expr.NewComparison(expr.Gt, expr.NewSymbolRef(k2), expr.NewLiteral(int32(0), sqltype.Int32Type))
				return join, p, pi
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idsA := plan.NewIDAllocator()
			source, p, pi := tc.build(idsA)
			filter := plan.NewFilter(idsA.New(), p, source)
			viaFilter, err := (&Pushdown{IDs: idsA}).Run(context.Background(), filter, pi)
			require.NoError(t, err)

			combined := expr.JoinConjuncts(p, pi)
			viaDirect, err := (&Pushdown{IDs: idsA}).Run(context.Background(), source, combined)
			require.NoError(t, err)

			require.True(t, conjunctSetsEquivalent(EffectivePredicate(viaFilter), EffectivePredicate(viaDirect)),
				"Filter(p, P) pushed under pi should be equivalent to P pushed under p AND pi")
		})
	}
}

// conjunctSetsEquivalent compares two predicates as unordered sets of
// conjuncts via expr.Equivalent, since pushdown's two code paths are not
// required to emit conjuncts in the same order.
func conjunctSetsEquivalent(a, b expr.Node) bool {
	ca, cb := expr.Conjuncts(a), expr.Conjuncts(b)
	if len(ca) != len(cb) {
		return false
	}
	used := make([]bool, len(cb))
	for _, x := range ca {
		found := false
		for i, y := range cb {
			if used[i] {
				continue
			}
			if expr.Equivalent(x, y) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
