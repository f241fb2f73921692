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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

// TestUnaliasRewritesFilterThroughIdentityProjection mirrors spec §4.7's
// own example: Project(a := b, Filter(a > 5, Scan{b,c})) unaliases the
// filter's reference to a into b.
func TestUnaliasRewritesFilterThroughIdentityProjection(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)
	c := alloc.New("c", sqltype.Int32Type)

	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{b, c}, nil)
	filter := plan.NewFilter(ids.New(),
		expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(5), sqltype.Int32Type)),
		scan)
	proj := plan.NewProject(ids.New(), filter, []plan.Assignment{
		{Symbol: a, Expr: expr.NewSymbolRef(b)},
	})

	out, err := Unalias(proj)
	require.NoError(t, err)

	p := out.(*plan.Project)
	f := p.Source.(*plan.Filter)
	cmp := f.Predicate.(*expr.Comparison)
	ref := cmp.Left.(*expr.SymbolRef)
	require.True(t, ref.Symbol.Equal(b))
}

func TestUnaliasIsIdempotent(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)

	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{b}, nil)
	proj := plan.NewProject(ids.New(), scan, []plan.Assignment{
		{Symbol: a, Expr: expr.NewSymbolRef(b)},
	})

	once, err := Unalias(proj)
	require.NoError(t, err)
	twice, err := Unalias(once)
	require.NoError(t, err)
	require.Equal(t, once.String(), twice.String())
}

// TestUnaliasMergesDuplicateComputedAssignmentsAndLeavesScopeValid mirrors
// Project(a := x+1, b := x+1): a and b compute the same expression, so an
// ancestor reference to b must be rewritten to a rather than left dangling
// once Prune later drops b's now-redundant assignment.
func TestUnaliasMergesDuplicateComputedAssignmentsAndLeavesScopeValid(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	x := alloc.New("x", sqltype.Int32Type)
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)

	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{x}, nil)
	plusOne := func() expr.Node {
		return expr.NewArithmetic(expr.Add, expr.NewSymbolRef(x), expr.NewLiteral(int32(1), sqltype.Int32Type), sqltype.Int32Type)
	}
	proj := plan.NewProject(ids.New(), scan, []plan.Assignment{
		{Symbol: a, Expr: plusOne()},
		{Symbol: b, Expr: plusOne()},
	})
	filter := plan.NewFilter(ids.New(),
		expr.NewComparison(expr.Gt, expr.NewSymbolRef(b), expr.NewLiteral(int32(0), sqltype.Int32Type)),
		proj)

	out, err := Unalias(filter)
	require.NoError(t, err)

	f := out.(*plan.Filter)
	cmp := f.Predicate.(*expr.Comparison)
	ref := cmp.Left.(*expr.SymbolRef)
	require.True(t, ref.Symbol.Equal(a), "filter's reference to b should be rewritten to a, the canonical symbol for the shared expression")

	p := f.Source.(*plan.Project)
	require.NoError(t, Validate(p))
}

func TestUnaliasMergesInnerJoinEquiClauseSymbols(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	k1 := alloc.New("k", sqltype.Int32Type)
	k2 := alloc.New("k", sqltype.Int32Type)

	left := plan.NewTableScan(ids.New(), "l", []symbol.Symbol{k1}, nil)
	right := plan.NewTableScan(ids.New(), "r", []symbol.Symbol{k2}, nil)
	join := plan.NewJoin(ids.New(), plan.Inner, left, right, []plan.EquiClause{{Left: k1, Right: k2}}, nil)
	filter := plan.NewFilter(ids.New(),
		expr.NewComparison(expr.Gt, expr.NewSymbolRef(k2), expr.NewLiteral(int32(0), sqltype.Int32Type)),
		join)

	out, err := Unalias(filter)
	require.NoError(t, err)
	f := out.(*plan.Filter)
	cmp := f.Predicate.(*expr.Comparison)
	ref := cmp.Left.(*expr.SymbolRef)
	require.True(t, ref.Symbol.Equal(k1))
}
