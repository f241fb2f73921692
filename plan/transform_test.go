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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

func TestTransformUpRebuildsOnlyChangedAncestors(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := NewTableScan(ids.New(), "t", []symbol.Symbol{a}, map[uint64]string{a.ID(): "a"})
	filter := NewFilter(ids.New(), expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(5), sqltype.Int32Type)), scan)

	visited := 0
	out, err := TransformUp(filter, func(n Node) (Node, error) {
		visited++
		return n, nil
	})
	require.NoError(t, err)
	require.Same(t, filter, out)
	require.Equal(t, 2, visited)
}

func TestWalkVisitsEveryNode(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)
	proj := NewProject(ids.New(), scan, []Assignment{{Symbol: a, Expr: expr.NewSymbolRef(a)}})

	var seen []Node
	Walk(proj, func(n Node) bool {
		seen = append(seen, n)
		return true
	})
	require.Len(t, seen, 2)
}

func TestTransformExpressionsUpRewritesFilterPredicate(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)
	filter := NewFilter(ids.New(), expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(5), sqltype.Int32Type)), scan)

	out, err := TransformExpressionsUp(filter, func(n expr.Node) (expr.Node, error) {
		if lit, ok := n.(*expr.Literal); ok && lit.Value == int32(5) {
			return expr.NewLiteral(int32(10), sqltype.Int32Type), nil
		}
		return n, nil
	})
	require.NoError(t, err)
	rewritten := out.(*Filter)
	cmp := rewritten.Predicate.(*expr.Comparison)
	lit := cmp.Right.(*expr.Literal)
	require.Equal(t, int32(10), lit.Value)
}

func TestJoinOutputsConcatenatesLeftAndRight(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := NewIDAllocator()
	k1 := alloc.New("k", sqltype.Int32Type)
	k2 := alloc.New("k", sqltype.Int32Type)
	x := alloc.New("x", sqltype.Int32Type)
	left := NewTableScan(ids.New(), "l", []symbol.Symbol{k1, x}, nil)
	right := NewTableScan(ids.New(), "r", []symbol.Symbol{k2}, nil)
	join := NewJoin(ids.New(), Inner, left, right, []EquiClause{{Left: k1, Right: k2}}, nil)
	require.Len(t, join.Outputs(), 3)
	require.True(t, join.GetFilter().(*expr.Comparison).Left.(*expr.SymbolRef).Symbol.Equal(k1))
}

func TestAggregationOutputsIncludeGroupIDSymbol(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := NewIDAllocator()
	k := alloc.New("k", sqltype.Int32Type)
	gid := alloc.New("gid", sqltype.Int32Type)
	scan := NewTableScan(ids.New(), "t", []symbol.Symbol{k}, nil)
	agg := NewAggregation(ids.New(), scan, []symbol.Symbol{k}, nil)
	agg.GroupIDSymbol = &gid
	require.Len(t, agg.Outputs(), 2)
}
