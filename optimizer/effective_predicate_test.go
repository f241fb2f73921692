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

func TestEffectivePredicateOfFilterIncludesItsPredicate(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)
	pred := expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(5), sqltype.Int32Type))
	filter := plan.NewFilter(ids.New(), pred, scan)

	got := EffectivePredicate(filter)
	require.NotNil(t, got)
	require.Contains(t, got.String(), a.String())
}

func TestEffectivePredicateOfTableScanWithNoConstraintIsNil(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)

	require.Nil(t, EffectivePredicate(scan))
}

func TestEffectivePredicateOfAggregationIsRestrictedToGroupingKeys(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	k := alloc.New("k", sqltype.Int32Type)
	v := alloc.New("v", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{k, v}, nil)
	pred := expr.NewComparison(expr.Gt, expr.NewSymbolRef(v), expr.NewLiteral(int32(5), sqltype.Int32Type))
	filter := plan.NewFilter(ids.New(), pred, scan)
	agg := plan.NewAggregation(ids.New(), filter, []symbol.Symbol{k}, nil)

	got := EffectivePredicate(agg)
	if got != nil {
		require.NotContains(t, got.String(), v.String())
	}
}

func TestEffectivePredicateOfValuesUnionsPerColumnLiteralDomains(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)
	values := plan.NewValues(ids.New(), []symbol.Symbol{a, b}, [][]expr.Node{
		{expr.NewLiteral(int32(1), sqltype.Int32Type), expr.NewLiteral(int32(10), sqltype.Int32Type)},
		{expr.NewLiteral(int32(2), sqltype.Int32Type), expr.NewLiteral(int32(20), sqltype.Int32Type)},
	})

	got := EffectivePredicate(values)
	require.NotNil(t, got)
	require.Contains(t, got.String(), a.String())
	require.Contains(t, got.String(), b.String())
}

func TestEffectivePredicateOfValuesDropsColumnWithNonLiteralRow(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)
	nondeterministic := expr.NewFunctionCall("rand", false, sqltype.Int32Type)
	values := plan.NewValues(ids.New(), []symbol.Symbol{a, b}, [][]expr.Node{
		{expr.NewLiteral(int32(1), sqltype.Int32Type), nondeterministic},
		{expr.NewLiteral(int32(2), sqltype.Int32Type), expr.NewLiteral(int32(20), sqltype.Int32Type)},
	})

	got := EffectivePredicate(values)
	require.NotNil(t, got)
	require.Contains(t, got.String(), a.String())
	require.NotContains(t, got.String(), b.String())
}

func TestEffectivePredicateOfInnerJoinCombinesBothSides(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)
	leftScan := plan.NewTableScan(ids.New(), "l", []symbol.Symbol{a}, nil)
	leftFilter := plan.NewFilter(ids.New(),
		expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(0), sqltype.Int32Type)),
		leftScan)
	rightScan := plan.NewTableScan(ids.New(), "r", []symbol.Symbol{b}, nil)
	join := plan.NewJoin(ids.New(), plan.Inner, leftFilter, rightScan, nil, nil)

	got := EffectivePredicate(join)
	require.NotNil(t, got)
	require.Contains(t, got.String(), a.String())
}
