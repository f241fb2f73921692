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

func TestPushdownStopsAtTableScanAsResidualFilter(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)

	pd := &Pushdown{IDs: ids}
	pred := expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(5), sqltype.Int32Type))
	out, err := pd.Run(context.Background(), scan, pred)
	require.NoError(t, err)

	filter, ok := out.(*plan.Filter)
	require.True(t, ok, "expected a residual Filter above the TableScan, got %T", out)
	require.Equal(t, scan, filter.Source)
}

func TestPushdownInlinesRenamingProjectionThenPushesThroughToScan(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	b := alloc.New("b", sqltype.Int32Type)
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{b}, nil)
	proj := plan.NewProject(ids.New(), scan, []plan.Assignment{
		{Symbol: a, Expr: expr.NewSymbolRef(b)},
	})

	pd := &Pushdown{IDs: ids}
	pred := expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(5), sqltype.Int32Type))
	out, err := pd.Run(context.Background(), proj, pred)
	require.NoError(t, err)

	p, ok := out.(*plan.Project)
	require.True(t, ok, "expected the rewrite to stay rooted at the Project, got %T", out)
	filter, ok := p.Source.(*plan.Filter)
	require.True(t, ok, "expected the renamed predicate pushed below the Project as a Filter over b, got %T", p.Source)
	refs := expr.FreeSymbols(filter.Predicate)
	require.True(t, refs.Contains(b))
	require.False(t, refs.Contains(a))
}

func TestPushdownTrueLiteralIsNoOp(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)

	pd := &Pushdown{IDs: ids}
	out, err := pd.Run(context.Background(), scan, expr.TrueLiteral)
	require.NoError(t, err)
	require.Equal(t, scan, out)
}
