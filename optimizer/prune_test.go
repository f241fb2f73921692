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

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

// symbolNames extracts the comparable surface of a symbol list for
// cmp.Diff, since Symbol's own fields aren't exported.
func symbolNames(syms []symbol.Symbol) []string {
	names := make([]string, len(syms))
	for i, s := range syms {
		names[i] = s.String()
	}
	return names
}

func TestPruneProjectDropsUnusedAssignment(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a, b}, nil)
	proj := plan.NewProject(ids.New(), scan, []plan.Assignment{
		{Symbol: a, Expr: expr.NewSymbolRef(a)},
		{Symbol: b, Expr: expr.NewSymbolRef(b)},
	})

	out, err := Prune(proj, symbol.NewSet(a))
	require.NoError(t, err)
	p := out.(*plan.Project)
	require.Len(t, p.Assignments, 1)
	require.True(t, p.Assignments[0].Symbol.Equal(a))

	source := p.Source.(*plan.TableScan)
	require.Len(t, source.Outputs(), 1)
}

func TestPruneIsIdempotent(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a, b}, nil)
	proj := plan.NewProject(ids.New(), scan, []plan.Assignment{
		{Symbol: a, Expr: expr.NewSymbolRef(a)},
	})

	once, err := Prune(proj, symbol.NewSet(a))
	require.NoError(t, err)
	twice, err := Prune(once, symbol.NewSet(a))
	require.NoError(t, err)
	require.Equal(t, once.String(), twice.String())

	if diff := cmp.Diff(symbolNames(once.Outputs()), symbolNames(twice.Outputs())); diff != "" {
		t.Errorf("a second Prune pass changed the output symbol list (-once +twice):\n%s", diff)
	}
}

func TestPruneSemiJoinWithUnusedMarkerCollapsesToSource(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	k1 := alloc.New("k", sqltype.Int32Type)
	k2 := alloc.New("k", sqltype.Int32Type)
	x := alloc.New("x", sqltype.Int32Type)
	marker := alloc.New("marker", sqltype.BooleanType)

	source := plan.NewTableScan(ids.New(), "l", []symbol.Symbol{k1, x}, nil)
	filtering := plan.NewTableScan(ids.New(), "r", []symbol.Symbol{k2}, nil)
	sj := plan.NewSemiJoin(ids.New(), source, filtering, k1, k2)
	sj.Marker = &marker

	out, err := Prune(sj, symbol.NewSet(x))
	require.NoError(t, err)
	_, isSemiJoin := out.(*plan.SemiJoin)
	require.False(t, isSemiJoin)
}
