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

func TestValidatePassesOnCleanPlan(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)
	filter := plan.NewFilter(ids.New(),
		expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(5), sqltype.Int32Type)),
		scan)

	require.NoError(t, Validate(filter))
}

func TestValidateRejectsJoinWithoutDistribution(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	k1 := alloc.New("k", sqltype.Int32Type)
	k2 := alloc.New("k", sqltype.Int32Type)
	left := plan.NewTableScan(ids.New(), "l", []symbol.Symbol{k1}, nil)
	right := plan.NewTableScan(ids.New(), "r", []symbol.Symbol{k2}, nil)
	join := plan.NewJoin(ids.New(), plan.Inner, left, right, []plan.EquiClause{{Left: k1, Right: k2}}, nil)

	err := Validate(join)
	require.Error(t, err)
}

func TestValidateRejectsApplyNode(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	input := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)
	sub := plan.NewTableScan(ids.New(), "s", []symbol.Symbol{a}, nil)
	apply := plan.NewApply(ids.New(), input, sub, []symbol.Symbol{a}, plan.ScalarSubquery)

	err := Validate(apply)
	require.Error(t, err)
}

func TestValidateRejectsOutOfScopeSymbol(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	other := alloc.New("other", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)
	filter := plan.NewFilter(ids.New(),
		expr.NewComparison(expr.Gt, expr.NewSymbolRef(other), expr.NewLiteral(int32(5), sqltype.Int32Type)),
		scan)

	err := Validate(filter)
	require.Error(t, err)
}
