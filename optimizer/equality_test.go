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
	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

func TestInferenceRewriteSubstitutesEquivalentSymbol(t *testing.T) {
	alloc := symbol.NewAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)

	predicate := expr.NewEquals(expr.NewSymbolRef(a), expr.NewSymbolRef(b))
	inf := NewInference(predicate)

	scope := symbol.NewSet(b)
	rewritten, ok := inf.Rewrite(expr.NewSymbolRef(a), scope)
	require.True(t, ok)
	ref, ok := rewritten.(*expr.SymbolRef)
	require.True(t, ok)
	require.True(t, ref.Symbol.Equal(b))
}

func TestInferenceRewriteFailsWithoutEquivalence(t *testing.T) {
	alloc := symbol.NewAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)

	inf := NewInference(nil)
	_, ok := inf.Rewrite(expr.NewSymbolRef(a), symbol.NewSet(b))
	require.False(t, ok)
}

func TestGenerateEqualitiesPartitionedBySplitsByScope(t *testing.T) {
	alloc := symbol.NewAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)
	c := alloc.New("c", sqltype.Int32Type)

	predicate := expr.JoinConjuncts(
		expr.NewEquals(expr.NewSymbolRef(a), expr.NewSymbolRef(b)),
		expr.NewEquals(expr.NewSymbolRef(b), expr.NewSymbolRef(c)),
	)
	inf := NewInference(predicate)
	partition := inf.GenerateEqualitiesPartitionedBy(symbol.NewSet(a, b))

	require.NotEmpty(t, partition.ScopeEqualities)
	require.NotEmpty(t, partition.ScopeStraddlingEqualities)
	require.Empty(t, partition.ScopeComplementEqualities)
}

func TestNonInferrableConjunctsExcludesEqualities(t *testing.T) {
	alloc := symbol.NewAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)

	gt := expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(0), sqltype.Int32Type))
	eq := expr.NewEquals(expr.NewSymbolRef(a), expr.NewSymbolRef(b))
	predicate := expr.JoinConjuncts(gt, eq)

	out := NonInferrableConjuncts(predicate)
	require.Len(t, out, 1)
	require.Same(t, gt, out[0])
}
