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

package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

func noResolver(symbol.Symbol) (any, bool) { return nil, false }

func TestInterpreterAndShortCircuitsOnFalse(t *testing.T) {
	alloc := symbol.NewAllocator()
	x := alloc.New("x", sqltype.BooleanType)
	ref := NewSymbolRef(x)

	// FALSE AND x must not require resolving x at all.
	e := NewAnd(FalseLiteral, ref)
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, noResolver)
	require.True(t, out.IsValue)
	require.Equal(t, false, out.Value)
}

func TestInterpreterOrShortCircuitsOnTrue(t *testing.T) {
	alloc := symbol.NewAllocator()
	x := alloc.New("x", sqltype.BooleanType)
	e := NewOr(TrueLiteral, NewSymbolRef(x))
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, noResolver)
	require.True(t, out.IsValue)
	require.Equal(t, true, out.Value)
}

func TestInterpreterNullPropagatesThroughAnd(t *testing.T) {
	alloc := symbol.NewAllocator()
	x := alloc.New("x", sqltype.BooleanType)
	ref := NewSymbolRef(x)
	resolve := func(s symbol.Symbol) (any, bool) {
		if s.Equal(x) {
			return true, true
		}
		return nil, false
	}
	e := NewAnd(NullLiteral(sqltype.BooleanType), ref)
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, resolve)
	require.True(t, out.IsValue)
	require.Nil(t, out.Value)
}

func TestInterpreterIsDistinctFromTreatsNullAsEqual(t *testing.T) {
	e := NewComparison(IsDistinctFrom, NullLiteral(sqltype.Int32Type), NullLiteral(sqltype.Int32Type))
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, noResolver)
	require.True(t, out.IsValue)
	require.Equal(t, false, out.Value)
}

func TestInterpreterLikeWithoutWildcardsRewritesToEquals(t *testing.T) {
	alloc := symbol.NewAllocator()
	x := alloc.New("x", sqltype.TextType)
	resolve := func(s symbol.Symbol) (any, bool) {
		if s.Equal(x) {
			return "abc", true
		}
		return nil, false
	}
	e := NewLike(NewSymbolRef(x), NewLiteral("abc", sqltype.TextType))
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, resolve)
	require.True(t, out.IsValue)
	require.Equal(t, true, out.Value)
}

func TestInterpreterLikeWithWildcardsCachesCompiledPattern(t *testing.T) {
	alloc := symbol.NewAllocator()
	x := alloc.New("x", sqltype.TextType)
	resolve := func(s symbol.Symbol) (any, bool) {
		if s.Equal(x) {
			return "hello world", true
		}
		return nil, false
	}
	like := NewLike(NewSymbolRef(x), NewLiteral("hello%", sqltype.TextType))
	ip := NewInterpreter(nil)
	out := ip.Optimize(like, resolve)
	require.True(t, out.IsValue)
	require.Equal(t, true, out.Value)
	require.Len(t, ip.likeCache, 1)
}

func TestInterpreterDivisionByZeroDefersFailure(t *testing.T) {
	e := NewArithmetic(Div, NewLiteral(int32(1), sqltype.Int32Type), NewLiteral(int32(0), sqltype.Int32Type), sqltype.Int32Type)
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, noResolver)
	require.False(t, out.IsValue)
	require.True(t, IsFailExpr(out.Residual))
}

func TestInterpreterDeferredFailureNeverForcedBySurroundingAnd(t *testing.T) {
	// FALSE AND (1/0 = 1) must short-circuit to FALSE without ever
	// forcing the division-by-zero branch to be evaluated as an error.
	failing := NewComparison(Eq,
		NewArithmetic(Div, NewLiteral(int32(1), sqltype.Int32Type), NewLiteral(int32(0), sqltype.Int32Type), sqltype.Int32Type),
		NewLiteral(int32(1), sqltype.Int32Type))
	e := NewAnd(FalseLiteral, failing)
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, noResolver)
	require.True(t, out.IsValue)
	require.Equal(t, false, out.Value)
}

func TestInterpreterCoalesceDropsLeadingNulls(t *testing.T) {
	e := NewCoalesce(sqltype.Int32Type, NullLiteral(sqltype.Int32Type), NullLiteral(sqltype.Int32Type), NewLiteral(int32(7), sqltype.Int32Type))
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, noResolver)
	require.True(t, out.IsValue)
	require.Equal(t, int32(7), out.Value)
}

func TestInterpreterCaseEvaluatesInOrder(t *testing.T) {
	c := NewSearchedCase([]WhenClause{
		{Cond: FalseLiteral, Result: NewLiteral(int32(1), sqltype.Int32Type)},
		{Cond: TrueLiteral, Result: NewLiteral(int32(2), sqltype.Int32Type)},
		{Cond: TrueLiteral, Result: NewLiteral(int32(3), sqltype.Int32Type)},
	}, NewLiteral(int32(4), sqltype.Int32Type), sqltype.Int32Type)
	ip := NewInterpreter(nil)
	out := ip.Optimize(c, noResolver)
	require.True(t, out.IsValue)
	require.Equal(t, int32(2), out.Value)
}

func TestInterpreterCastUsesCast(t *testing.T) {
	e := NewCast(NewLiteral("42", sqltype.TextType), sqltype.Int32Type)
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, noResolver)
	require.True(t, out.IsValue)
	require.Equal(t, int32(42), out.Value)
}

func TestInterpreterInRewritesToDisjunctionOfEqualities(t *testing.T) {
	alloc := symbol.NewAllocator()
	x := alloc.New("x", sqltype.Int32Type)
	resolve := func(s symbol.Symbol) (any, bool) {
		if s.Equal(x) {
			return int32(2), true
		}
		return nil, false
	}
	e := NewIn(NewSymbolRef(x), NewLiteral(int32(1), sqltype.Int32Type), NewLiteral(int32(2), sqltype.Int32Type))
	ip := NewInterpreter(nil)
	out := ip.Optimize(e, resolve)
	require.True(t, out.IsValue)
	require.Equal(t, true, out.Value)
}

func TestInterpreterFunctionCallFoldsThroughInvoker(t *testing.T) {
	invoke := func(name string, args []any) (any, error) {
		require.Equal(t, "upper", name)
		return "ABC", nil
	}
	e := NewFunctionCall("upper", true, sqltype.TextType, NewLiteral("abc", sqltype.TextType))
	ip := NewInterpreter(invoke)
	out := ip.Optimize(e, noResolver)
	require.True(t, out.IsValue)
	require.Equal(t, "ABC", out.Value)
}

func TestInterpreterNonDeterministicFunctionNeverFolds(t *testing.T) {
	calls := 0
	invoke := func(name string, args []any) (any, error) {
		calls++
		return 1, nil
	}
	e := NewFunctionCall("rand", false, sqltype.Float64Type)
	ip := NewInterpreter(invoke)
	out := ip.Optimize(e, noResolver)
	require.False(t, out.IsValue)
	require.Equal(t, 0, calls)
}
