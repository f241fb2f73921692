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
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

// Resolver answers "what is the current value of this symbol" during
// partial evaluation. known=false means the value is not statically
// determinable (spec §4.1: "a symbol→value resolver").
type Resolver func(symbol.Symbol) (value any, known bool)

// FuncInvoker calls the catalog-supplied scalar implementation of a
// deterministic function (spec §6.1 GetScalarFunctionImplementation).
// The core never implements functions itself; a nil Invoker means no
// function call is ever folded to a value, only simplified structurally.
type FuncInvoker func(name string, args []any) (any, error)

// Outcome is the result of Optimize: either a concrete value (IsValue,
// Value possibly nil for SQL NULL) or a (possibly smaller) residual
// expression tree.
type Outcome struct {
	IsValue  bool
	Value    any
	Residual Node
}

func valueOutcome(v any) Outcome    { return Outcome{IsValue: true, Value: v} }
func residualOutcome(n Node) Outcome { return Outcome{Residual: n} }

// ToNode materializes an Outcome back into an expression tree node,
// needed whenever a partially-evaluated sub-result must be threaded back
// into a still-residual parent.
func (o Outcome) ToNode(t sqltype.Type) Node {
	if o.IsValue {
		return &Literal{Value: o.Value, Typ: t}
	}
	return o.Residual
}

// Interpreter implements spec §4.1.
type Interpreter struct {
	Invoke FuncInvoker

	// likeCache is an identity-keyed cache of compiled LIKE patterns,
	// keyed by the address of the *Like node whose literal pattern was
	// compiled (spec §4.1: "compile pattern once (identity-keyed
	// cache)"). It is scoped to one Interpreter instance, which in turn
	// is scoped to one query compilation (spec §9).
	likeCache map[*Like]*regexp.Regexp
}

// NewInterpreter builds an Interpreter. invoke may be nil.
func NewInterpreter(invoke FuncInvoker) *Interpreter {
	return &Interpreter{Invoke: invoke, likeCache: make(map[*Like]*regexp.Regexp)}
}

// Optimize implements the contract of spec §4.1.
func (ip *Interpreter) Optimize(e Node, resolve Resolver) Outcome {
	switch n := e.(type) {
	case *Literal:
		return valueOutcome(n.Value)
	case *SymbolRef:
		if v, ok := resolve(n.Symbol); ok {
			return valueOutcome(v)
		}
		return residualOutcome(n)
	case *Logical:
		return ip.optimizeLogical(n, resolve)
	case *Comparison:
		return ip.optimizeComparison(n, resolve)
	case *Arithmetic:
		return ip.optimizeArithmetic(n, resolve)
	case *IsNullTest:
		return ip.optimizeIsNull(n, resolve)
	case *Coalesce:
		return ip.optimizeCoalesce(n, resolve)
	case *If:
		return ip.optimizeIf(n, resolve)
	case *Case:
		return ip.optimizeCase(n, resolve)
	case *Cast:
		return ip.optimizeCast(n, resolve)
	case *Between:
		return ip.Optimize(n.AsRange(), resolve)
	case *Like:
		return ip.optimizeLike(n, resolve)
	case *In:
		return ip.Optimize(n.AsDisjunction(), resolve)
	case *FunctionCall:
		return ip.optimizeFunctionCall(n, resolve)
	default:
		// Rows, subscripts, lambdas, and the pre-planning-only forms are
		// not foldable here; return as-is after attempting to optimize
		// children structurally.
		return ip.optimizeStructurally(e, resolve)
	}
}

func (ip *Interpreter) optimizeStructurally(e Node, resolve Resolver) Outcome {
	children := e.Children()
	if len(children) == 0 {
		return residualOutcome(e)
	}
	newChildren := make([]Node, len(children))
	changed := false
	for i, c := range children {
		out := ip.Optimize(c, resolve)
		nc := out.ToNode(c.Type())
		newChildren[i] = nc
		if nc != c {
			changed = true
		}
	}
	if !changed {
		return residualOutcome(e)
	}
	nn, err := e.WithChildren(newChildren...)
	if err != nil {
		return residualOutcome(e)
	}
	return residualOutcome(nn)
}

func (ip *Interpreter) optimizeLogical(n *Logical, resolve Resolver) Outcome {
	switch n.Op {
	case Not:
		out := ip.Optimize(n.Args[0], resolve)
		if out.IsValue {
			if out.Value == nil {
				return valueOutcome(nil)
			}
			return valueOutcome(!out.Value.(bool))
		}
		return residualOutcome(NewNot(out.Residual))
	case And:
		hasNull := false
		var residuals []Node
		for _, arg := range n.Args {
			out := ip.Optimize(arg, resolve)
			if out.IsValue {
				if out.Value == false {
					return valueOutcome(false)
				}
				if out.Value == nil {
					hasNull = true
				}
				// true is the AND identity; drop it.
				continue
			}
			residuals = append(residuals, out.Residual)
		}
		if len(residuals) == 0 {
			if hasNull {
				return valueOutcome(nil)
			}
			return valueOutcome(true)
		}
		if hasNull {
			residuals = append(residuals, NullLiteral(sqltype.BooleanType))
		}
		return residualOutcome(NewAnd(residuals...))
	case Or:
		hasNull := false
		var residuals []Node
		for _, arg := range n.Args {
			out := ip.Optimize(arg, resolve)
			if out.IsValue {
				if out.Value == true {
					return valueOutcome(true)
				}
				if out.Value == nil {
					hasNull = true
				}
				continue
			}
			residuals = append(residuals, out.Residual)
		}
		if len(residuals) == 0 {
			if hasNull {
				return valueOutcome(nil)
			}
			return valueOutcome(false)
		}
		if hasNull {
			residuals = append(residuals, NullLiteral(sqltype.BooleanType))
		}
		return residualOutcome(NewOr(residuals...))
	}
	return residualOutcome(n)
}

func (ip *Interpreter) optimizeComparison(n *Comparison, resolve Resolver) Outcome {
	l := ip.Optimize(n.Left, resolve)
	r := ip.Optimize(n.Right, resolve)
	if n.Op == IsDistinctFrom {
		if l.IsValue && r.IsValue {
			return valueOutcome(!valuesEqual(l.Value, r.Value))
		}
		return residualOutcome(&Comparison{Op: n.Op, Left: l.ToNode(n.Left.Type()), Right: r.ToNode(n.Right.Type())})
	}
	if l.IsValue && l.Value == nil {
		return valueOutcome(nil)
	}
	if r.IsValue && r.Value == nil {
		return valueOutcome(nil)
	}
	if l.IsValue && r.IsValue {
		cmp, ok := compareValues(l.Value, r.Value)
		if !ok {
			return residualOutcome(failExpr(fmt.Sprintf("cannot compare %v and %v", l.Value, r.Value)))
		}
		switch n.Op {
		case Eq:
			return valueOutcome(cmp == 0)
		case Neq:
			return valueOutcome(cmp != 0)
		case Lt:
			return valueOutcome(cmp < 0)
		case Lte:
			return valueOutcome(cmp <= 0)
		case Gt:
			return valueOutcome(cmp > 0)
		case Gte:
			return valueOutcome(cmp >= 0)
		}
	}
	return residualOutcome(&Comparison{Op: n.Op, Left: l.ToNode(n.Left.Type()), Right: r.ToNode(n.Right.Type())})
}

func (ip *Interpreter) optimizeArithmetic(n *Arithmetic, resolve Resolver) Outcome {
	l := ip.Optimize(n.Left, resolve)
	r := ip.Optimize(n.Right, resolve)
	if (l.IsValue && l.Value == nil) || (r.IsValue && r.Value == nil) {
		return valueOutcome(nil)
	}
	if l.IsValue && r.IsValue {
		lf, err1 := cast.ToFloat64E(l.Value)
		rf, err2 := cast.ToFloat64E(r.Value)
		if err1 != nil || err2 != nil {
			return residualOutcome(failExpr(fmt.Sprintf("non-numeric operand in arithmetic: %v, %v", l.Value, r.Value)))
		}
		switch n.Op {
		case Add:
			return valueOutcome(numericResult(n.Typ, lf+rf))
		case Sub:
			return valueOutcome(numericResult(n.Typ, lf-rf))
		case Mul:
			return valueOutcome(numericResult(n.Typ, lf*rf))
		case Div:
			if rf == 0 {
				return residualOutcome(failExpr("division by zero"))
			}
			return valueOutcome(numericResult(n.Typ, lf/rf))
		case Mod:
			if rf == 0 {
				return residualOutcome(failExpr("division by zero"))
			}
			mod := lf - rf*float64(int64(lf/rf))
			return valueOutcome(numericResult(n.Typ, mod))
		}
	}
	return residualOutcome(&Arithmetic{Op: n.Op, Left: l.ToNode(n.Left.Type()), Right: r.ToNode(n.Right.Type()), Typ: n.Typ})
}

func numericResult(t sqltype.Type, f float64) any {
	switch t.Kind {
	case sqltype.Integer, sqltype.SmallInt, sqltype.TinyInt:
		return int32(f)
	case sqltype.BigInt:
		return int64(f)
	default:
		return f
	}
}

func (ip *Interpreter) optimizeIsNull(n *IsNullTest, resolve Resolver) Outcome {
	out := ip.Optimize(n.Arg, resolve)
	if out.IsValue {
		isNull := out.Value == nil
		if n.Negated {
			return valueOutcome(!isNull)
		}
		return valueOutcome(isNull)
	}
	return residualOutcome(&IsNullTest{Arg: out.Residual, Negated: n.Negated})
}

func (ip *Interpreter) optimizeCoalesce(n *Coalesce, resolve Resolver) Outcome {
	var kept []Node
	for _, arg := range n.Args {
		out := ip.Optimize(arg, resolve)
		if out.IsValue {
			if out.Value == nil {
				continue
			}
			kept = append(kept, &Literal{Value: out.Value, Typ: n.Typ})
			break
		}
		kept = append(kept, out.Residual)
	}
	if len(kept) == 0 {
		return valueOutcome(nil)
	}
	if len(kept) == 1 {
		if lit, ok := kept[0].(*Literal); ok {
			return valueOutcome(lit.Value)
		}
		return residualOutcome(kept[0])
	}
	return residualOutcome(&Coalesce{Args: kept, Typ: n.Typ})
}

func (ip *Interpreter) optimizeIf(n *If, resolve Resolver) Outcome {
	cond := ip.Optimize(n.Cond, resolve)
	if cond.IsValue {
		if cond.Value == true {
			return ip.Optimize(n.Then, resolve)
		}
		return ip.Optimize(n.Else, resolve)
	}
	then := ip.Optimize(n.Then, resolve)
	els := ip.Optimize(n.Else, resolve)
	return residualOutcome(&If{
		Cond: cond.Residual,
		Then: then.ToNode(n.Typ),
		Else: els.ToNode(n.Typ),
		Typ:  n.Typ,
	})
}

func (ip *Interpreter) optimizeCase(n *Case, resolve Resolver) Outcome {
	var operand *Outcome
	if n.Operand != nil {
		o := ip.Optimize(n.Operand, resolve)
		operand = &o
	}
	var remaining []WhenClause
	for _, w := range n.Whens {
		cond := w.Cond
		if operand != nil {
			cond = NewEquals(operand.ToNode(n.Operand.Type()), w.Cond)
		}
		out := ip.Optimize(cond, resolve)
		if out.IsValue {
			if out.Value == true {
				if len(remaining) == 0 {
					return ip.Optimize(w.Result, resolve)
				}
				remaining = append(remaining, WhenClause{Cond: TrueLiteral, Result: ip.Optimize(w.Result, resolve).ToNode(n.Typ)})
				break
			}
			// false or null: this arm never fires, drop it.
			continue
		}
		remaining = append(remaining, WhenClause{Cond: out.Residual, Result: ip.Optimize(w.Result, resolve).ToNode(n.Typ)})
	}
	var els Node
	if n.Else != nil {
		els = ip.Optimize(n.Else, resolve).ToNode(n.Typ)
	}
	if len(remaining) == 0 {
		if els != nil {
			if lit, ok := els.(*Literal); ok {
				return valueOutcome(lit.Value)
			}
			return residualOutcome(els)
		}
		return valueOutcome(nil)
	}
	return residualOutcome(&Case{Whens: remaining, Else: els, Typ: n.Typ})
}

func (ip *Interpreter) optimizeCast(n *Cast, resolve Resolver) Outcome {
	out := ip.Optimize(n.Arg, resolve)
	if !out.IsValue {
		return residualOutcome(&Cast{Arg: out.Residual, Typ: n.Typ})
	}
	if out.Value == nil {
		return valueOutcome(nil)
	}
	v, err := castValue(out.Value, n.Typ)
	if err != nil {
		return residualOutcome(failExpr(fmt.Sprintf("cannot cast %v to %s: %v", out.Value, n.Typ, err)))
	}
	return valueOutcome(v)
}

func castValue(v any, t sqltype.Type) (any, error) {
	switch t.Kind {
	case sqltype.Varchar, sqltype.Char:
		return cast.ToStringE(v)
	case sqltype.Integer, sqltype.SmallInt, sqltype.TinyInt:
		i, err := cast.ToInt32E(v)
		return i, err
	case sqltype.BigInt:
		return cast.ToInt64E(v)
	case sqltype.Double, sqltype.Real, sqltype.Decimal:
		return cast.ToFloat64E(v)
	case sqltype.Boolean:
		return cast.ToBoolE(v)
	default:
		return v, nil
	}
}

func (ip *Interpreter) optimizeLike(n *Like, resolve Resolver) Outcome {
	pattern := ip.Optimize(n.Pattern, resolve)
	if pattern.IsValue && pattern.Value != nil {
		ps, _ := pattern.Value.(string)
		if !strings.ContainsAny(ps, "%_") {
			// Rewrite to equality (spec §4.1 LIKE rule).
			return ip.optimizeComparison(&Comparison{Op: Eq, Left: n.Arg, Right: NewLiteral(ps, n.Pattern.Type())}, resolve)
		}
		arg := ip.Optimize(n.Arg, resolve)
		if arg.IsValue {
			if arg.Value == nil {
				return valueOutcome(nil)
			}
			re := ip.compileLike(n, ps)
			s, _ := arg.Value.(string)
			return valueOutcome(re.MatchString(s))
		}
		return residualOutcome(&Like{Arg: arg.Residual, Pattern: NewLiteral(ps, n.Pattern.Type()), Escape: n.Escape})
	}
	arg := ip.Optimize(n.Arg, resolve)
	return residualOutcome(&Like{Arg: arg.ToNode(n.Arg.Type()), Pattern: pattern.ToNode(n.Pattern.Type()), Escape: n.Escape})
}

// compileLike compiles n's literal pattern to a regexp, caching by the
// identity of n itself (spec §4.1).
func (ip *Interpreter) compileLike(n *Like, pattern string) *regexp.Regexp {
	if re, ok := ip.likeCache[n]; ok {
		return re
	}
	re := regexp.MustCompile(likeToRegexp(pattern))
	ip.likeCache[n] = re
	return re
}

func likeToRegexp(pattern string) string {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')
	return sb.String()
}

func (ip *Interpreter) optimizeFunctionCall(n *FunctionCall, resolve Resolver) Outcome {
	if !n.Deterministic || n.IsAggregate() || ip.Invoke == nil {
		return ip.optimizeStructurally(n, resolve)
	}
	args := make([]any, len(n.Args))
	argNodes := make([]Node, len(n.Args))
	allValues := true
	for i, a := range n.Args {
		out := ip.Optimize(a, resolve)
		if !out.IsValue {
			allValues = false
			argNodes[i] = out.Residual
			continue
		}
		args[i] = out.Value
		argNodes[i] = &Literal{Value: out.Value, Typ: a.Type()}
	}
	if !allValues {
		nn, _ := n.WithChildren(argNodes...)
		return residualOutcome(nn)
	}
	v, err := ip.Invoke(n.Name, args)
	if err != nil {
		return residualOutcome(failExpr(fmt.Sprintf("%s: %v", n.Name, err)))
	}
	return valueOutcome(v)
}

// failExpr builds the deferred fail(json_parse(<failure-info>)) call
// specified by §4.1/§7 so that evaluation failures are only raised when
// the plan actually executes the failing branch.
func failExpr(msg string) Node {
	return NewFunctionCall("fail", true, sqltype.Type{},
		NewFunctionCall("json_parse", true, sqltype.TextType,
			NewLiteral(msg, sqltype.TextType)))
}

// IsFailExpr reports whether n is a deferred-failure call produced by
// failExpr, used by tests that assert a specific branch would fail
// without ever forcing evaluation of it.
func IsFailExpr(n Node) bool {
	f, ok := n.(*FunctionCall)
	return ok && f.Name == "fail"
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	cmp, ok := compareValues(a, b)
	return ok && cmp == 0
}

// compareValues orders two resolved SQL values. Numeric values are
// compared as float64 via spf13/cast; everything else falls back to a
// string comparison, matching the teacher's permissive coercion style
// seen across sql/expression comparison tests.
func compareValues(a, b any) (int, bool) {
	if af, err := cast.ToFloat64E(a); err == nil {
		if bf, err := cast.ToFloat64E(b); err == nil {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			if ab == bb {
				return 0, true
			}
			if !ab && bb {
				return -1, true
			}
			return 1, true
		}
	}
	return 0, false
}
