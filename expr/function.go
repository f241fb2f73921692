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
	"strings"

	"github.com/dolthub/queryplancore/sqltype"
)

// OrderItem is one ORDER BY entry inside an aggregate function call.
type OrderItem struct {
	Expr Node
	Desc bool
}

// FunctionCall models a scalar or aggregate function invocation, with
// the optional aggregate-only FILTER/DISTINCT/ORDER BY modifiers of spec
// §3.3. Deterministic is supplied by the catalog's function signature
// resolution (spec §6.1 ResolveFunction) and is the sole input to
// expr.Deterministic.
type FunctionCall struct {
	Name          string
	Args          []Node
	Filter        Node // nil if no FILTER (WHERE ...)
	Distinct      bool
	OrderBy       []OrderItem
	Deterministic bool
	Typ           sqltype.Type
}

func NewFunctionCall(name string, deterministic bool, t sqltype.Type, args ...Node) *FunctionCall {
	return &FunctionCall{Name: name, Args: args, Deterministic: deterministic, Typ: t}
}

func (f *FunctionCall) Type() sqltype.Type { return f.Typ }

func (f *FunctionCall) Children() []Node {
	out := append([]Node{}, f.Args...)
	if f.Filter != nil {
		out = append(out, f.Filter)
	}
	for _, o := range f.OrderBy {
		out = append(out, o.Expr)
	}
	return out
}

func (f *FunctionCall) WithChildren(c ...Node) (Node, error) {
	want := len(f.Args) + len(f.OrderBy)
	if f.Filter != nil {
		want++
	}
	if len(c) != want {
		return nil, fmt.Errorf("expr: FunctionCall %s expects %d children, got %d", f.Name, want, len(c))
	}
	nf := *f
	i := len(f.Args)
	nf.Args = append([]Node{}, c[:i]...)
	if f.Filter != nil {
		nf.Filter = c[i]
		i++
	}
	if len(f.OrderBy) > 0 {
		nf.OrderBy = make([]OrderItem, len(f.OrderBy))
		for j := range f.OrderBy {
			nf.OrderBy[j] = OrderItem{Expr: c[i], Desc: f.OrderBy[j].Desc}
			i++
		}
	}
	return &nf, nil
}

func (f *FunctionCall) Equal(o Node) bool {
	other, ok := o.(*FunctionCall)
	if !ok || other.Name != f.Name || other.Distinct != f.Distinct || len(other.Args) != len(f.Args) {
		return false
	}
	for i := range f.Args {
		if !f.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	if (f.Filter == nil) != (other.Filter == nil) {
		return false
	}
	if f.Filter != nil && !f.Filter.Equal(other.Filter) {
		return false
	}
	if len(f.OrderBy) != len(other.OrderBy) {
		return false
	}
	for i := range f.OrderBy {
		if f.OrderBy[i].Desc != other.OrderBy[i].Desc || !f.OrderBy[i].Expr.Equal(other.OrderBy[i].Expr) {
			return false
		}
	}
	return true
}

func (f *FunctionCall) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	args := strings.Join(parts, ", ")
	if f.Distinct {
		args = "DISTINCT " + args
	}
	s := fmt.Sprintf("%s(%s)", f.Name, args)
	if f.Filter != nil {
		s += fmt.Sprintf(" FILTER (WHERE %s)", f.Filter)
	}
	return s
}

// IsAggregate reports whether f carries any aggregate-only modifier; a
// plain scalar call never sets these.
func (f *FunctionCall) IsAggregate() bool {
	return f.Filter != nil || f.Distinct || len(f.OrderBy) > 0
}

// Lambda is `(params) -> body`, used inside higher-order array functions.
type Lambda struct {
	Params []string
	Body   Node
	Typ    sqltype.Type
}

func NewLambda(params []string, body Node, t sqltype.Type) *Lambda {
	return &Lambda{Params: params, Body: body, Typ: t}
}

func (l *Lambda) Type() sqltype.Type { return l.Typ }
func (l *Lambda) Children() []Node   { return []Node{l.Body} }
func (l *Lambda) WithChildren(c ...Node) (Node, error) {
	if len(c) != 1 {
		return nil, fmt.Errorf("expr: Lambda expects 1 child, got %d", len(c))
	}
	return &Lambda{Params: l.Params, Body: c[0], Typ: l.Typ}, nil
}
func (l *Lambda) Equal(o Node) bool {
	other, ok := o.(*Lambda)
	if !ok || len(other.Params) != len(l.Params) {
		return false
	}
	for i := range l.Params {
		if l.Params[i] != other.Params[i] {
			return false
		}
	}
	return l.Body.Equal(other.Body)
}
func (l *Lambda) String() string {
	return fmt.Sprintf("(%s) -> %s", strings.Join(l.Params, ", "), l.Body)
}

// Deterministic reports whether every function call reachable from n is
// marked deterministic (spec §3.3). Non-function nodes are always
// considered deterministic; the pre-planning Subquery/Exists/
// QuantifiedComparison forms are conservatively non-deterministic since
// they are desugared away before predicate pushdown ever inspects them.
func Deterministic(n Node) bool {
	det := true
	Walk(n, func(node Node) bool {
		switch v := node.(type) {
		case *FunctionCall:
			if !v.Deterministic {
				det = false
				return false
			}
		case *Subquery, *Exists, *QuantifiedComparison:
			det = false
			return false
		}
		return det
	})
	return det
}

// FilterDeterministicConjuncts returns the AND of e's top-level conjuncts
// that are individually deterministic (spec §3.3).
func FilterDeterministicConjuncts(e Node) Node {
	var kept []Node
	for _, c := range Conjuncts(e) {
		if Deterministic(c) {
			kept = append(kept, c)
		}
	}
	return JoinConjuncts(kept...)
}
