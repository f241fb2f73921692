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

// Package expr implements the expression IR of spec §3.3 and the
// expression interpreter/optimizer of spec §4.1.
package expr

import (
	"fmt"

	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

// Node is one node of an expression tree. Expression trees are a
// separate algebra from plan.Node; they never reference plan nodes
// directly, only symbols (spec §3.3).
type Node interface {
	// Type returns the node's resolved SQL type, as supplied externally
	// by the analyzer's type map (spec §3.3) or computed structurally
	// for nodes this core constructs itself (e.g. a rewritten AND).
	Type() sqltype.Type
	Children() []Node
	// WithChildren returns a copy of the node with its children
	// replaced; len(children) must equal len(Children()).
	WithChildren(children ...Node) (Node, error)
	// Equal reports structural equality, used by the equivalence checks
	// the spec requires (filter round-tripping, unalias idempotency).
	Equal(Node) bool
	String() string
}

// SymbolRef references a single plan-node output symbol. It is the only
// leaf besides Literal.
type SymbolRef struct {
	Symbol symbol.Symbol
}

func NewSymbolRef(s symbol.Symbol) *SymbolRef { return &SymbolRef{Symbol: s} }

func (r *SymbolRef) Type() sqltype.Type          { return r.Symbol.Type() }
func (r *SymbolRef) Children() []Node            { return nil }
func (r *SymbolRef) WithChildren(c ...Node) (Node, error) {
	if len(c) != 0 {
		return nil, fmt.Errorf("expr: SymbolRef takes no children, got %d", len(c))
	}
	return r, nil
}
func (r *SymbolRef) Equal(o Node) bool {
	other, ok := o.(*SymbolRef)
	return ok && r.Symbol.Equal(other.Symbol)
}
func (r *SymbolRef) String() string { return r.Symbol.String() }

// Literal is a typed constant, including SQL NULL (Value == nil).
type Literal struct {
	Value any
	Typ   sqltype.Type
}

func NewLiteral(v any, t sqltype.Type) *Literal { return &Literal{Value: v, Typ: t} }
func NullLiteral(t sqltype.Type) *Literal       { return &Literal{Value: nil, Typ: t} }

func (l *Literal) Type() sqltype.Type { return l.Typ }
func (l *Literal) Children() []Node   { return nil }
func (l *Literal) WithChildren(c ...Node) (Node, error) {
	if len(c) != 0 {
		return nil, fmt.Errorf("expr: Literal takes no children, got %d", len(c))
	}
	return l, nil
}
func (l *Literal) Equal(o Node) bool {
	other, ok := o.(*Literal)
	return ok && l.Value == other.Value && l.Typ.Equal(other.Typ)
}
func (l *Literal) String() string {
	if l.Value == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", l.Value)
}

// IsNull reports whether n is a NULL literal.
func IsNull(n Node) bool {
	lit, ok := n.(*Literal)
	return ok && lit.Value == nil
}

// IsBoolLiteral reports whether n is a literal boolean with value v.
func IsBoolLiteral(n Node, v bool) bool {
	lit, ok := n.(*Literal)
	return ok && !IsNull(n) && lit.Value == v
}

// TrueLiteral / FalseLiteral are the canonical boolean constants used
// throughout the interpreter and pushdown short-circuit rules.
var (
	TrueLiteral  = &Literal{Value: true, Typ: sqltype.BooleanType}
	FalseLiteral = &Literal{Value: false, Typ: sqltype.BooleanType}
)

// TypeMap is the externally supplied NodeRef -> Type map (spec §3.3),
// keyed by node identity. The analyzer is authoritative; this core only
// consults it for nodes it did not itself construct (constructed nodes
// carry their resolved type on the struct already).
type TypeMap map[Node]sqltype.Type

func (m TypeMap) TypeOf(n Node) (sqltype.Type, bool) {
	t, ok := m[n]
	return t, ok
}

// WalkFn is called for every node in a pre-order walk; returning false
// stops descending into that node's children.
type WalkFn func(Node) bool

// Walk performs a pre-order traversal of the expression tree rooted at n.
func Walk(n Node, fn WalkFn) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Symbols returns every SymbolRef reachable from n, in walk order,
// without deduplication order guarantees (callers typically fold the
// result into a symbol.Set).
func Symbols(n Node) []symbol.Symbol {
	var out []symbol.Symbol
	Walk(n, func(node Node) bool {
		if ref, ok := node.(*SymbolRef); ok {
			out = append(out, ref.Symbol)
		}
		return true
	})
	return out
}

// FreeSymbols returns the deduplicated set of symbols referenced by n.
func FreeSymbols(n Node) *symbol.Set {
	return symbol.NewSet(Symbols(n)...)
}
