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

// LogicalOp enumerates AND/OR/NOT.
type LogicalOp int

const (
	And LogicalOp = iota
	Or
	Not
)

func (op LogicalOp) String() string {
	switch op {
	case And:
		return "AND"
	case Or:
		return "OR"
	case Not:
		return "NOT"
	default:
		return "?"
	}
}

// Logical is AND/OR (binary, len(Args) >= 2) or NOT (unary).
type Logical struct {
	Op   LogicalOp
	Args []Node
}

func NewAnd(args ...Node) Node {
	return flattenOrSingle(And, args)
}

func NewOr(args ...Node) Node {
	return flattenOrSingle(Or, args)
}

func flattenOrSingle(op LogicalOp, args []Node) Node {
	var flat []Node
	for _, a := range args {
		if l, ok := a.(*Logical); ok && l.Op == op {
			flat = append(flat, l.Args...)
			continue
		}
		flat = append(flat, a)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Logical{Op: op, Args: flat}
}

func NewNot(arg Node) Node {
	return &Logical{Op: Not, Args: []Node{arg}}
}

func (l *Logical) Type() sqltype.Type { return sqltype.BooleanType }
func (l *Logical) Children() []Node   { return l.Args }
func (l *Logical) WithChildren(c ...Node) (Node, error) {
	if len(c) != len(l.Args) {
		return nil, fmt.Errorf("expr: Logical %s expects %d children, got %d", l.Op, len(l.Args), len(c))
	}
	return &Logical{Op: l.Op, Args: c}, nil
}
func (l *Logical) Equal(o Node) bool {
	other, ok := o.(*Logical)
	if !ok || other.Op != l.Op || len(other.Args) != len(l.Args) {
		return false
	}
	for i := range l.Args {
		if !l.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}
func (l *Logical) String() string {
	if l.Op == Not {
		return fmt.Sprintf("NOT %s", l.Args[0])
	}
	parts := make([]string, len(l.Args))
	for i, a := range l.Args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, fmt.Sprintf(" %s ", l.Op)) + ")"
}

// Conjuncts returns the flattened top-level AND operands of n, or []Node{n}
// if n is not a top-level AND (spec §4.4 "conjunct order ... preserved").
func Conjuncts(n Node) []Node {
	if l, ok := n.(*Logical); ok && l.Op == And {
		return l.Args
	}
	if n == nil {
		return nil
	}
	return []Node{n}
}

// JoinConjuncts is the inverse of Conjuncts: AND all the given expressions
// together, collapsing to TrueLiteral for an empty list and to the bare
// expression for a singleton.
func JoinConjuncts(conjuncts ...Node) Node {
	var filtered []Node
	for _, c := range conjuncts {
		if c == nil || IsBoolLiteral(c, true) {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		return TrueLiteral
	}
	return NewAnd(filtered...)
}

// Disjuncts is the OR analogue of Conjuncts.
func Disjuncts(n Node) []Node {
	if l, ok := n.(*Logical); ok && l.Op == Or {
		return l.Args
	}
	if n == nil {
		return nil
	}
	return []Node{n}
}

func JoinDisjuncts(disjuncts ...Node) Node {
	var filtered []Node
	for _, d := range disjuncts {
		if d == nil || IsBoolLiteral(d, false) {
			continue
		}
		filtered = append(filtered, d)
	}
	if len(filtered) == 0 {
		return FalseLiteral
	}
	return NewOr(filtered...)
}
