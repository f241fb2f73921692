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

	"github.com/dolthub/queryplancore/sqltype"
)

// ArithOp enumerates the arithmetic operators of spec §3.3.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
)

func (op ArithOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	default:
		return "?"
	}
}

// Arithmetic is a binary arithmetic expression over numeric operands.
type Arithmetic struct {
	Op          ArithOp
	Left, Right Node
	Typ         sqltype.Type
}

func NewArithmetic(op ArithOp, l, r Node, t sqltype.Type) *Arithmetic {
	return &Arithmetic{Op: op, Left: l, Right: r, Typ: t}
}

func (a *Arithmetic) Type() sqltype.Type { return a.Typ }
func (a *Arithmetic) Children() []Node   { return []Node{a.Left, a.Right} }
func (a *Arithmetic) WithChildren(c ...Node) (Node, error) {
	if len(c) != 2 {
		return nil, fmt.Errorf("expr: Arithmetic expects 2 children, got %d", len(c))
	}
	return &Arithmetic{Op: a.Op, Left: c[0], Right: c[1], Typ: a.Typ}, nil
}
func (a *Arithmetic) Equal(o Node) bool {
	other, ok := o.(*Arithmetic)
	return ok && other.Op == a.Op && a.Left.Equal(other.Left) && a.Right.Equal(other.Right)
}
func (a *Arithmetic) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}
