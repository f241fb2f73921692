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

// CompareOp enumerates the comparison operators of spec §3.3.
type CompareOp int

const (
	Eq CompareOp = iota
	Neq
	Lt
	Lte
	Gt
	Gte
	IsDistinctFrom
)

func (op CompareOp) String() string {
	switch op {
	case Eq:
		return "="
	case Neq:
		return "<>"
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	case IsDistinctFrom:
		return "IS DISTINCT FROM"
	default:
		return "?"
	}
}

// Negate returns the logical negation of op, used by the outer-to-inner
// conversion and equality inference to canonicalize comparisons. Only
// Eq/Neq are self-negating pairs that matter for equality inference.
func (op CompareOp) Negate() CompareOp {
	switch op {
	case Eq:
		return Neq
	case Neq:
		return Eq
	case Lt:
		return Gte
	case Lte:
		return Gt
	case Gt:
		return Lte
	case Gte:
		return Lt
	default:
		return op
	}
}

// Comparison is a binary comparison expression.
type Comparison struct {
	Op          CompareOp
	Left, Right Node
}

func NewComparison(op CompareOp, l, r Node) *Comparison {
	return &Comparison{Op: op, Left: l, Right: r}
}

func NewEquals(l, r Node) *Comparison { return NewComparison(Eq, l, r) }

func (c *Comparison) Type() sqltype.Type { return sqltype.BooleanType }
func (c *Comparison) Children() []Node   { return []Node{c.Left, c.Right} }
func (c *Comparison) WithChildren(ch ...Node) (Node, error) {
	if len(ch) != 2 {
		return nil, fmt.Errorf("expr: Comparison expects 2 children, got %d", len(ch))
	}
	return &Comparison{Op: c.Op, Left: ch[0], Right: ch[1]}, nil
}
func (c *Comparison) Equal(o Node) bool {
	other, ok := o.(*Comparison)
	return ok && other.Op == c.Op && c.Left.Equal(other.Left) && c.Right.Equal(other.Right)
}
func (c *Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

// IsEquality reports whether n is an `=` comparison, the only form
// equality inference builds equivalence classes from (spec §4.2). It does
// not check determinism; callers that need it test Deterministic
// separately.
func IsEquality(n Node) (*Comparison, bool) {
	c, ok := n.(*Comparison)
	if !ok || c.Op != Eq {
		return nil, false
	}
	return c, true
}
