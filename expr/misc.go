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

// IsNullTest is IS NULL / IS NOT NULL.
type IsNullTest struct {
	Arg      Node
	Negated  bool // true => IS NOT NULL
}

func NewIsNull(arg Node) *IsNullTest    { return &IsNullTest{Arg: arg} }
func NewIsNotNull(arg Node) *IsNullTest { return &IsNullTest{Arg: arg, Negated: true} }

func (n *IsNullTest) Type() sqltype.Type { return sqltype.BooleanType }
func (n *IsNullTest) Children() []Node   { return []Node{n.Arg} }
func (n *IsNullTest) WithChildren(c ...Node) (Node, error) {
	if len(c) != 1 {
		return nil, fmt.Errorf("expr: IsNullTest expects 1 child, got %d", len(c))
	}
	return &IsNullTest{Arg: c[0], Negated: n.Negated}, nil
}
func (n *IsNullTest) Equal(o Node) bool {
	other, ok := o.(*IsNullTest)
	return ok && other.Negated == n.Negated && n.Arg.Equal(other.Arg)
}
func (n *IsNullTest) String() string {
	if n.Negated {
		return fmt.Sprintf("(%s IS NOT NULL)", n.Arg)
	}
	return fmt.Sprintf("(%s IS NULL)", n.Arg)
}

// Coalesce returns the first non-NULL argument.
type Coalesce struct {
	Args []Node
	Typ  sqltype.Type
}

func NewCoalesce(t sqltype.Type, args ...Node) *Coalesce { return &Coalesce{Args: args, Typ: t} }

func (c *Coalesce) Type() sqltype.Type { return c.Typ }
func (c *Coalesce) Children() []Node   { return c.Args }
func (c *Coalesce) WithChildren(ch ...Node) (Node, error) {
	if len(ch) != len(c.Args) {
		return nil, fmt.Errorf("expr: Coalesce expects %d children, got %d", len(c.Args), len(ch))
	}
	return &Coalesce{Args: ch, Typ: c.Typ}, nil
}
func (c *Coalesce) Equal(o Node) bool {
	other, ok := o.(*Coalesce)
	if !ok || len(other.Args) != len(c.Args) {
		return false
	}
	for i := range c.Args {
		if !c.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	return true
}
func (c *Coalesce) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("COALESCE(%s)", strings.Join(parts, ", "))
}

// If is the three-argument conditional IF(cond, then, else).
type If struct {
	Cond, Then, Else Node
	Typ              sqltype.Type
}

func NewIf(cond, then, els Node, t sqltype.Type) *If {
	return &If{Cond: cond, Then: then, Else: els, Typ: t}
}

func (i *If) Type() sqltype.Type { return i.Typ }
func (i *If) Children() []Node   { return []Node{i.Cond, i.Then, i.Else} }
func (i *If) WithChildren(c ...Node) (Node, error) {
	if len(c) != 3 {
		return nil, fmt.Errorf("expr: If expects 3 children, got %d", len(c))
	}
	return &If{Cond: c[0], Then: c[1], Else: c[2], Typ: i.Typ}, nil
}
func (i *If) Equal(o Node) bool {
	other, ok := o.(*If)
	return ok && i.Cond.Equal(other.Cond) && i.Then.Equal(other.Then) && i.Else.Equal(other.Else)
}
func (i *If) String() string {
	return fmt.Sprintf("IF(%s, %s, %s)", i.Cond, i.Then, i.Else)
}

// WhenClause is one WHEN <cond> THEN <result> arm of a CASE.
type WhenClause struct {
	Cond   Node // for searched CASE: a boolean test. For simple CASE: a value to compare against Case.Operand.
	Result Node
}

// Case models both simple (`CASE x WHEN v THEN r ...`) and searched
// (`CASE WHEN cond THEN r ...`) forms. Operand is nil for searched CASE.
type Case struct {
	Operand Node
	Whens   []WhenClause
	Else    Node // may be nil
	Typ     sqltype.Type
}

func NewSearchedCase(whens []WhenClause, els Node, t sqltype.Type) *Case {
	return &Case{Whens: whens, Else: els, Typ: t}
}

func NewSimpleCase(operand Node, whens []WhenClause, els Node, t sqltype.Type) *Case {
	return &Case{Operand: operand, Whens: whens, Else: els, Typ: t}
}

func (c *Case) Type() sqltype.Type { return c.Typ }

func (c *Case) Children() []Node {
	var out []Node
	if c.Operand != nil {
		out = append(out, c.Operand)
	}
	for _, w := range c.Whens {
		out = append(out, w.Cond, w.Result)
	}
	if c.Else != nil {
		out = append(out, c.Else)
	}
	return out
}

func (c *Case) WithChildren(ch ...Node) (Node, error) {
	want := len(c.Whens) * 2
	if c.Operand != nil {
		want++
	}
	if c.Else != nil {
		want++
	}
	if len(ch) != want {
		return nil, fmt.Errorf("expr: Case expects %d children, got %d", want, len(ch))
	}
	i := 0
	nc := &Case{Typ: c.Typ}
	if c.Operand != nil {
		nc.Operand = ch[i]
		i++
	}
	nc.Whens = make([]WhenClause, len(c.Whens))
	for j := range c.Whens {
		nc.Whens[j] = WhenClause{Cond: ch[i], Result: ch[i+1]}
		i += 2
	}
	if c.Else != nil {
		nc.Else = ch[i]
	}
	return nc, nil
}

func (c *Case) Equal(o Node) bool {
	other, ok := o.(*Case)
	if !ok || len(other.Whens) != len(c.Whens) {
		return false
	}
	if (c.Operand == nil) != (other.Operand == nil) {
		return false
	}
	if c.Operand != nil && !c.Operand.Equal(other.Operand) {
		return false
	}
	for i := range c.Whens {
		if !c.Whens[i].Cond.Equal(other.Whens[i].Cond) || !c.Whens[i].Result.Equal(other.Whens[i].Result) {
			return false
		}
	}
	if (c.Else == nil) != (other.Else == nil) {
		return false
	}
	return c.Else == nil || c.Else.Equal(other.Else)
}

func (c *Case) String() string {
	var sb strings.Builder
	sb.WriteString("CASE ")
	if c.Operand != nil {
		fmt.Fprintf(&sb, "%s ", c.Operand)
	}
	for _, w := range c.Whens {
		fmt.Fprintf(&sb, "WHEN %s THEN %s ", w.Cond, w.Result)
	}
	if c.Else != nil {
		fmt.Fprintf(&sb, "ELSE %s ", c.Else)
	}
	sb.WriteString("END")
	return sb.String()
}

// Cast converts Arg to Typ.
type Cast struct {
	Arg Node
	Typ sqltype.Type
}

func NewCast(arg Node, t sqltype.Type) *Cast { return &Cast{Arg: arg, Typ: t} }

func (c *Cast) Type() sqltype.Type { return c.Typ }
func (c *Cast) Children() []Node   { return []Node{c.Arg} }
func (c *Cast) WithChildren(ch ...Node) (Node, error) {
	if len(ch) != 1 {
		return nil, fmt.Errorf("expr: Cast expects 1 child, got %d", len(ch))
	}
	return &Cast{Arg: ch[0], Typ: c.Typ}, nil
}
func (c *Cast) Equal(o Node) bool {
	other, ok := o.(*Cast)
	return ok && c.Typ.Equal(other.Typ) && c.Arg.Equal(other.Arg)
}
func (c *Cast) String() string { return fmt.Sprintf("CAST(%s AS %s)", c.Arg, c.Typ) }

// Between is `Arg BETWEEN Lo AND Hi`.
type Between struct {
	Arg, Lo, Hi Node
}

func NewBetween(arg, lo, hi Node) *Between { return &Between{Arg: arg, Lo: lo, Hi: hi} }

func (b *Between) Type() sqltype.Type { return sqltype.BooleanType }
func (b *Between) Children() []Node   { return []Node{b.Arg, b.Lo, b.Hi} }
func (b *Between) WithChildren(c ...Node) (Node, error) {
	if len(c) != 3 {
		return nil, fmt.Errorf("expr: Between expects 3 children, got %d", len(c))
	}
	return &Between{Arg: c[0], Lo: c[1], Hi: c[2]}, nil
}
func (b *Between) Equal(o Node) bool {
	other, ok := o.(*Between)
	return ok && b.Arg.Equal(other.Arg) && b.Lo.Equal(other.Lo) && b.Hi.Equal(other.Hi)
}
func (b *Between) String() string { return fmt.Sprintf("(%s BETWEEN %s AND %s)", b.Arg, b.Lo, b.Hi) }

// AsRange rewrites BETWEEN into an equivalent conjunction of comparisons,
// which is how the interpreter and equality inference treat it uniformly.
func (b *Between) AsRange() Node {
	return NewAnd(NewComparison(Gte, b.Arg, b.Lo), NewComparison(Lte, b.Arg, b.Hi))
}

// Like is `Arg LIKE Pattern [ESCAPE Escape]`.
type Like struct {
	Arg, Pattern Node
	Escape       Node // nil if no ESCAPE clause
}

func NewLike(arg, pattern Node) *Like { return &Like{Arg: arg, Pattern: pattern} }

func (l *Like) Type() sqltype.Type { return sqltype.BooleanType }
func (l *Like) Children() []Node {
	if l.Escape != nil {
		return []Node{l.Arg, l.Pattern, l.Escape}
	}
	return []Node{l.Arg, l.Pattern}
}
func (l *Like) WithChildren(c ...Node) (Node, error) {
	switch len(c) {
	case 2:
		return &Like{Arg: c[0], Pattern: c[1]}, nil
	case 3:
		return &Like{Arg: c[0], Pattern: c[1], Escape: c[2]}, nil
	default:
		return nil, fmt.Errorf("expr: Like expects 2 or 3 children, got %d", len(c))
	}
}
func (l *Like) Equal(o Node) bool {
	other, ok := o.(*Like)
	if !ok || !l.Arg.Equal(other.Arg) || !l.Pattern.Equal(other.Pattern) {
		return false
	}
	if (l.Escape == nil) != (other.Escape == nil) {
		return false
	}
	return l.Escape == nil || l.Escape.Equal(other.Escape)
}
func (l *Like) String() string { return fmt.Sprintf("(%s LIKE %s)", l.Arg, l.Pattern) }

// In is `Arg IN (List...)`.
type In struct {
	Arg  Node
	List []Node
}

func NewIn(arg Node, list ...Node) *In { return &In{Arg: arg, List: list} }

func (i *In) Type() sqltype.Type { return sqltype.BooleanType }
func (i *In) Children() []Node   { return append([]Node{i.Arg}, i.List...) }
func (i *In) WithChildren(c ...Node) (Node, error) {
	if len(c) < 1 {
		return nil, fmt.Errorf("expr: In expects at least 1 child, got %d", len(c))
	}
	return &In{Arg: c[0], List: c[1:]}, nil
}
func (i *In) Equal(o Node) bool {
	other, ok := o.(*In)
	if !ok || !i.Arg.Equal(other.Arg) || len(i.List) != len(other.List) {
		return false
	}
	for j := range i.List {
		if !i.List[j].Equal(other.List[j]) {
			return false
		}
	}
	return true
}
func (i *In) String() string {
	parts := make([]string, len(i.List))
	for j, e := range i.List {
		parts[j] = e.String()
	}
	return fmt.Sprintf("(%s IN (%s))", i.Arg, strings.Join(parts, ", "))
}

// AsDisjunction rewrites IN into an equivalent OR of equalities, the form
// equality inference and the interpreter both reduce it to.
func (i *In) AsDisjunction() Node {
	eqs := make([]Node, len(i.List))
	for j, v := range i.List {
		eqs[j] = NewEquals(i.Arg, v)
	}
	return JoinDisjuncts(eqs...)
}

// Row constructs a ROW(...) tuple value.
type Row struct {
	Fields []Node
	Typ    sqltype.Type
}

func NewRow(t sqltype.Type, fields ...Node) *Row { return &Row{Fields: fields, Typ: t} }

func (r *Row) Type() sqltype.Type { return r.Typ }
func (r *Row) Children() []Node   { return r.Fields }
func (r *Row) WithChildren(c ...Node) (Node, error) {
	if len(c) != len(r.Fields) {
		return nil, fmt.Errorf("expr: Row expects %d children, got %d", len(r.Fields), len(c))
	}
	return &Row{Fields: c, Typ: r.Typ}, nil
}
func (r *Row) Equal(o Node) bool {
	other, ok := o.(*Row)
	if !ok || len(other.Fields) != len(r.Fields) {
		return false
	}
	for i := range r.Fields {
		if !r.Fields[i].Equal(other.Fields[i]) {
			return false
		}
	}
	return true
}
func (r *Row) String() string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("ROW(%s)", strings.Join(parts, ", "))
}

// Subscript is Base[Index], used for ARRAY/ROW element access.
type Subscript struct {
	Base, Index Node
	Typ         sqltype.Type
}

func NewSubscript(base, index Node, t sqltype.Type) *Subscript {
	return &Subscript{Base: base, Index: index, Typ: t}
}

func (s *Subscript) Type() sqltype.Type { return s.Typ }
func (s *Subscript) Children() []Node   { return []Node{s.Base, s.Index} }
func (s *Subscript) WithChildren(c ...Node) (Node, error) {
	if len(c) != 2 {
		return nil, fmt.Errorf("expr: Subscript expects 2 children, got %d", len(c))
	}
	return &Subscript{Base: c[0], Index: c[1], Typ: s.Typ}, nil
}
func (s *Subscript) Equal(o Node) bool {
	other, ok := o.(*Subscript)
	return ok && s.Base.Equal(other.Base) && s.Index.Equal(other.Index)
}
func (s *Subscript) String() string { return fmt.Sprintf("%s[%s]", s.Base, s.Index) }
