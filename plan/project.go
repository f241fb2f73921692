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

package plan

import (
	"fmt"
	"strings"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/symbol"
)

// Assignment is one `symbol := expression` entry of a Project (spec §3.2).
type Assignment struct {
	Symbol symbol.Symbol
	Expr   expr.Node
}

// IsIdentity reports whether the assignment is `s := s` (spec §3.2
// "identity projection iff expression is a symbol-reference equal to the
// key").
func (a Assignment) IsIdentity() bool {
	ref, ok := a.Expr.(*expr.SymbolRef)
	return ok && ref.Symbol.Equal(a.Symbol)
}

// Project applies Assignments to its single Source (spec §3.2).
type Project struct {
	base
	Source      Node
	Assignments []Assignment
}

func NewProject(id NodeID, source Node, assignments []Assignment) *Project {
	return &Project{base: base{id: id}, Source: source, Assignments: assignments}
}

func (p *Project) Outputs() []symbol.Symbol {
	out := make([]symbol.Symbol, len(p.Assignments))
	for i, a := range p.Assignments {
		out[i] = a.Symbol
	}
	return out
}

func (p *Project) Children() []Node { return []Node{p.Source} }

func (p *Project) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Project", 1, len(c)); err != nil {
		return nil, err
	}
	np := *p
	np.Source = c[0]
	return &np, nil
}

func (p *Project) WithNodeID(id NodeID) Node {
	np := *p
	np.base = base{id: id}
	return &np
}

func (p *Project) String() string {
	parts := make([]string, len(p.Assignments))
	for i, a := range p.Assignments {
		parts[i] = fmt.Sprintf("%s := %s", a.Symbol, a.Expr)
	}
	return fmt.Sprintf("Project(%s)", strings.Join(parts, ", "))
}

func (p *Project) Expressions() []expr.Node {
	out := make([]expr.Node, len(p.Assignments))
	for i, a := range p.Assignments {
		out[i] = a.Expr
	}
	return out
}

func (p *Project) WithExpressions(exprs ...expr.Node) (Node, error) {
	if len(exprs) != len(p.Assignments) {
		return nil, fmt.Errorf("plan: Project.WithExpressions expects %d exprs, got %d", len(p.Assignments), len(exprs))
	}
	np := *p
	np.Assignments = make([]Assignment, len(p.Assignments))
	for i, a := range p.Assignments {
		np.Assignments[i] = Assignment{Symbol: a.Symbol, Expr: exprs[i]}
	}
	return &np, nil
}

// LookupAssignment returns the expression assigned to s, if any.
func (p *Project) LookupAssignment(s symbol.Symbol) (expr.Node, bool) {
	for _, a := range p.Assignments {
		if a.Symbol.Equal(s) {
			return a.Expr, true
		}
	}
	return nil, false
}
