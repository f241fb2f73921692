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

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/symbol"
)

// Filter retains only rows matching Predicate (spec §3.2).
type Filter struct {
	base
	Source    Node
	Predicate expr.Node
}

func NewFilter(id NodeID, predicate expr.Node, source Node) *Filter {
	return &Filter{base: base{id: id}, Source: source, Predicate: predicate}
}

func (f *Filter) Outputs() []symbol.Symbol { return f.Source.Outputs() }
func (f *Filter) Children() []Node         { return []Node{f.Source} }
func (f *Filter) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Filter", 1, len(c)); err != nil {
		return nil, err
	}
	nf := *f
	nf.Source = c[0]
	return &nf, nil
}
func (f *Filter) WithNodeID(id NodeID) Node {
	nf := *f
	nf.base = base{id: id}
	return &nf
}
func (f *Filter) String() string { return fmt.Sprintf("Filter(%s)", f.Predicate) }

func (f *Filter) GetFilter() expr.Node { return f.Predicate }

func (f *Filter) Expressions() []expr.Node { return []expr.Node{f.Predicate} }
func (f *Filter) WithExpressions(exprs ...expr.Node) (Node, error) {
	if len(exprs) != 1 {
		return nil, fmt.Errorf("plan: Filter.WithExpressions expects 1 expr, got %d", len(exprs))
	}
	nf := *f
	nf.Predicate = exprs[0]
	return &nf, nil
}
