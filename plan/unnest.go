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

// UnnestMapping is one array/map-valued Source input symbol paired with
// the output symbol(s) each of its elements is unpacked into.
type UnnestMapping struct {
	Input   symbol.Symbol
	Outputs []symbol.Symbol // 1 for an array, 2 (key, value) for a map
}

// Unnest replicates Source rows once per element of its unnested input
// columns, alongside the unmodified ReplicateSymbols (spec §3.2).
type Unnest struct {
	base
	Source            Node
	ReplicateSymbols  []symbol.Symbol
	Mappings          []UnnestMapping
	Ordinality        *symbol.Symbol
	Type              JoinType // INNER or LEFT only, per spec §4.4's "Unnest INNER/LEFT" vs "RIGHT/FULL"
	Filter            expr.Node
}

func NewUnnest(id NodeID, source Node, replicate []symbol.Symbol, mappings []UnnestMapping, ordinality *symbol.Symbol, typ JoinType) *Unnest {
	return &Unnest{base: base{id: id}, Source: source, ReplicateSymbols: replicate, Mappings: mappings, Ordinality: ordinality, Type: typ}
}

func (u *Unnest) Outputs() []symbol.Symbol {
	out := append([]symbol.Symbol{}, u.ReplicateSymbols...)
	for _, m := range u.Mappings {
		out = append(out, m.Outputs...)
	}
	if u.Ordinality != nil {
		out = append(out, *u.Ordinality)
	}
	return out
}
func (u *Unnest) Children() []Node { return []Node{u.Source} }
func (u *Unnest) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Unnest", 1, len(c)); err != nil {
		return nil, err
	}
	nu := *u
	nu.Source = c[0]
	return &nu, nil
}
func (u *Unnest) WithNodeID(id NodeID) Node {
	nu := *u
	nu.base = base{id: id}
	return &nu
}
func (u *Unnest) String() string { return fmt.Sprintf("Unnest %s (%d mapping(s))", u.Type, len(u.Mappings)) }

func (u *Unnest) GetFilter() expr.Node { return u.Filter }

func (u *Unnest) Expressions() []expr.Node {
	if u.Filter == nil {
		return nil
	}
	return []expr.Node{u.Filter}
}
func (u *Unnest) WithExpressions(exprs ...expr.Node) (Node, error) {
	if u.Filter == nil {
		if len(exprs) != 0 {
			return nil, fmt.Errorf("plan: Unnest.WithExpressions expects 0 exprs, got %d", len(exprs))
		}
		return u, nil
	}
	if len(exprs) != 1 {
		return nil, fmt.Errorf("plan: Unnest.WithExpressions expects 1 expr, got %d", len(exprs))
	}
	nu := *u
	nu.Filter = exprs[0]
	return &nu, nil
}
