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

	"github.com/dolthub/queryplancore/symbol"
)

// Sort orders Source by OrderBy (spec §3.2).
type Sort struct {
	base
	Source  Node
	OrderBy []SortItem
}

func NewSort(id NodeID, source Node, orderBy []SortItem) *Sort {
	return &Sort{base: base{id: id}, Source: source, OrderBy: orderBy}
}

func (s *Sort) Outputs() []symbol.Symbol { return s.Source.Outputs() }
func (s *Sort) Children() []Node         { return []Node{s.Source} }
func (s *Sort) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Sort", 1, len(c)); err != nil {
		return nil, err
	}
	ns := *s
	ns.Source = c[0]
	return &ns, nil
}
func (s *Sort) WithNodeID(id NodeID) Node {
	ns := *s
	ns.base = base{id: id}
	return &ns
}
func (s *Sort) String() string { return fmt.Sprintf("Sort %d key(s)", len(s.OrderBy)) }

// TopN is a fused Sort+Limit: keep the first Count rows in OrderBy order
// without materializing the full sorted stream (spec §3.2).
type TopN struct {
	base
	Source  Node
	OrderBy []SortItem
	Count   int
}

func NewTopN(id NodeID, source Node, orderBy []SortItem, count int) *TopN {
	return &TopN{base: base{id: id}, Source: source, OrderBy: orderBy, Count: count}
}

func (t *TopN) Outputs() []symbol.Symbol { return t.Source.Outputs() }
func (t *TopN) Children() []Node         { return []Node{t.Source} }
func (t *TopN) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("TopN", 1, len(c)); err != nil {
		return nil, err
	}
	nt := *t
	nt.Source = c[0]
	return &nt, nil
}
func (t *TopN) WithNodeID(id NodeID) Node {
	nt := *t
	nt.base = base{id: id}
	return &nt
}
func (t *TopN) String() string { return fmt.Sprintf("TopN(%d)", t.Count) }

// Limit caps Source to at most Count rows.
type Limit struct {
	base
	Source Node
	Count  int
	// Partial marks a Limit inserted below a gathering exchange by
	// exchange insertion (spec §4.5 "push a partial Limit below a
	// gathering exchange, then re-limit above").
	Partial bool
}

func NewLimit(id NodeID, source Node, count int) *Limit {
	return &Limit{base: base{id: id}, Source: source, Count: count}
}

func (l *Limit) Outputs() []symbol.Symbol { return l.Source.Outputs() }
func (l *Limit) Children() []Node         { return []Node{l.Source} }
func (l *Limit) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Limit", 1, len(c)); err != nil {
		return nil, err
	}
	nl := *l
	nl.Source = c[0]
	return &nl, nil
}
func (l *Limit) WithNodeID(id NodeID) Node {
	nl := *l
	nl.base = base{id: id}
	return &nl
}
func (l *Limit) String() string {
	if l.Partial {
		return fmt.Sprintf("Limit(%d, partial)", l.Count)
	}
	return fmt.Sprintf("Limit(%d)", l.Count)
}

// Offset skips the first Count rows of Source.
type Offset struct {
	base
	Source Node
	Count  int
}

func NewOffset(id NodeID, source Node, count int) *Offset {
	return &Offset{base: base{id: id}, Source: source, Count: count}
}

func (o *Offset) Outputs() []symbol.Symbol { return o.Source.Outputs() }
func (o *Offset) Children() []Node         { return []Node{o.Source} }
func (o *Offset) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Offset", 1, len(c)); err != nil {
		return nil, err
	}
	no := *o
	no.Source = c[0]
	return &no, nil
}
func (o *Offset) WithNodeID(id NodeID) Node {
	no := *o
	no.base = base{id: id}
	return &no
}
func (o *Offset) String() string { return fmt.Sprintf("Offset(%d)", o.Count) }

// DistinctLimit is DISTINCT followed by a row-count cap, fused so the
// executor can stop scanning once Count distinct rows are seen.
type DistinctLimit struct {
	base
	Source Node
	Count  int
}

func NewDistinctLimit(id NodeID, source Node, count int) *DistinctLimit {
	return &DistinctLimit{base: base{id: id}, Source: source, Count: count}
}

func (d *DistinctLimit) Outputs() []symbol.Symbol { return d.Source.Outputs() }
func (d *DistinctLimit) Children() []Node         { return []Node{d.Source} }
func (d *DistinctLimit) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("DistinctLimit", 1, len(c)); err != nil {
		return nil, err
	}
	nd := *d
	nd.Source = c[0]
	return &nd, nil
}
func (d *DistinctLimit) WithNodeID(id NodeID) Node {
	nd := *d
	nd.base = base{id: id}
	return &nd
}
func (d *DistinctLimit) String() string { return fmt.Sprintf("DistinctLimit(%d)", d.Count) }
