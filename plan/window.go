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

// FrameBound describes one edge of a window frame (ROWS/RANGE BETWEEN).
type FrameBound struct {
	Kind   string // "UNBOUNDED_PRECEDING", "PRECEDING", "CURRENT_ROW", "FOLLOWING", "UNBOUNDED_FOLLOWING"
	Offset expr.Node // nil unless Kind is PRECEDING/FOLLOWING
}

// Frame is a window frame specification.
type Frame struct {
	Mode  string // "ROWS" or "RANGE"
	Start FrameBound
	End   FrameBound
}

// SortItem is one ORDER BY entry.
type SortItem struct {
	Symbol symbol.Symbol
	Desc   bool
	NullsFirst bool
}

// WindowFunction is one `symbol := function(...) OVER (...)` assignment.
type WindowFunction struct {
	Symbol symbol.Symbol
	Call   *expr.FunctionCall
	Frame  Frame
}

// Window computes WindowFunctions over Source, partitioned by
// PartitionBy and ordered by OrderBy (spec §3.2).
type Window struct {
	base
	Source      Node
	PartitionBy []symbol.Symbol
	OrderBy     []SortItem
	Functions   []WindowFunction
}

func NewWindow(id NodeID, source Node, partitionBy []symbol.Symbol, orderBy []SortItem, functions []WindowFunction) *Window {
	return &Window{base: base{id: id}, Source: source, PartitionBy: partitionBy, OrderBy: orderBy, Functions: functions}
}

func (w *Window) Outputs() []symbol.Symbol {
	out := append([]symbol.Symbol{}, w.Source.Outputs()...)
	for _, f := range w.Functions {
		out = append(out, f.Symbol)
	}
	return out
}
func (w *Window) Children() []Node { return []Node{w.Source} }
func (w *Window) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Window", 1, len(c)); err != nil {
		return nil, err
	}
	nw := *w
	nw.Source = c[0]
	return &nw, nil
}
func (w *Window) WithNodeID(id NodeID) Node {
	nw := *w
	nw.base = base{id: id}
	return &nw
}
func (w *Window) String() string {
	return fmt.Sprintf("Window partitionBy=%s %d function(s)", symbolNames(w.PartitionBy), len(w.Functions))
}

func (w *Window) Expressions() []expr.Node {
	out := make([]expr.Node, len(w.Functions))
	for i, f := range w.Functions {
		out[i] = f.Call
	}
	return out
}
func (w *Window) WithExpressions(exprs ...expr.Node) (Node, error) {
	if len(exprs) != len(w.Functions) {
		return nil, fmt.Errorf("plan: Window.WithExpressions expects %d exprs, got %d", len(w.Functions), len(exprs))
	}
	nw := *w
	nw.Functions = make([]WindowFunction, len(w.Functions))
	for i, f := range w.Functions {
		call, ok := exprs[i].(*expr.FunctionCall)
		if !ok {
			return nil, fmt.Errorf("plan: Window.WithExpressions got non-call expression for %s", f.Symbol)
		}
		nw.Functions[i] = WindowFunction{Symbol: f.Symbol, Call: call, Frame: f.Frame}
	}
	return &nw, nil
}

// RowNumber assigns a dense 1-based row number per PartitionBy group,
// writing it to RowNumberSymbol (spec §3.2).
type RowNumber struct {
	base
	Source          Node
	PartitionBy     []symbol.Symbol
	RowNumberSymbol symbol.Symbol
}

func NewRowNumber(id NodeID, source Node, partitionBy []symbol.Symbol, rowNumberSymbol symbol.Symbol) *RowNumber {
	return &RowNumber{base: base{id: id}, Source: source, PartitionBy: partitionBy, RowNumberSymbol: rowNumberSymbol}
}

func (r *RowNumber) Outputs() []symbol.Symbol {
	return append(append([]symbol.Symbol{}, r.Source.Outputs()...), r.RowNumberSymbol)
}
func (r *RowNumber) Children() []Node { return []Node{r.Source} }
func (r *RowNumber) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("RowNumber", 1, len(c)); err != nil {
		return nil, err
	}
	nr := *r
	nr.Source = c[0]
	return &nr, nil
}
func (r *RowNumber) WithNodeID(id NodeID) Node {
	nr := *r
	nr.base = base{id: id}
	return &nr
}
func (r *RowNumber) String() string {
	return fmt.Sprintf("RowNumber partitionBy=%s -> %s", symbolNames(r.PartitionBy), r.RowNumberSymbol)
}

// TopNRowNumber is RowNumber fused with a per-partition limit, letting the
// executor avoid materializing more than Limit rows per partition (spec
// §3.2, §4.5 "optimizeTopNRowNumber" session property).
type TopNRowNumber struct {
	base
	Source          Node
	PartitionBy     []symbol.Symbol
	OrderBy         []SortItem
	RowNumberSymbol symbol.Symbol
	Limit           int
}

func NewTopNRowNumber(id NodeID, source Node, partitionBy []symbol.Symbol, orderBy []SortItem, rowNumberSymbol symbol.Symbol, limit int) *TopNRowNumber {
	return &TopNRowNumber{base: base{id: id}, Source: source, PartitionBy: partitionBy, OrderBy: orderBy, RowNumberSymbol: rowNumberSymbol, Limit: limit}
}

func (r *TopNRowNumber) Outputs() []symbol.Symbol {
	return append(append([]symbol.Symbol{}, r.Source.Outputs()...), r.RowNumberSymbol)
}
func (r *TopNRowNumber) Children() []Node { return []Node{r.Source} }
func (r *TopNRowNumber) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("TopNRowNumber", 1, len(c)); err != nil {
		return nil, err
	}
	nr := *r
	nr.Source = c[0]
	return &nr, nil
}
func (r *TopNRowNumber) WithNodeID(id NodeID) Node {
	nr := *r
	nr.base = base{id: id}
	return &nr
}
func (r *TopNRowNumber) String() string {
	return fmt.Sprintf("TopNRowNumber(%d) partitionBy=%s -> %s", r.Limit, symbolNames(r.PartitionBy), r.RowNumberSymbol)
}
