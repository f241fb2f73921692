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
	"github.com/dolthub/queryplancore/tupledomain"
)

// TableScan is a leaf reading from a connector-resolved table, with the
// column→symbol assignment performed by the external analyzer (spec §3.2)
// and an enforced-constraint tuple domain already pushed into the
// connector (the domain this core must still fold into effective-predicate
// reasoning, per §4.3's TableScan row).
type TableScan struct {
	base
	Table             string
	outputs           []symbol.Symbol
	ColumnNames       map[uint64]string // symbol id -> source column name, for rekeying the enforced constraint
	EnforcedConstraint *tupledomain.TupleDomain[string]
}

func NewTableScan(id NodeID, table string, outputs []symbol.Symbol, columnNames map[uint64]string) *TableScan {
	return &TableScan{base: base{id: id}, Table: table, outputs: outputs, ColumnNames: columnNames}
}

func (s *TableScan) Outputs() []symbol.Symbol { return s.outputs }
func (s *TableScan) Children() []Node         { return nil }
func (s *TableScan) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("TableScan", 0, len(c)); err != nil {
		return nil, err
	}
	return s, nil
}
func (s *TableScan) WithNodeID(id NodeID) Node {
	ns := *s
	ns.base = base{id: id}
	return &ns
}
func (s *TableScan) String() string {
	names := make([]string, len(s.outputs))
	for i, sym := range s.outputs {
		names[i] = sym.Name()
	}
	return fmt.Sprintf("TableScan(%s){%s}", s.Table, strings.Join(names, ", "))
}

// EffectiveConstraintAsSymbols rekeys EnforcedConstraint from source
// column name to output symbol id, as required by the §4.3 TableScan row:
// "toPredicate(enforcedConstraint rekeyed column→symbol)".
func (s *TableScan) EffectiveConstraintAsSymbols() *tupledomain.TupleDomain[uint64] {
	if s.EnforcedConstraint == nil {
		return tupledomain.NewTupleDomain[uint64]()
	}
	nameToSymbol := make(map[string]uint64, len(s.ColumnNames))
	for id, name := range s.ColumnNames {
		nameToSymbol[name] = id
	}
	return tupledomain.Transform(s.EnforcedConstraint, func(col string) (uint64, bool) {
		id, ok := nameToSymbol[col]
		return id, ok
	})
}

// Values is a leaf producing literal rows (spec §3.2).
type Values struct {
	base
	outputs []symbol.Symbol
	Rows    [][]expr.Node // each row has len(outputs) expressions
}

func NewValues(id NodeID, outputs []symbol.Symbol, rows [][]expr.Node) *Values {
	return &Values{base: base{id: id}, outputs: outputs, Rows: rows}
}

func (v *Values) Outputs() []symbol.Symbol { return v.outputs }
func (v *Values) Children() []Node         { return nil }
func (v *Values) WithChildren(c ...Node) (Node, error) {
	if err := validateChildCount("Values", 0, len(c)); err != nil {
		return nil, err
	}
	return v, nil
}
func (v *Values) WithNodeID(id NodeID) Node {
	nv := *v
	nv.base = base{id: id}
	return &nv
}
func (v *Values) String() string { return fmt.Sprintf("Values(%d rows)", len(v.Rows)) }

func (v *Values) Expressions() []expr.Node {
	var out []expr.Node
	for _, row := range v.Rows {
		out = append(out, row...)
	}
	return out
}

func (v *Values) WithExpressions(exprs ...expr.Node) (Node, error) {
	width := len(v.outputs)
	if width == 0 || len(exprs)%width != 0 {
		return nil, fmt.Errorf("plan: Values.WithExpressions got %d exprs, width %d", len(exprs), width)
	}
	rows := make([][]expr.Node, len(exprs)/width)
	for i := range rows {
		rows[i] = append([]expr.Node{}, exprs[i*width:(i+1)*width]...)
	}
	nv := *v
	nv.Rows = rows
	return &nv, nil
}
