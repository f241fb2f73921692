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

package optimizer

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/planerr"
	"github.com/dolthub/queryplancore/symbol"
)

// Validate checks the spec §6.3 output-boundary invariants: no pre-
// planning-only constructs remain, every Join has an explicit
// distribution, and every referenced symbol is in scope. Errors from
// every node are aggregated via hashicorp/go-multierror rather than
// failing on the first violation, so a caller sees the whole set of
// boundary breaks in one pass (grounded on the teacher's
// go-multierror-style aggregation for batch rule failures).
func Validate(root plan.Node) error {
	var result *multierror.Error
	plan.Walk(root, func(n plan.Node) bool {
		if err := validateNode(n); err != nil {
			result = multierror.Append(result, err)
		}
		if err := validateScope(n); err != nil {
			result = multierror.Append(result, err)
		}
		return true
	})
	return result.ErrorOrNil()
}

func validateNode(n plan.Node) error {
	switch v := n.(type) {
	case *plan.Apply:
		return planerr.ErrInternal.New(fmt.Sprintf("Apply node %d survived to optimizer boundary", v.ID()))
	case *plan.CorrelatedJoin:
		return planerr.ErrInternal.New(fmt.Sprintf("CorrelatedJoin node %d survived to optimizer boundary", v.ID()))
	case *plan.Join:
		if v.Distribution == plan.DistributionUnknown {
			return planerr.ErrInternal.New(fmt.Sprintf("Join node %d has no distribution type after exchange insertion", v.ID()))
		}
	}
	for _, e := range nodeExpressions(n) {
		if err := validateExpr(n, e); err != nil {
			return err
		}
	}
	return nil
}

// nodeExpressions returns the expressions a node carries, preferring the
// ExpressionHolder view (which already includes the filter predicate for
// node kinds like Join/SemiJoin/Unnest that implement both interfaces)
// and falling back to Filterable for kinds that only implement that one.
func nodeExpressions(n plan.Node) []expr.Node {
	if holder, ok := n.(plan.ExpressionHolder); ok {
		return holder.Expressions()
	}
	if f, ok := n.(plan.Filterable); ok {
		if filt := f.GetFilter(); filt != nil {
			return []expr.Node{filt}
		}
	}
	return nil
}

func validateExpr(owner plan.Node, e expr.Node) error {
	var found error
	walkExpr(e, func(n expr.Node) {
		switch n.(type) {
		case *expr.Subquery:
			found = planerr.ErrInternal.New(fmt.Sprintf("Subquery expression survived to optimizer boundary in node %d", owner.ID()))
		case *expr.Exists:
			found = planerr.ErrInternal.New(fmt.Sprintf("Exists expression survived to optimizer boundary in node %d", owner.ID()))
		case *expr.QuantifiedComparison:
			found = planerr.ErrInternal.New(fmt.Sprintf("QuantifiedComparison expression survived to optimizer boundary in node %d", owner.ID()))
		}
	})
	return found
}

func walkExpr(e expr.Node, fn func(expr.Node)) {
	if e == nil {
		return
	}
	fn(e)
	for _, c := range e.Children() {
		walkExpr(c, fn)
	}
}

// validateScope checks spec §6.3's "every symbol referenced is either a
// plan-node output below the reference point or a constant": every free
// symbol in n's own expressions must be produced by one of n's children
// (constants never appear as expr.Node free symbols, so no separate case
// is needed).
func validateScope(n plan.Node) error {
	available := symbol.NewSet()
	for _, c := range n.Children() {
		for _, s := range c.Outputs() {
			available.Add(s)
		}
	}

	check := func(e expr.Node) error {
		if e == nil {
			return nil
		}
		for _, s := range expr.FreeSymbols(e).List() {
			if !available.Contains(s) && !nodeOwnSymbol(n, s) {
				return planerr.ErrInternal.New(fmt.Sprintf("symbol %s referenced out of scope at node %d", s, n.ID()))
			}
		}
		return nil
	}

	for _, e := range nodeExpressions(n) {
		if err := check(e); err != nil {
			return err
		}
	}
	return nil
}

// nodeOwnSymbol reports whether s is a symbol n itself introduces (e.g. a
// Project assignment target, an Aggregation's aggregate symbol) rather
// than one it must have received from a child — such symbols legitimately
// appear free in a sibling expression of the same node (e.g. a HAVING
// predicate folded into Aggregation referencing its own aggregate output).
func nodeOwnSymbol(n plan.Node, s symbol.Symbol) bool {
	for _, out := range n.Outputs() {
		if out.Equal(s) {
			return true
		}
	}
	return false
}
