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

// Package plan implements the immutable logical plan node algebra of spec
// §3.2, grounded on the teacher's sql.Node / sql/plan visitor conventions
// (sql/plan/transform_test.go TransformUp, sql/plan/walk_test.go Walk) and
// on the historical analyzer's TransformUp/TransformExpressionsUp idiom
// preserved in other_examples/213f4502_...rules.go.go.
package plan

import (
	"fmt"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/symbol"
)

// NodeID is a stable per-node identifier (spec §3.2, §6.2: "node ids of
// unchanged subtrees are preserved; new ids are allocated from a
// monotonic counter").
type NodeID uint64

// IDAllocator mints NodeIDs, mirroring symbol.Allocator.
type IDAllocator struct{ next uint64 }

func NewIDAllocator() *IDAllocator { return &IDAllocator{next: 1} }

func (a *IDAllocator) New() NodeID {
	id := a.next
	a.next++
	return NodeID(id)
}

// Node is one node of the logical plan DAG-of-trees.
type Node interface {
	ID() NodeID
	// Outputs is the ordered list of symbols this node produces.
	Outputs() []symbol.Symbol
	Children() []Node
	// WithChildren returns a structurally-shared copy of the node with
	// its children replaced; len(children) must equal len(Children()).
	// The returned node keeps the receiver's NodeID (spec §6.2); callers
	// that need a fresh id allocate one explicitly via WithID.
	WithChildren(children ...Node) (Node, error)
	String() string
}

// WithID is implemented by every node kind so passes that must mint a new
// identity (because the node's semantics, not just its children, changed)
// can do so without a type switch.
type WithID interface {
	WithNodeID(id NodeID) Node
}

// Filterable is implemented by node kinds that carry a predicate
// meaningful to predicate pushdown (spec §4.4): Filter, Join, SemiJoin,
// Unnest.
type Filterable interface {
	GetFilter() expr.Node
}

// base holds the identity shared by every node kind.
type base struct {
	id NodeID
}

func (b base) ID() NodeID { return b.id }

// WalkFn is called for every node in a pre-order traversal; returning
// false stops descent into that node's children (mirrors sql/plan's
// Visitor.Visit returning nil to stop).
type WalkFn func(Node) bool

// Walk performs a pre-order traversal rooted at n.
func Walk(n Node, fn WalkFn) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Inspect is Walk with a boolean-returning visitor, grounded on the
// teacher's sql/plan/walk_test.go Inspect helper.
func Inspect(n Node, fn func(Node) bool) { Walk(n, fn) }

// TransformUp rewrites n bottom-up: children first, then fn is applied to
// the node with its (possibly new) children (spec §9: explicit worklist
// is an acceptable alternative to recursion for very deep plans; this
// core uses natural recursion, per spec §9 "the recursion is otherwise
// natural").
func TransformUp(n Node, fn func(Node) (Node, error)) (Node, error) {
	if n == nil {
		return nil, nil
	}
	children := n.Children()
	if len(children) > 0 {
		newChildren := make([]Node, len(children))
		changed := false
		for i, c := range children {
			nc, err := TransformUp(c, fn)
			if err != nil {
				return nil, err
			}
			newChildren[i] = nc
			if nc != c {
				changed = true
			}
		}
		if changed {
			var err error
			n, err = n.WithChildren(newChildren...)
			if err != nil {
				return nil, err
			}
		}
	}
	return fn(n)
}

// TransformDown rewrites n top-down.
func TransformDown(n Node, fn func(Node) (Node, error)) (Node, error) {
	if n == nil {
		return nil, nil
	}
	n, err := fn(n)
	if err != nil {
		return nil, err
	}
	children := n.Children()
	if len(children) == 0 {
		return n, nil
	}
	newChildren := make([]Node, len(children))
	changed := false
	for i, c := range children {
		nc, err := TransformDown(c, fn)
		if err != nil {
			return nil, err
		}
		newChildren[i] = nc
		if nc != c {
			changed = true
		}
	}
	if !changed {
		return n, nil
	}
	return n.WithChildren(newChildren...)
}

// ExpressionHolder exposes the node-kind-specific expressions a node carries
// (filter predicates, Project assignments, Aggregation function args,
// etc), used by TransformExpressionsUp. Node kinds with no expressions of
// their own return nil.
type ExpressionHolder interface {
	Expressions() []expr.Node
	WithExpressions(exprs ...expr.Node) (Node, error)
}

// TransformExpressionsUp rewrites every expression carried by every node
// in the plan, bottom-up over both the plan tree and each expression tree,
// grounded on the historical analyzer's TransformExpressionsUp (other_examples
// rules.go pushdown/fixFieldIndexesOnExpressions use of the same idiom).
func TransformExpressionsUp(n Node, fn func(expr.Node) (expr.Node, error)) (Node, error) {
	return TransformUp(n, func(node Node) (Node, error) {
		eh, ok := node.(ExpressionHolder)
		if !ok {
			return node, nil
		}
		exprs := eh.Expressions()
		if len(exprs) == 0 {
			return node, nil
		}
		newExprs := make([]expr.Node, len(exprs))
		changed := false
		for i, e := range exprs {
			ne, err := expr.TransformUp(e, fn)
			if err != nil {
				return nil, err
			}
			newExprs[i] = ne
			if ne != e {
				changed = true
			}
		}
		if !changed {
			return node, nil
		}
		return eh.WithExpressions(newExprs...)
	})
}

func validateChildCount(kind string, want, got int) error {
	if want != got {
		return fmt.Errorf("plan: %s expects %d children, got %d", kind, want, got)
	}
	return nil
}
