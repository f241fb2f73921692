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

// TransformUp rewrites n bottom-up: children are transformed first, then
// fn is applied to the node with its (possibly new) children. Grounded
// on the teacher's sql/plan TransformUp convention (sql/plan/transform_test.go),
// generalized to the expression algebra.
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

// TransformDown rewrites n top-down: fn is applied first, then the
// (possibly new) node's children are recursively transformed.
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

// Replace substitutes every occurrence of old (by structural Equal) with
// replacement, used by Project pushdown's assignment-substitution
// inlining (spec §4.4).
func Replace(n Node, old, replacement Node) (Node, error) {
	return TransformUp(n, func(node Node) (Node, error) {
		if node.Equal(old) {
			return replacement, nil
		}
		return node, nil
	})
}

// Equivalent reports whether a and b are structurally identical (a.Equal(b),
// with no normalization of AND/OR nesting or operand order), used by the
// round-trip equivalence tests of spec §8 rather than by re-deriving full
// semantic equivalence.
func Equivalent(a, b Node) bool {
	return a.Equal(b)
}
