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
	"github.com/mitchellh/hashstructure"

	"github.com/dolthub/queryplancore/catalog"
	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/symbol"
)

// ActualProperties describes what a subplan already guarantees about its
// physical layout (spec §4.5): its node-partitioning, any symbols known
// constant on every row, and local orderings.
type ActualProperties struct {
	SingleNode  bool
	Partitioned bool
	Columns     []symbol.Symbol
	Constants   map[uint64]bool
	Ordering    []plan.SortItem
}

// PreferredProperties is what a parent would like its child laid out as;
// satisfied is a best-effort check, not a hard requirement (spec §4.5
// "invariant 6: every parent's preferred properties are satisfied by its
// child's actual properties").
type PreferredProperties struct {
	Partitioning []symbol.Symbol
	SingleNode   bool
}

func (p PreferredProperties) satisfiedBy(a ActualProperties) bool {
	if p.SingleNode {
		return a.SingleNode
	}
	if len(p.Partitioning) == 0 {
		return true
	}
	if !a.Partitioned || len(a.Columns) != len(p.Partitioning) {
		return false
	}
	for i, s := range p.Partitioning {
		if !a.Columns[i].Equal(s) {
			return false
		}
	}
	return true
}

// ExchangeInsertion implements spec §4.5: computes, for each subplan,
// actual properties, and inserts an Exchange wherever the parent's
// preferred properties are not already satisfied. Grounded on the
// teacher's memoized-by-hash approach to repeated structural
// computation (mitchellh/hashstructure) so repeated visits of shared
// subplans during a single pass don't recompute actual properties.
type ExchangeInsertion struct {
	IDs      *plan.IDAllocator
	Session  catalog.Session
	Metadata catalog.Metadata

	memo map[uint64]memoEntry
}

type memoEntry struct {
	node   plan.Node
	actual ActualProperties
}

// memoKey combines a node's identity with the preferred-properties it
// was visited under; the same (node, preferred) pair recurs when a
// Union or replicated Join plans one side under a preference already
// computed for a sibling call.
func memoKey(node plan.Node, preferred PreferredProperties) uint64 {
	h, err := hashstructure.Hash(struct {
		ID        plan.NodeID
		Shape     string
		Preferred PreferredProperties
	}{ID: node.ID(), Shape: node.String(), Preferred: preferred}, nil)
	if err != nil {
		return 0
	}
	return h
}

// Run inserts exchanges under preferred and returns the rewritten
// subplan along with its actual properties.
func (ei *ExchangeInsertion) Run(node plan.Node, preferred PreferredProperties) (plan.Node, ActualProperties) {
	if ei.memo == nil {
		ei.memo = make(map[uint64]memoEntry)
	}
	key := memoKey(node, preferred)
	if cached, ok := ei.memo[key]; ok {
		return cached.node, cached.actual
	}
	rewritten, actual := ei.dispatch(node, preferred)
	ei.memo[key] = memoEntry{node: rewritten, actual: actual}
	return rewritten, actual
}

func (ei *ExchangeInsertion) dispatch(node plan.Node, preferred PreferredProperties) (plan.Node, ActualProperties) {
	switch n := node.(type) {
	case *plan.Aggregation:
		return ei.visitAggregation(n, preferred)
	case *plan.Join:
		return ei.visitJoin(n, preferred)
	case *plan.Window:
		return ei.visitWindowLike(n, n.PartitionBy, preferred)
	case *plan.RowNumber:
		return ei.visitRowNumberLike(n, n.PartitionBy, preferred)
	case *plan.TopNRowNumber:
		return ei.visitRowNumberLike(n, n.PartitionBy, preferred)
	case *plan.Sort:
		return ei.visitSort(n, preferred)
	case *plan.Limit:
		return ei.visitLimit(n, preferred)
	case *plan.SetOperation:
		if n.Kind == plan.Union {
			return ei.visitUnion(n, preferred)
		}
		return ei.gatherIfNeeded(node, preferred)
	case *plan.TableScan:
		if preferred.SingleNode {
			return ei.gather(node), ActualProperties{SingleNode: true}
		}
		return node, ActualProperties{SingleNode: false, Partitioned: false}
	default:
		return ei.passThrough(node, preferred)
	}
}

func (ei *ExchangeInsertion) passThrough(node plan.Node, preferred PreferredProperties) (plan.Node, ActualProperties) {
	children := node.Children()
	if len(children) == 0 {
		return node, ActualProperties{SingleNode: true}
	}
	newChildren := make([]plan.Node, len(children))
	var actual ActualProperties
	for i, c := range children {
		nc, a := ei.Run(c, preferred)
		newChildren[i] = nc
		if i == 0 {
			actual = a
		}
	}
	rebuilt, err := node.WithChildren(newChildren...)
	if err != nil {
		return node, actual
	}
	return rebuilt, actual
}

func (ei *ExchangeInsertion) gather(node plan.Node) plan.Node {
	outputs := node.Outputs()
	return plan.NewExchange(ei.IDs.New(), plan.Gather, plan.Remote, []plan.Node{node}, outputs, plan.PartitioningScheme{})
}

func (ei *ExchangeInsertion) repartition(node plan.Node, columns []symbol.Symbol) plan.Node {
	outputs := node.Outputs()
	return plan.NewExchange(ei.IDs.New(), plan.Repartition, plan.Remote, []plan.Node{node}, outputs, plan.PartitioningScheme{Columns: columns})
}

func (ei *ExchangeInsertion) gatherIfNeeded(node plan.Node, preferred PreferredProperties) (plan.Node, ActualProperties) {
	rebuilt, actual := ei.passThrough(node, preferred)
	if preferred.SingleNode && !actual.SingleNode {
		rebuilt = ei.gather(rebuilt)
		actual = ActualProperties{SingleNode: true}
	}
	return rebuilt, actual
}

// visitAggregation: non-empty grouping keys request partitioning on
// those keys; insert a partitioned remote exchange if the child isn't
// already so partitioned (spec §4.5).
func (ei *ExchangeInsertion) visitAggregation(a *plan.Aggregation, preferred PreferredProperties) (plan.Node, ActualProperties) {
	if len(a.GroupingKeys) == 0 {
		newSource, _ := ei.Run(a.Source, PreferredProperties{SingleNode: true})
		na := *a
		na.Source = newSource
		return &na, ActualProperties{SingleNode: true}
	}
	want := PreferredProperties{Partitioning: a.GroupingKeys}
	newSource, actual := ei.Run(a.Source, want)
	if !want.satisfiedBy(actual) {
		newSource = ei.repartition(newSource, a.GroupingKeys)
		actual = ActualProperties{Partitioned: true, Columns: a.GroupingKeys}
	}
	na := *a
	na.Source = newSource
	return &na, ActualProperties{Partitioned: true, Columns: a.GroupingKeys}
}

// visitJoin implements spec §4.5's Join rule for both distribution
// strategies.
func (ei *ExchangeInsertion) visitJoin(j *plan.Join, preferred PreferredProperties) (plan.Node, ActualProperties) {
	switch j.Distribution {
	case plan.Replicated:
		newLeft, leftActual := ei.Run(j.Left, PreferredProperties{})
		newRight, _ := ei.Run(j.Right, PreferredProperties{})
		if leftActual.SingleNode {
			newRight = ei.gather(newRight)
		} else {
			outputs := newRight.Outputs()
			newRight = plan.NewExchange(ei.IDs.New(), plan.ExchangeReplicate, plan.Remote, []plan.Node{newRight}, outputs, plan.PartitioningScheme{})
		}
		nj := *j
		nj.Left, nj.Right = newLeft, newRight
		return &nj, leftActual
	default: // Partitioned (or unknown, treated as partitioned per equi-clause keys)
		leftKeys := make([]symbol.Symbol, len(j.EquiClauses))
		rightKeys := make([]symbol.Symbol, len(j.EquiClauses))
		for i, eq := range j.EquiClauses {
			leftKeys[i], rightKeys[i] = eq.Left, eq.Right
		}
		newLeft, leftActual := ei.Run(j.Left, PreferredProperties{Partitioning: leftKeys})
		newRight, rightActual := ei.Run(j.Right, PreferredProperties{Partitioning: rightKeys})
		if len(leftKeys) > 0 {
			if !(PreferredProperties{Partitioning: leftKeys}).satisfiedBy(leftActual) {
				newLeft = ei.repartition(newLeft, leftKeys)
			}
			if !(PreferredProperties{Partitioning: rightKeys}).satisfiedBy(rightActual) {
				newRight = ei.repartition(newRight, rightKeys)
			}
		}
		nj := *j
		nj.Left, nj.Right = newLeft, newRight
		nj.Distribution = plan.Partitioned
		return &nj, ActualProperties{Partitioned: len(leftKeys) > 0, Columns: leftKeys}
	}
}

// visitWindowLike implements spec §4.5's Window rule: partitioned
// exchange on a non-empty partition-by, else a gather to single node.
func (ei *ExchangeInsertion) visitWindowLike(node plan.Node, partitionBy []symbol.Symbol, preferred PreferredProperties) (plan.Node, ActualProperties) {
	children := node.Children()
	if len(children) != 1 {
		return ei.passThrough(node, preferred)
	}
	var newSource plan.Node
	var actual ActualProperties
	if len(partitionBy) == 0 {
		newSource, actual = ei.Run(children[0], PreferredProperties{SingleNode: true})
		if !actual.SingleNode {
			newSource = ei.gather(newSource)
			actual = ActualProperties{SingleNode: true}
		}
	} else {
		want := PreferredProperties{Partitioning: partitionBy}
		newSource, actual = ei.Run(children[0], want)
		if !want.satisfiedBy(actual) {
			newSource = ei.repartition(newSource, partitionBy)
			actual = ActualProperties{Partitioned: true, Columns: partitionBy}
		}
	}
	rebuilt, err := node.WithChildren(newSource)
	if err != nil {
		return node, actual
	}
	return rebuilt, actual
}

func (ei *ExchangeInsertion) visitRowNumberLike(node plan.Node, partitionBy []symbol.Symbol, preferred PreferredProperties) (plan.Node, ActualProperties) {
	return ei.visitWindowLike(node, partitionBy, preferred)
}

// visitSort implements spec §4.5's Sort rule: distributed sort when the
// session enables it (round-robin exchange, local sort, merging
// exchange), else gather-then-sort.
func (ei *ExchangeInsertion) visitSort(s *plan.Sort, preferred PreferredProperties) (plan.Node, ActualProperties) {
	if ei.Session != nil && ei.Session.BoolProperty(catalog.DistributedSortEnabled) {
		newSource, _ := ei.Run(s.Source, PreferredProperties{})
		repartitioned := plan.NewExchange(ei.IDs.New(), plan.Repartition, plan.Remote, []plan.Node{newSource}, newSource.Outputs(), plan.PartitioningScheme{})
		ns := *s
		ns.Source = repartitioned
		merged := plan.NewExchange(ei.IDs.New(), plan.Gather, plan.Remote, []plan.Node{&ns}, ns.Outputs(), plan.PartitioningScheme{})
		merged.MergeOrder = s.OrderBy
		return merged, ActualProperties{SingleNode: true, Ordering: s.OrderBy}
	}
	newSource, actual := ei.Run(s.Source, PreferredProperties{SingleNode: true})
	if !actual.SingleNode {
		newSource = ei.gather(newSource)
	}
	ns := *s
	ns.Source = newSource
	return &ns, ActualProperties{SingleNode: true, Ordering: s.OrderBy}
}

// visitLimit implements spec §4.5's Limit rule: push a partial Limit
// below a gathering exchange, then re-limit above.
func (ei *ExchangeInsertion) visitLimit(l *plan.Limit, preferred PreferredProperties) (plan.Node, ActualProperties) {
	newSource, actual := ei.Run(l.Source, PreferredProperties{})
	if actual.SingleNode {
		nl := *l
		nl.Source = newSource
		return &nl, ActualProperties{SingleNode: true}
	}
	partial := plan.NewLimit(ei.IDs.New(), newSource, l.Count)
	partial.Partial = true
	gathered := ei.gather(partial)
	final := plan.NewLimit(ei.IDs.New(), gathered, l.Count)
	return final, ActualProperties{SingleNode: true}
}

// visitUnion implements spec §4.5's Union rule.
func (ei *ExchangeInsertion) visitUnion(so *plan.SetOperation, preferred PreferredProperties) (plan.Node, ActualProperties) {
	if len(preferred.Partitioning) > 0 {
		newSources := make([]plan.Node, len(so.Sources))
		for i, src := range so.Sources {
			translated := translatePartitioning(so, i, preferred.Partitioning)
			ns, actual := ei.Run(src, PreferredProperties{Partitioning: translated})
			if !(PreferredProperties{Partitioning: translated}).satisfiedBy(actual) {
				ns = ei.repartition(ns, translated)
			}
			newSources[i] = ns
		}
		nso := *so
		nso.Sources = newSources
		return &nso, ActualProperties{Partitioned: true, Columns: preferred.Partitioning}
	}

	var anyDistributed bool
	newSources := make([]plan.Node, len(so.Sources))
	for i, src := range so.Sources {
		ns, actual := ei.Run(src, PreferredProperties{})
		newSources[i] = ns
		if !actual.SingleNode {
			anyDistributed = true
		}
	}
	if !anyDistributed {
		nso := *so
		nso.Sources = newSources
		return &nso, ActualProperties{SingleNode: true}
	}
	for i, ns := range newSources {
		newSources[i] = ei.gather(ns)
	}
	nso := *so
	nso.Sources = newSources
	return &nso, ActualProperties{SingleNode: true}
}

func translatePartitioning(so *plan.SetOperation, sourceIndex int, cols []symbol.Symbol) []symbol.Symbol {
	out := make([]symbol.Symbol, 0, len(cols))
	for _, c := range cols {
		if in, ok := so.InputSymbolFor(c, sourceIndex); ok {
			out = append(out, in)
		} else {
			out = append(out, c)
		}
	}
	return out
}
