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

package tupledomain

import (
	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/sqltype"
)

// TupleDomain is a finite mapping from column handle to Domain, plus the
// bottom value "none" (spec §3.4). It is generic over the key type rather
// than hard-wired to symbol.Symbol: symbol.Symbol embeds sqltype.Type,
// which carries a slice field (Fields, for ROW types) and is therefore
// not a `comparable` type itself, so it cannot instantiate K directly.
// Callers in package optimizer instantiate TupleDomain[uint64] keyed by
// symbol id, which is exactly the identifier symbol.Symbol.Equal compares.
type TupleDomain[K comparable] struct {
	Domains map[K]Domain
	None    bool
}

// NewTupleDomain builds an unconstrained ("all") tuple domain.
func NewTupleDomain[K comparable]() *TupleDomain[K] {
	return &TupleDomain[K]{Domains: make(map[K]Domain)}
}

// NoneTupleDomain returns the bottom tuple domain.
func NoneTupleDomain[K comparable]() *TupleDomain[K] {
	return &TupleDomain[K]{None: true}
}

func (t *TupleDomain[K]) WithColumn(k K, d Domain) *TupleDomain[K] {
	if t.None {
		return t
	}
	out := &TupleDomain[K]{Domains: make(map[K]Domain, len(t.Domains)+1)}
	for kk, vv := range t.Domains {
		out.Domains[kk] = vv
	}
	if d.IsNone() {
		return NoneTupleDomain[K]()
	}
	out.Domains[k] = d
	return out
}

// Intersect computes the column-wise intersection (spec §3.4).
func (t *TupleDomain[K]) Intersect(o *TupleDomain[K]) *TupleDomain[K] {
	if t.None || o.None {
		return NoneTupleDomain[K]()
	}
	out := &TupleDomain[K]{Domains: make(map[K]Domain, len(t.Domains)+len(o.Domains))}
	for k, d := range t.Domains {
		out.Domains[k] = d
	}
	for k, d := range o.Domains {
		if existing, ok := out.Domains[k]; ok {
			d = existing.Intersect(d)
		}
		if d.IsNone() {
			return NoneTupleDomain[K]()
		}
		out.Domains[k] = d
	}
	return out
}

// Union computes the column-wise union over only the columns constrained
// in both operands — a column absent from one side is unconstrained there,
// so the union over that column is the unconstrained (all) domain, i.e.
// the column is dropped from the result (spec §3.4 `union`).
func (t *TupleDomain[K]) Union(o *TupleDomain[K]) *TupleDomain[K] {
	if t.None {
		return o
	}
	if o.None {
		return t
	}
	out := &TupleDomain[K]{Domains: make(map[K]Domain)}
	for k, d := range t.Domains {
		if od, ok := o.Domains[k]; ok {
			out.Domains[k] = d.Union(od)
		}
	}
	return out
}

// Simplify applies Domain.Simplify column-wise (spec §3.4 `simplify`).
func (t *TupleDomain[K]) Simplify() *TupleDomain[K] {
	if t.None {
		return t
	}
	out := &TupleDomain[K]{Domains: make(map[K]Domain, len(t.Domains))}
	for k, d := range t.Domains {
		out.Domains[k] = d.Simplify()
	}
	return out
}

// Transform rekeys every column through fn, dropping columns fn maps to
// a not-ok result (spec §3.4 `transform`).
func Transform[K comparable, K2 comparable](t *TupleDomain[K], fn func(K) (K2, bool)) *TupleDomain[K2] {
	if t.None {
		return NoneTupleDomain[K2]()
	}
	out := &TupleDomain[K2]{Domains: make(map[K2]Domain, len(t.Domains))}
	for k, d := range t.Domains {
		if k2, ok := fn(k); ok {
			out.Domains[k2] = d
		}
	}
	return out
}

// ToPredicate renders t as a conjunction of per-column predicates over
// the expression produced by ref for each key (spec §3.4 `toPredicate`).
func (t *TupleDomain[K]) ToPredicate(ref func(K) expr.Node) expr.Node {
	if t.None {
		return expr.FalseLiteral
	}
	var conjuncts []expr.Node
	for k, d := range t.Domains {
		if d.IsAll() {
			continue
		}
		conjuncts = append(conjuncts, d.ToPredicate(ref(k)))
	}
	return expr.JoinConjuncts(conjuncts...)
}

// FromPredicateResult is the decomposition produced by FromPredicate.
type FromPredicateResult[K comparable] struct {
	TupleDomain *TupleDomain[K]
	Remaining   expr.Node
}

// FromPredicate decomposes e into the largest tuple-domain-representable
// portion (comparisons, IS NULL, and bounded IN lists against a single
// symbol) plus whatever conjunct could not be represented (spec §3.4
// `fromPredicate`, round-trip law of spec §8).
func FromPredicate(e expr.Node, keyOf func(expr.Node) (uint64, sqltype.Type, bool)) FromPredicateResult[uint64] {
	td := NewTupleDomain[uint64]()
	var remaining []expr.Node
	for _, c := range expr.Conjuncts(e) {
		d, k, ok := domainFromConjunct(c, keyOf)
		if !ok {
			remaining = append(remaining, c)
			continue
		}
		existing, has := td.Domains[k]
		if has {
			d = existing.Intersect(d)
		}
		td = td.WithColumn(k, d)
	}
	return FromPredicateResult[uint64]{TupleDomain: td, Remaining: expr.JoinConjuncts(remaining...)}
}

func domainFromConjunct(c expr.Node, keyOf func(expr.Node) (uint64, sqltype.Type, bool)) (Domain, uint64, bool) {
	switch n := c.(type) {
	case *expr.IsNullTest:
		k, t, ok := keyOf(n.Arg)
		if !ok {
			return Domain{}, 0, false
		}
		if n.Negated {
			return Domain{Typ: t, Ranges: []Range{{}}, NullAllowed: false}, k, true
		}
		return OnlyNull(t), k, true
	case *expr.Comparison:
		ref, lit, ok := splitRefLiteral(n.Left, n.Right)
		if !ok {
			return Domain{}, 0, false
		}
		k, t, ok := keyOf(ref)
		if !ok {
			return Domain{}, 0, false
		}
		d, ok := rangeDomainFor(n.Op, t, lit)
		return d, k, ok
	case *expr.In:
		k, t, ok := keyOf(n.Arg)
		if !ok {
			return Domain{}, 0, false
		}
		d := NoneDomain(t)
		for _, item := range n.List {
			lit, ok := item.(*expr.Literal)
			if !ok {
				return Domain{}, 0, false
			}
			d = d.Union(Single(t, lit.Value))
		}
		return d, k, true
	default:
		return Domain{}, 0, false
	}
}

func splitRefLiteral(l, r expr.Node) (ref expr.Node, lit *expr.Literal, ok bool) {
	if v, isLit := r.(*expr.Literal); isLit {
		if _, isRef := l.(*expr.SymbolRef); isRef {
			return l, v, true
		}
	}
	if v, isLit := l.(*expr.Literal); isLit {
		if _, isRef := r.(*expr.SymbolRef); isRef {
			return r, v, true
		}
	}
	return nil, nil, false
}

func rangeDomainFor(op expr.CompareOp, t sqltype.Type, lit *expr.Literal) (Domain, bool) {
	if lit.Value == nil {
		return Domain{}, false
	}
	switch op {
	case expr.Eq:
		return Single(t, lit.Value), true
	case expr.Lt:
		return Domain{Typ: t, Ranges: []Range{{High: lit.Value, HighInclusive: false}}}, true
	case expr.Lte:
		return Domain{Typ: t, Ranges: []Range{{High: lit.Value, HighInclusive: true}}}, true
	case expr.Gt:
		return Domain{Typ: t, Ranges: []Range{{Low: lit.Value, LowInclusive: false}}}, true
	case expr.Gte:
		return Domain{Typ: t, Ranges: []Range{{Low: lit.Value, LowInclusive: true}}}, true
	case expr.Neq:
		return Domain{Typ: t, Ranges: []Range{
			{High: lit.Value, HighInclusive: false},
			{Low: lit.Value, LowInclusive: false},
		}}, true
	default:
		return Domain{}, false
	}
}
