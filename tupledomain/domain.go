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

// Package tupledomain implements the range-union column-value-set
// reasoning of spec §3.4, grounded on the teacher's sql.Range/sql.RangeCollection
// style used throughout sql/analyzer/pushdown_test.go fixtures, generalized
// to a standalone, connector-agnostic value-set description.
package tupledomain

import (
	"fmt"
	"sort"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/sqltype"
)

// Ordered is the minimal comparison contract Domain needs over the values
// it stores; callers supply it alongside the raw value (typically via
// expr's own compareValues-style coercion at the boundary).
type Ordered interface {
	// Compare returns -1/0/1, mirroring sort.Interface conventions.
	Compare(other any) int
}

// Range is a single closed/open interval [Low, High] (nil endpoint means
// unbounded on that side). LowInclusive/HighInclusive default to true
// for a closed bound; a nil endpoint's inclusivity flag is ignored.
type Range struct {
	Low, High               any
	LowInclusive, HighInclusive bool
}

func (r Range) isSingleValue() bool {
	return r.Low != nil && r.High != nil && r.LowInclusive && r.HighInclusive && valuesEqual(r.Low, r.High)
}

// Domain is a union of Ranges over one column's type, plus whether NULL
// is an allowed value (spec §3.4).
type Domain struct {
	Typ        sqltype.Type
	Ranges     []Range
	NullAllowed bool
	// None marks the empty domain (no value, not even NULL, satisfies it)
	// — the bottom value distinct from a domain with zero ranges and
	// NullAllowed=false only in that None collapses a whole TupleDomain.
	None bool
}

// All returns the unconstrained domain (every value plus NULL allowed).
func All(t sqltype.Type) Domain {
	return Domain{Typ: t, Ranges: []Range{{}}, NullAllowed: true}
}

// NoneDomain returns the bottom domain.
func NoneDomain(t sqltype.Type) Domain { return Domain{Typ: t, None: true} }

// OnlyNull returns a domain containing nothing but NULL.
func OnlyNull(t sqltype.Type) Domain { return Domain{Typ: t, NullAllowed: true} }

// Single returns a domain containing exactly one non-null value.
func Single(t sqltype.Type, v any) Domain {
	return Domain{Typ: t, Ranges: []Range{{Low: v, High: v, LowInclusive: true, HighInclusive: true}}}
}

// IsAll reports whether d places no restriction at all.
func (d Domain) IsAll() bool {
	if d.None || !d.NullAllowed || len(d.Ranges) != 1 {
		return false
	}
	r := d.Ranges[0]
	return r.Low == nil && r.High == nil
}

// IsNone reports the bottom domain.
func (d Domain) IsNone() bool { return d.None }

// Intersect computes the per-domain intersection (spec §3.4 `intersect`).
func (d Domain) Intersect(o Domain) Domain {
	if d.None || o.None {
		return NoneDomain(d.Typ)
	}
	var ranges []Range
	for _, a := range d.Ranges {
		for _, b := range o.Ranges {
			if r, ok := intersectRange(a, b); ok {
				ranges = append(ranges, r)
			}
		}
	}
	out := Domain{Typ: d.Typ, Ranges: ranges, NullAllowed: d.NullAllowed && o.NullAllowed}
	if len(ranges) == 0 && !out.NullAllowed {
		out.None = true
	}
	return out.Simplify()
}

// Union computes the per-domain union (spec §3.4 `union`).
func (d Domain) Union(o Domain) Domain {
	if d.None {
		return o
	}
	if o.None {
		return d
	}
	out := Domain{Typ: d.Typ, Ranges: append(append([]Range{}, d.Ranges...), o.Ranges...), NullAllowed: d.NullAllowed || o.NullAllowed}
	return out.Simplify()
}

// Simplify coalesces adjacent/overlapping ranges and bounds the number of
// discrete single-value ranges kept as an explicit IN-list before
// collapsing to an unbounded range (spec §3.4 `simplify`).
func (d Domain) Simplify() Domain {
	if d.None || len(d.Ranges) == 0 {
		return d
	}
	ranges := append([]Range{}, d.Ranges...)
	sort.Slice(ranges, func(i, j int) bool { return lowLess(ranges[i], ranges[j]) })
	var merged []Range
	for _, r := range ranges {
		if len(merged) == 0 {
			merged = append(merged, r)
			continue
		}
		last := &merged[len(merged)-1]
		if overlapsOrAdjacent(*last, r) {
			*last = unionTwo(*last, r)
		} else {
			merged = append(merged, r)
		}
	}
	const maxDiscreteValues = 128
	allSingle := true
	for _, r := range merged {
		if !r.isSingleValue() {
			allSingle = false
			break
		}
	}
	if allSingle && len(merged) > maxDiscreteValues {
		merged = []Range{{}}
	}
	return Domain{Typ: d.Typ, Ranges: merged, NullAllowed: d.NullAllowed}
}

// ToPredicate renders d as an expression over ref (spec §3.4 `toPredicate`).
func (d Domain) ToPredicate(ref expr.Node) expr.Node {
	if d.None {
		return expr.FalseLiteral
	}
	var disjuncts []expr.Node
	singles := singleValues(d.Ranges)
	if len(singles) > 1 {
		lits := make([]expr.Node, len(singles))
		for i, v := range singles {
			lits[i] = expr.NewLiteral(v, d.Typ)
		}
		disjuncts = append(disjuncts, expr.NewIn(ref, lits...))
	} else {
		for _, r := range d.Ranges {
			disjuncts = append(disjuncts, rangePredicate(ref, d.Typ, r))
		}
	}
	pred := expr.JoinDisjuncts(disjuncts...)
	if d.NullAllowed {
		pred = expr.JoinDisjuncts(pred, expr.NewIsNull(ref))
	}
	return pred
}

func rangePredicate(ref expr.Node, t sqltype.Type, r Range) expr.Node {
	if r.isSingleValue() {
		return expr.NewEquals(ref, expr.NewLiteral(r.Low, t))
	}
	var conjuncts []expr.Node
	if r.Low != nil {
		op := expr.Gte
		if !r.LowInclusive {
			op = expr.Gt
		}
		conjuncts = append(conjuncts, expr.NewComparison(op, ref, expr.NewLiteral(r.Low, t)))
	}
	if r.High != nil {
		op := expr.Lte
		if !r.HighInclusive {
			op = expr.Lt
		}
		conjuncts = append(conjuncts, expr.NewComparison(op, ref, expr.NewLiteral(r.High, t)))
	}
	return expr.JoinConjuncts(conjuncts...)
}

func singleValues(ranges []Range) []any {
	var out []any
	for _, r := range ranges {
		if !r.isSingleValue() {
			return nil
		}
		out = append(out, r.Low)
	}
	return out
}

func (d Domain) String() string {
	if d.None {
		return "NONE"
	}
	return fmt.Sprintf("%v null=%v", d.Ranges, d.NullAllowed)
}

func intersectRange(a, b Range) (Range, bool) {
	low, lowIncl := maxLow(a, b)
	high, highIncl := minHigh(a, b)
	if low != nil && high != nil {
		cmp := compareAny(low, high)
		if cmp > 0 || (cmp == 0 && !(lowIncl && highIncl)) {
			return Range{}, false
		}
	}
	return Range{Low: low, High: high, LowInclusive: lowIncl, HighInclusive: highIncl}, true
}

func maxLow(a, b Range) (any, bool) {
	if a.Low == nil {
		return b.Low, b.LowInclusive
	}
	if b.Low == nil {
		return a.Low, a.LowInclusive
	}
	cmp := compareAny(a.Low, b.Low)
	switch {
	case cmp > 0:
		return a.Low, a.LowInclusive
	case cmp < 0:
		return b.Low, b.LowInclusive
	default:
		return a.Low, a.LowInclusive && b.LowInclusive
	}
}

func minHigh(a, b Range) (any, bool) {
	if a.High == nil {
		return b.High, b.HighInclusive
	}
	if b.High == nil {
		return a.High, a.HighInclusive
	}
	cmp := compareAny(a.High, b.High)
	switch {
	case cmp < 0:
		return a.High, a.HighInclusive
	case cmp > 0:
		return b.High, b.HighInclusive
	default:
		return a.High, a.HighInclusive && b.HighInclusive
	}
}

func lowLess(a, b Range) bool {
	if a.Low == nil {
		return b.Low != nil || false
	}
	if b.Low == nil {
		return false
	}
	return compareAny(a.Low, b.Low) < 0
}

func overlapsOrAdjacent(a, b Range) bool {
	if a.High == nil || b.Low == nil {
		return true
	}
	cmp := compareAny(a.High, b.Low)
	return cmp > 0 || (cmp == 0 && (a.HighInclusive || b.LowInclusive))
}

func unionTwo(a, b Range) Range {
	out := a
	if b.High == nil || (out.High != nil && compareAny(b.High, out.High) > 0) {
		out.High = b.High
		out.HighInclusive = b.HighInclusive
	}
	if b.Low == nil || (out.Low != nil && compareAny(b.Low, out.Low) < 0) {
		out.Low = b.Low
		out.LowInclusive = b.LowInclusive
	}
	return out
}

func valuesEqual(a, b any) bool { return compareAny(a, b) == 0 }

// compareAny orders two domain endpoint values; numeric values compare
// numerically, everything else falls back to fmt-based string ordering,
// matching the permissive coercion already used by expr's interpreter.
func compareAny(a, b any) int {
	switch av := a.(type) {
	case int32:
		if bv, ok := toInt64(b); ok {
			return compareInt64(int64(av), bv)
		}
	case int64:
		if bv, ok := toInt64(b); ok {
			return compareInt64(av, bv)
		}
	case float64:
		if bv, ok := toFloat64(b); ok {
			return compareFloat64(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
