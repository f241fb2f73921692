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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/queryplancore/sqltype"
)

func TestDomainIntersectNarrowsRange(t *testing.T) {
	a := Domain{Typ: sqltype.Int32Type, Ranges: []Range{{Low: int32(1), LowInclusive: true, High: int32(10), HighInclusive: true}}}
	b := Domain{Typ: sqltype.Int32Type, Ranges: []Range{{Low: int32(5), LowInclusive: true, High: int32(20), HighInclusive: true}}}
	got := a.Intersect(b)
	require.Len(t, got.Ranges, 1)
	require.Equal(t, int32(5), got.Ranges[0].Low)
	require.Equal(t, int32(10), got.Ranges[0].High)
}

func TestDomainIntersectDisjointIsNone(t *testing.T) {
	a := Single(sqltype.Int32Type, int32(1))
	b := Single(sqltype.Int32Type, int32(2))
	require.True(t, a.Intersect(b).IsNone())
}

func TestDomainSimplifyMergesAdjacentRanges(t *testing.T) {
	d := Domain{Typ: sqltype.Int32Type, Ranges: []Range{
		{Low: int32(1), LowInclusive: true, High: int32(5), HighInclusive: true},
		{Low: int32(5), LowInclusive: false, High: int32(10), HighInclusive: true},
	}}
	got := d.Simplify()
	require.Len(t, got.Ranges, 1)
	require.Equal(t, int32(1), got.Ranges[0].Low)
	require.Equal(t, int32(10), got.Ranges[0].High)
}

func TestTupleDomainIntersectOfDisjointSinglesIsNone(t *testing.T) {
	// intersecting two tuple domains whose shared column holds disjoint
	// single values collapses the whole tuple domain to None.
	td := NewTupleDomain[uint64]().WithColumn(1, Single(sqltype.Int32Type, int32(7)))
	other := NewTupleDomain[uint64]().WithColumn(1, Single(sqltype.Int32Type, int32(8)))
	require.True(t, td.Intersect(other).None)
}
