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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

func TestExchangeInsertionGathersTableScanWhenSingleNodeRequested(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)

	ei := &ExchangeInsertion{IDs: ids}
	out, actual := ei.Run(scan, PreferredProperties{SingleNode: true})

	ex, ok := out.(*plan.Exchange)
	require.True(t, ok, "expected a Gather Exchange above the scan, got %T", out)
	require.Equal(t, plan.Gather, ex.Kind)
	require.True(t, actual.SingleNode)
}

func TestExchangeInsertionSkipsGatherWhenNotRequested(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)

	ei := &ExchangeInsertion{IDs: ids}
	out, actual := ei.Run(scan, PreferredProperties{})

	require.Equal(t, scan, out)
	require.False(t, actual.SingleNode)
}

func TestExchangeInsertionAggregationRepartitionsOnGroupingKeys(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	k := alloc.New("k", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{k}, nil)
	agg := plan.NewAggregation(ids.New(), scan, []symbol.Symbol{k}, nil)

	ei := &ExchangeInsertion{IDs: ids}
	out, actual := ei.Run(agg, PreferredProperties{})

	rebuilt, ok := out.(*plan.Aggregation)
	require.True(t, ok, "expected the Aggregation to stay rooted, got %T", out)
	ex, ok := rebuilt.Source.(*plan.Exchange)
	require.True(t, ok, "expected a Repartition Exchange under the Aggregation, got %T", rebuilt.Source)
	require.Equal(t, plan.Repartition, ex.Kind)
	require.True(t, actual.Partitioned)
}

func TestExchangeInsertionIsMemoizedForSameNodeAndPreference(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)

	ei := &ExchangeInsertion{IDs: ids}
	out1, _ := ei.Run(scan, PreferredProperties{SingleNode: true})
	out2, _ := ei.Run(scan, PreferredProperties{SingleNode: true})

	require.Equal(t, out1.(*plan.Exchange).ID(), out2.(*plan.Exchange).ID())
}
