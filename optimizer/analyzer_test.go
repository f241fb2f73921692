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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/queryplancore/catalog"
	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/plan"
	"github.com/dolthub/queryplancore/sqltype"
	"github.com/dolthub/queryplancore/symbol"
)

// noopMetadata satisfies catalog.Metadata for tests that never reach a
// pushdown path requiring real function/coercion resolution.
type noopMetadata struct{}

func (noopMetadata) ResolveOperator(context.Context, catalog.OperatorType, []sqltype.Type) (catalog.Signature, error) {
	return catalog.Signature{}, nil
}
func (noopMetadata) ResolveFunction(context.Context, string, []sqltype.Type) (catalog.Signature, error) {
	return catalog.Signature{}, nil
}
func (noopMetadata) GetCoercion(context.Context, sqltype.Type, sqltype.Type) (catalog.Signature, bool) {
	return catalog.Signature{}, false
}
func (noopMetadata) GetScalarFunctionImplementation(context.Context, catalog.Signature) (catalog.Invokable, error) {
	return nil, nil
}
func (noopMetadata) GetCommonSuperType(context.Context, sqltype.Type, sqltype.Type) (sqltype.Type, bool) {
	return sqltype.Type{}, false
}
func (noopMetadata) IsTypeOnlyCoercion(context.Context, sqltype.Type, sqltype.Type) bool { return false }
func (noopMetadata) IsTablePartitioningCompatible(context.Context, catalog.PartitioningHandle, catalog.PartitioningHandle) bool {
	return false
}

var _ catalog.Metadata = noopMetadata{}

func TestAnalyzeRunsDefaultPipelineAndPreservesOutputs(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	b := alloc.New("b", sqltype.Int32Type)

	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a, b}, nil)
	filter := plan.NewFilter(ids.New(),
		expr.NewComparison(expr.Gt, expr.NewSymbolRef(a), expr.NewLiteral(int32(0), sqltype.Int32Type)),
		scan)
	proj := plan.NewProject(ids.New(), filter, []plan.Assignment{
		{Symbol: a, Expr: expr.NewSymbolRef(a)},
	})

	session := NewStaticSession(DefaultSessionDefaults())
	az := NewAnalyzer(noopMetadata{}, session)
	az.IDs = ids

	out, err := az.Analyze(context.Background(), proj)
	require.NoError(t, err)
	require.Len(t, out.Outputs(), 1)
	require.True(t, out.Outputs()[0].Equal(a))
}

func TestBuilderWithoutRuleSkipsExchangeInsertion(t *testing.T) {
	alloc := symbol.NewAllocator()
	ids := plan.NewIDAllocator()
	a := alloc.New("a", sqltype.Int32Type)
	scan := plan.NewTableScan(ids.New(), "t", []symbol.Symbol{a}, nil)

	az := NewBuilder(noopMetadata{}, NewStaticSession(DefaultSessionDefaults())).
		WithoutRule("exchange_insert").
		Build()
	az.IDs = ids

	for _, r := range az.Pipeline {
		require.NotEqual(t, "exchange_insert", r.Name)
	}

	out, err := az.Analyze(context.Background(), scan)
	require.NoError(t, err)
	require.Len(t, out.Outputs(), 1)
}
