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

// Package catalog declares the external collaborator interfaces the core
// consumes (spec §6.1) — metadata resolution and session state. The core
// never implements these; analyzer/catalog/session plumbing lives outside
// this module, grounded on the teacher's sql.Catalog / sql.Session split
// (sql/analyzer/pushdown_test.go wires analyzer.NewDefault against a
// sql.DatabaseProvider the same way this package's Metadata stands in for
// the catalog side and Session stands in for sql.Session).
package catalog

import (
	"context"

	"github.com/dolthub/queryplancore/expr"
	"github.com/dolthub/queryplancore/sqltype"
)

// Signature describes a resolved operator/function overload: its declared
// argument types and return type.
type Signature struct {
	Name       string
	ArgTypes   []sqltype.Type
	ReturnType sqltype.Type
}

// Invokable is the catalog-supplied scalar implementation bound to a
// FuncInvoker for the expression interpreter (spec §4.1, §6.1
// getScalarFunctionImplementation).
type Invokable func(args []any) (any, error)

// OperatorType enumerates the operator families resolveOperator dispatches
// on (comparisons, arithmetic — the core's own expr package already names
// the specific operator; this exists so Metadata.ResolveOperator can be
// called generically across both families without two separate methods).
type OperatorType int

const (
	ComparisonOperator OperatorType = iota
	ArithmeticOperator
)

// Metadata is the synchronous metadata/catalog service the core consults
// during pushdown (function/coercion resolution) and exchange insertion
// (table-partitioning compatibility) — spec §6.1.
type Metadata interface {
	ResolveOperator(ctx context.Context, op OperatorType, argTypes []sqltype.Type) (Signature, error)
	ResolveFunction(ctx context.Context, qualifiedName string, argTypes []sqltype.Type) (Signature, error)
	GetCoercion(ctx context.Context, from, to sqltype.Type) (Signature, bool)
	GetScalarFunctionImplementation(ctx context.Context, sig Signature) (Invokable, error)
	GetCommonSuperType(ctx context.Context, a, b sqltype.Type) (sqltype.Type, bool)
	IsTypeOnlyCoercion(ctx context.Context, a, b sqltype.Type) bool
	IsTablePartitioningCompatible(ctx context.Context, left, right PartitioningHandle) bool
}

// PartitioningHandle opaquely identifies a table's physical partitioning,
// compared only via Metadata.IsTablePartitioningCompatible.
type PartitioningHandle interface {
	PartitioningHandleKey() string
}

// Session exposes the flat session-property map of spec §6.1, at minimum
// the properties the pushdown and exchange-insertion passes branch on.
type Session interface {
	// Property returns the raw value of a named session property and
	// whether it is set; BoolProperty is the common-case accessor.
	Property(name string) (any, bool)
	BoolProperty(name string) bool
}

// Well-known session property names referenced directly by the optimizer
// package (spec §6.1).
const (
	EnableDynamicFiltering     = "enableDynamicFiltering"
	SkipRedundantSort          = "skipRedundantSort"
	OptimizeTopNRowNumber      = "optimizeTopNRowNumber"
	ForceSingleNodeOutput      = "forceSingleNodeOutput"
	DistributedIndexJoinEnabled = "distributedIndexJoinEnabled"
	ScaleWriters               = "scaleWriters"
	RedistributeWrites         = "redistributeWrites"
	ColocatedJoinEnabled       = "colocatedJoinEnabled"
	PreferStreamingOperators   = "preferStreamingOperators"
	DistributedSortEnabled     = "distributedSortEnabled"
)

// ExpressionTypeMap is the per-expression type/coercion map the analyzer
// hands the core alongside the plan (spec §6.1 "analyzed plan ... plus
// per-expression type map and per-expression coercion map").
type ExpressionTypeMap struct {
	Types     expr.TypeMap
	Coercions map[expr.Node]Signature
}

func (m ExpressionTypeMap) TypeOf(n expr.Node) (sqltype.Type, bool) { return m.Types.TypeOf(n) }
