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

// Package sqltype is the minimal SQL type surface the core needs: enough
// to describe a symbol's type and to let the expression interpreter and
// tuple-domain machinery compare and order values. The analyzer/catalog
// (external collaborator, spec §6.1) is the real source of truth for
// resolved types; this package only models what the core consumes.
package sqltype

import "fmt"

// Kind enumerates the SQL type families the core reasons about directly.
// Parameterized types (DECIMAL(p,s), VARCHAR(n)) carry their parameters
// alongside the Kind rather than growing the enum.
type Kind int

const (
	Unknown Kind = iota
	Boolean
	TinyInt
	SmallInt
	Integer
	BigInt
	Real
	Double
	Decimal
	Varchar
	Char
	Varbinary
	Date
	Time
	Timestamp
	Array
	Row
	Null
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case TinyInt:
		return "tinyint"
	case SmallInt:
		return "smallint"
	case Integer:
		return "integer"
	case BigInt:
		return "bigint"
	case Real:
		return "real"
	case Double:
		return "double"
	case Decimal:
		return "decimal"
	case Varchar:
		return "varchar"
	case Char:
		return "char"
	case Varbinary:
		return "varbinary"
	case Date:
		return "date"
	case Time:
		return "time"
	case Timestamp:
		return "timestamp"
	case Array:
		return "array"
	case Row:
		return "row"
	case Null:
		return "null"
	default:
		return "unknown"
	}
}

// Type is a resolved SQL type. Element is populated only for Array;
// Fields only for Row.
type Type struct {
	Kind    Kind
	Length  int // Varchar/Char/Varbinary length, 0 = unbounded
	Prec    int // Decimal precision
	Scale   int // Decimal scale
	Element *Type
	Fields  []NamedType
}

// NamedType is one field of a Row type.
type NamedType struct {
	Name string
	Type Type
}

func (t Type) String() string {
	switch t.Kind {
	case Varchar, Char, Varbinary:
		if t.Length > 0 {
			return fmt.Sprintf("%s(%d)", t.Kind, t.Length)
		}
		return t.Kind.String()
	case Decimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Prec, t.Scale)
	case Array:
		return fmt.Sprintf("array(%s)", t.Element)
	default:
		return t.Kind.String()
	}
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	return t.String() == o.String()
}

// IsNumeric reports whether arithmetic operators apply to t.
func (t Type) IsNumeric() bool {
	switch t.Kind {
	case TinyInt, SmallInt, Integer, BigInt, Real, Double, Decimal:
		return true
	default:
		return false
	}
}

// Convenience constructors mirroring the teacher's sql/types package
// (types.Int32, types.Text, ...).
var (
	BooleanType   = Type{Kind: Boolean}
	Int32Type     = Type{Kind: Integer}
	Int64Type     = Type{Kind: BigInt}
	Float64Type   = Type{Kind: Double}
	TextType      = Type{Kind: Varchar}
	NullType      = Type{Kind: Null}
	TimestampType = Type{Kind: Timestamp}
)

// TypeProvider is a total mapping from every live symbol to its SQL
// type (spec §3.1), looked up by symbol name. The symbol-keyed provider
// is a separate type, symbol.TypeProvider in symbol/typeprovider.go,
// kept in package symbol to avoid an import cycle; it does not implement
// this interface.
type TypeProvider interface {
	Lookup(name string) (Type, bool)
}

// StaticProvider is a TypeProvider backed by a fixed map, used in tests
// and for the catalog-supplied base type map before any pass has
// introduced new symbols.
type StaticProvider map[string]Type

func (p StaticProvider) Lookup(name string) (Type, bool) {
	t, ok := p[name]
	return t, ok
}
