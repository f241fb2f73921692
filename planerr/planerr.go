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

// Package planerr defines the typed error kinds the optimizer core raises,
// grounded on the teacher's gopkg.in/src-d/go-errors.v1 convention (see
// the vendored sql/analyzer/rules.go ErrColumnTableNotFound/
// ErrAmbiguousColumnName/ErrFieldMissing kinds).
package planerr

import (
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrNotSupported is raised when a plan shape or expression form the
	// core does not handle reaches a rule that requires it (spec §6.2:
	// "raise ErrNotSupported rather than silently skip or corrupt the plan").
	ErrNotSupported = errors.NewKind("not supported: %s")

	// ErrTypeMismatch is raised when a symbol's declared type and its
	// resolved expression type disagree, surfaced by optimizer.Validate.
	ErrTypeMismatch = errors.NewKind("type mismatch for %s: declared %s, resolved %s")

	// ErrInternal wraps an invariant violation detected by the core
	// itself rather than by input validation.
	ErrInternal = errors.NewKind("internal error: %s")

	// ErrCancelled is raised when a rule observes ctx.Err() != nil mid-run
	// (spec §6.2 "long-running passes must check ctx between nodes").
	ErrCancelled = errors.NewKind("analysis cancelled: %s")
)
