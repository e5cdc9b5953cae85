// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"context"
	"iter"
)

// Ordering is the order in which a Source returns records.
type Ordering struct {
	// Field orders by a field; FieldNone leaves the order to the source.
	Field Field
	// Descending reverses Field. Nulls stay last and ties are broken by
	// ascending postal code either way.
	Descending bool
	// Random shuffles the records and takes precedence over Field.
	Random bool
}

// Selection is the request a Session sends to a Handle.
type Selection struct {
	// Predicates are combined with AND.
	Predicates []Predicate
	Order      Ordering
	// Limit caps the number of records; zero means no cap.
	Limit int
}

// Handle is an open connection to a Source. A Handle serves one goroutine at
// a time and must be closed exactly once.
type Handle interface {
	// Select streams the records matching sel. Failures are yielded as
	// ErrorTypeDataSource errors, after which the sequence ends. Callers may
	// stop iterating at any time.
	Select(ctx context.Context, sel Selection) iter.Seq2[PostalCode, error]
	Close() error
}

// Source is the read-only dataset a query runs against.
type Source interface {
	// Open acquires a Handle.
	Open(ctx context.Context) (Handle, error)
	// Distinct returns the distinct non-empty values of a text field, in
	// lexicographic order. It is safe for concurrent use.
	Distinct(ctx context.Context, field Field) ([]string, error)
}
