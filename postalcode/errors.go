// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"errors"
	"fmt"
)

// ErrorType classifies search errors.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidQuery inconsistent criteria, such as a partial geo triplet.
	ErrorTypeInvalidQuery
	// ErrorTypeInvalidArgument a criterion of the wrong type or an unknown key.
	ErrorTypeInvalidArgument
	// ErrorTypeNoMatch a name that resolves to no canonical entry.
	ErrorTypeNoMatch
	// ErrorTypeDataSource a failure reading from the candidate source.
	ErrorTypeDataSource
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:         "unknown",
	ErrorTypeInvalidQuery:    "invalid query",
	ErrorTypeInvalidArgument: "invalid argument",
	ErrorTypeNoMatch:         "no match",
	ErrorTypeDataSource:      "data source",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// SearchError is the error returned by every operation of this package.
type SearchError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *SearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// ErrSessionClosed is returned by queries on a closed Session.
var ErrSessionClosed = errors.New("postalcode: session closed")

func invalidQuery(format string, args ...any) error {
	return &SearchError{Type: ErrorTypeInvalidQuery, Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(format string, args ...any) error {
	return &SearchError{Type: ErrorTypeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NewDataSourceError wraps a failure of a Source. Sources wrap once at their
// boundary and the engine returns the error as is.
func NewDataSourceError(message string, err error) error {
	return &SearchError{Type: ErrorTypeDataSource, Message: message, Err: err}
}

func isType(err error, t ErrorType) bool {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr.Type == t
	}

	return false
}

// IsInvalidQuery reports whether err is an ErrorTypeInvalidQuery error.
func IsInvalidQuery(err error) bool { return isType(err, ErrorTypeInvalidQuery) }

// IsInvalidArgument reports whether err is an ErrorTypeInvalidArgument error.
func IsInvalidArgument(err error) bool { return isType(err, ErrorTypeInvalidArgument) }

// IsNoMatch reports whether err is an ErrorTypeNoMatch error.
func IsNoMatch(err error) bool { return isType(err, ErrorTypeNoMatch) }

// IsDataSourceError reports whether err is an ErrorTypeDataSource error.
func IsDataSourceError(err error) bool { return isType(err, ErrorTypeDataSource) }
