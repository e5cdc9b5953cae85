// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"errors"
	"fmt"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsInvalidQuery(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{name: "invalid query", err: invalidQuery("lat without lng"), want: true},
		{name: "wrapped", err: fmt.Errorf("find: %w", invalidQuery("x")), want: true},
		{name: "invalid argument", err: invalidArgument("x"), want: false},
		{name: "plain error", err: errors.New("invalid query"), want: false},
		{name: "nil", err: nil, want: false},
	}, IsInvalidQuery)
}

func TestIsInvalidArgument(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{name: "invalid argument", err: invalidArgument("prefix has to be a string"), want: true},
		{name: "invalid query", err: invalidQuery("x"), want: false},
	}, IsInvalidArgument)
}

func TestIsNoMatch(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{
			name: "no match",
			err:  &SearchError{Type: ErrorTypeNoMatch, Message: "no city matches"},
			want: true,
		},
		{name: "data source", err: NewDataSourceError("query", errors.New("boom")), want: false},
	}, IsNoMatch)
}

func TestIsDataSourceError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDataSourceError("failed to query postal codes", cause)

	runErrorCheckTest(t, []errorCheckTestCase{
		{name: "data source", err: err, want: true},
		{name: "wrapped", err: fmt.Errorf("session: %w", err), want: true},
		{name: "cause", err: cause, want: false},
	}, IsDataSourceError)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}

	if got, want := err.Error(), "failed to query postal codes: connection reset"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		t    ErrorType
		want string
	}{
		{ErrorTypeInvalidQuery, "invalid query"},
		{ErrorTypeNoMatch, "no match"},
		{ErrorType(42), "ErrorType(42)"},
	}

	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
