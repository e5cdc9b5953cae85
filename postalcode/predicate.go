// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"fmt"
	"strconv"
	"strings"
)

// Predicate is one condition of a conjunctive query. The concrete types are
// Range, Equal, Prefix, Substring and Never; sources translate them by type.
type Predicate interface {
	// Match evaluates the predicate against a record.
	Match(p *PostalCode) bool
	String() string
	predicate()
}

// RangeOp is the comparison of a Range predicate.
type RangeOp int

const (
	// AtLeast is field >= bound.
	AtLeast RangeOp = iota
	// AtMost is field <= bound.
	AtMost
)

// String returns the SQL operator.
func (op RangeOp) String() string {
	if op == AtMost {
		return "<="
	}

	return ">="
}

// Range is an inclusive inequality on a numeric field. Null values never
// match.
type Range struct {
	Field Field
	Op    RangeOp
	Bound float64
}

func (Range) predicate() {}

func (r Range) Match(p *PostalCode) bool {
	v := p.Get(r.Field)
	if v.Null || v.Kind != KindNumber {
		return false
	}

	if r.Op == AtMost {
		return v.Number <= r.Bound
	}

	return v.Number >= r.Bound
}

func (r Range) String() string {
	return fmt.Sprintf("%s %s %s", r.Field, r.Op, strconv.FormatFloat(r.Bound, 'g', -1, 64))
}

// Equal is an exact match on a field. Null values never match.
type Equal struct {
	Field Field
	Value Value
}

func (Equal) predicate() {}

func (e Equal) Match(p *PostalCode) bool {
	v := p.Get(e.Field)
	if v.Null || e.Value.Null || v.Kind != e.Value.Kind {
		return false
	}

	return compareValues(v, e.Value) == 0
}

func (e Equal) String() string {
	return fmt.Sprintf("%s = %s", e.Field, e.Value)
}

// Prefix matches postal codes starting with Text.
type Prefix struct {
	Text string
}

func (Prefix) predicate() {}

func (x Prefix) Match(p *PostalCode) bool { return strings.HasPrefix(p.Code, x.Text) }

func (x Prefix) String() string { return fmt.Sprintf("postalcode starts with %q", x.Text) }

// Substring matches postal codes containing Text.
type Substring struct {
	Text string
}

func (Substring) predicate() {}

func (x Substring) Match(p *PostalCode) bool { return strings.Contains(p.Code, x.Text) }

func (x Substring) String() string { return fmt.Sprintf("postalcode contains %q", x.Text) }

// Never matches nothing.
type Never struct{}

func (Never) predicate() {}

func (Never) Match(*PostalCode) bool { return false }

func (Never) String() string { return "false" }

// MatchAll reports whether p satisfies every predicate. An empty list
// matches everything.
func MatchAll(predicates []Predicate, p *PostalCode) bool {
	for _, pred := range predicates {
		if !pred.Match(p) {
			return false
		}
	}

	return true
}
