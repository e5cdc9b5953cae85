// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset loads the postal code records and serves them to the
// search engine, either from memory or from a DuckDB database.
package dataset

import (
	"fmt"
	"regexp"

	"github.com/jcodagnone/cazipcode/postalcode"
)

// Bounds of the coordinates accepted for a Canadian postal code.
const (
	MinLatitude  = 41.0
	MaxLatitude  = 84.0
	MinLongitude = -142.0
	MaxLongitude = -52.0
)

var codePattern = regexp.MustCompile(`^[A-Z]\d[A-Z] \d[A-Z]\d$`)

// Validate checks the invariants the search engine relies upon: a
// well-formed postal code, coordinates inside Canada and non-negative
// counts.
func Validate(p *postalcode.PostalCode) error {
	if !codePattern.MatchString(p.Code) {
		return fmt.Errorf("malformed postal code %q", p.Code)
	}

	if len(p.Province) != 2 {
		return fmt.Errorf("%s: province has to be a 2-letter code, got %q", p.Code, p.Province)
	}

	if p.Latitude < MinLatitude || p.Latitude > MaxLatitude ||
		p.Longitude < MinLongitude || p.Longitude > MaxLongitude {
		return fmt.Errorf("%s: coordinates %v outside of Canada", p.Code, p.Point())
	}

	if p.Population != nil && *p.Population < 0 {
		return fmt.Errorf("%s: negative population %d", p.Code, *p.Population)
	}

	if p.Dwellings != nil && *p.Dwellings < 0 {
		return fmt.Errorf("%s: negative dwellings %d", p.Code, *p.Dwellings)
	}

	return nil
}
