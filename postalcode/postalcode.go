// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

// Package postalcode answers spatial and attribute queries over a read-only
// dataset of Canadian postal codes.
//
// An Engine is built once per dataset Source; it owns the canonical
// vocabularies used to resolve free-text province, city and area names. Each
// Session wraps one Handle on the Source and runs queries described by a
// Criteria value.
package postalcode

import (
	"strings"

	"github.com/jcodagnone/cazipcode/spatial"
)

// PostalCodeLength is the length of a formatted postal code such as "K1A 0B1".
const PostalCodeLength = 7

// PostalCode is a geocoded postal code record. Records are immutable once
// loaded.
//
// Ordering and equality only look at Code. Codes are unique in a dataset, so
// two records compare equal only when they are the same record.
type PostalCode struct {
	Code            string   `json:"postalcode"`        // "K1A 0B1"
	City            string   `json:"city"`              // "Ottawa"
	Province        string   `json:"province"`          // "ON"
	AreaCode        int      `json:"area_code"`         // 613
	AreaName        string   `json:"area_name"`         // "Ottawa"
	Latitude        float64  `json:"latitude"`          // degrees
	Longitude       float64  `json:"longitude"`         // degrees
	Elevation       *float64 `json:"elevation"`         // meters, unknown when nil
	Population      *int     `json:"population"`        // unknown when nil
	Dwellings       *int     `json:"dwellings"`         // unknown when nil
	Timezone        int      `json:"timezone"`          // hours behind UTC
	DayLightSavings bool     `json:"day_light_savings"` // observes DST
}

// Point returns the record coordinates.
func (p *PostalCode) Point() spatial.Point {
	return spatial.Point{Lat: p.Latitude, Lng: p.Longitude}
}

// Compare orders two records by postal code.
func Compare(a, b PostalCode) int {
	return strings.Compare(a.Code, b.Code)
}

// Equal reports whether two records share the same postal code.
func (p *PostalCode) Equal(other *PostalCode) bool {
	return p.Code == other.Code
}
