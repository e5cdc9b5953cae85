// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"context"
	"strings"
)

// Ranking is the order and size of the result of a convenience query.
type Ranking struct {
	SortBy     Field
	Descending bool
	// Returns caps the result; zero selects the engine default.
	Returns int
}

// DefaultRanking orders by ascending postal code.
var DefaultRanking = Ranking{SortBy: FieldPostalCode}

func (r Ranking) apply(c Criteria) Criteria {
	c.SortBy = r.SortBy
	c.Descending = r.Descending

	if r.Returns != 0 {
		c.Returns = Ptr(r.Returns)
	}

	return c
}

// Envelope is a latitude, longitude and elevation box. Nil bounds are open.
type Envelope struct {
	LatGreater       *float64
	LatLess          *float64
	LngGreater       *float64
	LngLess          *float64
	ElevationGreater *float64
	ElevationLess    *float64
}

// Near returns the records within radius miles of (lat, lng). A Ranking with
// FieldNone ranks by distance.
func (s *Session) Near(ctx context.Context, lat, lng, radius float64, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{Lat: &lat, Lng: &lng, Radius: &radius}))
}

// ByPrefix returns the records whose postal code starts with prefix.
func (s *Session) ByPrefix(ctx context.Context, prefix string, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{Prefix: &prefix}))
}

// BySubstring returns the records whose postal code contains substring.
func (s *Session) BySubstring(ctx context.Context, substring string, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{Substring: &substring}))
}

// ByProvince returns the records of a province, given by code or name.
func (s *Session) ByProvince(ctx context.Context, province string, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{Province: &province}))
}

// ByCity returns the records of a city.
func (s *Session) ByCity(ctx context.Context, city string, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{City: &city}))
}

// ByAreaName returns the records of an area.
func (s *Session) ByAreaName(ctx context.Context, areaName string, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{AreaName: &areaName}))
}

// ByAreaCode returns the records with a telephone area code.
func (s *Session) ByAreaCode(ctx context.Context, areaCode int, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{AreaCode: &areaCode}))
}

// ByLatLngElevation returns the records inside an envelope.
func (s *Session) ByLatLngElevation(ctx context.Context, env Envelope, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{
		LatGreater:       env.LatGreater,
		LatLess:          env.LatLess,
		LngGreater:       env.LngGreater,
		LngLess:          env.LngLess,
		ElevationGreater: env.ElevationGreater,
		ElevationLess:    env.ElevationLess,
	}))
}

// ByPopulation returns the records with a population in [greater, less].
func (s *Session) ByPopulation(ctx context.Context, greater, less *int, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{PopulationGreater: greater, PopulationLess: less}))
}

// ByDwellings returns the records with a dwellings count in [greater, less].
func (s *Session) ByDwellings(ctx context.Context, greater, less *int, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{DwellingsGreater: greater, DwellingsLess: less}))
}

// ByTimezone returns the records with a timezone equal to tz, or in
// [greater, less].
func (s *Session) ByTimezone(ctx context.Context, tz, greater, less *int, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{Timezone: tz, TimezoneGreater: greater, TimezoneLess: less}))
}

// ByDayLightSavings returns the records that observe, or not, daylight
// saving time.
func (s *Session) ByDayLightSavings(ctx context.Context, dst bool, r Ranking) ([]PostalCode, error) {
	return s.Find(ctx, r.apply(Criteria{DayLightSavings: &dst}))
}

// NormalizeCode upper-cases a postal code and inserts the middle space when
// missing: "k1a0b1" becomes "K1A 0B1".
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.Join(strings.Fields(code), ""))
	if len(code) == PostalCodeLength-1 {
		code = code[:3] + " " + code[3:]
	}

	return code
}

// ByPostalCode looks up one record by its postal code.
func (s *Session) ByPostalCode(ctx context.Context, code string) (PostalCode, bool, error) {
	if s.closed.Load() {
		return PostalCode{}, false, ErrSessionClosed
	}

	ret, err := s.collect(ctx, Selection{
		Predicates: []Predicate{Equal{Field: FieldPostalCode, Value: TextValue(NormalizeCode(code))}},
		Limit:      1,
	})
	if err != nil || len(ret) == 0 {
		return PostalCode{}, false, err
	}

	return ret[0], true, nil
}

// All returns every record of the dataset ordered by sortBy, or by postal
// code when sortBy is FieldNone.
func (s *Session) All(ctx context.Context, sortBy Field, descending bool) ([]PostalCode, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	if sortBy == FieldNone {
		sortBy = FieldPostalCode
	}

	return s.collect(ctx, Selection{Order: Ordering{Field: sortBy, Descending: descending}})
}

// Random returns n records picked at random.
func (s *Session) Random(ctx context.Context, n int) ([]PostalCode, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	if n <= 0 {
		return []PostalCode{}, nil
	}

	return s.collect(ctx, Selection{Order: Ordering{Random: true}, Limit: n})
}
