// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCriteria(t *testing.T) {
	got, err := ParseCriteria(map[string]any{
		"lat":               45.477873,
		"lng":               -75.7211,
		"radius":            100,
		"province":          "on",
		"area_code":         613.0,
		"population_less":   json.Number("5000"),
		"day_light_savings": true,
		"sort_by":           "population",
		"ascending":         false,
		"returns":           10,
		"city":              nil,
	})
	require.NoError(t, err)

	want := Criteria{
		Lat:             Ptr(45.477873),
		Lng:             Ptr(-75.7211),
		Radius:          Ptr(100.0),
		Province:        Ptr("on"),
		AreaCode:        Ptr(613),
		PopulationLess:  Ptr(5000),
		DayLightSavings: Ptr(true),
		SortBy:          FieldPopulation,
		Descending:      true,
		Returns:         Ptr(10),
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCriteria() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCriteriaErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{"unknown key", map[string]any{"zip": "K1A"}},
		{"non-string prefix", map[string]any{"prefix": 123}},
		{"non-string substring", map[string]any{"substring": []string{"1A"}}},
		{"non-number lat", map[string]any{"lat": "45"}},
		{"fractional int", map[string]any{"returns": 2.5}},
		{"int overflow", map[string]any{"returns": 1e20}},
		{"int underflow", map[string]any{"returns": -1e20}},
		{"int overflow json", map[string]any{"returns": json.Number("1e20")}},
		{"int just past range", map[string]any{"timezone": float64(1 << 63)}},
		{"non-bool dst", map[string]any{"day_light_savings": "yes"}},
		{"unknown sort field", map[string]any{"sort_by": "colour"}},
		{"non-string sort field", map[string]any{"sort_by": 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCriteria(tt.args)
			assert.True(t, IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestParseCriteriaDecodedJSON(t *testing.T) {
	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"prefix":"K1A","returns":3,"day_light_savings":1}`), &args))

	got, err := ParseCriteria(args)
	require.NoError(t, err)
	assert.Equal(t, Ptr("K1A"), got.Prefix)
	assert.Equal(t, Ptr(3), got.Returns)
	assert.Equal(t, Ptr(true), got.DayLightSavings)
}

func TestParseCriteriaValues(t *testing.T) {
	values := url.Values{
		"lat_greater": {"45.10824"},
		"lat_less":    {"46.048956"},
		"timezone":    {"4", "5"},
		"ascending":   {"false"},
		"city":        {"ottawa"},
	}

	got, err := ParseCriteriaValues(values)
	require.NoError(t, err)

	want := Criteria{
		LatGreater: Ptr(45.10824),
		LatLess:    Ptr(46.048956),
		Timezone:   Ptr(5),
		City:       Ptr("ottawa"),
		Descending: true,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCriteriaValues() mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseCriteriaValues(url.Values{"radius": {"far"}})
	assert.True(t, IsInvalidArgument(err))

	_, err = ParseCriteriaValues(url.Values{"dst": {"true"}})
	assert.True(t, IsInvalidArgument(err))

	_, err = ParseCriteriaValues(url.Values{"returns": {"100000000000000000000"}})
	assert.True(t, IsInvalidArgument(err))
}

func TestCriteriaKeys(t *testing.T) {
	keys := CriteriaKeys()
	assert.Len(t, keys, 26)
	assert.Contains(t, keys, "day_light_savings")
	assert.IsNonDecreasing(t, keys)
}
