// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCities = []string{
	"Calgary", "Gatineau", "Halifax", "Kanata", "Moncton", "Montreal", "Nepean",
	"Ottawa", "Regina", "St. John's", "Toronto", "Vancouver", "Whitehorse", "Winnipeg",
}

var testProvinces = []string{"AB", "BC", "MB", "NB", "NL", "NS", "ON", "QC", "SK", "YT"}

func TestResolveRoundTrip(t *testing.T) {
	r := NewResolver(0)
	cities := NewVocabulary("city", testCities, nil)
	provinces := NewProvinceVocabulary(testProvinces)

	for _, v := range []*Vocabulary{cities, provinces} {
		for _, canonical := range v.Values() {
			got, err := r.Resolve(v, canonical)
			require.NoError(t, err)
			assert.Equal(t, canonical, got)
		}
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(DefaultMatchThreshold)
	cities := NewVocabulary("city", testCities, nil)
	provinces := NewProvinceVocabulary(testProvinces)

	tests := []struct {
		name  string
		vocab *Vocabulary
		input string
		want  string
	}{
		{"lowercase code", provinces, "on", "ON"},
		{"full name", provinces, "Ontario", "ON"},
		{"typo in full name", provinces, "otraio", "ON"},
		{"accent folded", provinces, "quebec", "QC"},
		{"accented input", provinces, "Québec", "QC"},
		{"spaces", provinces, "  british   columbia ", "BC"},
		{"exact city", cities, "Ottawa", "Ottawa"},
		{"city typo", cities, "ottwa", "Ottawa"},
		{"city transposition", cities, "tronto", "Toronto"},
		{"punctuation", cities, "st johns", "St. John's"},
		{"accented city", cities, "Montréal", "Montreal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.vocab, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := NewResolver(0)
	cities := NewVocabulary("city", testCities, nil)

	for _, input := range []string{"xyz", "qq", "", "   "} {
		_, err := r.Resolve(cities, input)
		assert.Truef(t, IsNoMatch(err), "input %q: %v", input, err)
	}

	_, err := r.Resolve(NewVocabulary("city", nil, nil), "Ottawa")
	assert.True(t, IsNoMatch(err))
}

func TestResolveTieBreak(t *testing.T) {
	v := NewVocabulary("area_name", []string{"Beta", "Alpha"}, map[string][]string{
		"Beta":  {"shared"},
		"Alpha": {"shared"},
	})

	got, err := NewResolver(0).Resolve(v, "Shared")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got)
}

func TestVocabulary(t *testing.T) {
	v := NewVocabulary("city", []string{"Ottawa", "", "Gatineau", "Ottawa"}, map[string][]string{
		"Nowhere": {"ignored"},
	})

	assert.Equal(t, "city", v.Name())
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []string{"Gatineau", "Ottawa"}, v.Values())
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("ottawa", "ottawa"))
	assert.Equal(t, 0.0, Similarity("", "ottawa"))
	assert.Greater(t, Similarity("ottwa", "ottawa"), Similarity("ottwa", "montreal"))
}

func TestNewResolverThreshold(t *testing.T) {
	assert.Equal(t, DefaultMatchThreshold, NewResolver(0).Threshold())
	assert.Equal(t, DefaultMatchThreshold, NewResolver(1.5).Threshold())
	assert.Equal(t, 0.9, NewResolver(0.9).Threshold())

	// a strict resolver rejects typos the default accepts
	_, err := NewResolver(0.95).Resolve(NewVocabulary("city", testCities, nil), "tronto")
	assert.True(t, IsNoMatch(err))
}
