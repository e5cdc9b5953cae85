// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"errors"
	"iter"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/jcodagnone/cazipcode/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ottawa = spatial.Point{Lat: 45.4215, Lng: -75.6972}

func seqOf(codes []PostalCode) iter.Seq2[PostalCode, error] {
	return func(yield func(PostalCode, error) bool) {
		for _, p := range codes {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// ring returns n records due north of center, the i-th at i+1 miles.
func ring(center spatial.Point, n int) []PostalCode {
	ret := make([]PostalCode, n)
	for i := range ret {
		ret[i] = PostalCode{
			Code:      string(rune('A'+i)) + "0A 0A0",
			Latitude:  center.Lat + float64(i+1)/spatial.MilesPerLatDegree,
			Longitude: center.Lng,
		}
	}

	return ret
}

func distances(center spatial.Point, codes []PostalCode) []float64 {
	ret := make([]float64, len(codes))
	for i, p := range codes {
		point := p.Point()
		ret[i] = center.DistanceMiles(&point)
	}

	return ret
}

func TestFindWithinRadiusNearest(t *testing.T) {
	codes := ring(ottawa, 20)
	shuffled := slices.Clone(codes)
	rand.New(rand.NewPCG(1, 2)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	f := NewFinder(0)

	got, err := f.FindWithinRadius(ottawa, 10.5, seqOf(shuffled), FieldNone, false, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, codes[:5], got)
	assert.IsNonDecreasing(t, distances(ottawa, got))

	got, err = f.FindWithinRadius(ottawa, 10.5, seqOf(shuffled), FieldNone, true, 3)
	require.NoError(t, err)
	// farthest in radius are the 10th, 9th and 8th
	assert.Equal(t, []PostalCode{codes[9], codes[8], codes[7]}, got)
	assert.IsNonIncreasing(t, distances(ottawa, got))

	for _, d := range distances(ottawa, got) {
		assert.LessOrEqual(t, d, 10.5)
	}
}

func TestFindWithinRadiusFewerThanLimit(t *testing.T) {
	got, err := NewFinder(0).FindWithinRadius(ottawa, 3.5, seqOf(ring(ottawa, 20)), FieldNone, false, 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFindWithinRadiusTiesByCode(t *testing.T) {
	same := []PostalCode{
		{Code: "C0A 0A0", Latitude: ottawa.Lat, Longitude: ottawa.Lng},
		{Code: "A0A 0A0", Latitude: ottawa.Lat, Longitude: ottawa.Lng},
		{Code: "B0A 0A0", Latitude: ottawa.Lat, Longitude: ottawa.Lng},
	}

	got, err := NewFinder(0).FindWithinRadius(ottawa, 1, seqOf(same), FieldNone, false, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A0A 0A0", "B0A 0A0"}, []string{got[0].Code, got[1].Code})
}

func TestFindWithinRadiusStream(t *testing.T) {
	codes := ring(ottawa, 20)
	// sorted by code descending, as a source would when asked to
	slices.Reverse(codes)

	read := 0
	counted := func(yield func(PostalCode, error) bool) {
		for _, p := range codes {
			read++
			if !yield(p, nil) {
				return
			}
		}
	}

	got, err := NewFinder(0).FindWithinRadius(ottawa, 5.5, counted, FieldPostalCode, true, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"E0A 0A0", "D0A 0A0"}, []string{got[0].Code, got[1].Code})
	// the 15 out of radius records are scanned, the scan stops at the limit
	assert.Equal(t, 17, read)
}

func TestFindWithinRadiusHugeLimit(t *testing.T) {
	codes := ring(ottawa, 20)

	for _, sortBy := range []Field{FieldNone, FieldPostalCode} {
		got, err := NewFinder(0).FindWithinRadius(ottawa, 10.5, seqOf(codes), sortBy, false, math.MaxInt)
		require.NoError(t, err)
		assert.Len(t, got, 10)
	}
}

func TestFindWithinRadiusEmpty(t *testing.T) {
	codes := ring(ottawa, 5)
	f := NewFinder(0)

	for _, tt := range []struct {
		name   string
		radius float64
		limit  int
	}{
		{"zero radius", 0, 5},
		{"negative radius", -10, 5},
		{"zero limit", 100, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.FindWithinRadius(ottawa, tt.radius, seqOf(codes), FieldNone, false, tt.limit)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestFindWithinRadiusError(t *testing.T) {
	boom := NewDataSourceError("scan", errors.New("boom"))
	failing := func(yield func(PostalCode, error) bool) {
		if !yield(ring(ottawa, 1)[0], nil) {
			return
		}

		yield(PostalCode{}, boom)
	}

	for _, sortBy := range []Field{FieldNone, FieldPostalCode} {
		_, err := NewFinder(0).FindWithinRadius(ottawa, 100, failing, sortBy, false, 5)
		assert.ErrorIs(t, err, boom)
	}
}

func TestBoxPredicates(t *testing.T) {
	f := NewFinder(0)
	box := f.Box(ottawa, 10)
	preds := BoxPredicates(box)
	require.Len(t, preds, 4)

	for _, p := range ring(ottawa, 20) {
		point := p.Point()
		assert.Equal(t, box.Contains(point), MatchAll(preds, &p), p.Code)
	}

	assert.Equal(t, spatial.DefaultSafety, f.Safety)
	assert.Equal(t, 1.2, NewFinder(1.2).Safety)
}
