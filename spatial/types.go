// Copyright 2025 The cazipcode Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"
	"math"
)

const (
	earthRadius   = 6371e3 // meters
	metersPerMile = 1609.344

	// MilesPerLatDegree is the length of one degree of latitude used to size
	// bounding boxes. It is slightly larger than the value implied by
	// earthRadius, so boxes need a safety above 1 to cover the radius.
	MilesPerLatDegree = 69.172

	// DefaultSafety over-expands bounding boxes so they never exclude a point
	// that is within the radius.
	DefaultSafety = 1.05
)

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// DistanceMiles is the great-circle distance between two points in miles.
func (p *Point) DistanceMiles(other *Point) float64 {
	return p.HaversineDistance(other) / metersPerMile
}

// Box is a closed latitude/longitude rectangle.
type Box struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether p lies inside the box, borders included.
func (b Box) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// BoundingBox returns a rectangle that contains every point within
// radiusMiles of center. The latitude half extent is radius*safety divided by
// MilesPerLatDegree; safety values below 1 are raised to 1. The longitude half
// extent is the larger of the same division by the miles per longitude degree
// at the center and the widest longitude reached by the spherical cap, which
// dominates at high latitudes.
//
// When the box would reach a pole or cross the antimeridian, or the cap spans
// every meridian, the longitude range is widened to [-180, 180].
func BoundingBox(center Point, radiusMiles, safety float64) Box {
	if safety < 1 {
		safety = 1
	}

	radius := math.Abs(radiusMiles) * safety
	dLat := radius / MilesPerLatDegree

	box := Box{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLng: -180,
		MaxLng: 180,
	}

	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)

		return box
	}

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	dLng := radius / (cosLat * MilesPerLatDegree)

	// widest meridian of the cap: sin(dLng) = sin(d) / cos(lat)
	d := radius * metersPerMile / earthRadius
	if d >= math.Pi/2 || math.Sin(d) >= cosLat {
		return box
	}

	dLng = math.Max(dLng, math.Asin(math.Sin(d)/cosLat)*180/math.Pi)

	if center.Lng-dLng < -180 || center.Lng+dLng > 180 {
		return box
	}

	box.MinLng = center.Lng - dLng
	box.MaxLng = center.Lng + dLng

	return box
}
