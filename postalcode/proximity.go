// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"container/heap"
	"iter"

	"github.com/jcodagnone/cazipcode/spatial"
)

// Finder selects the records within a radius of a point.
//
// A radius query is answered in three steps. Box gives a rectangle that
// over-approximates the circle; sources use its predicates to prefilter
// candidates. FindWithinRadius then keeps the candidates whose great-circle
// distance is within the radius and selects the best ranked ones.
type Finder struct {
	// Safety scales the bounding box. Values below 1 act as 1.
	Safety float64
}

// NewFinder creates a Finder. A zero safety selects spatial.DefaultSafety.
func NewFinder(safety float64) Finder {
	if safety == 0 {
		safety = spatial.DefaultSafety
	}

	return Finder{Safety: safety}
}

// Box returns the prefilter rectangle of a radius query.
func (f Finder) Box(center spatial.Point, radiusMiles float64) spatial.Box {
	return spatial.BoundingBox(center, radiusMiles, f.Safety)
}

// BoxPredicates expresses a box as four latitude/longitude Range predicates.
func BoxPredicates(b spatial.Box) []Predicate {
	return []Predicate{
		Range{Field: FieldLatitude, Op: AtLeast, Bound: b.MinLat},
		Range{Field: FieldLatitude, Op: AtMost, Bound: b.MaxLat},
		Range{Field: FieldLongitude, Op: AtLeast, Bound: b.MinLng},
		Range{Field: FieldLongitude, Op: AtMost, Bound: b.MaxLng},
	}
}

// FindWithinRadius returns at most limit candidates within radiusMiles of
// center.
//
// With sortBy == FieldNone the result is ranked by distance, nearest first
// unless descending, and candidates may arrive in any order.
//
// Otherwise candidates must arrive sorted by sortBy in the requested
// direction; they are filtered by distance and the scan stops once limit
// records matched. The number of candidates read before that is not bounded
// by limit.
//
// A non-positive radius or limit returns an empty result. Candidate errors are
// returned unchanged.
func (f Finder) FindWithinRadius(
	center spatial.Point,
	radiusMiles float64,
	candidates iter.Seq2[PostalCode, error],
	sortBy Field,
	descending bool,
	limit int,
) ([]PostalCode, error) {
	if radiusMiles <= 0 || limit <= 0 {
		return []PostalCode{}, nil
	}

	if sortBy != FieldNone {
		return streamWithinRadius(center, radiusMiles, candidates, limit)
	}

	return nearestWithinRadius(center, radiusMiles, candidates, descending, limit)
}

func streamWithinRadius(
	center spatial.Point,
	radiusMiles float64,
	candidates iter.Seq2[PostalCode, error],
	limit int,
) ([]PostalCode, error) {
	ret := make([]PostalCode, 0, min(limit, 64))

	for p, err := range candidates {
		if err != nil {
			return nil, err
		}

		point := p.Point()
		if center.DistanceMiles(&point) > radiusMiles {
			continue
		}

		ret = append(ret, p)
		if len(ret) == limit {
			break
		}
	}

	return ret, nil
}

func nearestWithinRadius(
	center spatial.Point,
	radiusMiles float64,
	candidates iter.Seq2[PostalCode, error],
	descending bool,
	limit int,
) ([]PostalCode, error) {
	h := &rankHeap{descending: descending}

	for p, err := range candidates {
		if err != nil {
			return nil, err
		}

		point := p.Point()

		d := center.DistanceMiles(&point)
		if d > radiusMiles {
			continue
		}

		r := ranked{code: p, distance: d}

		switch {
		case h.Len() < limit:
			heap.Push(h, r)
		case h.before(r, h.items[0]):
			h.items[0] = r
			heap.Fix(h, 0)
		}
	}

	// the root is the last in output order
	ret := make([]PostalCode, h.Len())
	for i := len(ret) - 1; i >= 0; i-- {
		ret[i] = heap.Pop(h).(ranked).code
	}

	return ret, nil
}

type ranked struct {
	code     PostalCode
	distance float64
}

// rankHeap keeps the best ranked records seen so far with the worst one at
// the root: a max-heap on distance when ascending, a min-heap when
// descending.
type rankHeap struct {
	items      []ranked
	descending bool
}

// before reports whether a precedes b in output order. Equal distances are
// ordered by postal code.
func (h *rankHeap) before(a, b ranked) bool {
	if a.distance != b.distance {
		if h.descending {
			return a.distance > b.distance
		}

		return a.distance < b.distance
	}

	return a.code.Code < b.code.Code
}

func (h *rankHeap) Len() int           { return len(h.items) }
func (h *rankHeap) Less(i, j int) bool { return h.before(h.items[j], h.items[i]) }
func (h *rankHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *rankHeap) Push(x any)         { h.items = append(h.items, x.(ranked)) }

func (h *rankHeap) Pop() any {
	n := len(h.items)
	x := h.items[n-1]
	h.items = h.items[:n-1]

	return x
}
