// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jcodagnone/cazipcode/postalcode"
	"github.com/jcodagnone/cazipcode/spatial"
	"github.com/uber/h3-go/v4"
)

// CellDensity summarizes the postal codes falling in one H3 cell.
type CellDensity struct {
	Cell       string        `json:"cell"`
	Resolution int           `json:"resolution"`
	Codes      int           `json:"codes"`
	Population int           `json:"population"` // sum of the known populations
	Dwellings  int           `json:"dwellings"`  // sum of the known dwellings
	Center     spatial.Point `json:"center"`     // mean of the member coordinates
}

// Density groups codes by H3 cell at resolution res and returns the cells by
// decreasing population, then by cell index.
func Density(codes []postalcode.PostalCode, res int) ([]CellDensity, error) {
	if res < 0 || res > 15 {
		return nil, fmt.Errorf("h3 resolution has to be between 0 and 15, got %d", res)
	}

	cells := make(map[h3.Cell]*CellDensity)

	for i := range codes {
		p := &codes[i]

		cell, err := h3.LatLngToCell(h3.NewLatLng(p.Latitude, p.Longitude), res)
		if err != nil {
			return nil, fmt.Errorf("error converting %s to h3 cell at res %d: %w", p.Code, res, err)
		}

		d, ok := cells[cell]
		if !ok {
			d = &CellDensity{Cell: cell.String(), Resolution: res}
			cells[cell] = d
		}

		d.Codes++
		d.Center.Lat += p.Latitude
		d.Center.Lng += p.Longitude

		if p.Population != nil {
			d.Population += *p.Population
		}

		if p.Dwellings != nil {
			d.Dwellings += *p.Dwellings
		}
	}

	ret := make([]CellDensity, 0, len(cells))

	for _, d := range cells {
		d.Center.Lat /= float64(d.Codes)
		d.Center.Lng /= float64(d.Codes)
		ret = append(ret, *d)
	}

	slices.SortFunc(ret, func(a, b CellDensity) int {
		if c := cmp.Compare(b.Population, a.Population); c != 0 {
			return c
		}

		return cmp.Compare(a.Cell, b.Cell)
	})

	return ret, nil
}
