// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jcodagnone/cazipcode/dataset"
	"github.com/jcodagnone/cazipcode/postalcode"
)

// column is one column of a box-drawn table.
type column struct {
	title string
	width int
	right bool
}

type table struct {
	w       io.Writer
	columns []column
}

func (t *table) rule(left, mid, right string) {
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		parts[i] = strings.Repeat("─", c.width+2)
	}

	fmt.Fprintf(t.w, "%s%s%s\n", left, strings.Join(parts, mid), right)
}

func (t *table) row(values ...string) {
	cells := make([]string, len(t.columns))
	for i, c := range t.columns {
		v := values[i]
		if n := len([]rune(v)); n > c.width {
			v = string([]rune(v)[:c.width-1]) + "…"
		}

		if c.right {
			cells[i] = fmt.Sprintf(" %*s ", c.width, v)
		} else {
			cells[i] = fmt.Sprintf(" %-*s ", c.width, v)
		}
	}

	fmt.Fprintf(t.w, "│%s│\n", strings.Join(cells, "│"))
}

func (t *table) header() {
	t.rule("╭", "┬", "╮")

	titles := make([]string, len(t.columns))
	for i, c := range t.columns {
		titles[i] = c.title
	}

	t.row(titles...)
	t.rule("├", "┼", "┤")
}

func (t *table) footer() {
	t.rule("╰", "┴", "╯")
}

func optional[T any](v *T, format func(T) string) string {
	if v == nil {
		return "-"
	}

	return format(*v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// writeCodes prints postal codes as a table, or as JSON when asJSON is set.
func writeCodes(w io.Writer, codes []postalcode.PostalCode, asJSON bool) error {
	if asJSON {
		return writeJSON(w, codes)
	}

	t := &table{w: w, columns: []column{
		{title: "Code", width: 7},
		{title: "City", width: 18},
		{title: "Prov", width: 4},
		{title: "Area", width: 4, right: true},
		{title: "Area name", width: 16},
		{title: "Latitude", width: 10, right: true},
		{title: "Longitude", width: 11, right: true},
		{title: "Elev", width: 6, right: true},
		{title: "Population", width: 10, right: true},
		{title: "Dwellings", width: 9, right: true},
		{title: "TZ", width: 2, right: true},
		{title: "DST", width: 3},
	}}

	t.header()

	for i := range codes {
		p := &codes[i]
		dst := "no"
		if p.DayLightSavings {
			dst = "yes"
		}

		t.row(
			p.Code,
			p.City,
			p.Province,
			strconv.Itoa(p.AreaCode),
			p.AreaName,
			strconv.FormatFloat(p.Latitude, 'f', 6, 64),
			strconv.FormatFloat(p.Longitude, 'f', 6, 64),
			optional(p.Elevation, func(v float64) string { return strconv.FormatFloat(v, 'f', 0, 64) }),
			optional(p.Population, strconv.Itoa),
			optional(p.Dwellings, strconv.Itoa),
			strconv.Itoa(p.Timezone),
			dst,
		)
	}

	t.footer()
	fmt.Fprintf(w, "%d postal codes\n", len(codes))

	return nil
}

// writeCells prints H3 density cells as a table, or as JSON.
func writeCells(w io.Writer, cells []dataset.CellDensity, asJSON bool) error {
	if asJSON {
		return writeJSON(w, cells)
	}

	t := &table{w: w, columns: []column{
		{title: "Cell", width: 15},
		{title: "Codes", width: 5, right: true},
		{title: "Population", width: 10, right: true},
		{title: "Dwellings", width: 9, right: true},
		{title: "Center", width: 22},
	}}

	t.header()

	for _, c := range cells {
		t.row(
			c.Cell,
			strconv.Itoa(c.Codes),
			strconv.Itoa(c.Population),
			strconv.Itoa(c.Dwellings),
			fmt.Sprintf("%.5f, %.5f", c.Center.Lat, c.Center.Lng),
		)
	}

	t.footer()

	return nil
}
