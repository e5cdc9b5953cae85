// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jcodagnone/cazipcode/postalcode"
)

// Header is the column layout of the dataset CSV files.
var Header = func() []string {
	ret := make([]string, len(postalcode.Fields))
	for i, f := range postalcode.Fields {
		ret[i] = f.String()
	}

	return ret
}()

// ReadCSV parses and validates a dataset. The first row is a header naming
// every column of Header, in any order. Empty elevation, population and
// dwellings cells are unknown values.
func ReadCSV(r io.Reader) ([]postalcode.PostalCode, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	head, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[postalcode.Field]int, len(head))

	for i, name := range head {
		f, err := postalcode.ParseField(name)
		if err != nil || f == postalcode.FieldNone {
			return nil, fmt.Errorf("unknown column %q", name)
		}

		columns[f] = i
	}

	for _, f := range postalcode.Fields {
		if _, ok := columns[f]; !ok {
			return nil, fmt.Errorf("missing column %q", f)
		}
	}

	var ret []postalcode.PostalCode

	seen := make(map[string]bool)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		line, _ := reader.FieldPos(0)

		p, err := parseRecord(record, columns)
		if err == nil {
			err = Validate(&p)
		}

		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if seen[p.Code] {
			return nil, fmt.Errorf("line %d: duplicated postal code %s", line, p.Code)
		}

		seen[p.Code] = true

		ret = append(ret, p)
	}

	return ret, nil
}

// LoadCSV reads a dataset file, decompressing ".gz" and ".zst" files.
func LoadCSV(path string) ([]postalcode.PostalCode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := Decompress(path, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer r.Close()

	codes, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return codes, nil
}

// Load reads the dataset at path, or the embedded sample when path is empty.
func Load(path string) ([]postalcode.PostalCode, error) {
	if path == "" {
		return Sample()
	}

	return LoadCSV(path)
}

func parseRecord(record []string, columns map[postalcode.Field]int) (postalcode.PostalCode, error) {
	var (
		p   postalcode.PostalCode
		err error
	)

	get := func(f postalcode.Field) string {
		return strings.TrimSpace(record[columns[f]])
	}

	p.Code = get(postalcode.FieldPostalCode)
	p.City = get(postalcode.FieldCity)
	p.Province = get(postalcode.FieldProvince)
	p.AreaName = get(postalcode.FieldAreaName)

	if p.AreaCode, err = parseInt(postalcode.FieldAreaCode, get(postalcode.FieldAreaCode)); err != nil {
		return p, err
	}

	if p.Timezone, err = parseInt(postalcode.FieldTimezone, get(postalcode.FieldTimezone)); err != nil {
		return p, err
	}

	if p.Latitude, err = parseFloat(postalcode.FieldLatitude, get(postalcode.FieldLatitude)); err != nil {
		return p, err
	}

	if p.Longitude, err = parseFloat(postalcode.FieldLongitude, get(postalcode.FieldLongitude)); err != nil {
		return p, err
	}

	if s := get(postalcode.FieldElevation); s != "" {
		v, err := parseFloat(postalcode.FieldElevation, s)
		if err != nil {
			return p, err
		}

		p.Elevation = &v
	}

	if p.Population, err = parseOptionalInt(postalcode.FieldPopulation, get(postalcode.FieldPopulation)); err != nil {
		return p, err
	}

	if p.Dwellings, err = parseOptionalInt(postalcode.FieldDwellings, get(postalcode.FieldDwellings)); err != nil {
		return p, err
	}

	s := strings.ToLower(get(postalcode.FieldDayLightSavings))
	switch s {
	case "1", "true":
		p.DayLightSavings = true
	case "0", "false":
	default:
		return p, fmt.Errorf("%s: invalid boolean %q", postalcode.FieldDayLightSavings, s)
	}

	return p, nil
}

func parseInt(f postalcode.Field, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", f, s)
	}

	return v, nil
}

func parseOptionalInt(f postalcode.Field, s string) (*int, error) {
	if s == "" {
		return nil, nil
	}

	v, err := parseInt(f, s)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

func parseFloat(f postalcode.Field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", f, s)
	}

	return v, nil
}
