// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Field identifies one attribute of a PostalCode.
type Field int

const (
	// FieldNone means no field; radius queries rank by distance.
	FieldNone Field = iota
	FieldPostalCode
	FieldCity
	FieldProvince
	FieldAreaCode
	FieldAreaName
	FieldLatitude
	FieldLongitude
	FieldElevation
	FieldPopulation
	FieldDwellings
	FieldTimezone
	FieldDayLightSavings
)

// Fields lists every record field in column order.
var Fields = []Field{
	FieldPostalCode,
	FieldCity,
	FieldProvince,
	FieldAreaCode,
	FieldAreaName,
	FieldLatitude,
	FieldLongitude,
	FieldElevation,
	FieldPopulation,
	FieldDwellings,
	FieldTimezone,
	FieldDayLightSavings,
}

var fieldNames = map[Field]string{
	FieldNone:            "",
	FieldPostalCode:      "postalcode",
	FieldCity:            "city",
	FieldProvince:        "province",
	FieldAreaCode:        "area_code",
	FieldAreaName:        "area_name",
	FieldLatitude:        "latitude",
	FieldLongitude:       "longitude",
	FieldElevation:       "elevation",
	FieldPopulation:      "population",
	FieldDwellings:       "dwellings",
	FieldTimezone:        "timezone",
	FieldDayLightSavings: "day_light_savings",
}

// String returns the column name of the field.
func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}

	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField maps a column name to its Field. The empty string maps to
// FieldNone.
func ParseField(name string) (Field, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range fieldNames {
		if n == name {
			return f, nil
		}
	}

	return FieldNone, &SearchError{
		Type:    ErrorTypeInvalidArgument,
		Message: fmt.Sprintf("unknown field %q", name),
	}
}

// Kind is the value type of a field.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBool
)

// Kind returns the value type stored in the field.
func (f Field) Kind() Kind {
	switch f {
	case FieldPostalCode, FieldCity, FieldProvince, FieldAreaName:
		return KindText
	case FieldDayLightSavings:
		return KindBool
	default:
		return KindNumber
	}
}

// Value is a null-aware field value.
type Value struct {
	Kind   Kind
	Null   bool
	Text   string
	Number float64
	Flag   bool
}

// TextValue wraps a string.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Flag: b} }

func nullValue(k Kind) Value { return Value{Kind: k, Null: true} }

// Key is a canonical string for the value, used to key inverted indexes.
func (v Value) Key() string {
	if v.Null {
		return "\x00null"
	}

	switch v.Kind {
	case KindText:
		return v.Text
	case KindBool:
		return strconv.FormatBool(v.Flag)
	default:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	}
}

// String formats the value for logs and error messages.
func (v Value) String() string {
	if v.Null {
		return "null"
	}

	if v.Kind == KindText {
		return strconv.Quote(v.Text)
	}

	return v.Key()
}

// compareValues orders two non-null values of the same kind.
func compareValues(a, b Value) int {
	switch a.Kind {
	case KindText:
		return strings.Compare(a.Text, b.Text)
	case KindBool:
		switch {
		case a.Flag == b.Flag:
			return 0
		case b.Flag:
			return -1
		default:
			return 1
		}
	default:
		return cmp.Compare(a.Number, b.Number)
	}
}

func intValue(n *int) Value {
	if n == nil {
		return nullValue(KindNumber)
	}

	return NumberValue(float64(*n))
}

// Get returns the value of field f.
func (p *PostalCode) Get(f Field) Value {
	switch f {
	case FieldPostalCode:
		return TextValue(p.Code)
	case FieldCity:
		return TextValue(p.City)
	case FieldProvince:
		return TextValue(p.Province)
	case FieldAreaCode:
		return NumberValue(float64(p.AreaCode))
	case FieldAreaName:
		return TextValue(p.AreaName)
	case FieldLatitude:
		return NumberValue(p.Latitude)
	case FieldLongitude:
		return NumberValue(p.Longitude)
	case FieldElevation:
		if p.Elevation == nil {
			return nullValue(KindNumber)
		}

		return NumberValue(*p.Elevation)
	case FieldPopulation:
		return intValue(p.Population)
	case FieldDwellings:
		return intValue(p.Dwellings)
	case FieldTimezone:
		return NumberValue(float64(p.Timezone))
	case FieldDayLightSavings:
		return BoolValue(p.DayLightSavings)
	default:
		return Value{Null: true}
	}
}

// CompareBy returns a comparison function ordering records by field f, in
// descending order when requested. Null values always sort last and ties are
// broken by ascending postal code. FieldNone orders by postal code.
func CompareBy(f Field, descending bool) func(a, b PostalCode) int {
	if f == FieldNone {
		f = FieldPostalCode
	}

	return func(a, b PostalCode) int {
		va, vb := a.Get(f), b.Get(f)

		switch {
		case va.Null && vb.Null:
			return Compare(a, b)
		case va.Null:
			return 1
		case vb.Null:
			return -1
		}

		c := compareValues(va, vb)
		if descending {
			c = -c
		}

		if c != 0 {
			return c
		}

		return Compare(a, b)
	}
}
