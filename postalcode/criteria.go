// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"encoding/json"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Criteria is the set of conditions of a single query. Nil fields are
// absent. Every present criterion must hold (logical AND).
type Criteria struct {
	// Lat, Lng and Radius (miles) select records near a point. They must be
	// all present or all absent.
	Lat    *float64
	Lng    *float64
	Radius *float64

	LatGreater       *float64
	LatLess          *float64
	LngGreater       *float64
	LngLess          *float64
	ElevationGreater *float64
	ElevationLess    *float64

	// Prefix and Substring match the postal code; 1 to 7 characters.
	Prefix    *string
	Substring *string

	// Province, City and AreaName are resolved against the dataset
	// vocabularies before matching. Empty strings are ignored.
	Province *string
	City     *string
	AreaName *string

	AreaCode *int

	PopulationGreater *int
	PopulationLess    *int
	DwellingsGreater  *int
	DwellingsLess     *int

	Timezone        *int
	TimezoneGreater *int
	TimezoneLess    *int

	DayLightSavings *bool

	// SortBy orders the result. With FieldNone, radius queries rank by
	// distance and the others by postal code.
	SortBy     Field
	Descending bool

	// Returns caps the result size; nil selects the engine default.
	Returns *int
}

// Ptr returns a pointer to v, for filling Criteria literals.
func Ptr[T any](v T) *T {
	return &v
}

type argKind int

const (
	argFloat argKind = iota
	argInt
	argString
	argBool
	argField
)

// criteriaKeys maps the keys accepted by ParseCriteria to their value type.
var criteriaKeys = map[string]argKind{
	"lat":                argFloat,
	"lng":                argFloat,
	"radius":             argFloat,
	"lat_greater":        argFloat,
	"lat_less":           argFloat,
	"lng_greater":        argFloat,
	"lng_less":           argFloat,
	"elevation_greater":  argFloat,
	"elevation_less":     argFloat,
	"prefix":             argString,
	"substring":          argString,
	"province":           argString,
	"city":               argString,
	"area_name":          argString,
	"area_code":          argInt,
	"population_greater": argInt,
	"population_less":    argInt,
	"dwellings_greater":  argInt,
	"dwellings_less":     argInt,
	"timezone":           argInt,
	"timezone_greater":   argInt,
	"timezone_less":      argInt,
	"day_light_savings":  argBool,
	"sort_by":            argField,
	"ascending":          argBool,
	"returns":            argInt,
}

// CriteriaKeys returns the keys accepted by ParseCriteria, sorted.
func CriteriaKeys() []string {
	keys := make([]string, 0, len(criteriaKeys))
	for k := range criteriaKeys {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// ParseCriteria builds Criteria from loosely typed values, such as a decoded
// JSON object. Nil values are absent. Unknown keys and values of the wrong
// type fail with an ErrorTypeInvalidArgument error.
func ParseCriteria(args map[string]any) (Criteria, error) {
	var c Criteria

	for key, raw := range args {
		if raw == nil {
			continue
		}

		kind, ok := criteriaKeys[key]
		if !ok {
			return Criteria{}, invalidArgument("unknown criterion %q", key)
		}

		var err error

		switch kind {
		case argFloat:
			var v float64
			if v, err = asFloat(key, raw); err == nil {
				*floatTarget(&c, key) = &v
			}
		case argInt:
			var v int
			if v, err = asInt(key, raw); err == nil {
				*intTarget(&c, key) = &v
			}
		case argString:
			s, ok := raw.(string)
			if !ok {
				return Criteria{}, invalidArgument("%s has to be a string, got %T", key, raw)
			}

			*stringTarget(&c, key) = &s
		case argBool:
			var v bool
			if v, err = asBool(key, raw); err == nil {
				if key == "ascending" {
					c.Descending = !v
				} else {
					c.DayLightSavings = &v
				}
			}
		case argField:
			s, ok := raw.(string)
			if !ok {
				return Criteria{}, invalidArgument("%s has to be a string, got %T", key, raw)
			}

			c.SortBy, err = ParseField(s)
		}

		if err != nil {
			return Criteria{}, err
		}
	}

	return c, nil
}

// ParseCriteriaValues builds Criteria from string values, such as a URL query.
// Numbers and booleans are parsed according to the key; the last value of a
// repeated key wins.
func ParseCriteriaValues(values url.Values) (Criteria, error) {
	args := make(map[string]any, len(values))

	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}

		kind, ok := criteriaKeys[key]
		if !ok {
			return Criteria{}, invalidArgument("unknown criterion %q", key)
		}

		s := vs[len(vs)-1]

		switch kind {
		case argFloat, argInt:
			n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return Criteria{}, invalidArgument("%s has to be a number, got %q", key, s)
			}

			args[key] = n
		case argBool:
			b, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return Criteria{}, invalidArgument("%s has to be a boolean, got %q", key, s)
			}

			args[key] = b
		default:
			args[key] = s
		}
	}

	return ParseCriteria(args)
}

func floatTarget(c *Criteria, key string) **float64 {
	switch key {
	case "lat":
		return &c.Lat
	case "lng":
		return &c.Lng
	case "radius":
		return &c.Radius
	case "lat_greater":
		return &c.LatGreater
	case "lat_less":
		return &c.LatLess
	case "lng_greater":
		return &c.LngGreater
	case "lng_less":
		return &c.LngLess
	case "elevation_greater":
		return &c.ElevationGreater
	default:
		return &c.ElevationLess
	}
}

func intTarget(c *Criteria, key string) **int {
	switch key {
	case "area_code":
		return &c.AreaCode
	case "population_greater":
		return &c.PopulationGreater
	case "population_less":
		return &c.PopulationLess
	case "dwellings_greater":
		return &c.DwellingsGreater
	case "dwellings_less":
		return &c.DwellingsLess
	case "timezone":
		return &c.Timezone
	case "timezone_greater":
		return &c.TimezoneGreater
	case "timezone_less":
		return &c.TimezoneLess
	default:
		return &c.Returns
	}
}

func stringTarget(c *Criteria, key string) **string {
	switch key {
	case "prefix":
		return &c.Prefix
	case "substring":
		return &c.Substring
	case "province":
		return &c.Province
	case "city":
		return &c.City
	default:
		return &c.AreaName
	}
}

func asFloat(key string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, invalidArgument("%s has to be a number, got %q", key, v.String())
		}

		return f, nil
	default:
		return 0, invalidArgument("%s has to be a number, got %T", key, raw)
	}
}

func asInt(key string, raw any) (int, error) {
	f, err := asFloat(key, raw)
	if err != nil {
		return 0, err
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, invalidArgument("%s has to be an integer, got %v", key, raw)
	}

	// -math.MinInt is exact as a float64, math.MaxInt is not
	if f < math.MinInt || f >= -math.MinInt {
		return 0, invalidArgument("%s is out of range, got %v", key, raw)
	}

	return int(f), nil
}

// asBool also accepts 0 and 1, the way the dataset encodes the flag.
func asBool(key string, raw any) (bool, error) {
	if b, ok := raw.(bool); ok {
		return b, nil
	}

	if n, err := asInt(key, raw); err == nil && (n == 0 || n == 1) {
		return n == 1, nil
	}

	return false, invalidArgument("%s has to be a boolean, got %T", key, raw)
}
