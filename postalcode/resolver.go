// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/jcodagnone/cazipcode/utils/textutils"
	"github.com/xrash/smetrics"
)

const (
	// DefaultMatchThreshold is the minimum similarity a canonical entry needs
	// to be accepted as the resolution of a free-text name.
	DefaultMatchThreshold = 0.75

	jaroWinklerWeight  = 0.7
	levenshteinWeight  = 0.3
	jaroBoostThreshold = 0.7
	jaroPrefixSize     = 4
)

// ProvinceNames maps province and territory codes to their English names.
// Province vocabularies accept both.
var ProvinceNames = map[string]string{
	"AB": "Alberta",
	"BC": "British Columbia",
	"MB": "Manitoba",
	"NB": "New Brunswick",
	"NL": "Newfoundland and Labrador",
	"NS": "Nova Scotia",
	"NT": "Northwest Territories",
	"NU": "Nunavut",
	"ON": "Ontario",
	"PE": "Prince Edward Island",
	"QC": "Québec",
	"SK": "Saskatchewan",
	"YT": "Yukon",
}

type vocabularyEntry struct {
	canonical string
	forms     []string // folded canonical text and aliases
}

// Vocabulary is the immutable set of canonical values of an administrative
// field, such as every province present in the dataset.
type Vocabulary struct {
	name    string
	entries []vocabularyEntry // sorted by canonical
}

// NewVocabulary builds a vocabulary from canonical values. aliases maps a
// canonical value to alternative spellings; aliases of values not present in
// canonical are ignored. Empty and duplicated values are dropped.
func NewVocabulary(name string, canonical []string, aliases map[string][]string) *Vocabulary {
	values := slices.Clone(canonical)
	slices.Sort(values)
	values = slices.Compact(values)

	v := &Vocabulary{name: name, entries: make([]vocabularyEntry, 0, len(values))}

	for _, value := range values {
		folded := textutils.FoldName(value)
		if folded == "" {
			continue
		}

		entry := vocabularyEntry{canonical: value, forms: []string{folded}}

		for _, alias := range aliases[value] {
			if f := textutils.FoldName(alias); f != "" && !slices.Contains(entry.forms, f) {
				entry.forms = append(entry.forms, f)
			}
		}

		v.entries = append(v.entries, entry)
	}

	return v
}

// NewProvinceVocabulary builds a province vocabulary that also accepts the
// names in ProvinceNames.
func NewProvinceVocabulary(codes []string) *Vocabulary {
	aliases := make(map[string][]string, len(ProvinceNames))
	for code, name := range ProvinceNames {
		aliases[code] = []string{name}
	}

	return NewVocabulary(FieldProvince.String(), codes, aliases)
}

// Name identifies the vocabulary in errors and logs.
func (v *Vocabulary) Name() string { return v.name }

// Len returns the number of canonical entries.
func (v *Vocabulary) Len() int { return len(v.entries) }

// Values returns the canonical entries in lexicographic order.
func (v *Vocabulary) Values() []string {
	ret := make([]string, len(v.entries))
	for i, e := range v.entries {
		ret[i] = e.canonical
	}

	return ret
}

// Resolver maps free text to canonical vocabulary entries, tolerating case,
// accents and small typos. It holds no mutable state.
type Resolver struct {
	threshold float64
}

// NewResolver creates a Resolver accepting matches scoring at least
// threshold. Values outside (0, 1] select DefaultMatchThreshold.
func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}

	return &Resolver{threshold: threshold}
}

// Threshold returns the acceptance threshold.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve returns the canonical entry of v closest to input. Ties on the best
// score go to the lexicographically smallest entry. It fails with an
// ErrorTypeNoMatch error when the best score is below the threshold.
func (r *Resolver) Resolve(v *Vocabulary, input string) (string, error) {
	folded := textutils.FoldName(input)
	if folded == "" {
		return "", r.noMatch(v, input)
	}

	best, bestScore := "", -1.0

	// entries are sorted, so a strict comparison keeps the smallest on ties
	for _, entry := range v.entries {
		score := 0.0
		for _, form := range entry.forms {
			score = max(score, Similarity(folded, form))
		}

		if score > bestScore {
			best, bestScore = entry.canonical, score
		}
	}

	if bestScore < r.threshold {
		return "", r.noMatch(v, input)
	}

	return best, nil
}

func (r *Resolver) noMatch(v *Vocabulary, input string) error {
	return &SearchError{
		Type:    ErrorTypeNoMatch,
		Message: fmt.Sprintf("no %s matches %q", v.name, input),
	}
}

// Similarity scores two normalized strings in [0, 1]: a blend of
// Jaro-Winkler similarity and normalized Levenshtein similarity. Identical
// strings score 1.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	if a == "" || b == "" {
		return 0
	}

	jw := smetrics.JaroWinkler(a, b, jaroBoostThreshold, jaroPrefixSize)
	distance := levenshtein.ComputeDistance(a, b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	lev := 1 - float64(distance)/float64(longest)

	return jaroWinklerWeight*jw + levenshteinWeight*lev
}
