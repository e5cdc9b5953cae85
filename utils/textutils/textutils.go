// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// FoldName folds s with LowerASCIIFolding and collapses inner whitespace runs
// into a single space, so "  Île   d'Orléans " becomes "ile d'orleans".
func FoldName(s string) string {
	return strings.Join(strings.Fields(LowerASCIIFolding(s)), " ")
}
