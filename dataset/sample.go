// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	_ "embed"

	"github.com/jcodagnone/cazipcode/postalcode"
)

//go:embed data/ca_postalcodes_sample.csv
var sampleCSV []byte

// Sample returns the embedded sample dataset: postal codes around the main
// Canadian cities, used by default and by tests.
func Sample() ([]postalcode.PostalCode, error) {
	return ReadCSV(bytes.NewReader(sampleCSV))
}
