// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

// CompareValuesForTest exposes compareValues to the external tests.
var CompareValuesForTest = compareValues
