// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Decompress wraps r with the decoder implied by the extension of name:
// ".gz" for gzip and ".zst" for zstandard. Other names are read as is.
func Decompress(name string, r io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}

		return zr, nil

	case ".zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}

		return zr.IOReadCloser(), nil

	default:
		return io.NopCloser(r), nil
	}
}
