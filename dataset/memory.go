// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/jcodagnone/cazipcode/postalcode"
)

// indexedFields get an inverted index of posting lists.
var indexedFields = []postalcode.Field{
	postalcode.FieldProvince,
	postalcode.FieldCity,
	postalcode.FieldAreaName,
	postalcode.FieldAreaCode,
	postalcode.FieldTimezone,
	postalcode.FieldDayLightSavings,
}

const cancelCheckInterval = 1024

// Memory is an in-memory Source. Records are kept sorted by postal code and
// identified by their position. Equality predicates on indexed fields and
// latitude ranges are answered with roaring bitmaps; every other predicate
// is evaluated on the surviving records.
type Memory struct {
	codes []postalcode.PostalCode
	byLat []uint32 // positions sorted by latitude
	// inverted maps field -> value key -> positions
	inverted map[postalcode.Field]map[string]*roaring.Bitmap
}

// NewMemory indexes codes. It fails on duplicated postal codes.
func NewMemory(codes []postalcode.PostalCode) (*Memory, error) {
	m := &Memory{
		codes:    slices.Clone(codes),
		inverted: make(map[postalcode.Field]map[string]*roaring.Bitmap, len(indexedFields)),
	}

	slices.SortFunc(m.codes, postalcode.Compare)

	for i := 1; i < len(m.codes); i++ {
		if m.codes[i-1].Code == m.codes[i].Code {
			return nil, fmt.Errorf("duplicated postal code %s", m.codes[i].Code)
		}
	}

	m.byLat = make([]uint32, len(m.codes))
	for i := range m.byLat {
		m.byLat[i] = uint32(i)
	}

	slices.SortStableFunc(m.byLat, func(a, b uint32) int {
		return cmp.Compare(m.codes[a].Latitude, m.codes[b].Latitude)
	})

	for _, f := range indexedFields {
		postings := make(map[string]*roaring.Bitmap)

		for i := range m.codes {
			v := m.codes[i].Get(f)
			if v.Null {
				continue
			}

			bitmap, ok := postings[v.Key()]
			if !ok {
				bitmap = roaring.New()
				postings[v.Key()] = bitmap
			}

			bitmap.Add(uint32(i))
		}

		m.inverted[f] = postings
	}

	return m, nil
}

// Len returns the number of records.
func (m *Memory) Len() int { return len(m.codes) }

// Codes returns the records sorted by postal code. The slice must not be
// modified.
func (m *Memory) Codes() []postalcode.PostalCode { return m.codes }

// Open returns a Handle on the records.
func (m *Memory) Open(ctx context.Context) (postalcode.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, postalcode.NewDataSourceError("failed to open memory handle", err)
	}

	return &memHandle{m: m}, nil
}

// Distinct returns the distinct non-empty values of an indexed text field.
func (m *Memory) Distinct(_ context.Context, f postalcode.Field) ([]string, error) {
	postings, ok := m.inverted[f]
	if !ok || f.Kind() != postalcode.KindText {
		return nil, postalcode.NewDataSourceError(fmt.Sprintf("no distinct values for %s", f), nil)
	}

	ret := make([]string, 0, len(postings))

	for key := range postings {
		if key != "" {
			ret = append(ret, key)
		}
	}

	slices.Sort(ret)

	return ret, nil
}

// candidates returns the positions that may satisfy preds, or nil when
// every position may.
func (m *Memory) candidates(preds []postalcode.Predicate) *roaring.Bitmap {
	var result *roaring.Bitmap

	intersect := func(bitmap *roaring.Bitmap) {
		if result == nil {
			result = bitmap.Clone()
		} else {
			result.And(bitmap)
		}
	}

	minLat, maxLat := math.Inf(-1), math.Inf(1)

	for _, pred := range preds {
		switch p := pred.(type) {
		case postalcode.Never:
			return roaring.New()
		case postalcode.Equal:
			if p.Field == postalcode.FieldPostalCode {
				intersect(m.lookup(p.Value.Text))
				continue
			}

			postings, ok := m.inverted[p.Field]
			if !ok {
				continue
			}

			bitmap, ok := postings[p.Value.Key()]
			if !ok || p.Value.Null {
				return roaring.New()
			}

			intersect(bitmap)
		case postalcode.Range:
			if p.Field != postalcode.FieldLatitude {
				continue
			}

			if p.Op == postalcode.AtLeast {
				minLat = max(minLat, p.Bound)
			} else {
				maxLat = min(maxLat, p.Bound)
			}
		}

		if result != nil && result.IsEmpty() {
			return result
		}
	}

	if !math.IsInf(minLat, -1) || !math.IsInf(maxLat, 1) {
		intersect(m.latitudeRange(minLat, maxLat))
	}

	return result
}

func (m *Memory) lookup(code string) *roaring.Bitmap {
	ret := roaring.New()

	i, found := slices.BinarySearchFunc(m.codes, code, func(p postalcode.PostalCode, code string) int {
		return strings.Compare(p.Code, code)
	})
	if found {
		ret.Add(uint32(i))
	}

	return ret
}

func (m *Memory) latitudeRange(minLat, maxLat float64) *roaring.Bitmap {
	ret := roaring.New()
	if minLat > maxLat {
		return ret
	}

	from := sort.Search(len(m.byLat), func(i int) bool { return m.codes[m.byLat[i]].Latitude >= minLat })
	to := sort.Search(len(m.byLat), func(i int) bool { return m.codes[m.byLat[i]].Latitude > maxLat })

	ret.AddMany(m.byLat[from:to])

	return ret
}

// memHandle may be closed while another goroutine selects through it.
type memHandle struct {
	m      *Memory
	closed atomic.Bool
}

func (h *memHandle) Close() error {
	h.closed.Store(true)

	return nil
}

// positions enumerates the candidate positions in record order, reversed
// when requested.
func (h *memHandle) positions(bitmap *roaring.Bitmap, reverse bool) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if bitmap != nil {
			var it roaring.IntIterable
			if reverse {
				it = bitmap.ReverseIterator()
			} else {
				it = bitmap.Iterator()
			}

			for it.HasNext() {
				if !yield(it.Next()) {
					return
				}
			}

			return
		}

		n := uint32(len(h.m.codes))
		for i := range n {
			pos := i
			if reverse {
				pos = n - 1 - i
			}

			if !yield(pos) {
				return
			}
		}
	}
}

func (h *memHandle) Select(ctx context.Context, sel postalcode.Selection) iter.Seq2[postalcode.PostalCode, error] {
	return func(yield func(postalcode.PostalCode, error) bool) {
		if h.closed.Load() {
			yield(postalcode.PostalCode{}, postalcode.NewDataSourceError("memory handle is closed", nil))
			return
		}

		bitmap := h.m.candidates(sel.Predicates)
		order := sel.Order
		streamed := order.Field == postalcode.FieldNone || order.Field == postalcode.FieldPostalCode

		var matches []postalcode.PostalCode

		emitted, scanned := 0, 0

		for pos := range h.positions(bitmap, streamed && order.Descending && !order.Random) {
			if scanned++; scanned%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					yield(postalcode.PostalCode{}, postalcode.NewDataSourceError("memory scan interrupted", err))
					return
				}
			}

			p := &h.m.codes[pos]
			if !postalcode.MatchAll(sel.Predicates, p) {
				continue
			}

			if streamed && !order.Random {
				if !yield(*p, nil) {
					return
				}

				if emitted++; sel.Limit > 0 && emitted == sel.Limit {
					return
				}

				continue
			}

			matches = append(matches, *p)
		}

		if streamed && !order.Random {
			return
		}

		if order.Random {
			rand.Shuffle(len(matches), func(i, j int) { matches[i], matches[j] = matches[j], matches[i] })
		} else {
			slices.SortFunc(matches, postalcode.CompareBy(order.Field, order.Descending))
		}

		if sel.Limit > 0 && len(matches) > sel.Limit {
			matches = matches[:sel.Limit]
		}

		for _, p := range matches {
			if !yield(p, nil) {
				return
			}
		}
	}
}
