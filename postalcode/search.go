// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package postalcode

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/jcodagnone/cazipcode/spatial"
	"golang.org/x/sync/errgroup"
)

// DefaultReturns is the result cap of a query that does not set one.
const DefaultReturns = 5

// UnresolvedPolicy decides what happens to a province, city or area name
// filter whose text does not resolve to a canonical entry.
type UnresolvedPolicy int

const (
	// UnresolvedDrop ignores the filter, as if it had not been given.
	UnresolvedDrop UnresolvedPolicy = iota
	// UnresolvedEmpty keeps the filter as one that matches nothing.
	UnresolvedEmpty
	// UnresolvedFail fails the query with an ErrorTypeNoMatch error.
	UnresolvedFail
)

var unresolvedPolicyNames = []string{"drop", "empty", "fail"}

func (p UnresolvedPolicy) String() string {
	if int(p) >= 0 && int(p) < len(unresolvedPolicyNames) {
		return unresolvedPolicyNames[p]
	}

	return fmt.Sprintf("UnresolvedPolicy(%d)", int(p))
}

// ParseUnresolvedPolicy parses "drop", "empty" or "fail".
func ParseUnresolvedPolicy(s string) (UnresolvedPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range unresolvedPolicyNames {
		if name == s {
			return UnresolvedPolicy(i), nil
		}
	}

	return UnresolvedDrop, invalidArgument("unknown unresolved name policy %q, want one of %s",
		s, strings.Join(unresolvedPolicyNames, ", "))
}

// Options configure an Engine. The zero value is usable.
type Options struct {
	// DefaultReturns caps queries without Returns; zero selects DefaultReturns.
	DefaultReturns int
	// MatchThreshold is the minimum name similarity; zero selects
	// DefaultMatchThreshold.
	MatchThreshold float64
	// UnresolvedName is the policy for names that do not resolve.
	UnresolvedName UnresolvedPolicy
	// BoxSafety scales radius prefilter boxes; zero selects
	// spatial.DefaultSafety.
	BoxSafety float64
}

// Engine runs queries against a Source. It is safe for concurrent use; each
// goroutine opens its own Session.
type Engine struct {
	source       Source
	opts         Options
	resolver     *Resolver
	finder       Finder
	vocabularies map[Field]*Vocabulary
}

// NewEngine builds the name vocabularies from src and returns an Engine
// over it.
func NewEngine(ctx context.Context, src Source, opts Options) (*Engine, error) {
	if opts.DefaultReturns <= 0 {
		opts.DefaultReturns = DefaultReturns
	}

	e := &Engine{
		source:   src,
		opts:     opts,
		resolver: NewResolver(opts.MatchThreshold),
		finder:   NewFinder(opts.BoxSafety),
	}

	fields := []Field{FieldProvince, FieldCity, FieldAreaName}
	vocabularies := make([]*Vocabulary, len(fields))

	g, gctx := errgroup.WithContext(ctx)

	for i, f := range fields {
		g.Go(func() error {
			values, err := src.Distinct(gctx, f)
			if err != nil {
				return fmt.Errorf("failed to load %s vocabulary: %w", f, err)
			}

			if f == FieldProvince {
				vocabularies[i] = NewProvinceVocabulary(values)
			} else {
				vocabularies[i] = NewVocabulary(f.String(), values, nil)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.vocabularies = make(map[Field]*Vocabulary, len(fields))
	for i, f := range fields {
		e.vocabularies[f] = vocabularies[i]
	}

	return e, nil
}

// Vocabulary returns the vocabulary of FieldProvince, FieldCity or
// FieldAreaName, or nil for any other field.
func (e *Engine) Vocabulary(f Field) *Vocabulary {
	return e.vocabularies[f]
}

// Resolve maps free text to the canonical value of a name field.
func (e *Engine) Resolve(f Field, input string) (string, error) {
	v := e.vocabularies[f]
	if v == nil {
		return "", invalidArgument("%s is not a name field", f)
	}

	return e.resolver.Resolve(v, input)
}

// Open starts a Session holding one Handle of the source.
func (e *Engine) Open(ctx context.Context) (*Session, error) {
	h, err := e.source.Open(ctx)
	if err != nil {
		return nil, err
	}

	return &Session{engine: e, handle: h}, nil
}

// Session runs queries over one Handle. It must be used by one goroutine at
// a time and closed when done.
type Session struct {
	engine *Engine
	handle Handle

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Close releases the handle. Calls after the first one return the same
// result and do nothing else.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.handle.Close()
	})

	return s.closeErr
}

// query is a validated, resolved Criteria.
type query struct {
	predicates []Predicate
	geo        bool
	center     spatial.Point
	radius     float64
	sortBy     Field
	descending bool
	limit      int
}

// Find runs a composite query. See Criteria for the meaning of each field.
//
// When Lat, Lng and Radius are given the records within Radius miles of the
// point are returned, ranked by distance unless SortBy is set. Otherwise the
// matching records are returned ordered by SortBy, or by postal code.
func (s *Session) Find(ctx context.Context, c Criteria) ([]PostalCode, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}

	q, err := s.engine.plan(c)
	if err != nil {
		return nil, err
	}

	if q.limit <= 0 || (q.geo && q.radius <= 0) {
		return []PostalCode{}, nil
	}

	if q.geo {
		box := s.engine.finder.Box(q.center, q.radius)
		sel := Selection{
			Predicates: append(BoxPredicates(box), q.predicates...),
			Order:      Ordering{Field: q.sortBy, Descending: q.descending},
		}

		return s.engine.finder.FindWithinRadius(q.center, q.radius,
			s.handle.Select(ctx, sel), q.sortBy, q.descending, q.limit)
	}

	sortBy := q.sortBy
	if sortBy == FieldNone {
		sortBy = FieldPostalCode
	}

	return s.collect(ctx, Selection{
		Predicates: q.predicates,
		Order:      Ordering{Field: sortBy, Descending: q.descending},
		Limit:      q.limit,
	})
}

func (s *Session) collect(ctx context.Context, sel Selection) ([]PostalCode, error) {
	ret := []PostalCode{}

	for p, err := range s.handle.Select(ctx, sel) {
		if err != nil {
			return nil, err
		}

		ret = append(ret, p)
		if sel.Limit > 0 && len(ret) == sel.Limit {
			break
		}
	}

	return ret, nil
}

func (e *Engine) plan(c Criteria) (query, error) {
	q := query{
		sortBy:     c.SortBy,
		descending: c.Descending,
		limit:      e.opts.DefaultReturns,
	}

	if _, ok := fieldNames[c.SortBy]; !ok {
		return q, invalidArgument("unknown sort field %d", int(c.SortBy))
	}

	if c.Returns != nil {
		q.limit = *c.Returns
	}

	switch {
	case c.Lat != nil && c.Lng != nil && c.Radius != nil:
		q.geo = true
		q.center = spatial.Point{Lat: *c.Lat, Lng: *c.Lng}
		q.radius = *c.Radius
	case c.Lat == nil && c.Lng == nil && c.Radius == nil:
	default:
		return q, invalidQuery("lat, lng and radius have to be all given or none")
	}

	if c.Prefix != nil {
		if err := checkCodeFragment("prefix", *c.Prefix); err != nil {
			return q, err
		}

		q.predicates = append(q.predicates, Prefix{Text: *c.Prefix})
	}

	if c.Substring != nil {
		if err := checkCodeFragment("substring", *c.Substring); err != nil {
			return q, err
		}

		q.predicates = append(q.predicates, Substring{Text: *c.Substring})
	}

	for _, name := range []struct {
		field Field
		text  *string
	}{
		{FieldProvince, c.Province},
		{FieldCity, c.City},
		{FieldAreaName, c.AreaName},
	} {
		pred, err := e.nameFilter(name.field, name.text)
		if err != nil {
			return q, err
		}

		if pred != nil {
			q.predicates = append(q.predicates, pred)
		}
	}

	if c.AreaCode != nil {
		q.predicates = append(q.predicates, Equal{Field: FieldAreaCode, Value: NumberValue(float64(*c.AreaCode))})
	}

	q.predicates = appendFloatRange(q.predicates, FieldLatitude, c.LatGreater, c.LatLess)
	q.predicates = appendFloatRange(q.predicates, FieldLongitude, c.LngGreater, c.LngLess)
	q.predicates = appendFloatRange(q.predicates, FieldElevation, c.ElevationGreater, c.ElevationLess)
	q.predicates = appendIntRange(q.predicates, FieldPopulation, c.PopulationGreater, c.PopulationLess)
	q.predicates = appendIntRange(q.predicates, FieldDwellings, c.DwellingsGreater, c.DwellingsLess)
	q.predicates = appendIntRange(q.predicates, FieldTimezone, c.TimezoneGreater, c.TimezoneLess)

	if c.Timezone != nil {
		q.predicates = append(q.predicates, Equal{Field: FieldTimezone, Value: NumberValue(float64(*c.Timezone))})
	}

	if c.DayLightSavings != nil {
		q.predicates = append(q.predicates, Equal{Field: FieldDayLightSavings, Value: BoolValue(*c.DayLightSavings)})
	}

	return q, nil
}

func checkCodeFragment(name, text string) error {
	if n := utf8.RuneCountInString(text); n < 1 || n > PostalCodeLength {
		return invalidQuery("%s has to be 1 to %d characters long, got %q", name, PostalCodeLength, text)
	}

	return nil
}

// nameFilter resolves a name criterion. It returns a nil predicate when the
// criterion is absent or dropped.
func (e *Engine) nameFilter(f Field, text *string) (Predicate, error) {
	if text == nil || strings.TrimSpace(*text) == "" {
		return nil, nil
	}

	canonical, err := e.Resolve(f, *text)
	if err == nil {
		return Equal{Field: f, Value: TextValue(canonical)}, nil
	}

	if !IsNoMatch(err) {
		return nil, err
	}

	switch e.opts.UnresolvedName {
	case UnresolvedFail:
		return nil, err
	case UnresolvedEmpty:
		return Never{}, nil
	default:
		log.Printf("ignoring %s filter: %v", f, err)
		return nil, nil
	}
}

func appendFloatRange(preds []Predicate, f Field, greater, less *float64) []Predicate {
	if greater != nil {
		preds = append(preds, Range{Field: f, Op: AtLeast, Bound: *greater})
	}

	if less != nil {
		preds = append(preds, Range{Field: f, Op: AtMost, Bound: *less})
	}

	return preds
}

func appendIntRange(preds []Predicate, f Field, greater, less *int) []Predicate {
	if greater != nil {
		preds = append(preds, Range{Field: f, Op: AtLeast, Bound: float64(*greater)})
	}

	if less != nil {
		preds = append(preds, Range{Field: f, Op: AtMost, Bound: float64(*less)})
	}

	return preds
}
