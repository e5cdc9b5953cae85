// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/cazipcode/postalcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) Repository {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return repo
}

func setupSampleDB(t *testing.T) Repository {
	t.Helper()

	repo := setupTestDB(t)
	inserted := 0

	require.NoError(t, repo.Insert(sampleCodes(t), func(n int) { inserted += n }))
	require.Equal(t, 89, inserted)

	return repo
}

func TestCreateSchema(t *testing.T) {
	repo := setupTestDB(t)

	var tableName string

	err := repo.DB().QueryRow(
		"SELECT table_name FROM information_schema.tables WHERE table_name = 'postalcodes'").Scan(&tableName)
	if err != nil {
		t.Fatalf("Table not created: %v", err)
	}

	// idempotent
	assert.NoError(t, repo.CreateSchema())
}

func TestRepositorySelect(t *testing.T) {
	codes := sampleCodes(t)
	repo := setupSampleDB(t)

	h, err := repo.Open(context.Background())
	require.NoError(t, err)
	defer h.Close()

	for name, sel := range testSelections {
		t.Run(name, func(t *testing.T) {
			want := bruteForce(codes, sel)
			got := collect(t, h, sel)

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Select() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRepositoryRandom(t *testing.T) {
	repo := setupSampleDB(t)

	h, err := repo.Open(context.Background())
	require.NoError(t, err)
	defer h.Close()

	got := collect(t, h, postalcode.Selection{Order: postalcode.Ordering{Random: true}, Limit: 5})
	assert.Len(t, got, 5)
}

func TestRepositoryInsertReplaces(t *testing.T) {
	repo := setupSampleDB(t)
	codes := sampleCodes(t)

	updated := codes[0]
	updated.Population = postalcode.Ptr(1)
	require.NoError(t, repo.Insert([]postalcode.PostalCode{updated}, nil))

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 89, count)

	h, err := repo.Open(context.Background())
	require.NoError(t, err)
	defer h.Close()

	got := collect(t, h, postalcode.Selection{
		Predicates: []postalcode.Predicate{
			postalcode.Equal{Field: postalcode.FieldPostalCode, Value: postalcode.TextValue(updated.Code)},
		},
	})
	require.Len(t, got, 1)
	assert.Equal(t, postalcode.Ptr(1), got[0].Population)
}

func TestRepositoryDistinct(t *testing.T) {
	repo := setupSampleDB(t)
	m := newSampleMemory(t)

	for _, f := range []postalcode.Field{postalcode.FieldProvince, postalcode.FieldCity, postalcode.FieldAreaName} {
		want, err := m.Distinct(context.Background(), f)
		require.NoError(t, err)

		got, err := repo.Distinct(context.Background(), f)
		require.NoError(t, err)
		assert.Equal(t, want, got, f.String())
	}

	_, err := repo.Distinct(context.Background(), postalcode.FieldTimezone)
	assert.True(t, postalcode.IsDataSourceError(err))
}

func TestRepositoryQueryError(t *testing.T) {
	repo := setupTestDB(t)

	h, err := repo.Open(context.Background())
	require.NoError(t, err)

	_, err = repo.DB().Exec("DROP TABLE postalcodes")
	require.NoError(t, err)

	failures := 0

	for _, err := range h.Select(context.Background(), postalcode.Selection{}) {
		assert.True(t, postalcode.IsDataSourceError(err))

		failures++
	}

	assert.Equal(t, 1, failures)
	require.NoError(t, h.Close())
}

func TestBuildSelect(t *testing.T) {
	query, args := buildSelect(postalcode.Selection{
		Predicates: []postalcode.Predicate{
			postalcode.Range{Field: postalcode.FieldPopulation, Op: postalcode.AtLeast, Bound: 100},
			postalcode.Equal{Field: postalcode.FieldProvince, Value: postalcode.TextValue("ON")},
			postalcode.Prefix{Text: "K1"},
		},
		Order: postalcode.Ordering{Field: postalcode.FieldPopulation, Descending: true},
		Limit: 5,
	})

	assert.Equal(t, "SELECT "+columns+" FROM postalcodes"+
		" WHERE population >= ? AND province = ? AND starts_with(postalcode, ?)"+
		" ORDER BY population DESC NULLS LAST, postalcode ASC LIMIT 5", query)
	assert.Equal(t, []any{100.0, "ON", "K1"}, args)
}
