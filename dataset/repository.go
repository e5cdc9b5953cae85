// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"

	"github.com/jcodagnone/cazipcode/postalcode"
)

// Repository is a postal code Source backed by a DuckDB table. Predicates and
// ordering are pushed down to SQL.
type Repository interface {
	postalcode.Source

	// CreateSchema creates the postalcodes table
	CreateSchema() error

	// Insert stores codes, replacing records with the same postal code.
	// progress, when not nil, is called after each inserted record.
	Insert(codes []postalcode.PostalCode, progress func(int)) error

	// Count returns the number of stored records
	Count() (int, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a repository over db.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlRepository) DB() *sql.DB {
	return r.db
}

var columns = strings.Join(Header, ", ")

// CreateSchema has no secondary indexes: DuckDB rejects INSERT OR REPLACE on
// rows whose indexed columns change.
func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS postalcodes (
			postalcode VARCHAR PRIMARY KEY,
			city VARCHAR NOT NULL,
			province VARCHAR NOT NULL,
			area_code INTEGER NOT NULL,
			area_name VARCHAR NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			elevation DOUBLE,
			population INTEGER,
			dwellings INTEGER,
			timezone INTEGER NOT NULL,
			day_light_savings BOOLEAN NOT NULL
		)
	`)

	return err
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}

	return *v
}

func (r *sqlRepository) Insert(codes []postalcode.PostalCode, progress func(int)) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT OR REPLACE INTO postalcodes (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, columns))
	if err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			err = rErr
		}

		return err
	}
	defer stmt.Close()

	for i := range codes {
		p := &codes[i]

		_, err = stmt.Exec(
			p.Code,
			p.City,
			p.Province,
			p.AreaCode,
			p.AreaName,
			p.Latitude,
			p.Longitude,
			nullable(p.Elevation),
			nullable(p.Population),
			nullable(p.Dwellings),
			p.Timezone,
			p.DayLightSavings,
		)
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = rErr
			}

			return fmt.Errorf("inserting %s: %w", p.Code, err)
		}

		if progress != nil {
			progress(1)
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM postalcodes").Scan(&count)

	return count, err
}

func (r *sqlRepository) Distinct(ctx context.Context, f postalcode.Field) ([]string, error) {
	if f == postalcode.FieldNone || f.Kind() != postalcode.KindText {
		return nil, postalcode.NewDataSourceError(fmt.Sprintf("no distinct values for %s", f), nil)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT DISTINCT %[1]s FROM postalcodes WHERE %[1]s <> '' ORDER BY %[1]s", f))
	if err != nil {
		return nil, postalcode.NewDataSourceError("failed to query distinct "+f.String(), err)
	}
	defer rows.Close()

	var ret []string

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, postalcode.NewDataSourceError("failed to scan distinct "+f.String(), err)
		}

		ret = append(ret, v)
	}

	if err := rows.Err(); err != nil {
		return nil, postalcode.NewDataSourceError("failed to read distinct "+f.String(), err)
	}

	return ret, nil
}

// Open reserves a connection of the pool for a session.
func (r *sqlRepository) Open(ctx context.Context) (postalcode.Handle, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, postalcode.NewDataSourceError("failed to acquire connection", err)
	}

	return &sqlHandle{conn: conn}, nil
}

type sqlHandle struct {
	conn *sql.Conn
}

func (h *sqlHandle) Close() error {
	return h.conn.Close()
}

// buildSelect translates a selection to a query and its arguments.
func buildSelect(sel postalcode.Selection) (string, []any) {
	var (
		sb     strings.Builder
		where  []string
		args   []any
		orders []string
	)

	fmt.Fprintf(&sb, "SELECT %s FROM postalcodes", columns)

	for _, pred := range sel.Predicates {
		switch p := pred.(type) {
		case postalcode.Range:
			where = append(where, fmt.Sprintf("%s %s ?", p.Field, p.Op))
			args = append(args, p.Bound)
		case postalcode.Equal:
			where = append(where, fmt.Sprintf("%s = ?", p.Field))
			args = append(args, valueArg(p.Value))
		case postalcode.Prefix:
			where = append(where, "starts_with(postalcode, ?)")
			args = append(args, p.Text)
		case postalcode.Substring:
			where = append(where, "contains(postalcode, ?)")
			args = append(args, p.Text)
		case postalcode.Never:
			where = append(where, "FALSE")
		}
	}

	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	direction := "ASC"
	if sel.Order.Descending {
		direction = "DESC"
	}

	switch {
	case sel.Order.Random:
		orders = append(orders, "random()")
	case sel.Order.Field == postalcode.FieldNone:
		orders = append(orders, "postalcode ASC")
	case sel.Order.Field == postalcode.FieldPostalCode:
		orders = append(orders, "postalcode "+direction)
	default:
		orders = append(orders,
			fmt.Sprintf("%s %s NULLS LAST", sel.Order.Field, direction),
			"postalcode ASC")
	}

	if len(orders) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if sel.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", sel.Limit)
	}

	return sb.String(), args
}

func valueArg(v postalcode.Value) any {
	switch {
	case v.Null:
		return nil
	case v.Kind == postalcode.KindText:
		return v.Text
	case v.Kind == postalcode.KindBool:
		return v.Flag
	default:
		return v.Number
	}
}

func (h *sqlHandle) Select(ctx context.Context, sel postalcode.Selection) iter.Seq2[postalcode.PostalCode, error] {
	return func(yield func(postalcode.PostalCode, error) bool) {
		query, args := buildSelect(sel)

		rows, err := h.conn.QueryContext(ctx, query, args...)
		if err != nil {
			yield(postalcode.PostalCode{}, postalcode.NewDataSourceError("failed to query postal codes", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPostalCode(rows)
			if err != nil {
				yield(postalcode.PostalCode{}, postalcode.NewDataSourceError("failed to scan postal code", err))
				return
			}

			if !yield(p, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(postalcode.PostalCode{}, postalcode.NewDataSourceError("failed to read postal codes", err))
		}
	}
}

func scanPostalCode(rows *sql.Rows) (postalcode.PostalCode, error) {
	var (
		p                     postalcode.PostalCode
		elevation             sql.NullFloat64
		population, dwellings sql.NullInt64
	)

	err := rows.Scan(
		&p.Code,
		&p.City,
		&p.Province,
		&p.AreaCode,
		&p.AreaName,
		&p.Latitude,
		&p.Longitude,
		&elevation,
		&population,
		&dwellings,
		&p.Timezone,
		&p.DayLightSavings,
	)
	if err != nil {
		return p, err
	}

	if elevation.Valid {
		p.Elevation = &elevation.Float64
	}

	if population.Valid {
		v := int(population.Int64)
		p.Population = &v
	}

	if dwellings.Valid {
		v := int(dwellings.Int64)
		p.Dwellings = &v
	}

	return p, nil
}
