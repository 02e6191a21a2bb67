// Package postgres loads the result of a Postgres query into a
// neoframe.Frame using pgx v5. Column names come from the result's field
// descriptions, SQL NULL becomes null.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saulfrancisco-ruizacevedo/go-neoframe"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Load runs query on q and collects every row.
func Load(ctx context.Context, q Querier, query string, args ...any) (*neoframe.Frame, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	frame, err := neoframe.NewFrameFromColumns(names, make([][]neoframe.Value, len(names)))
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	row := make([]neoframe.Value, len(names))
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: decode row: %w", err)
		}
		for i, v := range vals {
			row[i] = convert(v)
		}
		if err := frame.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}
	return frame, nil
}

// LoadDSN connects with dsn, runs query and closes the pool.
func LoadDSN(ctx context.Context, dsn, query string, args ...any) (*neoframe.Frame, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	defer pool.Close()

	return Load(ctx, pool, query, args...)
}

// convert maps pgx decoded values onto neoframe values.
func convert(v any) neoframe.Value {
	switch t := v.(type) {
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return neoframe.Null()
		}
		return neoframe.Float(f.Float64)
	case [16]byte:
		return neoframe.String(uuid.UUID(t).String())
	default:
		return neoframe.ValueOf(v)
	}
}
