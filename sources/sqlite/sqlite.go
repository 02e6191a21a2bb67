// Package sqlite loads the result of a SQLite query into a neoframe.Frame
// using database/sql and the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/saulfrancisco-ruizacevedo/go-neoframe"
)

// Open opens and pings a SQLite database. DSN is passed directly to
// database/sql, e.g. "file:graph.db?mode=ro" or ":memory:".
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return db, nil
}

// Load runs query on db and collects every row. Column names come from the
// result set; SQL NULL becomes null.
func Load(ctx context.Context, db *sql.DB, query string, args ...any) (*neoframe.Frame, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}
	frame, err := neoframe.NewFrameFromColumns(names, make([][]neoframe.Value, len(names)))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	raw := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range raw {
		dest[i] = &raw[i]
	}
	row := make([]neoframe.Value, len(names))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		for i, v := range raw {
			row[i] = neoframe.ValueOf(v)
		}
		if err := frame.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	return frame, nil
}

// LoadDSN opens dsn, runs query and closes the database.
func LoadDSN(ctx context.Context, dsn, query string, args ...any) (*neoframe.Frame, error) {
	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return Load(ctx, db, query, args...)
}
