// Package snapshot persists per-run table checksums and row counts in a
// SQLite database so day-over-day drift can be measured without keeping
// yesterday's files around.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSnapshot is returned when no prior run exists to compare against.
// First runs hit this; callers treat it as "no baseline", not a failure.
var ErrNoSnapshot = errors.New("no prior snapshot")

// Entry is one ticker's recorded state for one run date.
type Entry struct {
	RunDate  string
	Symbol   string
	Checksum string
	RowCount int
}

// Store is a SQLite-backed snapshot store. Safe for use from a single
// process; the pipeline run lock guarantees that.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	run_date   TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (run_date, symbol)
);
`

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply snapshot schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record upserts one ticker's snapshot for a run date. Re-running the same
// day replaces that day's entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (run_date, symbol, checksum, row_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_date, symbol) DO UPDATE SET
			checksum = excluded.checksum,
			row_count = excluded.row_count,
			created_at = excluded.created_at`,
		e.RunDate, e.Symbol, e.Checksum, e.RowCount,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record snapshot %s/%s: %w", e.RunDate, e.Symbol, err)
	}
	return nil
}

// LatestBefore returns a symbol's most recent snapshot strictly before the
// given run date, or ErrNoSnapshot when none exists.
func (s *Store) LatestBefore(ctx context.Context, symbol, runDate string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_date, symbol, checksum, row_count
		FROM snapshots
		WHERE symbol = ? AND run_date < ?
		ORDER BY run_date DESC
		LIMIT 1`,
		symbol, runDate)

	var e Entry
	if err := row.Scan(&e.RunDate, &e.Symbol, &e.Checksum, &e.RowCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNoSnapshot
		}
		return Entry{}, fmt.Errorf("query snapshot for %s: %w", symbol, err)
	}
	return e, nil
}
