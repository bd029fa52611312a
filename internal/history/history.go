// Package history remembers the most recently entered dates and locations
// so the editor can offer them again.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// MaxValues is how many values are kept per kind.
const MaxValues = 3

// Kind separates the value lists.
type Kind string

const (
	KindDate     Kind = "date"
	KindLocation Kind = "location"
)

const schema = `
CREATE TABLE IF NOT EXISTS recent_values (
	kind  TEXT    NOT NULL,
	value TEXT    NOT NULL,
	seq   INTEGER NOT NULL,
	PRIMARY KEY (kind, value)
);`

// Store keeps recent values in a sqlite database.
type Store struct {
	DB *sql.DB
}

// Open opens or creates the database at path, creating its directory.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{`PRAGMA journal_mode = WAL;`, schema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init history db: %w", err)
		}
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Add records value as the most recent of its kind. Re-adding a known value
// moves it to the end; the oldest values beyond MaxValues are dropped.
// Blank values are ignored.
func (s *Store) Add(ctx context.Context, kind Kind, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM recent_values WHERE kind = ?`, kind,
	).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recent_values (kind, value, seq) VALUES (?, ?, ?)
		ON CONFLICT (kind, value) DO UPDATE SET seq = excluded.seq`,
		kind, value, seq,
	); err != nil {
		return fmt.Errorf("insert recent value: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM recent_values
		WHERE kind = ? AND value NOT IN (
			SELECT value FROM recent_values WHERE kind = ? ORDER BY seq DESC LIMIT ?
		)`,
		kind, kind, MaxValues,
	); err != nil {
		return fmt.Errorf("trim recent values: %w", err)
	}
	return tx.Commit()
}

// List returns the values of kind, most recent last.
func (s *Store) List(ctx context.Context, kind Kind) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT value FROM recent_values WHERE kind = ? ORDER BY seq ASC`, kind)
	if err != nil {
		return nil, fmt.Errorf("list recent values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan recent value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
