// Package recent persists the bounded list of recently navigated-to
// symbols. The list is most-recent-first, deduplicated by full key,
// and trimmed to a fixed cap; every update is committed immediately so
// the CLI and the daemon observe the same history.
package recent

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultMax is the bound on the recent list length.
const DefaultMax = 20

const schema = `
CREATE TABLE IF NOT EXISTS recent_symbols (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    full_key TEXT NOT NULL UNIQUE
);
`

// Store is the sqlite-backed recent-symbols list.
type Store struct {
	db  *sql.DB
	max int
}

// Open creates or opens the store at the given path with the default
// list bound.
func Open(path string) (*Store, error) {
	return OpenWithMax(path, DefaultMax)
}

// OpenWithMax creates or opens the store with an explicit list bound.
func OpenWithMax(path string, max int) (*Store, error) {
	if max <= 0 {
		max = DefaultMax
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening recent store: %w", err)
	}

	// WAL mode keeps concurrent CLI/daemon access cheap
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, max: max}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Touch records fullKey as the most recent entry. An existing entry
// moves to the front; the oldest entries beyond the bound are dropped.
// The change is durable when Touch returns.
func (s *Store) Touch(fullKey string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM recent_symbols WHERE full_key = ?", fullKey); err != nil {
		return fmt.Errorf("removing stale entry: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO recent_symbols (full_key) VALUES (?)", fullKey); err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	// AUTOINCREMENT id is the recency order; trim everything older
	// than the newest max entries.
	if _, err := tx.Exec(`DELETE FROM recent_symbols WHERE id NOT IN (
			SELECT id FROM recent_symbols ORDER BY id DESC LIMIT ?)`, s.max); err != nil {
		return fmt.Errorf("trimming list: %w", err)
	}

	return tx.Commit()
}

// Keys returns the recent full keys, most recent first.
func (s *Store) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT full_key FROM recent_symbols ORDER BY id DESC LIMIT ?", s.max)
	if err != nil {
		return nil, fmt.Errorf("querying recent symbols: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning recent symbol: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}
