// Package catalog implements the curated table catalog: a sqlite-backed
// store of remote table descriptors and a token-overlap matcher that
// shortlists candidate tables for a question.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"statcheck/internal/logging"
	"statcheck/internal/types"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists catalog tables in SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewStore initializes the catalog database at the given path.
func NewStore(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryCatalog, "NewStore")
	defer timer.Stop()

	logging.Catalog("Initializing catalog store at path: %s", path)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tables (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			description  TEXT,
			api_path     TEXT NOT NULL,
			keywords     TEXT,
			first_period TEXT,
			last_period  TEXT,
			updated      INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_tables_title ON tables(title);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

// Upsert inserts or replaces a catalog entry.
func (s *Store) Upsert(t types.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.CatalogDebug("Upserting table %s (%s)", t.ID, t.Title)

	_, err := s.db.Exec(
		`INSERT INTO tables (id, title, description, api_path, keywords, first_period, last_period, updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			api_path = excluded.api_path,
			keywords = excluded.keywords,
			first_period = excluded.first_period,
			last_period = excluded.last_period,
			updated = excluded.updated`,
		t.ID, t.Title, t.Description, t.APIPath, t.Keywords,
		t.FirstPeriod, t.LastPeriod, t.Updated.Unix(),
	)
	if err != nil {
		logging.Get(logging.CategoryCatalog).Error("Failed to upsert table %s: %v", t.ID, err)
		return fmt.Errorf("failed to upsert table %s: %w", t.ID, err)
	}
	return nil
}

// All returns every catalog entry.
func (s *Store) All() ([]types.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, title, description, api_path, keywords, first_period, last_period, updated
		 FROM tables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	return scanTables(rows)
}

// Search returns catalog entries whose title, keywords, or id contain the
// given substring (case-insensitive LIKE).
func (s *Store) Search(substring string) ([]types.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern := "%" + substring + "%"
	rows, err := s.db.Query(
		`SELECT id, title, description, api_path, keywords, first_period, last_period, updated
		 FROM tables
		 WHERE title LIKE ? OR keywords LIKE ? OR id LIKE ?
		 ORDER BY id`,
		pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search tables: %w", err)
	}
	defer rows.Close()

	return scanTables(rows)
}

func scanTables(rows *sql.Rows) ([]types.Table, error) {
	var tables []types.Table
	for rows.Next() {
		var t types.Table
		var description, keywords, firstPeriod, lastPeriod sql.NullString
		var updated sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &description, &t.APIPath, &keywords,
			&firstPeriod, &lastPeriod, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		t.Description = description.String
		t.Keywords = keywords.String
		t.FirstPeriod = firstPeriod.String
		t.LastPeriod = lastPeriod.String
		if updated.Valid && updated.Int64 > 0 {
			t.Updated = time.Unix(updated.Int64, 0).UTC()
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// Count returns the number of catalog entries.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tables`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tables: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
