// Package cache provides the key-value fetch cache. Keys are namespaced
// strings, values JSON blobs, entries expire lazily by TTL. Cache errors are
// advisory: callers log and bypass them, never abort the fetch path.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"statcheck/internal/logging"

	_ "modernc.org/sqlite"
)

// SQLiteCache is a sqlite-backed TTL cache safe for concurrent callers.
type SQLiteCache struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteCache opens (or creates) the cache database at the given path.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &SQLiteCache{db: db}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}

	logging.CacheInfo("Cache initialized at %s", path)
	return c, nil
}

// Get returns the cached value for key, if present and unexpired.
func (c *SQLiteCache) Get(key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var value []byte
	var expiresAt int64
	err := c.db.QueryRow(`SELECT value, expires_at FROM cache WHERE key = ?`, key).
		Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read failed: %w", err)
	}

	if time.Now().Unix() >= expiresAt {
		return nil, false, nil
	}
	return value, true, nil
}

// Put stores value under key with the given time-to-live. Writing the same
// key concurrently is idempotent: content-addressed keys make any last write
// equivalent.
func (c *SQLiteCache) Put(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl).Unix()
	_, err := c.db.Exec(
		`INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Prune deletes expired entries. Returns the number removed.
func (c *SQLiteCache) Prune() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec(`DELETE FROM cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("cache prune failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.CacheInfo("Pruned %d expired cache entries", n)
	}
	return n, nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}
