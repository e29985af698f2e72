// Package cache provides persistent caching for market data and user state.
// Values are stored as JSON blobs in SQLite, keyed by string. The Store layer
// knows nothing about TTLs or schemas; freshness lives in the TTL layer on top.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_kv_store_updated ON kv_store(updated_at);
`

// Store is a string-keyed JSON blob store.
// A row that fails to parse on read is treated as a miss, never an error:
// everything in here can be refetched, so a corrupt row must not take the
// caller down with it.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates the store and ensures its table exists.
func NewStore(db *sql.DB, log zerolog.Logger) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create kv_store schema: %w", err)
	}
	return &Store{
		db:  db,
		log: log.With().Str("component", "kv_store").Logger(),
	}, nil
}

// Get returns the stored blob for key, or ok=false when the key is absent,
// the row is not valid JSON, or the read itself failed.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	var data string
	err := s.db.QueryRow("SELECT data FROM kv_store WHERE key = ?", key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		// Read failures degrade to a miss so the caller refetches
		s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		return nil, false
	}

	raw := json.RawMessage(data)
	if !json.Valid(raw) {
		s.log.Warn().Str("key", key).Msg("Cached value is not valid JSON, treating as miss")
		return nil, false
	}

	return raw, true
}

// Set serializes value to JSON and upserts it under key.
func (s *Store) Set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO kv_store (key, data, updated_at) VALUES (?, ?, ?)",
		key, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}

	return nil
}

// Remove deletes the entry for key. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// DeleteOlderThan removes rows last written before cutoff.
// Returns the number of rows deleted.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM kv_store WHERE updated_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old cache rows: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
