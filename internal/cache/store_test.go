package cache

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db, zerolog.Nop())
	require.NoError(t, err)

	return store, db
}

func TestStoreSetGet(t *testing.T) {
	store, _ := setupTestStore(t)

	value := map[string]string{"symbol": "AAPL", "price": "189.30"}
	require.NoError(t, store.Set("quote:AAPL", value))

	raw, ok := store.Get("quote:AAPL")
	require.True(t, ok)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, value, parsed)
}

func TestStoreGetMissingKey(t *testing.T) {
	store, _ := setupTestStore(t)

	_, ok := store.Get("does-not-exist")
	assert.False(t, ok)
}

func TestStoreOverwrite(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.Set("k", "first"))
	require.NoError(t, store.Set("k", "second"))

	raw, ok := store.Get("k")
	require.True(t, ok)

	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	assert.Equal(t, "second", s)
}

func TestStoreCorruptRowIsMiss(t *testing.T) {
	store, db := setupTestStore(t)

	// Write garbage directly, bypassing Set
	_, err := db.Exec(
		"INSERT INTO kv_store (key, data, updated_at) VALUES (?, ?, ?)",
		"broken", "{not json", time.Now().Unix(),
	)
	require.NoError(t, err)

	_, ok := store.Get("broken")
	assert.False(t, ok)
}

func TestStoreRemove(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.Set("k", 42))
	require.NoError(t, store.Remove("k"))

	_, ok := store.Get("k")
	assert.False(t, ok)

	// Removing an absent key is a no-op
	require.NoError(t, store.Remove("k"))
}

func TestStoreDeleteOlderThan(t *testing.T) {
	store, db := setupTestStore(t)

	require.NoError(t, store.Set("fresh", "a"))

	// Backdate one row past the cutoff
	_, err := db.Exec(
		"INSERT INTO kv_store (key, data, updated_at) VALUES (?, ?, ?)",
		"old", `"b"`, time.Now().Add(-10*24*time.Hour).Unix(),
	)
	require.NoError(t, err)

	deleted, err := store.DeleteOlderThan(time.Now().Add(-7 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, ok := store.Get("old")
	assert.False(t, ok)
	_, ok = store.Get("fresh")
	assert.True(t, ok)
}

func TestCleanupJob(t *testing.T) {
	store, db := setupTestStore(t)

	_, err := db.Exec(
		"INSERT INTO kv_store (key, data, updated_at) VALUES (?, ?, ?)",
		"ancient", `"x"`, time.Now().Add(-30*24*time.Hour).Unix(),
	)
	require.NoError(t, err)
	require.NoError(t, store.Set("recent", "y"))

	job := NewCleanupJob(store, DefaultRetention, zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
	require.NoError(t, job.Run())

	_, ok := store.Get("ancient")
	assert.False(t, ok)
	_, ok = store.Get("recent")
	assert.True(t, ok)
}
