package cache

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is the freshness window for market data entries.
const DefaultTTL = 24 * time.Hour

// Entry wraps a cached value with the wall-clock time it was fetched from the
// upstream source. FetchedAt is epoch milliseconds; it is set when the value
// is written, never guessed client-side.
type Entry[T any] struct {
	Value     T     `json:"value"`
	FetchedAt int64 `json:"fetchedAtEpochMillis"`
}

// IsFresh reports whether the entry is still inside its TTL at the given time.
// The boundary is exclusive: an entry exactly ttl old is stale.
func (e Entry[T]) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-e.FetchedAt < ttl.Milliseconds()
}

// TTL decides whether a previously stored value is still usable or must be
// refreshed. Its central policy is serve-stale-on-error: when a refresh fails
// and an older entry exists, the stale value is returned instead of the error.
// Availability beats freshness when upstream is unreachable.
type TTL[T any] struct {
	store *Store
	now   func() time.Time
	log   zerolog.Logger
}

// NewTTL creates a TTL cache for values of type T on top of store.
// Multiple TTL instances may share one store; keys namespace them.
func NewTTL[T any](store *Store, log zerolog.Logger) *TTL[T] {
	return &TTL[T]{
		store: store,
		now:   time.Now,
		log:   log.With().Str("component", "ttl_cache").Logger(),
	}
}

// Read returns the entry stored under key, or ok=false when the key is absent
// or the stored blob does not have the entry shape. Malformed entries never
// surface as errors.
func (c *TTL[T]) Read(key Key) (Entry[T], bool) {
	raw, ok := c.store.Get(string(key))
	if !ok {
		return Entry[T]{}, false
	}

	var entry Entry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.Debug().Err(err).Str("key", string(key)).Msg("Malformed cache entry, treating as miss")
		return Entry[T]{}, false
	}
	if entry.FetchedAt == 0 {
		// Blob parsed but lacks the entry envelope
		return Entry[T]{}, false
	}

	return entry, true
}

// Write stores value under key with the given fetch time.
func (c *TTL[T]) Write(key Key, value T, now time.Time) error {
	return c.store.Set(string(key), Entry[T]{Value: value, FetchedAt: now.UnixMilli()})
}

// GetOrFetch returns the cached value when a fresh entry exists, without
// calling fetch. Otherwise it invokes fetch; on success the result is written
// back and returned. On fetch failure a stale entry is served when one exists;
// the error only propagates when no entry has ever been cached for key.
//
// Concurrent callers on a cold key may each invoke fetch and redundantly
// overwrite the same key. Writes are idempotent per key, so this is an
// accepted inefficiency rather than a correctness problem.
func (c *TTL[T]) GetOrFetch(key Key, ttl time.Duration, fetch func() (T, error)) (T, error) {
	entry, ok := c.Read(key)
	if ok && entry.IsFresh(c.now(), ttl) {
		return entry.Value, nil
	}

	value, err := fetch()
	if err != nil {
		if ok {
			c.log.Warn().Err(err).Str("key", string(key)).Msg("Refresh failed, serving stale cached value")
			return entry.Value, nil
		}
		var zero T
		return zero, err
	}

	if werr := c.Write(key, value, c.now()); werr != nil {
		// The fetched value is still good; only the next caller pays for this
		c.log.Warn().Err(werr).Str("key", string(key)).Msg("Failed to write cache entry")
	}

	return value, nil
}
