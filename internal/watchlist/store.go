// Package watchlist manages the user's named groups of watched symbols.
// The whole mapping is persisted under a single key and swapped as one unit
// on every mutation, so the in-memory copy and the persisted copy can never
// diverge past a single call.
package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/madhav2145/Stocks-and-ETFS-broking-platform/internal/cache"
)

// GroupsKey is the persistence key for the full group mapping.
const GroupsKey = "WATCHLIST_GROUPS"

var (
	// ErrDuplicateGroup is returned when creating a group whose name
	// (case-sensitive) already exists.
	ErrDuplicateGroup = errors.New("watchlist group already exists")
	// ErrUnknownGroup is returned when toggling a symbol in a group that
	// does not exist.
	ErrUnknownGroup = errors.New("watchlist group does not exist")
)

// Store holds the group -> symbols mapping. Symbols keep insertion order
// for display; membership checks are case-insensitive via uppercase
// normalization on the way in.
type Store struct {
	kv  *cache.Store
	log zerolog.Logger

	mu     sync.Mutex
	groups map[string][]string
}

// NewStore creates the store and loads persisted state. Absent or malformed
// persisted data normalizes to an empty mapping.
func NewStore(kv *cache.Store, log zerolog.Logger) *Store {
	s := &Store{
		kv:     kv,
		log:    log.With().Str("component", "watchlist").Logger(),
		groups: make(map[string][]string),
	}

	if raw, ok := kv.Get(GroupsKey); ok {
		var groups map[string][]string
		if err := json.Unmarshal(raw, &groups); err != nil {
			s.log.Warn().Err(err).Msg("Malformed persisted watchlist, starting empty")
		} else if groups != nil {
			s.groups = groups
		}
	}

	return s
}

// LoadAll returns a copy of the full mapping.
func (s *Store) LoadAll() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string, len(s.groups))
	for name, symbols := range s.groups {
		out[name] = append([]string(nil), symbols...)
	}
	return out
}

// Symbols returns the symbols of one group in display order.
func (s *Store) Symbols(group string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols, ok := s.groups[group]
	if !ok {
		return nil, ErrUnknownGroup
	}
	return append([]string(nil), symbols...), nil
}

// CreateGroup inserts an empty group and persists. Group names are
// case-sensitive and must be unique.
func (s *Store) CreateGroup(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("group name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[name]; exists {
		return ErrDuplicateGroup
	}

	s.groups[name] = []string{}
	if err := s.persistLocked(); err != nil {
		delete(s.groups, name)
		return err
	}

	s.log.Info().Str("group", name).Msg("Created watchlist group")
	return nil
}

// DeleteGroup removes a group and all its membership atomically and
// persists. Deleting an absent group is a no-op, not an error.
func (s *Store) DeleteGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols, exists := s.groups[name]
	if !exists {
		return nil
	}

	delete(s.groups, name)
	if err := s.persistLocked(); err != nil {
		s.groups[name] = symbols
		return err
	}

	s.log.Info().Str("group", name).Msg("Deleted watchlist group")
	return nil
}

// ToggleSymbol adds the symbol to the group when absent and removes it when
// present, then persists. The symbol is uppercased before comparison.
// Returns whether the symbol is a member after the toggle.
func (s *Store) ToggleSymbol(group, symbol string) (bool, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false, fmt.Errorf("symbol must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	symbols, exists := s.groups[group]
	if !exists {
		return false, ErrUnknownGroup
	}

	previous := symbols
	added := true
	for i, existing := range symbols {
		if existing == symbol {
			symbols = append(append([]string(nil), symbols[:i]...), symbols[i+1:]...)
			added = false
			break
		}
	}
	if added {
		symbols = append(append([]string(nil), symbols...), symbol)
	}

	s.groups[group] = symbols
	if err := s.persistLocked(); err != nil {
		s.groups[group] = previous
		return false, err
	}

	return added, nil
}

// persistLocked writes the whole mapping under the single key.
// The mutation is durable when this returns nil; callers roll back the
// in-memory change otherwise.
func (s *Store) persistLocked() error {
	if err := s.kv.Set(GroupsKey, s.groups); err != nil {
		return fmt.Errorf("failed to persist watchlist: %w", err)
	}
	return nil
}
