// Package memory provides in-process implementations of the ports.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/merits/pkg/ports"
)

// Store implements ports.SequenceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]map[string]int
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]map[string]int),
	}
}

// Save keeps a copy of the sequences.
func (s *Store) Save(ctx context.Context, key string, ids map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = maps.Clone(ids)
	return nil
}

// Load returns a copy so callers can't mutate the store through the map.
func (s *Store) Load(ctx context.Context, key string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.data[key]
	if !ok {
		return nil, ports.ErrSequenceNotFound
	}
	return maps.Clone(ids), nil
}

// Delete removes the sequences.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the saved keys, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data)), nil
}

// NoopLocker implements ports.Locker without locking anything.
// It fits single process runs where the store is not shared.
type NoopLocker struct{}

// Lock returns immediately unless the context is already done.
func (NoopLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func(context.Context) error { return nil }, nil
}
