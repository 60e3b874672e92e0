// Package memory provides an in-memory implementation of the
// entitlement.GuestStore interface. It is primarily intended for testing
// and development; state does not survive the process.
package memory

import (
	"context"
	"sync"
)

// Store implements entitlement.GuestStore using an in-memory map.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New creates a new in-memory guest store.
func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Get implements entitlement.GuestStore.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok, nil
}

// Set implements entitlement.GuestStore.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Delete implements entitlement.GuestStore.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}
