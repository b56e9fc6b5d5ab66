// Package fieldstore holds the latest value extracted for every declared
// template field.
//
// The watcher merges each successful parse into the Store and the sync engine
// reads from it. All access goes through one mutex so a reader never observes
// a partially merged batch.
package fieldstore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUndeclaredField indicates an update named a field no template declares.
var ErrUndeclaredField = errors.New("undeclared field")

// Store is a mutex-guarded mapping from field name to its latest value.
type Store struct {
	mu       sync.RWMutex
	values   map[string]string
	declared map[string]struct{}
}

// New creates an empty store that accepts only the declared field names.
// With no declared names every field is accepted.
func New(declared ...string) *Store {
	s := &Store{values: make(map[string]string)}
	if len(declared) > 0 {
		s.declared = make(map[string]struct{}, len(declared))
		for _, name := range declared {
			s.declared[name] = struct{}{}
		}
	}
	return s
}

// Update merges fields into the store. The batch is applied entirely or not
// at all.
func (s *Store) Update(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if s.declared != nil {
		var unknown []string
		for name := range fields {
			if _, ok := s.declared[name]; !ok {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return fmt.Errorf("%w: %s", ErrUndeclaredField, strings.Join(unknown, ", "))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, value := range fields {
		s.values[name] = value
	}
	return nil
}

// Get returns the current value of name.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[name]
	return value, ok
}

// Snapshot returns a copy of every stored field.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for name, value := range s.values {
		out[name] = value
	}
	return out
}

// Len reports how many fields hold a value.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
