package vars

import (
	"sort"
	"sync"
)

// Store is the run-scoped variable mapping shared by interpolation,
// extraction and script hooks. A Store belongs to exactly one run.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewStore() *Store {
	return &Store{values: make(map[string]any)}
}

// NewStoreFrom returns a store seeded with a copy of seed.
func NewStoreFrom(seed map[string]any) *Store {
	s := NewStore()
	s.SetAll(seed)
	return s
}

func (s *Store) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

func (s *Store) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

func (s *Store) SetAll(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
}

func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, name)
}

func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns a shallow copy of the current values.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names returns the variable names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
