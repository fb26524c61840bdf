package report

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUStore is an in-memory LRU cache that delegates to a backing Store on miss.
type LRUStore struct {
	cache *lru.Cache[string, *Sweep]
	back  Store
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back on cache misses. Capacity below 1 is raised to 1.
func NewLRUStore(capacity int, back Store) *LRUStore {
	if capacity < 1 {
		capacity = 1
	}
	// New only fails for a non-positive size.
	cache, _ := lru.New[string, *Sweep](capacity)
	return &LRUStore{cache: cache, back: back}
}

// Save writes the sweep to the cache and delegates to the backing store.
func (s *LRUStore) Save(sweep *Sweep) error {
	s.cache.Add(sweep.ID, sweep)
	return s.back.Save(sweep)
}

// Load checks the cache first. On miss, loads from the backing store
// and promotes the sweep into the cache.
func (s *LRUStore) Load(id string) (*Sweep, error) {
	if sweep, ok := s.cache.Get(id); ok {
		return sweep, nil
	}
	sweep, err := s.back.Load(id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, sweep)
	return sweep, nil
}

// Len returns the number of cached sweeps.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}
