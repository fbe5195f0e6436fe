package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/ppiankov/faultline/internal/model"
)

// MemoryStore implements Store with expiring in-memory entries
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a new memory store
func NewMemoryStore(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a copy of a stored outcome
func (s *MemoryStore) Get(key string) (model.VerificationOutcome, bool) {
	if val, found := s.cache.Get(key); found {
		return val.(model.VerificationOutcome).Clone(), true
	}
	return model.VerificationOutcome{}, false
}

// Set stores a copy of outcome. A zero ttl uses the store default.
func (s *MemoryStore) Set(key string, outcome model.VerificationOutcome, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	s.cache.Set(key, outcome.Clone(), ttl)
}

// Delete removes an entry
func (s *MemoryStore) Delete(key string) {
	s.cache.Delete(key)
}

// Clear removes all entries
func (s *MemoryStore) Clear() {
	s.cache.Flush()
}

// Len returns the number of entries, including expired ones not yet
// cleaned up
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
