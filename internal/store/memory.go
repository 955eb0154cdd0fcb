package store

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/i474232898/incidence-forecast/internal/incidence"
)

// Defaults used when the configured size or TTL is not positive.
const (
	DefaultSize = 256
	DefaultTTL  = 15 * time.Minute
)

// HitObserver is notified of every lookup.
type HitObserver func(hit bool)

// MemoryStore is a concurrency-safe, size-bounded cache of forecast results
// with per-entry expiry. It satisfies incidence.ResultCache.
type MemoryStore struct {
	lru     *expirable.LRU[string, incidence.Result]
	observe HitObserver

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMemoryStore creates a MemoryStore holding at most size results for ttl
// each. observe may be nil.
func NewMemoryStore(size int, ttl time.Duration, observe HitObserver) *MemoryStore {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		lru:     expirable.NewLRU[string, incidence.Result](size, nil, ttl),
		observe: observe,
	}
}

// Get returns the cached result for key if present and not expired.
func (s *MemoryStore) Get(key string) (incidence.Result, bool) {
	r, ok := s.lru.Get(key)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	if s.observe != nil {
		s.observe(ok)
	}
	return r, ok
}

// Add stores a result, evicting the least recently used entry when full.
func (s *MemoryStore) Add(key string, r incidence.Result) {
	s.lru.Add(key, r)
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int { return s.lru.Len() }

// Purge drops every entry. Called after a dataset reload so cached results
// never outlive the data they were built from.
func (s *MemoryStore) Purge() { s.lru.Purge() }

// Stats reports lookup counters.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// Stats returns the current counters.
func (s *MemoryStore) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load(), Size: s.lru.Len()}
}
