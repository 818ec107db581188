package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tbourn/go-docsearch-backend/internal/domain"
)

// entry is one cached result set with its insertion timestamp.
type entry struct {
	results    []domain.SearchResult
	insertedAt time.Time
}

// Memory is the in-memory ResultCache: a single mutex-guarded map with lazy
// TTL expiry on Get and oldest-insertion eviction on Set. It is the reference
// implementation of the cache contract and the default backend.
type Memory struct {
	maxSize int
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64
}

// Compile-time contract check.
var _ ResultCache = (*Memory)(nil)

// NewMemory constructs a Memory cache with the given capacity and TTL.
func NewMemory(maxSize int, ttl time.Duration) *Memory {
	return &Memory{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]entry, maxSize),
	}
}

// Get returns cached results, expiring the entry in place when it is older
// than the TTL. There is no background sweeper; expiry only happens here.
func (m *Memory) Get(_ context.Context, query string, limit int, filters domain.SearchFilters) ([]domain.SearchResult, bool) {
	key := Key(query, limit, filters)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		if time.Since(e.insertedAt) < m.ttl {
			m.hits++
			return e.results, true
		}
		delete(m.entries, key)
	}
	m.misses++
	return nil, false
}

// Set stores the results, evicting the single oldest-inserted entry first
// when the cache is at capacity.
func (m *Memory) Set(_ context.Context, query string, limit int, filters domain.SearchFilters, results []domain.SearchResult) {
	key := Key(query, limit, filters)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxSize {
		var oldestKey string
		var oldestAt time.Time
		for k, e := range m.entries {
			if oldestKey == "" || e.insertedAt.Before(oldestAt) {
				oldestKey = k
				oldestAt = e.insertedAt
			}
		}
		delete(m.entries, oldestKey)
	}
	m.entries[key] = entry{results: results, insertedAt: time.Now()}
}

// Clear drops every entry and resets the hit/miss counters.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry, m.maxSize)
	m.hits = 0
	m.misses = 0
}

// Stats reports current effectiveness counters and occupancy.
func (m *Memory) Stats(_ context.Context) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Hits:     m.hits,
		Misses:   m.misses,
		HitRatio: hitRatio(m.hits, m.misses),
		Size:     len(m.entries),
		MaxSize:  m.maxSize,
	}
}
