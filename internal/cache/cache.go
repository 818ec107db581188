// Package cache provides the TTL- and capacity-bounded result cache used by
// the search service. Two backends implement the same contract: an in-memory
// mutex-guarded map (the default) and a Redis-backed store for deployments
// that share a cache across replicas. Entries are keyed by a digest of the
// query, the result limit, and a canonical serialization of the filter set,
// so logically identical requests collide regardless of filter field order.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tbourn/go-docsearch-backend/internal/domain"
)

// ResultCache is the contract shared by all cache backends.
//
// Implementations must be safe for concurrent use by multiple searchers.
// Expiry is lazy: an entry older than the TTL is treated as a miss at lookup
// time. At capacity, the oldest-inserted entry is evicted first.
type ResultCache interface {
	// Get returns the cached results for the request, or ok=false on a miss
	// (including TTL expiry).
	Get(ctx context.Context, query string, limit int, filters domain.SearchFilters) (results []domain.SearchResult, ok bool)

	// Set stores the results for the request, evicting the oldest entry if
	// the cache is full.
	Set(ctx context.Context, query string, limit int, filters domain.SearchFilters, results []domain.SearchResult)

	// Clear removes all entries and resets the hit/miss counters.
	Clear(ctx context.Context)

	// Stats returns a point-in-time view of cache effectiveness.
	Stats(ctx context.Context) Stats
}

// Stats is a point-in-time summary of cache behavior.
type Stats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
	Size     int     `json:"size"`
	MaxSize  int     `json:"max_size"`
}

// hitRatio guards the zero-request case.
func hitRatio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Key derives the cache key for a request: a sha256 digest over the trimmed
// query, the limit, and the filter fields in a fixed order. Filters serialize
// canonically, so two SearchFilters values with equal content always produce
// the same key.
func Key(query string, limit int, filters domain.SearchFilters) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(query))
	fmt.Fprintf(&b, "|%d|", limit)
	fmt.Fprintf(&b, "section_type=%s;node_type=%s;", filters.SectionType, filters.NodeType)
	if filters.HasMinScore {
		fmt.Fprintf(&b, "min_score=%g;", filters.MinScore)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
