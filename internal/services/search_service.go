// Package services – SearchService
//
// This file implements the SearchService, the single entry point for query
// execution against the documentation index. It runs the full pipeline:
// cache lookup, query tokenization, BM25 scoring, section weighting, node
// boosting, filtering, ranking, truncation, highlighting, cache store, and
// statistics. Per-query faults are absorbed into an empty result set — a
// broken query must never take down the shared service instance — while
// corpus/build errors propagate to whoever triggered the build.
//
// One SearchService is constructed at startup and injected into the HTTP
// layer; there is no package-level instance.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-docsearch-backend/internal/cache"
	"github.com/tbourn/go-docsearch-backend/internal/config"
	"github.com/tbourn/go-docsearch-backend/internal/domain"
	"github.com/tbourn/go-docsearch-backend/internal/repo"
	"github.com/tbourn/go-docsearch-backend/internal/search"
)

// QueryLogRepo defines the persistence contract required for search audit
// rows. A nil implementation disables logging.
type QueryLogRepo interface {
	// InsertQueryLog records one completed search.
	InsertQueryLog(ctx context.Context, db *gorm.DB, stats domain.SearchStats) (*domain.QueryLog, error)
	// CountQueryLogs returns the number of recorded searches.
	CountQueryLogs(ctx context.Context, db *gorm.DB) (int64, error)
}

// queryLogShim adapts the repo free functions to the QueryLogRepo interface.
type queryLogShim struct{}

func (queryLogShim) InsertQueryLog(ctx context.Context, db *gorm.DB, stats domain.SearchStats) (*domain.QueryLog, error) {
	return repo.InsertQueryLog(ctx, db, stats)
}

func (queryLogShim) CountQueryLogs(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountQueryLogs(ctx, db)
}

// SearchService executes queries against the BM25 index and manages the
// index and cache lifecycles. It is safe for concurrent use: searches take a
// read lock, and index rebuilds take the write lock for the duration of the
// build so readers never observe a half-built index.
type SearchService struct {
	store    *search.Store
	proc     *search.Processor
	cache    cache.ResultCache // nil when caching is disabled
	db       *gorm.DB          // nil when query logging is disabled
	logs     QueryLogRepo
	behavior config.BehaviorConfig
	log      zerolog.Logger

	// mu serializes index rebuilds against in-flight searches. Reads of the
	// built index are otherwise lock-free.
	mu    sync.RWMutex
	ready bool
}

// NewSearchService wires the service from its collaborators. cacheBackend
// and db may be nil to disable caching and query logging respectively.
func NewSearchService(store *search.Store, cacheBackend cache.ResultCache, db *gorm.DB, behavior config.BehaviorConfig, log zerolog.Logger) *SearchService {
	return &SearchService{
		store:    store,
		proc:     store.Processor(),
		cache:    cacheBackend,
		db:       db,
		logs:     queryLogShim{},
		behavior: behavior,
		log:      log.With().Str("component", "search").Logger(),
	}
}

// Init builds or loads the index according to the staleness check. It must
// complete before the first Search call.
func (s *SearchService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.store.ShouldRebuild() {
		s.log.Info().Msg("building new search index")
		err = s.store.Build(ctx)
	} else {
		s.log.Info().Msg("loading existing search index")
		err = s.store.Load(ctx)
	}
	if err != nil {
		return err
	}
	s.ready = true
	indexSize.Set(float64(s.store.Size()))
	s.log.Info().Int("document_count", s.store.Size()).Msg("search service ready")
	return nil
}

// Search runs the full query pipeline and returns ranked results plus
// execution statistics. topK <= 0 selects the configured default; any value
// above the configured maximum is clamped. A scoring fault yields an empty
// result set with TotalResults 0, never an error.
func (s *SearchService) Search(ctx context.Context, query string, topK int, filters domain.SearchFilters, includeHighlights bool) ([]domain.SearchResult, domain.SearchStats) {
	start := time.Now()

	emptyStats := func() domain.SearchStats {
		return domain.SearchStats{
			Query:        query,
			SearchTimeMs: msSince(start),
			IndexSize:    s.store.Size(),
		}
	}

	if strings.TrimSpace(query) == "" {
		return []domain.SearchResult{}, emptyStats()
	}

	if topK <= 0 {
		topK = s.behavior.DefaultTopK
	}
	if topK > s.behavior.MaxTopK {
		topK = s.behavior.MaxTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		s.log.Error().Err(ErrIndexNotReady).Str("query", query).Msg("search before index ready")
		return []domain.SearchResult{}, emptyStats()
	}

	// Cache lookup: on a hit only the lookup itself is timed.
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, query, topK, filters); ok {
			stats := domain.SearchStats{
				Query:           query,
				TotalResults:    len(cached),
				SearchTimeMs:    msSince(start),
				ResultsReturned: len(cached),
				CacheHit:        true,
				IndexSize:       s.store.Size(),
			}
			s.finish(ctx, stats, "cache_hit")
			return cached, stats
		}
	}

	queryTokens := s.proc.Tokenize(query)
	if len(queryTokens) == 0 {
		stats := emptyStats()
		s.finish(ctx, stats, "empty")
		return []domain.SearchResult{}, stats
	}

	results, total, err := s.rank(query, queryTokens, topK, filters, includeHighlights)
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("search failed")
		stats := emptyStats()
		s.finish(ctx, stats, "failed")
		return []domain.SearchResult{}, stats
	}

	if s.cache != nil {
		s.cache.Set(ctx, query, topK, filters, results)
	}

	stats := domain.SearchStats{
		Query:           query,
		TotalResults:    total,
		SearchTimeMs:    msSince(start),
		ResultsReturned: len(results),
		IndexSize:       s.store.Size(),
	}

	if elapsed := time.Since(start); elapsed > s.behavior.SlowQueryThreshold {
		s.log.Warn().
			Str("query", query).
			Float64("search_time_ms", stats.SearchTimeMs).
			Int("total_results", total).
			Msg("slow search query")
	}

	outcome := "results"
	if len(results) == 0 {
		outcome = "empty"
	}
	s.finish(ctx, stats, outcome)
	return results, stats
}

// rank executes scoring and result shaping. A panic anywhere inside (e.g. a
// pathological corpus entry) is converted to an error so Search can degrade
// to an empty result set.
func (s *SearchService) rank(rawQuery string, queryTokens []string, topK int, filters domain.SearchFilters, includeHighlights bool) (results []domain.SearchResult, total int, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, total = nil, 0
			err = panicError{r}
		}
	}()

	scores := s.store.Score(queryTokens)

	type scoredDoc struct {
		idx   int
		score float64
	}
	scored := make([]scoredDoc, 0, 64)
	for i, sc := range scores {
		if sc <= 0 || sc < s.behavior.MinScoreThreshold {
			continue
		}
		scored = append(scored, scoredDoc{idx: i, score: sc})
	}

	// Section weighting, then node boosting when the query mentions the
	// document's node type.
	queryLower := strings.ToLower(rawQuery)
	for i := range scored {
		doc := s.store.Document(scored[i].idx)
		if w, ok := s.behavior.SectionWeights[doc.SectionType]; ok {
			scored[i].score *= w
		}
		if doc.NodeType != "" && strings.Contains(queryLower, strings.ToLower(doc.NodeType)) {
			scored[i].score *= s.behavior.NodeTypeBoost
		}
	}

	// Filters apply to the post-weighting score.
	if !filters.IsZero() {
		kept := scored[:0]
		for _, sd := range scored {
			doc := s.store.Document(sd.idx)
			if filters.SectionType != "" && doc.SectionType != filters.SectionType {
				continue
			}
			if filters.NodeType != "" && doc.NodeType != filters.NodeType {
				continue
			}
			if filters.HasMinScore && sd.score < filters.MinScore {
				continue
			}
			kept = append(kept, sd)
		}
		scored = kept
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	total = len(scored)
	if len(scored) > topK {
		scored = scored[:topK]
	}

	results = make([]domain.SearchResult, 0, len(scored))
	for _, sd := range scored {
		doc := s.store.Document(sd.idx)
		r := domain.SearchResult{
			Title:       doc.Title,
			Content:     doc.Content,
			URL:         doc.URL,
			Score:       sd.score,
			SectionType: doc.SectionType,
			NodeType:    doc.NodeType,
			ChunkIndex:  doc.ChunkIndex,
			WordCount:   doc.WordCount,
		}
		if includeHighlights {
			r.Highlight = s.proc.Highlight(doc.Content, rawQuery, search.DefaultHighlightLen)
		}
		results = append(results, r)
	}
	return results, total, nil
}

// finish records metrics and the query-log row for a completed search.
func (s *SearchService) finish(ctx context.Context, stats domain.SearchStats, outcome string) {
	searchesTotal.WithLabelValues(outcome).Inc()
	searchDuration.Observe(stats.SearchTimeMs / 1000)

	if s.behavior.LogSearches && s.db != nil {
		if _, err := s.logs.InsertQueryLog(ctx, s.db, stats); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist query log")
		}
	}
}

// RebuildIndex rebuilds the index from the current corpus file and clears
// the result cache, so stale result sets can never be served against the new
// document ordering. Corpus errors propagate to the caller.
func (s *SearchService) RebuildIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info().Msg("rebuilding search index")
	if err := s.store.Build(ctx); err != nil {
		return err
	}
	s.ready = true
	indexSize.Set(float64(s.store.Size()))
	if s.cache != nil {
		s.cache.Clear(ctx)
	}
	return nil
}

// ClearCache empties the result cache. It returns ErrCacheDisabled when no
// cache is configured.
func (s *SearchService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return ErrCacheDisabled
	}
	s.cache.Clear(ctx)
	s.log.Info().Msg("search cache cleared")
	return nil
}

// Diagnostics is the stats surface returned by GetStats.
type Diagnostics struct {
	Index  IndexDiagnostics  `json:"index"`
	Search SearchDiagnostics `json:"search"`
	Cache  *cache.Stats      `json:"cache,omitempty"`
	Config ConfigDiagnostics `json:"config"`
}

// IndexDiagnostics describes the live index and its snapshot artifact.
type IndexDiagnostics struct {
	DocumentCount   int       `json:"document_count"`
	BuiltAt         time.Time `json:"built_at"`
	SnapshotExists  bool      `json:"snapshot_exists"`
	SnapshotSizeKiB int64     `json:"snapshot_size_kib"`
}

// SearchDiagnostics aggregates query-log and cache counters.
type SearchDiagnostics struct {
	TotalSearches int64   `json:"total_searches"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`
}

// ConfigDiagnostics echoes the active ranking configuration.
type ConfigDiagnostics struct {
	Variant        string  `json:"bm25_variant"`
	K1             float64 `json:"k1"`
	B              float64 `json:"b"`
	CachingEnabled bool    `json:"caching_enabled"`
}

// GetStats returns service diagnostics: index state, search totals, cache
// effectiveness, and the active ranking configuration.
func (s *SearchService) GetStats(ctx context.Context, bm25 config.BM25Config) Diagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exists, size := s.store.SnapshotInfo()
	d := Diagnostics{
		Index: IndexDiagnostics{
			DocumentCount:   s.store.Size(),
			BuiltAt:         s.store.BuiltAt(),
			SnapshotExists:  exists,
			SnapshotSizeKiB: size / 1024,
		},
		Config: ConfigDiagnostics{
			Variant:        bm25.Variant,
			K1:             bm25.K1,
			B:              bm25.B,
			CachingEnabled: s.cache != nil,
		},
	}

	if s.db != nil {
		if n, err := s.logs.CountQueryLogs(ctx, s.db); err == nil {
			d.Search.TotalSearches = n
		}
	}
	if s.cache != nil {
		cs := s.cache.Stats(ctx)
		d.Cache = &cs
		d.Search.CacheHits = cs.Hits
		d.Search.CacheMisses = cs.Misses
		d.Search.CacheHitRatio = cs.HitRatio
	}
	return d
}

// AvailableSectionTypes lists the distinct section types in the corpus.
func (s *SearchService) AvailableSectionTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.SectionTypes()
}

// AvailableNodeTypes lists the distinct node types in the corpus.
func (s *SearchService) AvailableNodeTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.NodeTypes()
}

// msSince returns elapsed wall time in milliseconds.
func msSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}

// panicError wraps a recovered panic value as an error.
type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("search panic: %v", p.v) }
