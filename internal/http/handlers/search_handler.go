// Search HTTP handlers.
//
// This file exposes REST endpoints for the documentation search API:
//   - GET /search           (ranked full-text search)
//   - GET /search/sections  (distinct section types for filtering)
//   - GET /search/nodes     (distinct node types for filtering)
//   - GET /search/stats     (index, cache, and query diagnostics)
//
// Handlers are transport-thin: they validate input, call the search service,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docsearch-backend/internal/config"
	"github.com/tbourn/go-docsearch-backend/internal/domain"
	"github.com/tbourn/go-docsearch-backend/internal/services"
)

//
// Service contract (context-aware)
//

// SearchProvider defines the search operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and must honor the provided
// context for cancellation and timeouts.
type SearchProvider interface {
	// Search runs the ranked query pipeline with optional filters.
	Search(ctx context.Context, query string, topK int, filters domain.SearchFilters, includeHighlights bool) ([]domain.SearchResult, domain.SearchStats)
	// RebuildIndex re-reads the corpus and rebuilds the index from scratch.
	RebuildIndex(ctx context.Context) error
	// ClearCache drops all cached search results.
	ClearCache(ctx context.Context) error
	// GetStats reports index, cache, and query-log diagnostics.
	GetStats(ctx context.Context, bm25 config.BM25Config) services.Diagnostics
	// AvailableSectionTypes lists the distinct section types in the corpus.
	AvailableSectionTypes() []string
	// AvailableNodeTypes lists the distinct node types in the corpus.
	AvailableNodeTypes() []string
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for search and administration.
// It depends on an abstract service interface to keep transport concerns
// separate from ranking logic.
type Handlers struct {
	svc  SearchProvider
	bm25 config.BM25Config
}

// New constructs a Handlers instance bound to the given search service.
// The BM25 configuration is echoed verbatim in the stats endpoint.
func New(svc SearchProvider, bm25 config.BM25Config) *Handlers {
	return &Handlers{svc: svc, bm25: bm25}
}

//
// DTOs
//

// SearchResponse wraps ranked results with their execution statistics.
type SearchResponse struct {
	Results []domain.SearchResult `json:"results"`
	Stats   domain.SearchStats    `json:"stats"`
}

// SectionTypesResponse lists the section type values accepted by the
// section_type query filter.
type SectionTypesResponse struct {
	SectionTypes []string `json:"section_types"`
}

// NodeTypesResponse lists the node type values accepted by the node_type
// query filter.
type NodeTypesResponse struct {
	NodeTypes []string `json:"node_types"`
}

//
// Helpers
//

// parseFilters reads the optional filter query parameters. The second return
// is false with a client-facing message when min_score is present but not a
// valid number.
func parseFilters(c *gin.Context) (domain.SearchFilters, string) {
	f := domain.SearchFilters{
		SectionType: strings.TrimSpace(c.Query("section_type")),
		NodeType:    strings.TrimSpace(c.Query("node_type")),
	}
	if raw := strings.TrimSpace(c.Query("min_score")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, "min_score must be a number"
		}
		f.MinScore = v
		f.HasMinScore = true
	}
	return f, ""
}

//
// Handlers
//

// Search godoc
// @ID          search
// @Summary     Search the documentation corpus
// @Description Runs a ranked BM25 search over all indexed sections. Supports optional type filters and a score floor.
// @Tags        Search
// @Produce     json
//
// @Param       query         query  string  true  "Search query"                     example(slack node)
// @Param       top_k         query  int     false "Maximum results to return"        minimum(1) default(5)
// @Param       section_type  query  string  false "Restrict to one section type"     example(integration)
// @Param       node_type     query  string  false "Restrict to one node type"        example(Slack)
// @Param       min_score     query  number  false "Minimum relevance score"          example(0.5)
// @Param       highlights    query  bool    false "Include highlighted snippets"     default(true)
//
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /search [get]
func (h *Handlers) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter is required")
		return
	}

	// topK 0 lets the service apply its configured default.
	topK := 0
	if raw := strings.TrimSpace(c.Query("top_k")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "top_k must be a positive integer")
			return
		}
		topK = n
	}

	filters, msg := parseFilters(c)
	if msg != "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msg)
		return
	}

	highlights := true
	if raw := strings.TrimSpace(c.Query("highlights")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "highlights must be a boolean")
			return
		}
		highlights = b
	}

	results, stats := h.svc.Search(c.Request.Context(), query, topK, filters, highlights)
	ok(c, http.StatusOK, SearchResponse{Results: results, Stats: stats})
}

// SectionTypes godoc
// @ID          listSectionTypes
// @Summary     List available section types
// @Description Returns the distinct section types present in the indexed corpus.
// @Tags        Search
// @Produce     json
//
// @Success     200  {object}  handlers.SectionTypesResponse
// @Router      /search/sections [get]
func (h *Handlers) SectionTypes(c *gin.Context) {
	ok(c, http.StatusOK, SectionTypesResponse{SectionTypes: h.svc.AvailableSectionTypes()})
}

// NodeTypes godoc
// @ID          listNodeTypes
// @Summary     List available node types
// @Description Returns the distinct node types present in the indexed corpus.
// @Tags        Search
// @Produce     json
//
// @Success     200  {object}  handlers.NodeTypesResponse
// @Router      /search/nodes [get]
func (h *Handlers) NodeTypes(c *gin.Context) {
	ok(c, http.StatusOK, NodeTypesResponse{NodeTypes: h.svc.AvailableNodeTypes()})
}

// Stats godoc
// @ID          searchStats
// @Summary     Search engine diagnostics
// @Description Reports index state, cache effectiveness, query totals, and the active ranking configuration.
// @Tags        Search
// @Produce     json
//
// @Success     200  {object}  services.Diagnostics
// @Router      /search/stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	ok(c, http.StatusOK, h.svc.GetStats(c.Request.Context(), h.bm25))
}
