// Package domain defines the core data model of the documentation search
// service: corpus sections, search results and statistics, filter sets, and
// the persisted query-log entity. Corpus-facing types mirror the JSON shape
// of the scraped documentation file; QueryLog is mapped with GORM.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Section is a single documentation chunk as supplied by the corpus file.
// Sections are immutable once loaded; their identity is the positional index
// within the loaded corpus array, which joins the parallel document, token,
// and score arrays for the lifetime of one built index.
//
// Fields:
//   - Title / Content / URL: the chunk text and provenance.
//   - SectionType: category tag ("integration", "concept", …); defaults to
//     "general" when the corpus omits it.
//   - NodeType: optional entity tag (e.g. "Slack") used for query boosting.
//   - ChunkIndex: position when a long page was split into multiple chunks.
//   - WordCount: word count recorded by the scraper.
type Section struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	SectionType string `json:"section_type"`
	NodeType    string `json:"node_type,omitempty"`
	ChunkIndex  int    `json:"chunk_index"`
	WordCount   int    `json:"word_count"`
}

// Corpus is the top-level shape of the documentation file consumed at index
// build time. A missing or non-array "sections" key is a fatal format error.
type Corpus struct {
	Sections []Section `json:"sections"`
}

// SearchResult is a scored copy of a Section produced for one query. Results
// are created fresh per search and never persisted.
type SearchResult struct {
	Title       string  `json:"title" example:"Slack Node"`
	Content     string  `json:"content"`
	URL         string  `json:"url" example:"https://docs.example.com/integrations/slack"`
	Score       float64 `json:"score" example:"7.42"`
	SectionType string  `json:"section_type" example:"integration"`
	NodeType    string  `json:"node_type,omitempty" example:"Slack"`
	ChunkIndex  int     `json:"chunk_index"`
	WordCount   int     `json:"word_count"`
	Highlight   string  `json:"highlight,omitempty"`
}

// SearchStats describes a single search execution.
//
// TotalResults counts matches before truncation to the requested limit;
// ResultsReturned counts what was actually handed back.
type SearchStats struct {
	Query           string  `json:"query" example:"send slack message"`
	TotalResults    int     `json:"total_results" example:"12"`
	SearchTimeMs    float64 `json:"search_time_ms" example:"3.21"`
	ResultsReturned int     `json:"results_returned" example:"5"`
	CacheHit        bool    `json:"cache_hit"`
	IndexSize       int     `json:"index_size" example:"2048"`
}

// SearchFilters narrows a result set after scoring. Zero values mean "no
// constraint"; HasMinScore distinguishes an explicit 0 threshold from an
// absent one.
type SearchFilters struct {
	SectionType string  `json:"section_type,omitempty"`
	NodeType    string  `json:"node_type,omitempty"`
	MinScore    float64 `json:"min_score,omitempty"`
	HasMinScore bool    `json:"-"`
}

// IsZero reports whether no filter constraint is set.
func (f SearchFilters) IsZero() bool {
	return f.SectionType == "" && f.NodeType == "" && !f.HasMinScore
}

// QueryLog is one persisted row per executed search, used for diagnostics
// (total search counts, slow-query review) rather than ranking.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Query: the raw query string as received.
//   - TotalResults / ResultsReturned: see SearchStats.
//   - DurationMs: wall-clock search time in milliseconds.
//   - CacheHit: whether the result set came from the cache.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type QueryLog struct {
	ID              string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Query           string         `json:"query"      gorm:"type:text;not null"`
	TotalResults    int            `json:"total_results"    gorm:"not null"`
	ResultsReturned int            `json:"results_returned" gorm:"not null"`
	DurationMs      float64        `json:"duration_ms"      gorm:"not null"`
	CacheHit        bool           `json:"cache_hit"        gorm:"not null;index"`
	CreatedAt       time.Time      `json:"created_at"       gorm:"index"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for QueryLog.
func (QueryLog) TableName() string { return "query_logs" }
