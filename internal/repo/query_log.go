// Package repo – query log.
//
// One row is written per executed search (when SEARCH_LOG_QUERIES is on).
// The log is an audit/diagnostics surface, not ranking input: totals feed the
// stats endpoint, and slow or zero-result queries can be reviewed offline.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-docsearch-backend/internal/domain"
)

// InsertQueryLog records a completed search.
func InsertQueryLog(ctx context.Context, db *gorm.DB, stats domain.SearchStats) (*domain.QueryLog, error) {
	row := &domain.QueryLog{
		ID:              uuid.NewString(),
		Query:           stats.Query,
		TotalResults:    stats.TotalResults,
		ResultsReturned: stats.ResultsReturned,
		DurationMs:      stats.SearchTimeMs,
		CacheHit:        stats.CacheHit,
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// CountQueryLogs returns the total number of recorded searches.
func CountQueryLogs(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.QueryLog{}).Count(&count).Error
	return count, err
}

// SlowQueryLogs returns the most recent searches slower than minDuration,
// newest first, capped at limit.
func SlowQueryLogs(ctx context.Context, db *gorm.DB, minDuration time.Duration, limit int) ([]domain.QueryLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []domain.QueryLog
	err := db.WithContext(ctx).
		Where("duration_ms >= ?", float64(minDuration.Milliseconds())).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
