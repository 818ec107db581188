// Package services implements the application layer of the documentation
// search backend. This file centralizes service-level error values so they
// can be consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrIndexNotReady is returned when a search arrives before the initial
	// index build or load has completed.
	ErrIndexNotReady = errors.New("search index not ready")

	// ErrCacheDisabled is returned by cache management operations when no
	// cache was configured.
	ErrCacheDisabled = errors.New("result cache is disabled")
)
