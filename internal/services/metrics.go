// Package services – search metrics.
//
// Prometheus collectors for the search domain, complementing the HTTP-level
// metrics middleware: query volume and latency, cache effectiveness, and the
// size of the live index. Label cardinality is kept to small closed sets.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// searchesTotal counts executed searches by outcome.
	// outcome: "results", "empty", "cache_hit", "failed".
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests by outcome.",
		},
		[]string{"outcome"},
	)

	// searchDuration records wall-clock search time, cache hits included.
	searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Duration of search requests in seconds.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// indexSize gauges the number of documents in the live index.
	indexSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_index_documents",
			Help: "Number of documents in the live search index.",
		},
	)
)

func init() {
	prometheus.MustRegister(searchesTotal, searchDuration, indexSize)
}
