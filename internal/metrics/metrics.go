// Package metrics provides Prometheus metrics for the card comps service.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comps_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comps_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)

	// Scrape Metrics
	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_scrapes_total",
			Help: "Listing source invocations by source, mode and outcome",
		},
		[]string{"source", "mode", "outcome"}, // outcome: "ok", or a failure kind
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comps_scrape_duration_seconds",
			Help:    "Time taken by one listing source invocation",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		},
		[]string{"mode"},
	)

	ListingsScrapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comps_listings_scraped_total",
			Help: "Raw listings returned by listing sources",
		},
	)

	ListingsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_listings_dropped_total",
			Help: "Listings dropped before grouping by reason",
		},
		[]string{"reason"}, // "price", "image", "duplicate", "grade_filter"
	)

	// Grouping Metrics
	OutliersRemovedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_outliers_removed_total",
			Help: "Listings removed as price outliers by stage",
		},
		[]string{"stage"}, // "global", "group"
	)

	GroupsPerSearch = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comps_groups_per_search",
			Help:    "Number of variation groups produced per search",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_searches_total",
			Help: "Searches by mode and result status",
		},
		[]string{"mode", "status"},
	)

	// Cache Metrics
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_cache_lookups_total",
			Help: "Search cache lookups by tier and result",
		},
		[]string{"tier", "result"}, // tier: "memory", "store"; result: "hit", "miss"
	)

	CachePurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comps_cache_purged_total",
			Help: "Expired persisted searches removed by the janitor",
		},
	)

	CachedSearches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "comps_cached_searches",
			Help: "Persisted searches after the last janitor run",
		},
	)

	// Analysis Metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_analyses_total",
			Help: "Market analyses by recommended action",
		},
		[]string{"action"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_uploads_total",
			Help: "Image uploads staged for image search",
		},
		[]string{"result"}, // "ok", "rejected", "failed"
	)
)

// RecordCacheLookup counts a hit or miss for a cache tier
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(tier, result).Inc()
}
