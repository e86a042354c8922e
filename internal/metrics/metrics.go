package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered with the default registry through promauto and
// exposed by the /metrics listener in cmd/server.

var (
	// ==================== HTTP METRICS ====================

	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestsTotal counts total HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestsInFlight tracks currently processing requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// ==================== STORE METRICS ====================

	// StoreOperationDuration tracks key-value store latency per backend
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of key-value store operations in seconds",
			Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"backend", "operation"}, // get, put, delete
	)

	// StoreErrorsTotal counts failed store operations
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of failed key-value store operations",
		},
		[]string{"backend", "operation"},
	)

	// StoreHitsTotal counts Get calls that found a value
	StoreHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_hits_total",
			Help: "Total number of store lookups that found a value",
		},
		[]string{"backend"},
	)

	// StoreMissesTotal counts Get calls that found nothing
	StoreMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_misses_total",
			Help: "Total number of store lookups that found nothing",
		},
		[]string{"backend"},
	)

	// ==================== RATE LIMITING METRICS ====================

	// RateLimitedRequestsTotal counts rate-limited requests
	RateLimitedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total number of rate-limited requests",
		},
	)

	// RateLimitAllowedRequestsTotal counts allowed requests
	RateLimitAllowedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_allowed_requests_total",
			Help: "Total number of requests allowed by rate limiter",
		},
	)

	// ==================== BUSINESS METRICS ====================

	// LinksCreatedTotal counts new link records written
	LinksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "links_created_total",
			Help: "Total number of link records written",
		},
	)

	// LinksReusedTotal counts shorten calls answered from an existing record
	LinksReusedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "links_reused_total",
			Help: "Total number of shorten requests that returned an existing slug",
		},
	)

	// SlugEscalationsTotal counts primary slug collisions resolved with a longer slug
	SlugEscalationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slug_escalations_total",
			Help: "Total number of shorten requests that needed the escalated slug",
		},
	)

	// SlugCollisionsTotal counts collisions at the escalated length
	SlugCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slug_collisions_total",
			Help: "Total number of unresolvable slug collisions",
		},
	)

	// RedirectsTotal counts successful redirects
	RedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Total number of successful redirects",
		},
	)

	// AuthFailuresTotal counts shorten requests rejected for a bad API key
	AuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total number of requests rejected for a missing or wrong API key",
		},
	)
)

// RecordStoreHit increments the hit counter for a backend
func RecordStoreHit(backend string) {
	StoreHitsTotal.WithLabelValues(backend).Inc()
}

// RecordStoreMiss increments the miss counter for a backend
func RecordStoreMiss(backend string) {
	StoreMissesTotal.WithLabelValues(backend).Inc()
}

// RecordLinkCreated increments link creation counter
func RecordLinkCreated() {
	LinksCreatedTotal.Inc()
}

// RecordLinkReused increments the reused link counter
func RecordLinkReused() {
	LinksReusedTotal.Inc()
}

// RecordSlugEscalation increments the escalation counter
func RecordSlugEscalation() {
	SlugEscalationsTotal.Inc()
}

// RecordSlugCollision increments the unresolvable collision counter
func RecordSlugCollision() {
	SlugCollisionsTotal.Inc()
}

// RecordRedirect increments redirect counter
func RecordRedirect() {
	RedirectsTotal.Inc()
}

// RecordAuthFailure increments the auth failure counter
func RecordAuthFailure() {
	AuthFailuresTotal.Inc()
}

// RecordRateLimited increments rate-limited requests counter
func RecordRateLimited() {
	RateLimitedRequestsTotal.Inc()
}

// RecordRateLimitAllowed increments allowed requests counter
func RecordRateLimitAllowed() {
	RateLimitAllowedRequestsTotal.Inc()
}
