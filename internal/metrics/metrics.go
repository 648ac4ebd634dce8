package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP request metrics for API server
var (
	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path, and status",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 10), // 5ms to ~22min, benchmark runs are long
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestsTotal counts the total number of HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	// AuthFailures counts rejected Basic authentication attempts
	AuthFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbench_auth_failures_total",
			Help: "Total number of requests rejected by Basic authentication",
		},
	)

	// RateLimited counts requests rejected by the per-client rate limiter
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbench_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

// Chat completion and benchmark loop metrics
var (
	// ChatRequestsTotal counts chat completion attempts by outcome cause
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmbench_chat_requests_total",
			Help: "Total number of chat completion attempts by cause (success, timeout, tls, connection, status, canceled, unexpected)",
		},
		[]string{"cause"},
	)

	// ChatRequestDuration tracks round trip time of chat completion attempts
	ChatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "llmbench_chat_request_duration_seconds",
			Help: "Round trip time of chat completion attempts by cause",
			// Buckets: 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s, 30s, 60s
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"cause"},
	)

	// RunsTotal counts benchmark runs by result (completed, empty, canceled)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmbench_runs_total",
			Help: "Total number of benchmark runs by result",
		},
		[]string{"result"},
	)

	// SamplesTotal counts latency samples recorded across all runs
	SamplesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbench_samples_total",
			Help: "Total number of latency samples recorded",
		},
	)

	// RetriesTotal counts retries scheduled after failed attempts
	RetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbench_retries_total",
			Help: "Total number of retries scheduled after failed attempts",
		},
	)

	// AbandonedIterations counts iterations that exhausted their retries
	AbandonedIterations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbench_abandoned_iterations_total",
			Help: "Total number of iterations dropped after exhausting retries",
		},
	)

	// ProtocolFallbacks counts https to http fallback attempts after TLS failures
	ProtocolFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llmbench_protocol_fallbacks_total",
			Help: "Total number of https to http fallback attempts after TLS failures",
		},
	)
)

// RecordHTTPRequest records the duration and increments the counter for an HTTP request
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordChatRequest records one chat completion attempt
func RecordChatRequest(cause string, duration time.Duration) {
	ChatRequestsTotal.WithLabelValues(cause).Inc()
	ChatRequestDuration.WithLabelValues(cause).Observe(duration.Seconds())
}

// RecordRun records a finished benchmark run and its sample count
func RecordRun(result string, samples int) {
	RunsTotal.WithLabelValues(result).Inc()
	SamplesTotal.Add(float64(samples))
}

// RecordRetry increments the retry counter
func RecordRetry() {
	RetriesTotal.Inc()
}

// RecordAbandonedIteration increments the abandoned iteration counter
func RecordAbandonedIteration() {
	AbandonedIterations.Inc()
}

// RecordProtocolFallback increments the protocol fallback counter
func RecordProtocolFallback() {
	ProtocolFallbacks.Inc()
}

// RecordAuthFailure increments the auth failure counter
func RecordAuthFailure() {
	AuthFailures.Inc()
}

// RecordRateLimited increments the rate limited counter
func RecordRateLimited() {
	RateLimited.Inc()
}
