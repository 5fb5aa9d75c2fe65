// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - DuckDB query performance
// - API endpoint latency and throughput
// - Ingestion and moment detection
// - Moment delivery (notifiers, websocket, event bus)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Ingestion Metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listening_events_ingested_total",
			Help: "Total number of listening events recorded",
		},
		[]string{"result"}, // "completed", "skipped"
	)

	IngestBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listening_ingest_batch_size",
			Help:    "Number of plays per ingestion request",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000},
		},
	)

	// Detection Metrics
	DetectionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moment_detection_runs_total",
			Help: "Total number of detection runs",
		},
		[]string{"result"}, // "success", "partial", "busy"
	)

	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moment_detection_duration_seconds",
			Help:    "Duration of detection runs in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	DetectionLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moment_detection_last_success_timestamp",
			Help: "Unix timestamp of the last detection run without rule errors",
		},
	)

	RuleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moment_rule_errors_total",
			Help: "Total number of rule family failures",
		},
		[]string{"rule"},
	)

	MomentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moments_created_total",
			Help: "Total number of moments persisted",
		},
		[]string{"type", "tier"},
	)

	// Delivery Metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moment_dispatch_total",
			Help: "Total number of moment deliveries by channel",
		},
		[]string{"channel", "result"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Event Bus Metrics
	EventBusPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_bus_messages_published_total",
			Help: "Total number of messages published to the event bus",
		},
		[]string{"topic", "result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEventsIngested records one ingestion request of completed and
// skipped plays.
func RecordEventsIngested(completed, skipped int) {
	EventsIngested.WithLabelValues("completed").Add(float64(completed))
	EventsIngested.WithLabelValues("skipped").Add(float64(skipped))
	IngestBatchSize.Observe(float64(completed + skipped))
}

// RecordDetectionRun records a finished detection run.
func RecordDetectionRun(result string, duration time.Duration) {
	DetectionRuns.WithLabelValues(result).Inc()
	DetectionDuration.Observe(duration.Seconds())
	if result == "success" {
		DetectionLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordRuleError records a failed rule family.
func RecordRuleError(rule string) {
	RuleErrors.WithLabelValues(rule).Inc()
}

// RecordMomentCreated records a persisted moment.
func RecordMomentCreated(momentType, tier string) {
	MomentsCreated.WithLabelValues(momentType, tier).Inc()
}

// RecordDispatch records one delivery attempt on a channel.
func RecordDispatch(channel, result string) {
	DispatchTotal.WithLabelValues(channel, result).Inc()
}

// RecordEventBusPublish records a publish to the event bus
func RecordEventBusPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventBusPublished.WithLabelValues(topic, result).Inc()
}
