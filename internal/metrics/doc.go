// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto at
package init and exposed by the HTTP server at /metrics:

	curl http://localhost:3858/metrics

# Available Metrics

Database:
  - duckdb_query_duration_seconds (histogram; operation, table)
  - duckdb_query_errors_total (counter; operation, table)

API:
  - api_requests_total (counter; method, endpoint, status_code)
  - api_request_duration_seconds (histogram; method, endpoint)
  - api_active_requests (gauge)
  - api_rate_limit_hits_total (counter; endpoint)

Ingestion:
  - listening_events_ingested_total (counter; result=completed|skipped)
  - listening_ingest_batch_size (histogram)

Detection:
  - moment_detection_runs_total (counter; result=success|partial|busy)
  - moment_detection_duration_seconds (histogram)
  - moment_detection_last_success_timestamp (gauge)
  - moment_rule_errors_total (counter; rule)
  - moments_created_total (counter; type, tier)

Delivery:
  - moment_dispatch_total (counter; channel, result)
  - websocket_connections, websocket_messages_sent_total, websocket_errors_total
  - event_bus_messages_published_total (counter; topic, result)
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_state_transitions_total (name)

# Usage

	start := time.Now()
	created, err := detector.DetectAndPersistNewMoments(ctx)
	metrics.RecordDetectionRun("success", time.Since(start))

Helpers are safe for concurrent use. Label values must come from a bounded
set (moment types, rule names, route patterns) to keep cardinality low.
*/
package metrics
