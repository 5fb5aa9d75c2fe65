// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID: accepts or generates X-Request-ID and seeds the logging
    context with request and correlation IDs.
  - PrometheusMetrics: api_requests_total, api_request_duration_seconds and
    api_active_requests, labelled by chi route pattern.
  - AccessLog: one zerolog line per request.

Middleware here uses the func(http.HandlerFunc) http.HandlerFunc shape; the
api package adapts it for chi's r.Use:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
*/
package middleware
