// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package models

import (
	"time"
)

// APIResponse wraps every HTTP response body.
//
// Status is "success" (see Data) or "error" (see Error).
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error payload.
//
// Common error codes:
//   - VALIDATION_ERROR: invalid input
//   - NOT_FOUND: unknown moment, song or artist
//   - DATABASE_ERROR: query execution failure
//   - DETECTION_BUSY: a detection run is already in flight
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
