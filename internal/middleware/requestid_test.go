// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/earmark/internal/logging"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var capturedID, correlationID, loggingID string
	handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
		capturedID = GetRequestID(r.Context())
		loggingID = logging.RequestIDFromContext(r.Context())
		correlationID = logging.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	responseID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(responseID); err != nil {
		t.Errorf("response X-Request-ID %q is not a UUID: %v", responseID, err)
	}
	if capturedID != responseID || loggingID != responseID {
		t.Errorf("context ids %q/%q do not match header %q", capturedID, loggingID, responseID)
	}
	if correlationID == "" {
		t.Error("expected a correlation ID in context")
	}
}

func TestRequestID_UpstreamHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantKeep bool
	}{
		{"valid id", "req-123_abc", true},
		{"uuid", "4f1c2f0e-9b7e-4c55-8d0a-3f4f0d0f8a11", true},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"newline injection", "abc\nlevel=error", false},
		{"spaces", "abc def", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured string
			handler := RequestID(func(w http.ResponseWriter, r *http.Request) {
				captured = GetRequestID(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(RequestIDHeader, tt.header)
			rec := httptest.NewRecorder()
			handler(rec, req)

			if kept := captured == tt.header; kept != tt.wantKeep {
				t.Errorf("kept = %v, want %v (got %q)", kept, tt.wantKeep, captured)
			}
			if rec.Header().Get(RequestIDHeader) != captured {
				t.Error("response header should match context ID")
			}
		})
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}
