// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/metrics"
)

func chiWrap(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chiWrap(PrometheusMetrics))
	r.Get("/api/v1/moments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "/api/v1/moments/{id}", "404"))
	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/moments/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "/api/v1/moments/{id}", "404"))
	if after-before != 3 {
		t.Errorf("recorded %v requests, want 3", after-before)
	}
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("POST", unmatchedRoute, "200"))
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/whatever", nil))
	after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("POST", unmatchedRoute, "200"))

	if after-before != 1 {
		t.Errorf("recorded %v requests, want 1", after-before)
	}
	if testutil.ToFloat64(metrics.APIActiveRequests) != 0 {
		t.Error("active requests should return to zero")
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, statusCode: http.StatusOK}

	sr.WriteHeader(http.StatusCreated)
	sr.WriteHeader(http.StatusInternalServerError)
	_, _ = sr.Write([]byte("hello"))

	if sr.statusCode != http.StatusCreated {
		t.Errorf("status = %d, want first written code", sr.statusCode)
	}
	if sr.bytes != 5 {
		t.Errorf("bytes = %d, want 5", sr.bytes)
	}
	if sr.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
	if _, _, err := sr.Hijack(); err == nil {
		t.Error("recorder cannot hijack, expected error")
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	handler := RequestID(AccessLog(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))

	out := buf.String()
	for _, want := range []string{`"status":502`, `"path":"/api/v1/rules"`, `"request_id"`, `"http request"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}
