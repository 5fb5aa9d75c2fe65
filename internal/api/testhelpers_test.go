// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/earmark/internal/config"
	"github.com/tomtom215/earmark/internal/database"
	"github.com/tomtom215/earmark/internal/detection"
	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/models"
	ws "github.com/tomtom215/earmark/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// testDBSemaphore serializes DuckDB usage across tests; concurrent CGO
// connections can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

type testEnv struct {
	handler *Handler
	db      *database.DB
	store   *detection.DuckDBStore
	router  http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			CORSOrigins:       []string{"http://localhost:3000"},
			RateLimitDisabled: true,
		},
	}
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	store := detection.NewDuckDBStore(db.Conn())
	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	detCfg := detection.DefaultConfig()
	detCfg.SongPlayThresholds = []int{3}
	det, err := detection.NewDetector(db, store, detCfg)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	t.Cleanup(func() { _ = det.Close() })

	cfg := testConfig()
	handler := NewHandler(db, det, store, cfg, nil, nil)
	t.Cleanup(handler.Close)

	return &testEnv{
		handler: handler,
		db:      db,
		store:   store,
		router:  NewRouter(handler, NewChiMiddlewareFromConfig(&cfg.Security)).SetupChi(),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// insertMoment stores a moment directly, bypassing detection.
func (e *testEnv) insertMoment(t *testing.T, typ detection.Type, key string, at time.Time) *detection.Moment {
	t.Helper()
	m := &detection.Moment{
		Type:        typ,
		EntityKey:   key,
		TriggeredAt: at,
		Title:       "Test moment " + key,
		Description: "description",
		StatLines:   []string{"line"},
		Tier:        detection.TierBronze,
	}
	created, err := e.store.InsertIfAbsent(context.Background(), m)
	if err != nil || !created {
		t.Fatalf("InsertIfAbsent() = %v, %v", created, err)
	}
	return m
}

// apiResponse mirrors models.APIResponse with a raw data field.
type apiResponse struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) apiResponse {
	t.Helper()
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", resp.Data, err)
		}
	}
	return resp
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, want, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	resp := decodeResponse(t, w, nil)
	if resp.Status != "error" || resp.Error == nil || resp.Error.Code != want {
		t.Errorf("error = %+v, want code %s", resp.Error, want)
	}
}

// hubForTest runs a hub until the test ends.
func hubForTest(t *testing.T) *ws.Hub {
	t.Helper()
	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func play(title, artist string, startedAt time.Time) models.PlayRequest {
	return models.PlayRequest{
		Title:      title,
		Artist:     artist,
		StartedAt:  startedAt.UnixMilli(),
		DurationMs: 180000,
		AppID:      "com.example.player",
		Completed:  true,
	}
}
