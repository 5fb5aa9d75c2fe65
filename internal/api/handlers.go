// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/earmark/internal/cache"
	"github.com/tomtom215/earmark/internal/config"
	"github.com/tomtom215/earmark/internal/database"
	"github.com/tomtom215/earmark/internal/detection"
	"github.com/tomtom215/earmark/internal/logging"
	ws "github.com/tomtom215/earmark/internal/websocket"
)

const (
	// summaryTTL bounds how stale GET /api/v1/stats may be between ingests.
	summaryTTL = 30 * time.Second

	// dedupeWindow is how long a (title, artist, started_at) triple is
	// remembered to absorb client retries.
	dedupeWindow    = 10 * time.Minute
	dedupeCapacity  = 50000
	detectTimeout   = 5 * time.Minute
	recentLimit     = 20
	maxRecentLimit  = 200
	summaryCacheKey = "summary"
)

// EventBus is the part of the event bus the API reports on.
type EventBus interface {
	Driver() string
	Healthy() bool
	BreakerState() string
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_events.go: ingestion and artwork
//   - handlers_moments.go: moments, detection and rules
//   - handlers_health.go: health, stats and WebSocket
type Handler struct {
	db        *database.DB
	detector  *detection.Detector
	moments   detection.MomentStore
	config    *config.Config
	wsHub     *ws.Hub
	bus       EventBus
	startTime time.Time

	summaries *cache.Cache[*Summary]
	dedupe    *cache.LRUCache
}

// NewHandler creates the API handler. hub and bus may be nil.
//
//	handler := api.NewHandler(db, detector, store, cfg, hub, nil)
//	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(&cfg.Security))
//	http.ListenAndServe(cfg.Server.Addr(), router.SetupChi())
func NewHandler(db *database.DB, detector *detection.Detector, moments detection.MomentStore, cfg *config.Config, hub *ws.Hub, bus EventBus) *Handler {
	return &Handler{
		db:        db,
		detector:  detector,
		moments:   moments,
		config:    cfg,
		wsHub:     hub,
		bus:       bus,
		startTime: time.Now(),
		summaries: cache.New[*Summary](summaryTTL),
		dedupe:    cache.NewLRUCache(dedupeCapacity, dedupeWindow),
	}
}

// SetEventBus attaches the event bus after construction. The bus is created
// by the messaging layer, which may start after the handler.
func (h *Handler) SetEventBus(bus EventBus) {
	h.bus = bus
}

// ClearCache invalidates cached summaries. Called after every ingestion and
// detection run.
func (h *Handler) ClearCache() {
	if h.summaries != nil {
		h.summaries.Clear()
		logging.Debug().Msg("Summary cache cleared")
	}
}

// Close stops background cache maintenance.
func (h *Handler) Close() {
	if h.summaries != nil {
		h.summaries.Close()
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins against the
// CORS allow list. Browsers always send Origin, so a missing one is
// rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
