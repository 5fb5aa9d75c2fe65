// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/earmark/internal/detection"
	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/models"
	ws "github.com/tomtom215/earmark/internal/websocket"
)

// Version is reported by the health endpoint. Set at build time with
// -ldflags "-X github.com/tomtom215/earmark/internal/api.Version=...".
var Version = "dev"

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string               `json:"status"`
	Version           string               `json:"version"`
	DatabaseConnected bool                 `json:"database_connected"`
	EventBus          *EventBusHealth      `json:"event_bus,omitempty"`
	WebSocketClients  int                  `json:"websocket_clients"`
	Detection         detection.RunMetrics `json:"detection"`
	Uptime            float64              `json:"uptime"`
}

// EventBusHealth reports the event bus driver and breaker.
type EventBusHealth struct {
	Driver       string `json:"driver"`
	Healthy      bool   `json:"healthy"`
	BreakerState string `json:"breaker_state"`
}

// Summary is the body of GET /api/v1/stats.
type Summary struct {
	Totals        models.Totals `json:"totals"`
	Events        int64         `json:"events"`
	Songs         int64         `json:"songs"`
	Artists       int64         `json:"artists"`
	Moments       int           `json:"moments"`
	UnseenMoments int           `json:"unseen_moments"`
}

// Health reports dependency status. It always answers 200; Status is
// "degraded" when the database or the event bus is unavailable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	health := HealthStatus{
		Status:            status,
		Version:           Version,
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.bus != nil {
		health.EventBus = &EventBusHealth{
			Driver:       h.bus.Driver(),
			Healthy:      h.bus.Healthy(),
			BreakerState: h.bus.BreakerState(),
		}
		if !health.EventBus.Healthy {
			health.Status = "degraded"
		}
	}
	if h.wsHub != nil {
		health.WebSocketClients = h.wsHub.GetClientCount()
	}
	if h.detector != nil {
		health.Detection = h.detector.Metrics()
	}

	respondSuccess(w, r, http.StatusOK, health, start)
}

// HealthLive answers 200 while the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady answers 503 until the database responds.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Database not ready", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{"ready": true}, time.Now())
}

// Stats returns a listening summary. Results are cached until the next
// ingestion or detection run, or summaryTTL at most.
//
// Method: GET
// Path: /api/v1/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	summary, err := h.summaries.GetOrLoad(summaryCacheKey, func() (*Summary, error) {
		return h.loadSummary(r)
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load stats", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, summary, start)
}

func (h *Handler) loadSummary(r *http.Request) (*Summary, error) {
	ctx := r.Context()

	totals, err := h.db.Totals(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	events, songs, artists, err := h.db.GetRecordCounts(ctx)
	if err != nil {
		return nil, err
	}
	all, err := h.moments.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	unseen, err := h.moments.ListUnseen(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Totals:        totals,
		Events:        events,
		Songs:         songs,
		Artists:       artists,
		Moments:       len(all),
		UnseenMoments: len(unseen),
	}, nil
}

// WebSocket upgrades the connection and registers a client that receives
// moment_created frames.
//
// Method: GET
// Path: /ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
