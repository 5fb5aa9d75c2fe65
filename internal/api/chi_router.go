// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/earmark/internal/middleware"
)

// Router wires handlers into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses default middleware settings.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(chiMiddleware(middleware.AccessLog))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Upgraded connections are long-lived; keep them out of the request
	// histograms and the compressor.
	r.Get("/ws", h.WebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chimiddleware.Compress(5, "application/json"))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Post("/events", h.RecordEvent)
		r.Post("/events/batch", h.RecordEventBatch)
		r.Put("/songs/{id}/artwork", h.SetSongArtwork)
		r.Put("/artists/{id}/image", h.SetArtistImage)

		r.Get("/stats", h.Stats)

		r.Route("/moments", func(r chi.Router) {
			r.Get("/", h.ListMoments)
			r.Get("/unseen", h.UnseenMoments)
			r.Get("/recent", h.RecentMoments)
			r.Post("/detect", h.DetectMoments)
			r.Get("/{id}", h.GetMoment)
			r.Post("/{id}/seen", h.MarkMomentSeen)
			r.Post("/{id}/shared", h.MarkMomentShared)
		})

		r.Get("/rules", h.Rules)
		r.Put("/rules/{name}", h.UpdateRule)
	})

	return r
}
