// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/earmark/internal/detection"
	"github.com/tomtom215/earmark/internal/logging"
)

// DetectResult is the response to an on-demand detection run.
type DetectResult struct {
	Created []detection.Moment `json:"created"`
	Errors  []string           `json:"errors,omitempty"`
}

// RuleUpdateRequest enables or disables a rule family.
type RuleUpdateRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func nonNilMoments(moments []detection.Moment) []detection.Moment {
	if moments == nil {
		return []detection.Moment{}
	}
	return moments
}

// flattenErrors lists the messages of a joined error.
func flattenErrors(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// ListMoments returns every user-facing moment, newest first.
//
// Method: GET
// Path: /api/v1/moments
func (h *Handler) ListMoments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	moments, err := h.moments.ListAll(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list moments", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, nonNilMoments(moments), start)
}

// UnseenMoments returns moments the user has not opened yet.
//
// Method: GET
// Path: /api/v1/moments/unseen
func (h *Handler) UnseenMoments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	moments, err := h.moments.ListUnseen(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list unseen moments", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, nonNilMoments(moments), start)
}

// RecentMoments returns the most recent moments.
//
// Method: GET
// Path: /api/v1/moments/recent?limit=N (default 20, max 200)
func (h *Handler) RecentMoments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit := getIntParam(r, "limit", recentLimit)
	if limit < 1 || limit > maxRecentLimit {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 200", nil)
		return
	}

	moments, err := h.moments.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list recent moments", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, nonNilMoments(moments), start)
}

// GetMoment returns one moment.
//
// Method: GET
// Path: /api/v1/moments/{id}
func (h *Handler) GetMoment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondMoment(w, r, id, start)
}

// MarkMomentSeen records the first time a moment was opened. Repeated calls
// keep the original timestamp.
//
// Method: POST
// Path: /api/v1/moments/{id}/seen
func (h *Handler) MarkMomentSeen(w http.ResponseWriter, r *http.Request) {
	h.markMoment(w, r, h.moments.MarkSeen)
}

// MarkMomentShared records the first time a moment was shared.
//
// Method: POST
// Path: /api/v1/moments/{id}/shared
func (h *Handler) MarkMomentShared(w http.ResponseWriter, r *http.Request) {
	h.markMoment(w, r, h.moments.MarkShared)
}

func (h *Handler) markMoment(w http.ResponseWriter, r *http.Request, mark func(context.Context, int64, time.Time) error) {
	start := time.Now()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := mark(r.Context(), id, time.Now().UTC()); err != nil {
		if errors.Is(err, detection.ErrMomentNotFound) {
			respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Moment not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update moment", err)
		return
	}
	h.respondMoment(w, r, id, start)
}

func (h *Handler) respondMoment(w http.ResponseWriter, r *http.Request, id int64, start time.Time) {
	m, err := h.moments.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, detection.ErrMomentNotFound) {
			respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Moment not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load moment", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, m, start)
}

// DetectMoments runs detection once and returns the moments it created.
// The run is detached from the request so a disconnecting client does not
// abort it halfway.
//
// Method: POST
// Path: /api/v1/moments/detect
//
// Response:
//   - 200: run finished, possibly with per-rule errors
//   - 409: DETECTION_BUSY, a run is already in flight
//   - 500: DETECTION_ERROR, the run failed without creating anything
func (h *Handler) DetectMoments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), detectTimeout)
	defer cancel()
	ctx = logging.ContextWithNewCorrelationID(ctx)

	created, err := h.detector.DetectAndPersistNewMoments(ctx)
	if errors.Is(err, detection.ErrRunInProgress) {
		respondError(w, r, http.StatusConflict, "DETECTION_BUSY", "A detection run is already in progress", nil)
		return
	}
	if err != nil && len(created) == 0 {
		respondError(w, r, http.StatusInternalServerError, "DETECTION_ERROR", "Detection run failed", err)
		return
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("detection run finished with errors")
	}
	h.ClearCache()

	respondSuccess(w, r, http.StatusOK, DetectResult{
		Created: nonNilMoments(created),
		Errors:  flattenErrors(err),
	}, start)
}

// Rules lists rule families with their enabled state.
//
// Method: GET
// Path: /api/v1/rules
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.detector.Rules(), time.Now())
}

// UpdateRule enables or disables a rule family until restart.
//
// Method: PUT
// Path: /api/v1/rules/{name}
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "name")

	var req RuleUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.detector.SetRuleEnabled(name, *req.Enabled); err != nil {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Rule not found", nil)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("rule", sanitizeLogValue(name)).
		Bool("enabled", *req.Enabled).
		Msg("rule toggled")

	respondSuccess(w, r, http.StatusOK, h.detector.Rules(), start)
}
