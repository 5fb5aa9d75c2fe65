// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/earmark/internal/database"
	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/metrics"
	"github.com/tomtom215/earmark/internal/models"
)

// IngestResult is the response to a single play.
type IngestResult struct {
	Event     *models.ListeningEvent `json:"event,omitempty"`
	Duplicate bool                   `json:"duplicate"`
}

// BatchIngestResult is the response to a batch of plays.
type BatchIngestResult struct {
	Recorded   int                     `json:"recorded"`
	Duplicates int                     `json:"duplicates"`
	Events     []models.ListeningEvent `json:"events"`
}

// dedupeKey identifies a play for retry detection. Titles and artists are
// compared case-sensitively, matching song identity in the store.
func dedupeKey(p *models.PlayRequest) string {
	var b strings.Builder
	b.Grow(len(p.Title) + len(p.Artist) + 24)
	b.WriteString(p.Artist)
	b.WriteByte(0)
	b.WriteString(p.Title)
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(p.StartedAt, 10))
	return b.String()
}

func countCompleted(events []models.ListeningEvent) (completed, skipped int) {
	for i := range events {
		if events[i].Completed {
			completed++
		} else {
			skipped++
		}
	}
	return completed, skipped
}

// RecordEvent appends one listening event.
//
// Method: POST
// Path: /api/v1/events
//
// Response:
//   - 201: event recorded
//   - 200: the same play was recorded recently; nothing written
//   - 400: validation error
//   - 500: database error
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.PlayRequest
	if !decodeBody(w, r, &req) {
		return
	}

	key := dedupeKey(&req)
	if h.dedupe.IsDuplicate(key) {
		respondSuccess(w, r, http.StatusOK, IngestResult{Duplicate: true}, start)
		return
	}

	event, err := h.db.RecordPlay(r.Context(), &req)
	if err != nil {
		h.dedupe.Remove(key)
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record event", err)
		return
	}

	metrics.RecordEventsIngested(countCompleted([]models.ListeningEvent{*event}))
	h.ClearCache()

	respondSuccess(w, r, http.StatusCreated, IngestResult{Event: event}, start)
}

// RecordEventBatch appends up to 1000 listening events in one transaction.
// Plays already seen within the dedupe window are skipped.
//
// Method: POST
// Path: /api/v1/events/batch
func (h *Handler) RecordEventBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.PlayBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	fresh := make([]models.PlayRequest, 0, len(req.Plays))
	keys := make([]string, 0, len(req.Plays))
	for i := range req.Plays {
		key := dedupeKey(&req.Plays[i])
		if h.dedupe.IsDuplicate(key) {
			continue
		}
		fresh = append(fresh, req.Plays[i])
		keys = append(keys, key)
	}

	result := BatchIngestResult{
		Duplicates: len(req.Plays) - len(fresh),
		Events:     []models.ListeningEvent{},
	}

	if len(fresh) > 0 {
		events, err := h.db.RecordPlays(r.Context(), fresh)
		if err != nil {
			for _, key := range keys {
				h.dedupe.Remove(key)
			}
			respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record events", err)
			return
		}
		result.Recorded = len(events)
		result.Events = events

		metrics.RecordEventsIngested(countCompleted(events))
		h.ClearCache()
	}

	logging.Ctx(r.Context()).Debug().
		Int("recorded", result.Recorded).
		Int("duplicates", result.Duplicates).
		Msg("batch ingested")

	status := http.StatusCreated
	if result.Recorded == 0 {
		status = http.StatusOK
	}
	respondSuccess(w, r, status, result, start)
}

// SetSongArtwork attaches artwork to a song.
//
// Method: PUT
// Path: /api/v1/songs/{id}/artwork
func (h *Handler) SetSongArtwork(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ArtworkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.db.SetSongArtwork(r.Context(), id, req.ArtworkURL, req.Palette); err != nil {
		if errors.Is(err, database.ErrSongNotFound) {
			respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Song not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update artwork", err)
		return
	}

	song, err := h.db.GetSong(r.Context(), id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load song", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, song, start)
}

// SetArtistImage attaches an image to an artist. Moments created for the
// artist before the image existed pick it up on the next detection run.
//
// Method: PUT
// Path: /api/v1/artists/{id}/image
func (h *Handler) SetArtistImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ImageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.db.SetArtistImage(r.Context(), id, req.ImageURL); err != nil {
		if errors.Is(err, database.ErrArtistNotFound) {
			respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Artist not found", nil)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update image", err)
		return
	}

	artist, err := h.db.GetArtist(r.Context(), id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load artist", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, artist, start)
}
