// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/models"
	"github.com/tomtom215/earmark/internal/validation"
)

// maxBodyBytes bounds request bodies. A full 1000-play batch fits easily.
const maxBodyBytes = 2 << 20

// sanitizeLogValue escapes control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON writes response with an ETag. A matching If-None-Match gets
// 304 for successful GETs.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	etag := generateETag(data)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)

	if r != nil && r.Method == http.MethodGet && status == http.StatusOK && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in a success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}, start time.Time) {
	respondJSON(w, r, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// generateETag is a quoted FNV-1a hash of the body.
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return `"` + strconv.FormatUint(uint64(hash), 16) + `"`
}

// respondError writes an error envelope and logs err when set.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		event := logging.Error()
		if r != nil {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondJSON(w, r, status, &models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondAPIError writes a prepared APIError, typically from validateRequest.
func respondAPIError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError) {
	respondJSON(w, r, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    apiErr,
	})
}

// validateRequest validates a struct using go-playground/validator.
// It returns nil when v is valid.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// decodeBody decodes a bounded JSON body into dst and validates it. On
// failure the error response has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			respondError(w, r, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large", nil)
		case errors.Is(err, io.EOF):
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Request body is empty", nil)
		default:
			respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body", nil)
		}
		return false
	}

	if apiErr := validateRequest(dst); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return false
	}
	return true
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// pathID parses a positive int64 route parameter. On failure the error
// response has already been written.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("Invalid %s", name), nil)
		return 0, false
	}
	return id, true
}
