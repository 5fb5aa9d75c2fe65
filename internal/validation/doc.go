// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

// Package validation provides struct validation for API request bodies using
// go-playground/validator v10.
//
// The validator is a lazily built singleton (it caches struct metadata) and
// reports fields by their JSON names:
//
//	type PlayRequest struct {
//	    Title      string `json:"title" validate:"required,notblank,max=500"`
//	    DurationMs int64  `json:"duration_ms" validate:"gte=0"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError() // Code: VALIDATION_ERROR
//	}
package validation
