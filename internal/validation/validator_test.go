// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package validation

import (
	"strings"
	"sync"
	"testing"
)

type playRequest struct {
	Title      string   `json:"title" validate:"required,notblank,max=20"`
	Artist     string   `json:"artist" validate:"required,notblank"`
	DurationMs int64    `json:"duration_ms" validate:"gte=0"`
	ImageURL   string   `json:"image_url,omitempty" validate:"omitempty,http_url"`
	Source     string   `json:"source" validate:"omitempty,oneof=app import"`
	Tags       []string `json:"tags" validate:"max=2"`
	Internal   string   `json:"-" validate:"omitempty,min=3"`
}

func validPlay() playRequest {
	return playRequest{Title: "Blinding Lights", Artist: "The Weeknd", DurationMs: 200000}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(r *playRequest)
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{name: "valid", mutate: func(r *playRequest) {}},
		{
			name:      "missing title",
			mutate:    func(r *playRequest) { r.Title = "" },
			wantField: "title", wantTag: "required", wantMsg: "title is required",
		},
		{
			name:      "blank artist",
			mutate:    func(r *playRequest) { r.Artist = "   " },
			wantField: "artist", wantTag: "notblank", wantMsg: "artist must not be blank",
		},
		{
			name:      "title too long",
			mutate:    func(r *playRequest) { r.Title = strings.Repeat("a", 21) },
			wantField: "title", wantTag: "max", wantMsg: "title must be at most 20 characters",
		},
		{
			name:      "negative duration",
			mutate:    func(r *playRequest) { r.DurationMs = -1 },
			wantField: "duration_ms", wantTag: "gte", wantMsg: "duration_ms must be greater than or equal to 0",
		},
		{
			name:      "bad image url",
			mutate:    func(r *playRequest) { r.ImageURL = "ftp://img.example.com/a.jpg" },
			wantField: "image_url", wantTag: "http_url", wantMsg: "image_url must be an http or https URL",
		},
		{
			name:      "unknown source",
			mutate:    func(r *playRequest) { r.Source = "radio" },
			wantField: "source", wantTag: "oneof", wantMsg: "source must be one of: app import",
		},
		{
			name:      "too many tags",
			mutate:    func(r *playRequest) { r.Tags = []string{"a", "b", "c"} },
			wantField: "tags", wantTag: "max", wantMsg: "tags must contain at most 2 items",
		},
		{
			name:      "json dash uses go name",
			mutate:    func(r *playRequest) { r.Internal = "x" },
			wantField: "Internal", wantTag: "min", wantMsg: "Internal must be at least 3 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPlay()
			tt.mutate(&req)

			verr := ValidateStruct(&req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("field/tag = %s/%s, want %s/%s", errs[0].Field(), errs[0].Tag(), tt.wantField, tt.wantTag)
			}
			if errs[0].Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&playRequest{Title: "x", Artist: ""})
	if single == nil {
		t.Fatal("expected error")
	}
	apiErr := single.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Message != "artist is required" {
		t.Errorf("single = %+v", apiErr)
	}
	if apiErr.Details["field"] != "artist" {
		t.Errorf("details = %v", apiErr.Details)
	}

	multi := ValidateStruct(&playRequest{DurationMs: -5})
	if multi == nil {
		t.Fatal("expected error")
	}
	apiErr = multi.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("fields = %v", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "title is required") || !strings.Contains(apiErr.Message, "duration_ms") {
		t.Errorf("message = %q", apiErr.Message)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty = %+v", empty)
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	verr := ValidateStruct("not a struct")
	if verr == nil || verr.Errors()[0].Field() != "unknown" {
		t.Errorf("verr = %v", verr)
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	var wg sync.WaitGroup
	results := make(chan interface{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- GetValidator()
		}()
	}
	wg.Wait()
	close(results)

	first := GetValidator()
	for v := range results {
		if v != first {
			t.Error("GetValidator returned different instances")
		}
	}
}
