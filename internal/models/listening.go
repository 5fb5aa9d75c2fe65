// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package models

// ListeningEvent is a single play of a song. Events are append-only.
type ListeningEvent struct {
	ID         int64  `json:"id"`
	SongID     int64  `json:"song_id"`
	StartedAt  int64  `json:"started_at"`  // epoch ms
	DurationMs int64  `json:"duration_ms"` // listened duration, not track length
	AppID      string `json:"app_id"`
	Completed  bool   `json:"completed"` // false marks a skip
}

// EndedAt returns the epoch ms at which listening stopped.
func (e ListeningEvent) EndedAt() int64 {
	return e.StartedAt + e.DurationMs
}

// Song is identified by its (title, artist) pair.
type Song struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	ArtistID     int64  `json:"artist_id"`
	FirstHeardAt int64  `json:"first_heard_at"`
	ArtworkURL   string `json:"artwork_url,omitempty"`
	Palette      string `json:"palette,omitempty"`
}

// Artist is identified by name.
type Artist struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	FirstHeardAt int64  `json:"first_heard_at"`
	ImageURL     string `json:"image_url,omitempty"`
}

// PlayRequest is the ingestion payload for one listening event.
type PlayRequest struct {
	Title      string `json:"title" validate:"required,min=1,max=500"`
	Artist     string `json:"artist" validate:"required,min=1,max=500"`
	StartedAt  int64  `json:"started_at" validate:"required,gt=0"`
	DurationMs int64  `json:"duration_ms" validate:"gte=0,lte=86400000"`
	AppID      string `json:"app_id" validate:"omitempty,max=200"`
	Completed  bool   `json:"completed"`
}

// PlayBatchRequest carries up to 1000 plays in one request.
type PlayBatchRequest struct {
	Plays []PlayRequest `json:"plays" validate:"required,min=1,max=1000,dive"`
}

// ArtworkRequest attaches artwork to a song.
type ArtworkRequest struct {
	ArtworkURL string `json:"artwork_url" validate:"required,url,max=2048"`
	Palette    string `json:"palette" validate:"omitempty,max=200"`
}

// ImageRequest attaches an image to an artist.
type ImageRequest struct {
	ImageURL string `json:"image_url" validate:"required,url,max=2048"`
}
