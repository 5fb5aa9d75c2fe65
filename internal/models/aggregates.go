// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package models

// Aggregate filters and results returned by the event store. All timestamps
// are epoch milliseconds. A zero Since or Until means "unbounded".
//
// OffsetMs fields shift UTC timestamps into the listener's local wall clock
// before bucketing by hour, day or ISO week.

// SongFilter selects per-song totals.
type SongFilter struct {
	Since    int64
	Until    int64
	MinPlays int64
	Artist   string // exact artist name, empty for all
	Limit    int    // 0 for no limit
}

// SongTotal is one song's aggregate over a window.
//
// Results are ordered by plays desc, duration desc, song id asc.
type SongTotal struct {
	SongID       int64  `json:"song_id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	ArtistID     int64  `json:"artist_id"`
	Plays        int64  `json:"plays"`
	Skips        int64  `json:"skips"`
	DurationMs   int64  `json:"duration_ms"`
	FirstHeardAt int64  `json:"first_heard_at"`
	ArtworkURL   string `json:"artwork_url,omitempty"`
}

// ArtistFilter selects per-artist totals.
type ArtistFilter struct {
	Since         int64
	Until         int64
	MinDurationMs int64
	MinSkips      int64
	Limit         int
}

// ArtistTotal is one artist's aggregate over a window, ordered by duration desc.
type ArtistTotal struct {
	ArtistID     int64  `json:"artist_id"`
	Name         string `json:"name"`
	Plays        int64  `json:"plays"`
	Skips        int64  `json:"skips"`
	DurationMs   int64  `json:"duration_ms"`
	FirstHeardAt int64  `json:"first_heard_at"`
	ImageURL     string `json:"image_url,omitempty"`
}

// Totals is the history-wide aggregate over a window.
type Totals struct {
	Plays           int64 `json:"plays"`
	Skips           int64 `json:"skips"`
	DurationMs      int64 `json:"duration_ms"`
	LongestMs       int64 `json:"longest_ms"`
	DistinctSongs   int64 `json:"distinct_songs"`
	DistinctArtists int64 `json:"distinct_artists"`
}

// DayFilter selects per-day totals. Hours restricts to local hours of day.
type DayFilter struct {
	Since    int64
	Until    int64
	OffsetMs int64
	Hours    []int
}

// DayTotal is one local calendar day ("2006-01-02"), ordered ascending.
type DayTotal struct {
	Day        string `json:"day"`
	Plays      int64  `json:"plays"`
	DurationMs int64  `json:"duration_ms"`
}

// WeekTotal is one ISO week ("2006-W01"), ordered ascending.
type WeekTotal struct {
	WeekKey    string `json:"week_key"`
	DurationMs int64  `json:"duration_ms"`
}

// HistoryFilter selects plays of one song or one artist strictly before a
// timestamp. Exactly one of SongID and Artist should be set.
type HistoryFilter struct {
	SongID int64
	Artist string
	Before int64
}

// History summarizes plays matched by a HistoryFilter. LastPlayedAt is zero
// when there are none.
type History struct {
	Plays        int64 `json:"plays"`
	LastPlayedAt int64 `json:"last_played_at"`
}

// TimelineEntry is one event in chronological order.
type TimelineEntry struct {
	Artist     string `json:"artist"`
	SongID     int64  `json:"song_id"`
	StartedAt  int64  `json:"started_at"`
	DurationMs int64  `json:"duration_ms"`
}
