// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/earmark/internal/config"
	"github.com/tomtom215/earmark/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests; concurrent CGO
// connections can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

// monday is 2024-03-04 00:00 UTC.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) int64 {
	return monday.Add(time.Duration(day)*24*time.Hour + time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute).UnixMilli()
}

func play(title, artist string, startedAt, durationMs int64, completed bool) models.PlayRequest {
	return models.PlayRequest{
		Title:      title,
		Artist:     artist,
		StartedAt:  startedAt,
		DurationMs: durationMs,
		AppID:      "com.example.player",
		Completed:  completed,
	}
}

func mustRecord(t *testing.T, db *DB, plays ...models.PlayRequest) []models.ListeningEvent {
	t.Helper()
	events, err := db.RecordPlays(context.Background(), plays)
	if err != nil {
		t.Fatalf("RecordPlays failed: %v", err)
	}
	return events
}

func TestRecordPlay_CreatesSongAndArtist(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := play("Blinding Lights", "The Weeknd", at(0, 10, 0), 200_000, true)
	ev, err := db.RecordPlay(ctx, &p)
	if err != nil {
		t.Fatalf("RecordPlay failed: %v", err)
	}
	if ev.ID == 0 || ev.SongID == 0 {
		t.Fatalf("expected ids to be assigned, got event %+v", ev)
	}

	song, err := db.GetSong(ctx, ev.SongID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if song.Title != "Blinding Lights" || song.Artist != "The Weeknd" {
		t.Errorf("unexpected song %+v", song)
	}
	if song.FirstHeardAt != at(0, 10, 0) {
		t.Errorf("FirstHeardAt = %d, want %d", song.FirstHeardAt, at(0, 10, 0))
	}

	// Same song again reuses the row.
	p2 := play("Blinding Lights", "The Weeknd", at(1, 10, 0), 200_000, true)
	ev2, err := db.RecordPlay(ctx, &p2)
	if err != nil {
		t.Fatalf("RecordPlay failed: %v", err)
	}
	if ev2.SongID != ev.SongID {
		t.Errorf("SongID = %d, want %d", ev2.SongID, ev.SongID)
	}

	events, songs, artists, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts failed: %v", err)
	}
	if events != 2 || songs != 1 || artists != 1 {
		t.Errorf("counts = (%d, %d, %d), want (2, 1, 1)", events, songs, artists)
	}
}

func TestRecordPlays_FirstHeardIsEarliest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustRecord(t, db, play("Song", "Artist", at(5, 0, 0), 1000, true))
	events := mustRecord(t, db,
		play("Song", "Artist", at(2, 0, 0), 1000, true),
		play("Song", "Artist", at(3, 0, 0), 1000, true),
	)

	song, err := db.GetSong(ctx, events[0].SongID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if song.FirstHeardAt != at(2, 0, 0) {
		t.Errorf("FirstHeardAt = %d, want %d", song.FirstHeardAt, at(2, 0, 0))
	}

	artist, err := db.GetArtist(ctx, song.ArtistID)
	if err != nil {
		t.Fatalf("GetArtist failed: %v", err)
	}
	if artist.FirstHeardAt != at(2, 0, 0) {
		t.Errorf("artist FirstHeardAt = %d, want %d", artist.FirstHeardAt, at(2, 0, 0))
	}
}

func TestTopSongs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustRecord(t, db,
		play("A", "X", at(0, 1, 0), 100, true),
		play("A", "X", at(0, 2, 0), 100, true),
		play("B", "X", at(0, 3, 0), 500, true),
		play("B", "X", at(0, 4, 0), 500, false),
		play("C", "Y", at(0, 5, 0), 100, true),
	)

	tests := []struct {
		name   string
		filter models.SongFilter
		want   []string
	}{
		{"all time ordered by plays then duration", models.SongFilter{}, []string{"B", "A", "C"}},
		{"min plays", models.SongFilter{MinPlays: 2}, []string{"B", "A"}},
		{"limit", models.SongFilter{Limit: 1}, []string{"B"}},
		{"artist", models.SongFilter{Artist: "Y"}, []string{"C"}},
		{"window", models.SongFilter{Since: at(0, 2, 0), Until: at(0, 4, 0)}, []string{"B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			songs, err := db.TopSongs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("TopSongs failed: %v", err)
			}
			if len(songs) != len(tt.want) {
				t.Fatalf("got %d songs, want %d", len(songs), len(tt.want))
			}
			for i, title := range tt.want {
				if songs[i].Title != title {
					t.Errorf("songs[%d] = %s, want %s", i, songs[i].Title, title)
				}
			}
		})
	}

	songs, err := db.TopSongs(ctx, models.SongFilter{Limit: 1})
	if err != nil {
		t.Fatalf("TopSongs failed: %v", err)
	}
	if songs[0].Skips != 1 || songs[0].DurationMs != 1000 || songs[0].Plays != 2 {
		t.Errorf("unexpected aggregate %+v", songs[0])
	}
}

func TestTopArtists(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustRecord(t, db,
		play("A", "X", at(0, 1, 0), 10_000, false),
		play("A", "X", at(0, 2, 0), 10_000, false),
		play("B", "Y", at(0, 3, 0), 50_000, true),
	)

	artists, err := db.TopArtists(ctx, models.ArtistFilter{})
	if err != nil {
		t.Fatalf("TopArtists failed: %v", err)
	}
	if len(artists) != 2 || artists[0].Name != "Y" {
		t.Fatalf("unexpected artists %+v", artists)
	}

	skippers, err := db.TopArtists(ctx, models.ArtistFilter{MinSkips: 2})
	if err != nil {
		t.Fatalf("TopArtists failed: %v", err)
	}
	if len(skippers) != 1 || skippers[0].Name != "X" || skippers[0].Skips != 2 {
		t.Errorf("unexpected skippers %+v", skippers)
	}

	long, err := db.TopArtists(ctx, models.ArtistFilter{MinDurationMs: 30_000})
	if err != nil {
		t.Fatalf("TopArtists failed: %v", err)
	}
	if len(long) != 1 || long[0].Name != "Y" {
		t.Errorf("unexpected artists %+v", long)
	}
}

func TestTotalsAndNewSince(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustRecord(t, db,
		play("A", "X", at(0, 1, 0), 1000, true),
		play("B", "Y", at(3, 1, 0), 7000, false),
		play("C", "Y", at(4, 1, 0), 2000, true),
	)

	totals, err := db.Totals(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	want := models.Totals{Plays: 3, Skips: 1, DurationMs: 10_000, LongestMs: 7000, DistinctSongs: 3, DistinctArtists: 2}
	if totals != want {
		t.Errorf("Totals = %+v, want %+v", totals, want)
	}

	empty, err := db.Totals(ctx, at(10, 0, 0), 0)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}
	if empty != (models.Totals{}) {
		t.Errorf("expected zero totals, got %+v", empty)
	}

	songs, err := db.NewSongsSince(ctx, at(3, 0, 0))
	if err != nil {
		t.Fatalf("NewSongsSince failed: %v", err)
	}
	if songs != 2 {
		t.Errorf("NewSongsSince = %d, want 2", songs)
	}
	artists, err := db.NewArtistsSince(ctx, at(4, 0, 0))
	if err != nil {
		t.Fatalf("NewArtistsSince failed: %v", err)
	}
	if artists != 0 {
		t.Errorf("NewArtistsSince = %d, want 0", artists)
	}
}

func TestHourlyDuration_AppliesOffset(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustRecord(t, db, play("A", "X", at(1, 22, 30), 60_000, true))

	utc, err := db.HourlyDuration(ctx, 0, 0, 0)
	if err != nil {
		t.Fatalf("HourlyDuration failed: %v", err)
	}
	if utc[22] != 60_000 {
		t.Errorf("utc[22] = %d, want 60000", utc[22])
	}

	plusTwo, err := db.HourlyDuration(ctx, 0, 0, 2*msPerHour)
	if err != nil {
		t.Fatalf("HourlyDuration failed: %v", err)
	}
	if plusTwo[0] != 60_000 || plusTwo[22] != 0 {
		t.Errorf("offset buckets wrong: hour0=%d hour22=%d", plusTwo[0], plusTwo[22])
	}
}

func TestDailyDuration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustRecord(t, db,
		play("A", "X", at(0, 23, 0), 1000, true),
		play("A", "X", at(0, 12, 0), 4000, true),
		play("A", "X", at(2, 1, 0), 2000, true),
	)

	days, err := db.DailyDuration(ctx, models.DayFilter{})
	if err != nil {
		t.Fatalf("DailyDuration failed: %v", err)
	}
	if len(days) != 2 || days[0].Day != "2024-03-04" || days[0].Plays != 2 || days[0].DurationMs != 5000 {
		t.Fatalf("unexpected days %+v", days)
	}
	if days[1].Day != "2024-03-06" {
		t.Errorf("days[1].Day = %s, want 2024-03-06", days[1].Day)
	}

	night, err := db.DailyDuration(ctx, models.DayFilter{Hours: []int{22, 23, 0, 1, 2, 3}})
	if err != nil {
		t.Fatalf("DailyDuration failed: %v", err)
	}
	if len(night) != 2 || night[0].DurationMs != 1000 || night[1].DurationMs != 2000 {
		t.Errorf("unexpected night days %+v", night)
	}

	// +2h pushes the 23:00 play into the next local day.
	shifted, err := db.DailyDuration(ctx, models.DayFilter{OffsetMs: 2 * msPerHour})
	if err != nil {
		t.Fatalf("DailyDuration failed: %v", err)
	}
	if len(shifted) != 3 || shifted[1].Day != "2024-03-05" {
		t.Errorf("unexpected shifted days %+v", shifted)
	}
}

func TestSongDaysAndWeeklyDuration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	events := mustRecord(t, db,
		play("A", "X", at(0, 8, 0), 1000, true),
		play("A", "X", at(0, 9, 0), 1000, true),
		play("A", "X", at(1, 8, 0), 1000, true),
		play("A", "X", at(7, 8, 0), 3000, true), // next ISO week
	)

	days, err := db.SongDays(ctx, events[0].SongID, at(1, 0, 0), 0)
	if err != nil {
		t.Fatalf("SongDays failed: %v", err)
	}
	if len(days) != 2 || days[0] != "2024-03-05" || days[1] != "2024-03-11" {
		t.Errorf("SongDays = %v", days)
	}

	weeks, err := db.WeeklyDuration(ctx, 0, 0)
	if err != nil {
		t.Fatalf("WeeklyDuration failed: %v", err)
	}
	want := []models.WeekTotal{{WeekKey: "2024-W10", DurationMs: 3000}, {WeekKey: "2024-W11", DurationMs: 3000}}
	if len(weeks) != len(want) {
		t.Fatalf("WeeklyDuration = %+v, want %+v", weeks, want)
	}
	for i := range want {
		if weeks[i] != want[i] {
			t.Errorf("weeks[%d] = %+v, want %+v", i, weeks[i], want[i])
		}
	}
}

func TestHistoryBeforeAndTimeline(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	events := mustRecord(t, db,
		play("A", "X", at(0, 8, 0), 1000, true),
		play("B", "X", at(2, 8, 0), 1000, true),
		play("A", "X", at(9, 8, 0), 1000, true),
	)

	h, err := db.HistoryBefore(ctx, models.HistoryFilter{SongID: events[0].SongID, Before: at(9, 0, 0)})
	if err != nil {
		t.Fatalf("HistoryBefore failed: %v", err)
	}
	if h.Plays != 1 || h.LastPlayedAt != at(0, 8, 0) {
		t.Errorf("song history = %+v", h)
	}

	h, err = db.HistoryBefore(ctx, models.HistoryFilter{Artist: "X", Before: at(9, 0, 0)})
	if err != nil {
		t.Fatalf("HistoryBefore failed: %v", err)
	}
	if h.Plays != 2 || h.LastPlayedAt != at(2, 8, 0) {
		t.Errorf("artist history = %+v", h)
	}

	timeline, err := db.Timeline(ctx, at(1, 0, 0), 0)
	if err != nil {
		t.Fatalf("Timeline failed: %v", err)
	}
	if len(timeline) != 2 || timeline[0].StartedAt != at(2, 8, 0) || timeline[1].Artist != "X" {
		t.Errorf("unexpected timeline %+v", timeline)
	}
}

func TestSetArtwork(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	events := mustRecord(t, db, play("A", "X", at(0, 8, 0), 1000, true))

	if err := db.SetSongArtwork(ctx, events[0].SongID, "https://img.example/a.jpg", "#112233"); err != nil {
		t.Fatalf("SetSongArtwork failed: %v", err)
	}
	song, err := db.GetSong(ctx, events[0].SongID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if song.ArtworkURL != "https://img.example/a.jpg" || song.Palette != "#112233" {
		t.Errorf("unexpected artwork %+v", song)
	}

	if err := db.SetArtistImage(ctx, song.ArtistID, "https://img.example/x.jpg"); err != nil {
		t.Fatalf("SetArtistImage failed: %v", err)
	}

	if err := db.SetSongArtwork(ctx, 9999, "https://img.example/a.jpg", ""); !errors.Is(err, ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound, got %v", err)
	}
	if err := db.SetArtistImage(ctx, 9999, "https://img.example/x.jpg"); !errors.Is(err, ErrArtistNotFound) {
		t.Errorf("expected ErrArtistNotFound, got %v", err)
	}
	if _, err := db.GetSong(ctx, 9999); !errors.Is(err, ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound, got %v", err)
	}
}
