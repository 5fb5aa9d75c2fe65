// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/earmark/internal/models"
)

// TopSongs returns per-song totals ordered by plays desc, duration desc,
// song id asc.
func (db *DB) TopSongs(ctx context.Context, f models.SongFilter) ([]models.SongTotal, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := songFilterConditions(&f)
	query := `
		SELECT s.id, s.title, a.name, a.id,
			COUNT(*) AS plays,
			COUNT(*) FILTER (WHERE NOT e.completed) AS skips,
			CAST(COALESCE(SUM(e.duration_ms), 0) AS BIGINT) AS total_ms,
			s.first_heard_at,
			COALESCE(s.artwork_url, '')
		FROM listening_events e
		JOIN songs s ON s.id = e.song_id
		JOIN artists a ON a.id = s.artist_id
		WHERE 1=1` + where + `
		GROUP BY s.id, s.title, a.name, a.id, s.first_heard_at, s.artwork_url`
	if f.MinPlays > 0 {
		query += " HAVING COUNT(*) >= ?"
		args = append(args, f.MinPlays)
	}
	query += " ORDER BY plays DESC, total_ms DESC, s.id ASC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top songs: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var songs []models.SongTotal
	for rows.Next() {
		var s models.SongTotal
		if err := rows.Scan(&s.SongID, &s.Title, &s.Artist, &s.ArtistID, &s.Plays, &s.Skips,
			&s.DurationMs, &s.FirstHeardAt, &s.ArtworkURL); err != nil {
			return nil, fmt.Errorf("failed to scan song total: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// TopArtists returns per-artist totals ordered by duration desc, plays desc,
// artist id asc.
func (db *DB) TopArtists(ctx context.Context, f models.ArtistFilter) ([]models.ArtistTotal, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := windowConditions(f.Since, f.Until)
	query := `
		SELECT a.id, a.name,
			COUNT(*) AS plays,
			COUNT(*) FILTER (WHERE NOT e.completed) AS skips,
			CAST(COALESCE(SUM(e.duration_ms), 0) AS BIGINT) AS total_ms,
			a.first_heard_at,
			COALESCE(a.image_url, '')
		FROM listening_events e
		JOIN songs s ON s.id = e.song_id
		JOIN artists a ON a.id = s.artist_id
		WHERE 1=1` + where + `
		GROUP BY a.id, a.name, a.first_heard_at, a.image_url
		HAVING 1=1`
	if f.MinDurationMs > 0 {
		query += " AND SUM(e.duration_ms) >= ?"
		args = append(args, f.MinDurationMs)
	}
	if f.MinSkips > 0 {
		query += " AND COUNT(*) FILTER (WHERE NOT e.completed) >= ?"
		args = append(args, f.MinSkips)
	}
	query += " ORDER BY total_ms DESC, plays DESC, a.id ASC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top artists: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var artists []models.ArtistTotal
	for rows.Next() {
		var a models.ArtistTotal
		if err := rows.Scan(&a.ArtistID, &a.Name, &a.Plays, &a.Skips, &a.DurationMs,
			&a.FirstHeardAt, &a.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan artist total: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

// Totals returns history-wide aggregates over a window.
func (db *DB) Totals(ctx context.Context, since, until int64) (models.Totals, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := windowConditions(since, until)
	var t models.Totals
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE NOT e.completed),
			CAST(COALESCE(SUM(e.duration_ms), 0) AS BIGINT),
			COALESCE(MAX(e.duration_ms), 0),
			COUNT(DISTINCT e.song_id),
			COUNT(DISTINCT s.artist_id)
		FROM listening_events e
		JOIN songs s ON s.id = e.song_id
		WHERE 1=1`+where, args...).
		Scan(&t.Plays, &t.Skips, &t.DurationMs, &t.LongestMs, &t.DistinctSongs, &t.DistinctArtists)
	if err != nil {
		return t, fmt.Errorf("failed to query totals: %w", err)
	}
	return t, nil
}

// NewSongsSince counts songs first heard at or after since.
func (db *DB) NewSongsSince(ctx context.Context, since int64) (int64, error) {
	return db.countSince(ctx, "songs", since)
}

// NewArtistsSince counts artists first heard at or after since.
func (db *DB) NewArtistsSince(ctx context.Context, since int64) (int64, error) {
	return db.countSince(ctx, "artists", since)
}

func (db *DB) countSince(ctx context.Context, table string, since int64) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	// table is one of two package constants, never user input
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE first_heard_at >= ?", table)
	if err := db.conn.QueryRowContext(ctx, query, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count new %s: %w", table, err)
	}
	return n, nil
}

// HourlyDuration returns listened milliseconds per local hour of day.
func (db *DB) HourlyDuration(ctx context.Context, since, until, offsetMs int64) ([24]int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var hours [24]int64
	where, whereArgs := windowConditions(since, until)
	args := append([]interface{}{offsetMs}, whereArgs...)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+localHourExpr()+` AS local_hour,
			CAST(SUM(e.duration_ms) AS BIGINT)
		FROM listening_events e
		WHERE 1=1`+where+`
		GROUP BY local_hour`, args...)
	if err != nil {
		return hours, fmt.Errorf("failed to query hourly duration: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var hour, ms int64
		if err := rows.Scan(&hour, &ms); err != nil {
			return hours, fmt.Errorf("failed to scan hourly duration: %w", err)
		}
		if hour >= 0 && hour < 24 {
			hours[hour] = ms
		}
	}
	return hours, rows.Err()
}

type dayBucket struct {
	day   int64
	plays int64
	ms    int64
}

// DailyDuration returns plays and listened milliseconds per local day,
// ascending. Days without plays are omitted.
func (db *DB) DailyDuration(ctx context.Context, f models.DayFilter) ([]models.DayTotal, error) {
	buckets, err := db.dailyBuckets(ctx, f)
	if err != nil {
		return nil, err
	}
	days := make([]models.DayTotal, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, models.DayTotal{Day: dayNumberKey(b.day), Plays: b.plays, DurationMs: b.ms})
	}
	return days, nil
}

func (db *DB) dailyBuckets(ctx context.Context, f models.DayFilter) ([]dayBucket, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, whereArgs := windowConditions(f.Since, f.Until)
	args := append([]interface{}{f.OffsetMs}, whereArgs...)
	if len(f.Hours) > 0 {
		placeholders, hourArgs := buildInClause(f.Hours)
		where += " AND " + localHourExpr() + " IN (" + placeholders + ")"
		args = append(args, f.OffsetMs)
		args = append(args, hourArgs...)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+localDayExpr()+` AS local_day,
			COUNT(*),
			CAST(SUM(e.duration_ms) AS BIGINT)
		FROM listening_events e
		WHERE 1=1`+where+`
		GROUP BY local_day
		ORDER BY local_day`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily duration: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var buckets []dayBucket
	for rows.Next() {
		var b dayBucket
		if err := rows.Scan(&b.day, &b.plays, &b.ms); err != nil {
			return nil, fmt.Errorf("failed to scan daily duration: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// SongDays returns the distinct local days ("2006-01-02") on which a song was
// played at or after since, ascending.
func (db *DB) SongDays(ctx context.Context, songID, since, offsetMs int64) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, whereArgs := windowConditions(since, 0)
	args := append([]interface{}{offsetMs, songID}, whereArgs...)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT `+localDayExpr()+` AS local_day
		FROM listening_events e
		WHERE e.song_id = ?`+where+`
		ORDER BY local_day`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query song days: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var days []string
	for rows.Next() {
		var day int64
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan song day: %w", err)
		}
		days = append(days, dayNumberKey(day))
	}
	return days, rows.Err()
}

// WeeklyDuration returns listened milliseconds per local ISO week at or
// after since, ascending by week key.
func (db *DB) WeeklyDuration(ctx context.Context, since, offsetMs int64) ([]models.WeekTotal, error) {
	buckets, err := db.dailyBuckets(ctx, models.DayFilter{Since: since, OffsetMs: offsetMs})
	if err != nil {
		return nil, err
	}

	// Days arrive ascending, so each ISO week is a contiguous run.
	var weeks []models.WeekTotal
	for _, b := range buckets {
		key := dayNumberWeekKey(b.day)
		if n := len(weeks); n > 0 && weeks[n-1].WeekKey == key {
			weeks[n-1].DurationMs += b.ms
			continue
		}
		weeks = append(weeks, models.WeekTotal{WeekKey: key, DurationMs: b.ms})
	}
	return weeks, nil
}

// HistoryBefore summarizes plays of one song or artist strictly before f.Before.
func (db *DB) HistoryBefore(ctx context.Context, f models.HistoryFilter) (models.History, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*), COALESCE(MAX(e.started_at), 0)
		FROM listening_events e
		JOIN songs s ON s.id = e.song_id
		JOIN artists a ON a.id = s.artist_id
		WHERE e.started_at < ?`
	args := []interface{}{f.Before}
	if f.SongID > 0 {
		query += " AND e.song_id = ?"
		args = append(args, f.SongID)
	}
	if f.Artist != "" {
		query += " AND a.name = ?"
		args = append(args, f.Artist)
	}

	var h models.History
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&h.Plays, &h.LastPlayedAt); err != nil {
		return h, fmt.Errorf("failed to query history: %w", err)
	}
	return h, nil
}

// Timeline returns events in a window ordered by start time.
func (db *DB) Timeline(ctx context.Context, since, until int64) ([]models.TimelineEntry, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := windowConditions(since, until)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT a.name, e.song_id, e.started_at, e.duration_ms
		FROM listening_events e
		JOIN songs s ON s.id = e.song_id
		JOIN artists a ON a.id = s.artist_id
		WHERE 1=1`+where+`
		ORDER BY e.started_at, e.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var entries []models.TimelineEntry
	for rows.Next() {
		var t models.TimelineEntry
		if err := rows.Scan(&t.Artist, &t.SongID, &t.StartedAt, &t.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}
