// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/earmark/internal/models"
)

type songKey struct {
	title  string
	artist string
}

// RecordPlay appends one listening event, creating its song and artist on
// first encounter.
func (db *DB) RecordPlay(ctx context.Context, play *models.PlayRequest) (*models.ListeningEvent, error) {
	events, err := db.RecordPlays(ctx, []models.PlayRequest{*play})
	if err != nil {
		return nil, err
	}
	return &events[0], nil
}

// RecordPlays appends a batch of listening events in one transaction.
//
// Each distinct artist and song is upserted once, with first_heard_at lowered
// to the earliest start seen so far. Events are then inserted in input order.
func (db *DB) RecordPlays(ctx context.Context, plays []models.PlayRequest) ([]models.ListeningEvent, error) {
	if len(plays) == 0 {
		return nil, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	artistFirst := make(map[string]int64)
	var artistOrder []string
	songFirst := make(map[songKey]int64)
	var songOrder []songKey
	for i := range plays {
		p := &plays[i]
		if first, ok := artistFirst[p.Artist]; !ok {
			artistOrder = append(artistOrder, p.Artist)
			artistFirst[p.Artist] = p.StartedAt
		} else if p.StartedAt < first {
			artistFirst[p.Artist] = p.StartedAt
		}
		k := songKey{title: p.Title, artist: p.Artist}
		if first, ok := songFirst[k]; !ok {
			songOrder = append(songOrder, k)
			songFirst[k] = p.StartedAt
		} else if p.StartedAt < first {
			songFirst[k] = p.StartedAt
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	artistIDs := make(map[string]int64, len(artistOrder))
	for _, name := range artistOrder {
		id, err := upsertArtist(ctx, tx, name, artistFirst[name])
		if err != nil {
			return nil, err
		}
		artistIDs[name] = id
	}

	songIDs := make(map[songKey]int64, len(songOrder))
	for _, k := range songOrder {
		id, err := upsertSong(ctx, tx, k.title, artistIDs[k.artist], songFirst[k])
		if err != nil {
			return nil, err
		}
		songIDs[k] = id
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listening_events (song_id, started_at, duration_ms, app_id, completed)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	events := make([]models.ListeningEvent, 0, len(plays))
	for i := range plays {
		p := &plays[i]
		ev := models.ListeningEvent{
			SongID:     songIDs[songKey{title: p.Title, artist: p.Artist}],
			StartedAt:  p.StartedAt,
			DurationMs: p.DurationMs,
			AppID:      p.AppID,
			Completed:  p.Completed,
		}
		if err := stmt.QueryRowContext(ctx, ev.SongID, ev.StartedAt, ev.DurationMs, ev.AppID, ev.Completed).Scan(&ev.ID); err != nil {
			return nil, fmt.Errorf("failed to insert listening event: %w", err)
		}
		events = append(events, ev)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit listening events: %w", err)
	}
	return events, nil
}

func upsertArtist(ctx context.Context, tx *sql.Tx, name string, firstHeard int64) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO artists (name, first_heard_at) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET first_heard_at = least(first_heard_at, excluded.first_heard_at)`,
		name, firstHeard)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert artist %q: %w", name, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM artists WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve artist %q: %w", name, err)
	}
	return id, nil
}

func upsertSong(ctx context.Context, tx *sql.Tx, title string, artistID, firstHeard int64) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO songs (title, artist_id, first_heard_at) VALUES (?, ?, ?)
		ON CONFLICT (title, artist_id) DO UPDATE SET first_heard_at = least(first_heard_at, excluded.first_heard_at)`,
		title, artistID, firstHeard)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert song %q: %w", title, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM songs WHERE title = ? AND artist_id = ?`, title, artistID).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve song %q: %w", title, err)
	}
	return id, nil
}

// SetSongArtwork attaches artwork and palette metadata to a song.
func (db *DB) SetSongArtwork(ctx context.Context, songID int64, artworkURL, palette string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE songs SET artwork_url = ?, palette = ? WHERE id = ?`,
		artworkURL, nullIfEmpty(palette), songID)
	if err != nil {
		return fmt.Errorf("failed to update song artwork: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSongNotFound
	}
	return nil
}

// SetArtistImage attaches an image to an artist.
func (db *DB) SetArtistImage(ctx context.Context, artistID int64, imageURL string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE artists SET image_url = ? WHERE id = ?`, imageURL, artistID)
	if err != nil {
		return fmt.Errorf("failed to update artist image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrArtistNotFound
	}
	return nil
}

// GetSong returns a song by id.
func (db *DB) GetSong(ctx context.Context, songID int64) (*models.Song, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var s models.Song
	var artwork, palette sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT s.id, s.title, a.name, a.id, s.first_heard_at, s.artwork_url, s.palette
		FROM songs s JOIN artists a ON a.id = s.artist_id
		WHERE s.id = ?`, songID).
		Scan(&s.ID, &s.Title, &s.Artist, &s.ArtistID, &s.FirstHeardAt, &artwork, &palette)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", err)
	}
	s.ArtworkURL = artwork.String
	s.Palette = palette.String
	return &s, nil
}

// GetArtist returns an artist by id.
func (db *DB) GetArtist(ctx context.Context, artistID int64) (*models.Artist, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var a models.Artist
	var image sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, first_heard_at, image_url FROM artists WHERE id = ?`, artistID).
		Scan(&a.ID, &a.Name, &a.FirstHeardAt, &image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArtistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	a.ImageURL = image.String
	return &a, nil
}

// GetRecordCounts returns row counts for the history tables.
func (db *DB) GetRecordCounts(ctx context.Context) (events, songs, artists int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM listening_events),
			(SELECT COUNT(*) FROM songs),
			(SELECT COUNT(*) FROM artists)`).Scan(&events, &songs, &artists)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	return events, songs, artists, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
