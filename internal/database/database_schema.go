// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package database

import (
	"context"
	"fmt"
)

// DuckDB INTEGER primary keys do not auto-increment, so every table draws its
// id from a sequence.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS artists_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS artists (
		id BIGINT PRIMARY KEY DEFAULT nextval('artists_id_seq'),
		name VARCHAR NOT NULL UNIQUE,
		first_heard_at BIGINT NOT NULL,
		image_url VARCHAR
	)`,
	`CREATE SEQUENCE IF NOT EXISTS songs_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS songs (
		id BIGINT PRIMARY KEY DEFAULT nextval('songs_id_seq'),
		title VARCHAR NOT NULL,
		artist_id BIGINT NOT NULL,
		first_heard_at BIGINT NOT NULL,
		artwork_url VARCHAR,
		palette VARCHAR,
		UNIQUE (title, artist_id)
	)`,
	`CREATE SEQUENCE IF NOT EXISTS listening_events_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS listening_events (
		id BIGINT PRIMARY KEY DEFAULT nextval('listening_events_id_seq'),
		song_id BIGINT NOT NULL,
		started_at BIGINT NOT NULL,
		duration_ms BIGINT NOT NULL,
		app_id VARCHAR NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listening_events_started_at ON listening_events(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_listening_events_song ON listening_events(song_id)`,
	`CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist_id)`,
}

func (db *DB) createTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
