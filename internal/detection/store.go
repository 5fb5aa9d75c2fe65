// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/earmark/internal/logging"
)

// defaultRecentLimit applies when ListRecent gets a non-positive limit.
const defaultRecentLimit = 20

// DuckDBStore implements MomentStore on DuckDB. It shares the connection of
// the listening history so artist images can be backfilled in place.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed moment store.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

const momentColumns = `id, type, entity_key, triggered_at, seen_at, shared_at,
	title, description, stat_lines, song_id, artist_id, entity_name, image_url,
	copy_variant, tier, stats`

// InitSchema creates the moments table if it doesn't exist.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS moments_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS moments (
			id BIGINT PRIMARY KEY DEFAULT nextval('moments_id_seq'),
			type TEXT NOT NULL,
			entity_key TEXT NOT NULL,
			triggered_at TIMESTAMP NOT NULL,
			seen_at TIMESTAMP,
			shared_at TIMESTAMP,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			stat_lines TEXT NOT NULL DEFAULT '[]',
			song_id BIGINT,
			artist_id BIGINT,
			entity_name TEXT,
			image_url TEXT,
			copy_variant INTEGER NOT NULL DEFAULT 0,
			tier TEXT NOT NULL,
			stats TEXT,
			UNIQUE (type, entity_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_moments_triggered_at ON moments(triggered_at DESC)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after moments schema initialization")
	}
	return nil
}

// InsertIfAbsent stores m and sets m.ID. A conflict on (type, entity_key)
// returns false and leaves the existing row untouched.
func (s *DuckDBStore) InsertIfAbsent(ctx context.Context, m *Moment) (bool, error) {
	statLines, err := json.Marshal(m.StatLines)
	if err != nil {
		return false, fmt.Errorf("failed to encode stat lines: %w", err)
	}
	var stats []byte
	if m.Stats != nil {
		if stats, err = json.Marshal(m.Stats); err != nil {
			return false, fmt.Errorf("failed to encode stats: %w", err)
		}
	}

	query := `INSERT INTO moments
		(type, entity_key, triggered_at, title, description, stat_lines,
		 song_id, artist_id, entity_name, image_url, copy_variant, tier, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (type, entity_key) DO NOTHING
		RETURNING id`

	err = s.db.QueryRowContext(ctx, query,
		string(m.Type),
		m.EntityKey,
		m.TriggeredAt.UTC(),
		m.Title,
		m.Description,
		string(statLines),
		nullInt64(m.SongID),
		nullInt64(m.ArtistID),
		nullString(m.EntityName),
		nullString(m.ImageURL),
		m.CopyVariant,
		string(m.Tier),
		nullBytes(stats),
	).Scan(&m.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert moment: %w", err)
	}
	return true, nil
}

// ExistsByTypeAndKey reports whether a moment with this identity exists.
func (s *DuckDBStore) ExistsByTypeAndKey(ctx context.Context, t Type, entityKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM moments WHERE type = ? AND entity_key = ?)`,
		string(t), entityKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check moment: %w", err)
	}
	return exists, nil
}

// CountByType returns how many moments of type t are persisted.
func (s *DuckDBStore) CountByType(ctx context.Context, t Type) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moments WHERE type = ?`, string(t)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count moments: %w", err)
	}
	return count, nil
}

// MarkSeen sets seen_at once. Later calls keep the first timestamp.
func (s *DuckDBStore) MarkSeen(ctx context.Context, id int64, at time.Time) error {
	return s.markOnce(ctx, "seen_at", id, at)
}

// MarkShared sets shared_at once. Later calls keep the first timestamp.
func (s *DuckDBStore) MarkShared(ctx context.Context, id int64, at time.Time) error {
	return s.markOnce(ctx, "shared_at", id, at)
}

// markOnce updates a nullable timestamp column only while it is still null.
// column is always one of the two constants above.
func (s *DuckDBStore) markOnce(ctx context.Context, column string, id int64, at time.Time) error {
	query := fmt.Sprintf(`UPDATE moments SET %s = ? WHERE id = ? AND %s IS NULL`, column, column)
	res, err := s.db.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM moments WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check moment: %w", err)
	}
	if !exists {
		return ErrMomentNotFound
	}
	return nil
}

// Get returns one moment by id.
func (s *DuckDBStore) Get(ctx context.Context, id int64) (*Moment, error) {
	query := `SELECT ` + momentColumns + ` FROM moments WHERE id = ?`

	m := &Moment{}
	err := scanMomentRow(s.db.QueryRowContext(ctx, query, id), m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMomentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get moment: %w", err)
	}
	return m, nil
}

// ListAll returns every user-facing moment, newest first.
func (s *DuckDBStore) ListAll(ctx context.Context) ([]Moment, error) {
	query := `SELECT ` + momentColumns + ` FROM moments
		WHERE type <> ?
		ORDER BY triggered_at DESC, id DESC`
	return s.list(ctx, query, string(TypeFeatureUnlock))
}

// ListUnseen returns moments not yet marked seen, newest first.
func (s *DuckDBStore) ListUnseen(ctx context.Context) ([]Moment, error) {
	query := `SELECT ` + momentColumns + ` FROM moments
		WHERE type <> ? AND seen_at IS NULL
		ORDER BY triggered_at DESC, id DESC`
	return s.list(ctx, query, string(TypeFeatureUnlock))
}

// ListRecent returns the newest limit moments.
func (s *DuckDBStore) ListRecent(ctx context.Context, limit int) ([]Moment, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query := fmt.Sprintf(`SELECT `+momentColumns+` FROM moments
		WHERE type <> ?
		ORDER BY triggered_at DESC, id DESC
		LIMIT %d`, limit)
	return s.list(ctx, query, string(TypeFeatureUnlock))
}

// RecordUnlock stores a feature unlock marker. It returns true the first time
// a key is unlocked.
func (s *DuckDBStore) RecordUnlock(ctx context.Context, key string, at time.Time) (bool, error) {
	m := &Moment{
		Type:        TypeFeatureUnlock,
		EntityKey:   key,
		TriggeredAt: at,
		Title:       key,
		StatLines:   []string{},
		Tier:        Classify(TypeFeatureUnlock),
	}
	return s.InsertIfAbsent(ctx, m)
}

// BackfillArtistImages copies artist images onto moments persisted before
// the image was known.
func (s *DuckDBStore) BackfillArtistImages(ctx context.Context) (int64, error) {
	query := `UPDATE moments
		SET image_url = artists.image_url
		FROM artists
		WHERE moments.artist_id = artists.id
		  AND moments.image_url IS NULL
		  AND artists.image_url IS NOT NULL`

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to backfill artist images: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *DuckDBStore) list(ctx context.Context, query string, args ...interface{}) ([]Moment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list moments: %w", err)
	}
	defer rows.Close()

	moments := []Moment{}
	for rows.Next() {
		var m Moment
		if err := scanMomentRow(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan moment: %w", err)
		}
		moments = append(moments, m)
	}
	return moments, rows.Err()
}

// scanMomentRow scans one row selected with momentColumns.
func scanMomentRow(scanner interface {
	Scan(dest ...interface{}) error
}, m *Moment) error {
	var (
		typ                  string
		tier                 string
		seenAt, sharedAt     sql.NullTime
		statLines            string
		songID, artistID     sql.NullInt64
		entityName, imageURL sql.NullString
		stats                sql.NullString
	)

	if err := scanner.Scan(
		&m.ID,
		&typ,
		&m.EntityKey,
		&m.TriggeredAt,
		&seenAt,
		&sharedAt,
		&m.Title,
		&m.Description,
		&statLines,
		&songID,
		&artistID,
		&entityName,
		&imageURL,
		&m.CopyVariant,
		&tier,
		&stats,
	); err != nil {
		return err
	}

	m.Type = Type(typ)
	m.Tier = Tier(tier)
	m.TriggeredAt = m.TriggeredAt.UTC()
	if seenAt.Valid {
		t := seenAt.Time.UTC()
		m.SeenAt = &t
	}
	if sharedAt.Valid {
		t := sharedAt.Time.UTC()
		m.SharedAt = &t
	}
	if songID.Valid {
		m.SongID = int64Ptr(songID.Int64)
	}
	if artistID.Valid {
		m.ArtistID = int64Ptr(artistID.Int64)
	}
	m.EntityName = entityName.String
	m.ImageURL = imageURL.String

	m.StatLines = []string{}
	if statLines != "" {
		if err := json.Unmarshal([]byte(statLines), &m.StatLines); err != nil {
			return fmt.Errorf("failed to decode stat lines: %w", err)
		}
	}
	if stats.Valid {
		decoded, err := decodeStats(m.Type, []byte(stats.String))
		if err != nil {
			return err
		}
		m.Stats = decoded
	}
	return nil
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
