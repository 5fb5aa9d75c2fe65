// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package database is the DuckDB-backed listening history store.

It owns three append-mostly tables:

  - artists: unique by name, first-heard timestamp, optional image
  - songs: unique by (title, artist), first-heard timestamp, optional artwork
  - listening_events: one row per play, never updated or deleted

Ingestion (RecordPlay, RecordPlays) is the only writer of events. Artwork
and images are the only mutable columns.

The aggregate queries (TopSongs, TopArtists, Totals, HourlyDuration,
DailyDuration, WeeklyDuration, SongDays, HistoryBefore, Timeline and the
first-heard counters) are the read contract consumed by the moment detector.
Calendar bucketing is done on integer epoch milliseconds shifted by a caller
supplied UTC offset, so the store has no timezone dependency.

Moments are stored by the detection package on the same connection (see
DB.Conn).
*/
package database
