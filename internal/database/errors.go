// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/earmark/internal/logging"
)

var (
	// ErrSongNotFound is returned when a song id does not exist.
	ErrSongNotFound = errors.New("song not found")

	// ErrArtistNotFound is returned when an artist id does not exist.
	ErrArtistNotFound = errors.New("artist not found")
)

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource in error paths where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}
