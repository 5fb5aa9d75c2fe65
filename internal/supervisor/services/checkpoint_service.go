// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package services

import (
	"context"
	"time"

	"github.com/tomtom215/earmark/internal/logging"
)

// Checkpointer is satisfied by *database.DB.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// CheckpointService flushes the DuckDB WAL into the database file on an
// interval and once more on shutdown, which keeps WAL replay at startup
// short.
type CheckpointService struct {
	db       Checkpointer
	interval time.Duration
	name     string
}

// NewCheckpointService creates the service. A non-positive interval means
// five minutes.
func NewCheckpointService(db Checkpointer, interval time.Duration) *CheckpointService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CheckpointService{db: db, interval: interval, name: "db-checkpoint"}
}

// Serve implements suture.Service. Checkpoint failures are logged, not
// returned, so a busy database does not trigger restarts.
func (s *CheckpointService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			s.checkpoint(final)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			s.checkpoint(ctx)
		}
	}
}

func (s *CheckpointService) checkpoint(ctx context.Context) {
	start := time.Now()
	if err := s.db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("database checkpoint failed")
		return
	}
	logging.Debug().Dur("duration", time.Since(start)).Msg("database checkpoint completed")
}

// String implements fmt.Stringer for suture logs.
func (s *CheckpointService) String() string {
	return s.name
}
