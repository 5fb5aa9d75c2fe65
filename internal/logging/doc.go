// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

// Package logging provides centralized zerolog-based structured logging for Earmark.
//
// JSON output is the default; console output is meant for development.
// Every entry carries service=earmark.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  cfg.Logging.Level,
//	    Format: cfg.Logging.Format,
//	    Caller: cfg.Logging.Caller,
//	})
//
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//	logging.Error().Err(err).Msg("detection run failed")
//
// # Context
//
// A detection run or API request gets a correlation ID. Ctx adds it (and the
// request ID when present) to every entry, and the event bus publisher copies
// it into message metadata:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Int("created", n).Msg("detection run completed")
//
// # slog
//
// SlogHandler adapts zerolog to slog.Handler for the supervisor tree
// (sutureslog) and the watermill logger adapter.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
