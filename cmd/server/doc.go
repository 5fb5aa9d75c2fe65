// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

// Package main is the entry point for the Earmark server.
//
// Earmark records listening history in DuckDB and turns it into moments:
// milestones, streaks, archetypes and other highlights detected by a rule
// engine. New moments are broadcast over WebSocket, optionally published to a
// Watermill event bus and sent to webhook or Discord notifiers.
//
// # Startup
//
//  1. Configuration: Koanf v2 (defaults, config.yaml, environment)
//  2. Logging: zerolog, JSON or console
//  3. Database: DuckDB plus the moments schema
//  4. Detector: rules, thresholds and notifiers
//  5. WebSocket hub and, when events.enabled, the event bus
//  6. Supervisor tree: checkpoints, hub, bus, detection scheduler, HTTP server
//
// SIGINT or SIGTERM cancels the tree. Each service gets the configured
// shutdown timeout, then the detector and database are closed.
//
// # Example
//
// 	export DATABASE_PATH=/data/earmark.duckdb
// 	export DETECTION_SCHEDULE="*/15 * * * *"
// 	export DETECTION_TIMEZONE=Europe/Berlin
// 	./earmark
//
// Build with a version string:
//
// 	go build -ldflags "-X github.com/tomtom215/earmark/internal/api.Version=1.0.0" ./cmd/server
package main
