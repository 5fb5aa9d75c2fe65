// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

// Package services adapts long-running components to suture.Service:
//
//   - HTTPServerService: net/http server with graceful shutdown
//   - DetectionService: cron-scheduled detection runs (robfig/cron)
//   - CheckpointService: periodic DuckDB checkpoints
//
// The WebSocket hub and the event bus implement suture.Service themselves
// and are added to the tree directly.
package services
