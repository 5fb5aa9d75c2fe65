// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

// Package cache provides the two small in-memory caches the API needs: a
// generic TTL cache for read-heavy summaries and an LRU key set that drops
// duplicate ingestion requests.
package cache
