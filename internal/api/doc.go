// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package api exposes the HTTP interface: listening event ingestion, the
moments feed, on-demand detection, health, metrics and the WebSocket feed.

Every JSON response uses the models.APIResponse envelope:

	{"status": "success", "data": ..., "metadata": {"timestamp": ..., "query_time_ms": 3}}
	{"status": "error", "error": {"code": "NOT_FOUND", "message": "Moment not found"}, ...}

# Routes

	POST /api/v1/events               record one play
	POST /api/v1/events/batch         record up to 1000 plays
	PUT  /api/v1/songs/{id}/artwork   attach song artwork
	PUT  /api/v1/artists/{id}/image   attach an artist image
	GET  /api/v1/stats                cached listening summary
	GET  /api/v1/moments              all moments, newest first
	GET  /api/v1/moments/unseen       moments not yet opened
	GET  /api/v1/moments/recent       most recent moments (?limit=, max 200)
	GET  /api/v1/moments/{id}         one moment
	POST /api/v1/moments/{id}/seen    mark seen (first timestamp wins)
	POST /api/v1/moments/{id}/shared  mark shared (first timestamp wins)
	POST /api/v1/moments/detect       run detection now (409 while busy)
	GET  /api/v1/rules                rule families and their state
	PUT  /api/v1/rules/{name}         enable or disable a family
	GET  /health, /health/live, /health/ready
	GET  /metrics                     Prometheus exposition
	GET  /ws                          moment_created frames

Ingestion remembers recent (artist, title, started_at) triples so client
retries do not double count plays.
*/
package api
