// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package models defines data structures shared across Earmark.

It holds the listening history records written by ingestion (ListeningEvent,
Song, Artist), the request DTOs accepted by the HTTP API, and the standard
API response envelope.

Model Categories:

1. History Models:
  - ListeningEvent: one immutable "a song was played" fact
  - Song: unique (title, artist) pair with first-heard timestamp and artwork
  - Artist: unique name with first-heard timestamp and image

2. API Request Models:
  - PlayRequest / PlayBatchRequest: ingestion payloads
  - ArtworkRequest / ImageRequest: artwork attachment payloads

3. API Response Models:
  - APIResponse, APIError, Metadata

Timestamps on history models are epoch milliseconds, matching how the event
capture layer reports them. Response metadata uses time.Time.
*/
package models
