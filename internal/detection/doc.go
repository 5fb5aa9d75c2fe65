// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

// Package detection turns accumulated listening history into moments:
// milestones, monthly listening archetypes and short-lived behavioral
// patterns, each persisted exactly once.
//
// Detection Architecture:
//
//	EventStore -> Detector -> (ComposeCopy, Classify) -> MomentStore
//	                 |
//	                 v
//	   WebSocket / Event bus / Discord / Webhook
//
// A run evaluates every enabled rule family in sequence against one fixed
// clock reading. Each candidate carries a (type, entity key) pair; the key
// scope decides how often a family may fire (per song, per artist, per day,
// per ISO week, per month or once ever). The detector skips pairs that
// already exist and the store's uniqueness constraint rejects any that race
// in, so repeated runs over unchanged data create nothing.
//
// Rule families:
//   - Milestones: song plays, artist hours, daily streak, total hours and
//     distinct songs discovered, each with a threshold ladder
//   - Archetypes: night owl, morning, commute, completionist, skipper,
//     deep cut, loyal fan, explorer, weekend warrior, wide taste, repeat
//     offender and album listener, keyed by calendar month
//   - Behavioral: daily obsession, ritual, breakup, fast and quick
//     obsession, longest session, discovery week, resurrection, night
//     binge, comfort zone, rediscovery, slow burn and marathon week
//
// Calendar boundaries (today, ISO week, month, hour of day) use the zone
// offset of the configured timezone at the start of the run.
package detection
