// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package websocket pushes newly created moments to connected dashboards.

The Hub runs as a supervised service and implements the detector's
Broadcaster interface. Each connection gets a Client with a read pump
(answering {"type":"ping"} with {"type":"pong"}) and a write pump (queued
frames plus keepalive pings every 54s).

Frames look like:

	{"type": "moment_created", "data": {"id": 42, "type": "STREAK_7", ...}}

Broadcasting never blocks the detector. A full hub queue drops the frame,
and a client whose own queue is full is disconnected.
*/
package websocket
