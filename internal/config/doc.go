// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package config provides centralized configuration management for Earmark.

Configuration is layered with Koanf v2: struct defaults, then an optional
YAML file, then environment variables. Later layers win.

# Configuration File

The first existing file among CONFIG_PATH, config.yaml, config.yml,
/etc/earmark/config.yaml and /etc/earmark/config.yml is loaded:

	detection:
	  timezone: Europe/Berlin
	  schedule: "0 3 * * *"
	  disabled_rules: [skip_rate]
	  song_play_thresholds: [50, 100, 250, 500]
	notify:
	  discord_webhook_url: https://discord.com/api/webhooks/123/abc
	events:
	  driver: nats
	  embedded: true

# Environment Variables

Database:
  - DUCKDB_PATH: Database file (default: /data/earmark.duckdb)
  - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 1GB)
  - DUCKDB_THREADS: Worker threads, 0 for NumCPU

Detection:
  - DETECTION_TIMEZONE: IANA zone for calendar boundaries (default: UTC)
  - DETECTION_SCHEDULE: Cron spec for scheduled runs (default: 0 3 * * *)
  - DETECTION_RUN_ON_START: Run once at startup
  - DETECTION_DISABLED_RULES: Comma-separated rule family names
  - DETECTION_*_THRESHOLDS: Comma-separated threshold lists

Server and Security:
  - HTTP_HOST / SERVER_HOST (default: 0.0.0.0)
  - HTTP_PORT / SERVER_PORT (default: 3858)
  - HTTP_TIMEOUT / SERVER_TIMEOUT (default: 30s)
  - CORS_ORIGINS: Comma-separated origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Notifications:
  - WEBHOOK_URL: Generic JSON webhook
  - DISCORD_WEBHOOK_URL: Discord embed webhook
  - NOTIFY_RATE_LIMIT_MS: Minimum gap between sends (default: 1000)

Event Bus:
  - EVENTS_ENABLED (default: true), EVENTS_DRIVER (gochannel or nats)
  - EVENTS_TOPIC (default: moments.created)
  - NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: Include caller file and line

Unknown environment variables are ignored. Load validates the result and
returns an error naming the offending variable.
*/
package config
