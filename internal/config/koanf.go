// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/earmark/config.yaml",
	"/etc/earmark/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/earmark.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Detection: DetectionConfig{
			Timezone:             "UTC",
			Schedule:             "0 3 * * *",
			RunOnStart:           false,
			DisabledRules:        []string{},
			SongPlayThresholds:   []int{50, 100, 250, 500},
			ArtistHourThresholds: []int{5, 10, 24},
			StreakThresholds:     []int{7, 14, 30, 100},
			TotalHourThresholds:  []int{24, 100, 500, 1000},
			DiscoveryThresholds:  []int{100, 250, 500},
		},
		Server: ServerConfig{
			Port:    3858,
			Host:    "0.0.0.0",
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Notify: NotifyConfig{
			RateLimitMs: 1000, // Discord allows roughly one webhook call per second
		},
		Events: EventsConfig{
			Enabled:  true,
			Driver:   DriverGoChannel,
			Topic:    "moments.created",
			NATSURL:  "nats://127.0.0.1:4222",
			Embedded: false,
			StoreDir: "/data/nats",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
//
// Precedence: ENV > File > Defaults. Unmapped environment variables are
// ignored so the process environment cannot pollute the config tree.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// DETECTION_TIMEZONE -> detection.timezone
	// HTTP_PORT -> server.port
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices.
// Threshold lists come out as strings and are converted to ints on unmarshal.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"detection.disabled_rules",
	"detection.song_play_thresholds",
	"detection.artist_hour_thresholds",
	"detection.streak_thresholds",
	"detection.total_hour_thresholds",
	"detection.discovery_thresholds",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok {
			// Already a slice (defaults or YAML)
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Detection
	"detection_timezone":               "detection.timezone",
	"detection_schedule":               "detection.schedule",
	"detection_run_on_start":           "detection.run_on_start",
	"detection_disabled_rules":         "detection.disabled_rules",
	"detection_song_play_thresholds":   "detection.song_play_thresholds",
	"detection_artist_hour_thresholds": "detection.artist_hour_thresholds",
	"detection_streak_thresholds":      "detection.streak_thresholds",
	"detection_total_hour_thresholds":  "detection.total_hour_thresholds",
	"detection_discovery_thresholds":   "detection.discovery_thresholds",

	// Server
	"http_port":      "server.port",
	"server_port":    "server.port",
	"http_host":      "server.host",
	"server_host":    "server.host",
	"http_timeout":   "server.timeout",
	"server_timeout": "server.timeout",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Notifications
	"webhook_url":          "notify.webhook_url",
	"discord_webhook_url":  "notify.discord_webhook_url",
	"notify_rate_limit_ms": "notify.rate_limit_ms",

	// Event bus
	"events_enabled": "events.enabled",
	"events_driver":  "events.driver",
	"events_topic":   "events.topic",
	"nats_url":       "events.nats_url",
	"nats_embedded":  "events.embedded",
	"nats_store_dir": "events.store_dir",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DETECTION_TIMEZONE -> detection.timezone
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - NATS_EMBEDDED -> events.embedded
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	return ""
}
