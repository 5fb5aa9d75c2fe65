// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every setting
//  2. Config File: Optional YAML file (config.yaml or CONFIG_PATH)
//  3. Environment Variables: Override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := database.New(&cfg.Database)
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Detection DetectionConfig `koanf:"detection"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Notify    NotifyConfig    `koanf:"notify"`
	Events    EventsConfig    `koanf:"events"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)
}

// DetectionConfig controls when the detector runs and which rule families
// and thresholds it evaluates.
type DetectionConfig struct {
	// Timezone is the IANA zone used for calendar boundaries.
	Timezone string `koanf:"timezone"`

	// Schedule is a standard five-field cron spec. Empty disables the
	// scheduled run; on-demand runs through the API still work.
	Schedule string `koanf:"schedule"`

	RunOnStart    bool     `koanf:"run_on_start"`
	DisabledRules []string `koanf:"disabled_rules"`

	SongPlayThresholds   []int `koanf:"song_play_thresholds"`
	ArtistHourThresholds []int `koanf:"artist_hour_thresholds"`
	StreakThresholds     []int `koanf:"streak_thresholds"`
	TotalHourThresholds  []int `koanf:"total_hour_thresholds"`
	DiscoveryThresholds  []int `koanf:"discovery_thresholds"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds CORS and rate limiting settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// NotifyConfig configures outbound moment notifications. A channel is
// enabled when its URL is set.
type NotifyConfig struct {
	WebhookURL        string            `koanf:"webhook_url"`
	WebhookHeaders    map[string]string `koanf:"webhook_headers"`
	DiscordWebhookURL string            `koanf:"discord_webhook_url"`
	RateLimitMs       int               `koanf:"rate_limit_ms"`
}

// EventsConfig configures the moments event bus.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Driver  string `koanf:"driver"` // "gochannel" or "nats"
	Topic   string `koanf:"topic"`

	NATSURL  string `koanf:"nats_url"`
	Embedded bool   `koanf:"embedded"`  // Run an in-process NATS server
	StoreDir string `koanf:"store_dir"` // JetStream storage for the embedded server
}

// Event bus drivers
const (
	DriverGoChannel = "gochannel"
	DriverNATS      = "nats"
)

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
