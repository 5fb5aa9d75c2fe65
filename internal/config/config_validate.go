// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateDatabase,
		c.validateDetection,
		c.validateServer,
		c.validateSecurity,
		c.validateNotify,
		c.validateEvents,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateDatabase validates DuckDB configuration
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

// validateDetection validates timezone, schedule and thresholds
func (c *Config) validateDetection() error {
	if _, err := time.LoadLocation(c.Detection.Timezone); err != nil {
		return fmt.Errorf("DETECTION_TIMEZONE %q is not a valid IANA timezone: %w", c.Detection.Timezone, err)
	}

	if c.Detection.Schedule != "" {
		if _, err := cron.ParseStandard(c.Detection.Schedule); err != nil {
			return fmt.Errorf("DETECTION_SCHEDULE %q is invalid: %w", c.Detection.Schedule, err)
		}
	}

	thresholds := []struct {
		name   string
		values []int
	}{
		{"DETECTION_SONG_PLAY_THRESHOLDS", c.Detection.SongPlayThresholds},
		{"DETECTION_ARTIST_HOUR_THRESHOLDS", c.Detection.ArtistHourThresholds},
		{"DETECTION_STREAK_THRESHOLDS", c.Detection.StreakThresholds},
		{"DETECTION_TOTAL_HOUR_THRESHOLDS", c.Detection.TotalHourThresholds},
		{"DETECTION_DISCOVERY_THRESHOLDS", c.Detection.DiscoveryThresholds},
	}
	for _, th := range thresholds {
		if err := validateThresholds(th.name, th.values); err != nil {
			return err
		}
	}
	return nil
}

// validateThresholds rejects non-positive and duplicate values. An empty
// list means the built-in defaults.
func validateThresholds(name string, values []int) error {
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if v <= 0 {
			return fmt.Errorf("%s must contain only positive values, got %d", name, v)
		}
		if seen[v] {
			return fmt.Errorf("%s contains duplicate value %d", name, v)
		}
		seen[v] = true
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	return c.validateRateLimits()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// HasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// validateNotify validates notification channel URLs (only if set)
func (c *Config) validateNotify() error {
	if c.Notify.WebhookURL != "" {
		if err := validateWebhookURL(c.Notify.WebhookURL, "WEBHOOK_URL"); err != nil {
			return err
		}
	}
	if c.Notify.DiscordWebhookURL != "" {
		if err := validateWebhookURL(c.Notify.DiscordWebhookURL, "DISCORD_WEBHOOK_URL"); err != nil {
			return err
		}
	}
	if c.Notify.RateLimitMs < 0 {
		return fmt.Errorf("NOTIFY_RATE_LIMIT_MS must not be negative")
	}
	return nil
}

// validateEvents validates event bus configuration (only if enabled)
func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}

	if c.Events.Topic == "" {
		return fmt.Errorf("EVENTS_TOPIC is required when EVENTS_ENABLED=true")
	}

	switch c.Events.Driver {
	case DriverGoChannel:
		return nil
	case DriverNATS:
		if err := validateNATSURL(c.Events.NATSURL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
		if c.Events.Embedded && c.Events.StoreDir == "" {
			return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
		}
		return nil
	default:
		return fmt.Errorf("EVENTS_DRIVER must be one of: %s, %s", DriverGoChannel, DriverNATS)
	}
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
