// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path != "/data/earmark.duckdb" {
		t.Errorf("Database.Path = %q, want /data/earmark.duckdb", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "1GB" {
		t.Errorf("Database.MaxMemory = %q, want 1GB", cfg.Database.MaxMemory)
	}

	if cfg.Detection.Timezone != "UTC" {
		t.Errorf("Detection.Timezone = %q, want UTC", cfg.Detection.Timezone)
	}
	if cfg.Detection.Schedule != "0 3 * * *" {
		t.Errorf("Detection.Schedule = %q, want 0 3 * * *", cfg.Detection.Schedule)
	}
	if !reflect.DeepEqual(cfg.Detection.SongPlayThresholds, []int{50, 100, 250, 500}) {
		t.Errorf("Detection.SongPlayThresholds = %v", cfg.Detection.SongPlayThresholds)
	}
	if !reflect.DeepEqual(cfg.Detection.StreakThresholds, []int{7, 14, 30, 100}) {
		t.Errorf("Detection.StreakThresholds = %v", cfg.Detection.StreakThresholds)
	}

	if cfg.Server.Port != 3858 {
		t.Errorf("Server.Port = %d, want 3858", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("Server.Timeout = %v, want 30s", cfg.Server.Timeout)
	}

	if cfg.Security.RateLimitReqs != 100 {
		t.Errorf("Security.RateLimitReqs = %d, want 100", cfg.Security.RateLimitReqs)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}

	if cfg.Events.Driver != DriverGoChannel || cfg.Events.Topic != "moments.created" {
		t.Errorf("Events = %+v", cfg.Events)
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Database
		{"DUCKDB_PATH", "database.path"},
		{"DUCKDB_MAX_MEMORY", "database.max_memory"},

		// Detection
		{"DETECTION_TIMEZONE", "detection.timezone"},
		{"DETECTION_SCHEDULE", "detection.schedule"},
		{"DETECTION_DISABLED_RULES", "detection.disabled_rules"},
		{"DETECTION_STREAK_THRESHOLDS", "detection.streak_thresholds"},

		// Server
		{"HTTP_PORT", "server.port"},
		{"SERVER_PORT", "server.port"},
		{"HTTP_TIMEOUT", "server.timeout"},

		// Security
		{"RATE_LIMIT_REQUESTS", "security.rate_limit_reqs"},
		{"DISABLE_RATE_LIMIT", "security.rate_limit_disabled"},
		{"CORS_ORIGINS", "security.cors_origins"},

		// Notifications and events
		{"DISCORD_WEBHOOK_URL", "notify.discord_webhook_url"},
		{"NATS_EMBEDDED", "events.embedded"},
		{"EVENTS_DRIVER", "events.driver"},

		// Logging
		{"LOG_LEVEL", "logging.level"},

		// Case insensitive
		{"log_format", "logging.format"},

		// Unknown variables are dropped
		{"HOME", ""},
		{"PATH", ""},
		{"DETECTION_UNKNOWN", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// TestEnvMappingsTargetKnownPaths verifies every mapping lands on a real config key
func TestEnvMappingsTargetKnownPaths(t *testing.T) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}

	for env, path := range envMappings {
		if !k.Exists(path) {
			t.Errorf("%s maps to unknown path %q", env, path)
		}
	}
}

func TestProcessSliceFields(t *testing.T) {
	k := koanf.New(".")
	if err := k.Set("security.cors_origins", "https://a.example.com, https://b.example.com,"); err != nil {
		t.Fatal(err)
	}
	if err := k.Set("detection.streak_thresholds", "7,30"); err != nil {
		t.Fatal(err)
	}
	if err := k.Set("detection.disabled_rules", []string{"streak"}); err != nil {
		t.Fatal(err)
	}

	if err := processSliceFields(k); err != nil {
		t.Fatalf("processSliceFields failed: %v", err)
	}

	if got := k.Strings("security.cors_origins"); !reflect.DeepEqual(got, []string{"https://a.example.com", "https://b.example.com"}) {
		t.Errorf("cors_origins = %v", got)
	}
	if got := k.Strings("detection.streak_thresholds"); !reflect.DeepEqual(got, []string{"7", "30"}) {
		t.Errorf("streak_thresholds = %v", got)
	}
	if got := k.Strings("detection.disabled_rules"); !reflect.DeepEqual(got, []string{"streak"}) {
		t.Errorf("disabled_rules = %v", got)
	}
}

// TestLoadWithKoanf_EnvOverrides verifies environment variables override defaults
func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DETECTION_TIMEZONE", "America/New_York")
	t.Setenv("DETECTION_DISABLED_RULES", "skip_rate, wide_taste")
	t.Setenv("DETECTION_STREAK_THRESHOLDS", "10,20")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_TIMEOUT", "45s")
	t.Setenv("CORS_ORIGINS", "https://earmark.example.com")
	t.Setenv("NATS_EMBEDDED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Detection.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q", cfg.Detection.Timezone)
	}
	if !reflect.DeepEqual(cfg.Detection.DisabledRules, []string{"skip_rate", "wide_taste"}) {
		t.Errorf("DisabledRules = %v", cfg.Detection.DisabledRules)
	}
	if !reflect.DeepEqual(cfg.Detection.StreakThresholds, []int{10, 20}) {
		t.Errorf("StreakThresholds = %v", cfg.Detection.StreakThresholds)
	}
	if !reflect.DeepEqual(cfg.Detection.SongPlayThresholds, []int{50, 100, 250, 500}) {
		t.Errorf("SongPlayThresholds = %v, want defaults", cfg.Detection.SongPlayThresholds)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Timeout != 45*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if !reflect.DeepEqual(cfg.Security.CORSOrigins, []string{"https://earmark.example.com"}) {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if !cfg.Events.Embedded {
		t.Error("Events.Embedded = false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

// TestLoadWithKoanf_ConfigFile verifies the YAML layer and its precedence under env
func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "earmark.yaml")
	content := strings.Join([]string{
		"database:",
		"  path: /tmp/moments.duckdb",
		"detection:",
		"  timezone: Europe/Berlin",
		"  schedule: \"*/30 * * * *\"",
		"  song_play_thresholds: [25, 75]",
		"notify:",
		"  discord_webhook_url: https://discord.com/api/webhooks/1/token",
		"  webhook_headers:",
		"    Authorization: Bearer abc",
		"server:",
		"  port: 4000",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SERVER_PORT", "5000")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/moments.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Detection.Timezone != "Europe/Berlin" || cfg.Detection.Schedule != "*/30 * * * *" {
		t.Errorf("Detection = %+v", cfg.Detection)
	}
	if !reflect.DeepEqual(cfg.Detection.SongPlayThresholds, []int{25, 75}) {
		t.Errorf("SongPlayThresholds = %v", cfg.Detection.SongPlayThresholds)
	}
	if cfg.Notify.DiscordWebhookURL != "https://discord.com/api/webhooks/1/token" {
		t.Errorf("DiscordWebhookURL = %q", cfg.Notify.DiscordWebhookURL)
	}
	if cfg.Notify.WebhookHeaders["Authorization"] != "Bearer abc" {
		t.Errorf("WebhookHeaders = %v", cfg.Notify.WebhookHeaders)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, env should win over file", cfg.Server.Port)
	}
}

func TestLoadWithKoanf_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad timezone", map[string]string{"DETECTION_TIMEZONE": "Mars/Olympus"}, "DETECTION_TIMEZONE"},
		{"bad schedule", map[string]string{"DETECTION_SCHEDULE": "every day"}, "DETECTION_SCHEDULE"},
		{"bad port", map[string]string{"HTTP_PORT": "70000"}, "HTTP_PORT"},
		{"bad driver", map[string]string{"EVENTS_DRIVER": "kafka"}, "EVENTS_DRIVER"},
		{"bad threshold", map[string]string{"DETECTION_STREAK_THRESHOLDS": "7,-1"}, "DETECTION_STREAK_THRESHOLDS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}

	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "nope.yaml"))
	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}
}
