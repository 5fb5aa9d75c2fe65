// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/earmark/internal/api"
	"github.com/tomtom215/earmark/internal/config"
	"github.com/tomtom215/earmark/internal/database"
	"github.com/tomtom215/earmark/internal/detection"
	"github.com/tomtom215/earmark/internal/eventprocessor"
	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/supervisor"
	"github.com/tomtom215/earmark/internal/supervisor/services"
	ws "github.com/tomtom215/earmark/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", api.Version).
		Str("db_path", cfg.Database.Path).
		Str("timezone", cfg.Detection.Timezone).
		Msg("Starting Earmark")

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Earmark stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and blocks until SIGINT or SIGTERM.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store := detection.NewDuckDBStore(db.Conn())
	if err := store.InitSchema(ctx); err != nil {
		return err
	}

	detector, err := detection.NewDetector(db, store, detectionConfig(&cfg.Detection))
	if err != nil {
		return err
	}
	defer func() {
		if err := detector.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing detector")
		}
	}()
	registerNotifiers(detector, &cfg.Notify)

	hub := ws.NewHub()
	detector.SetBroadcaster(hub)

	handler := api.NewHandler(db, detector, store, cfg, hub, nil)
	defer handler.Close()

	var bus *eventprocessor.Bus
	if cfg.Events.Enabled {
		bus, err = eventprocessor.NewBus(ctx, eventprocessor.ConfigFromEvents(&cfg.Events))
		if err != nil {
			return err
		}
		detector.SetPublisher(bus)
		handler.SetEventBus(bus)
		logging.Info().Str("driver", bus.Driver()).Str("topic", bus.Topic()).Msg("Event bus enabled")
	}

	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(&cfg.Security))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}

	tree.AddDataService(services.NewCheckpointService(db, 0))

	tree.AddMessagingService(hub)
	if bus != nil {
		tree.AddMessagingService(bus)
	}
	if cfg.Detection.Schedule != "" || cfg.Detection.RunOnStart {
		loc, err := time.LoadLocation(cfg.Detection.Timezone)
		if err != nil {
			return err
		}
		scheduler, err := services.NewDetectionService(detector, services.DetectionServiceConfig{
			Schedule:   cfg.Detection.Schedule,
			Location:   loc,
			RunOnStart: cfg.Detection.RunOnStart,
			OnRun:      func([]detection.Moment) { handler.ClearCache() },
		})
		if err != nil {
			return err
		}
		tree.AddMessagingService(scheduler)
		logging.Info().
			Str("schedule", cfg.Detection.Schedule).
			Bool("run_on_start", cfg.Detection.RunOnStart).
			Msg("Detection scheduler enabled")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func detectionConfig(c *config.DetectionConfig) detection.Config {
	return detection.Config{
		Timezone:             c.Timezone,
		DisabledRules:        c.DisabledRules,
		SongPlayThresholds:   c.SongPlayThresholds,
		ArtistHourThresholds: c.ArtistHourThresholds,
		StreakThresholds:     c.StreakThresholds,
		TotalHourThresholds:  c.TotalHourThresholds,
		DiscoveryThresholds:  c.DiscoveryThresholds,
	}
}

// registerNotifiers enables each notification channel whose URL is set.
func registerNotifiers(d *detection.Detector, n *config.NotifyConfig) {
	if n.WebhookURL != "" {
		d.RegisterNotifier(detection.NewWebhookNotifier(detection.WebhookConfig{
			WebhookURL:  n.WebhookURL,
			Headers:     n.WebhookHeaders,
			Enabled:     true,
			RateLimitMs: n.RateLimitMs,
		}))
		logging.Info().Msg("Webhook notifier enabled")
	}
	if n.DiscordWebhookURL != "" {
		d.RegisterNotifier(detection.NewDiscordNotifier(detection.DiscordConfig{
			WebhookURL:  n.DiscordWebhookURL,
			Enabled:     true,
			RateLimitMs: n.RateLimitMs,
		}))
		logging.Info().Msg("Discord notifier enabled")
	}
}
