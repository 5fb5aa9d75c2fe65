// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/earmark/internal/detection"
	"github.com/tomtom215/earmark/internal/logging"
)

// defaultRunTimeout bounds one scheduled detection run.
const defaultRunTimeout = 5 * time.Minute

// DetectionRunner is satisfied by *detection.Detector.
type DetectionRunner interface {
	DetectAndPersistNewMoments(ctx context.Context) ([]detection.Moment, error)
}

// DetectionServiceConfig controls the detection cadence.
type DetectionServiceConfig struct {
	// Schedule is a five-field cron spec. Empty disables scheduled runs.
	Schedule string

	// Location evaluates Schedule. Nil means UTC.
	Location *time.Location

	// RunOnStart triggers one run as soon as the service starts.
	RunOnStart bool

	// RunTimeout bounds each run. Zero means five minutes.
	RunTimeout time.Duration

	// OnRun is called after every run that created moments.
	OnRun func(created []detection.Moment)
}

// DetectionService runs the detector on a cron schedule under suture.
//
//	svc, err := services.NewDetectionService(detector, services.DetectionServiceConfig{
//	    Schedule:   "*/15 * * * *",
//	    RunOnStart: true,
//	})
//	tree.AddMessagingService(svc)
type DetectionService struct {
	runner DetectionRunner
	cfg    DetectionServiceConfig
	sched  cron.Schedule
	name   string
}

// NewDetectionService validates the schedule and wraps runner.
func NewDetectionService(runner DetectionRunner, cfg DetectionServiceConfig) (*DetectionService, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}

	svc := &DetectionService{runner: runner, cfg: cfg, name: "detection-scheduler"}
	if cfg.Schedule != "" {
		sched, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("invalid detection schedule %q: %w", cfg.Schedule, err)
		}
		svc.sched = sched
	}
	return svc, nil
}

// Serve implements suture.Service. It blocks until ctx is cancelled and waits
// for an in-flight run before returning.
func (s *DetectionService) Serve(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	if s.sched != nil {
		c.Schedule(s.sched, cron.FuncJob(func() { s.RunOnce(ctx) }))
	}
	c.Start()

	if s.cfg.RunOnStart {
		s.RunOnce(ctx)
	}
	if s.sched != nil {
		logging.Info().
			Str("schedule", s.cfg.Schedule).
			Time("next", s.sched.Next(time.Now().In(s.cfg.Location))).
			Msg("detection scheduled")
	}

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// RunOnce performs one detection run with its own correlation ID. A run
// already in flight is skipped.
func (s *DetectionService) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(logging.ContextWithNewCorrelationID(ctx), s.cfg.RunTimeout)
	defer cancel()
	logger := logging.Ctx(runCtx)

	created, err := s.runner.DetectAndPersistNewMoments(runCtx)
	switch {
	case errors.Is(err, detection.ErrRunInProgress):
		logger.Debug().Msg("detection run skipped: another run is in progress")
		return
	case err != nil:
		logger.Warn().Err(err).Int("created", len(created)).Msg("scheduled detection run finished with errors")
	}

	if len(created) > 0 && s.cfg.OnRun != nil {
		s.cfg.OnRun(created)
	}
}

// String implements fmt.Stringer for suture logs.
func (s *DetectionService) String() string {
	return s.name
}

// cronLogger routes robfig/cron diagnostics to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Str("component", "cron").Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Str("component", "cron").Err(err).Fields(keysAndValues).Msg(msg)
}
