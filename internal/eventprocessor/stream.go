// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamName is the JetStream stream that stores moment events.
const StreamName = "MOMENTS"

// JetStreamContext is the subset of jetstream.JetStream used to provision
// the stream.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamConfig describes the moments stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

// DefaultStreamConfig keeps moment events for 30 days.
func DefaultStreamConfig(topic string) StreamConfig {
	return StreamConfig{
		Name:            StreamName,
		Subjects:        []string{topic},
		MaxAge:          30 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
	}
}

// EnsureStream creates the stream, or updates it when it already exists.
// Watermill's auto-provisioning names streams after the topic, which is not
// a valid stream name for dotted topics, so the stream is made here.
func EnsureStream(ctx context.Context, js JetStreamContext, cfg StreamConfig) error {
	streamCfg := jetstream.StreamConfig{
		Name:       cfg.Name,
		Subjects:   cfg.Subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		Duplicates: cfg.DuplicateWindow,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}

	_, err := js.Stream(ctx, cfg.Name)
	switch {
	case err == nil:
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", cfg.Name, err)
		}
		return nil
	case errors.Is(err, jetstream.ErrStreamNotFound):
		if _, err := js.CreateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("check stream %s: %w", cfg.Name, err)
	}
}
