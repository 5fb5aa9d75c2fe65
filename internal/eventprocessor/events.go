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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/earmark/internal/detection"
	"github.com/tomtom215/earmark/internal/logging"
)

// SchemaVersion is bumped when MomentEvent changes incompatibly.
const SchemaVersion = 1

// Message metadata keys.
const (
	MetadataMomentType    = "moment_type"
	MetadataTier          = "tier"
	MetadataCorrelationID = "correlation_id"
	MetadataSchemaVersion = "schema_version"
)

// ErrInvalidEvent is returned when an event fails validation.
var ErrInvalidEvent = errors.New("invalid moment event")

// MomentEvent is the payload of one moments.created message.
type MomentEvent struct {
	EventID       string            `json:"event_id"`
	SchemaVersion int               `json:"schema_version"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	PublishedAt   time.Time         `json:"published_at"`
	Moment        *detection.Moment `json:"moment"`
}

// NewMomentEvent wraps m with a fresh event ID and the correlation ID of ctx.
func NewMomentEvent(ctx context.Context, m *detection.Moment) *MomentEvent {
	return &MomentEvent{
		EventID:       uuid.New().String(),
		SchemaVersion: SchemaVersion,
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		PublishedAt:   time.Now().UTC(),
		Moment:        m,
	}
}

// Validate checks the fields consumers rely on.
func (e *MomentEvent) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	case e.Moment == nil:
		return fmt.Errorf("%w: moment is required", ErrInvalidEvent)
	case e.Moment.Type == "":
		return fmt.Errorf("%w: moment type is required", ErrInvalidEvent)
	case e.Moment.EntityKey == "":
		return fmt.Errorf("%w: moment entity_key is required", ErrInvalidEvent)
	}
	return nil
}

// SerializeEvent validates and encodes an event.
func SerializeEvent(e *MomentEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DeserializeEvent decodes and validates an event.
func DeserializeEvent(data []byte) (*MomentEvent, error) {
	var e MomentEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode moment event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
