// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

var errTest = errors.New("boom")

func TestGenerateCorrelationID(t *testing.T) {
	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()

	if len(id1) != 8 {
		t.Errorf("expected 8 character ID, got %d: %s", len(id1), id1)
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
}

func TestGenerateRequestID(t *testing.T) {
	if id := GenerateRequestID(); len(id) != 36 {
		t.Errorf("expected UUID, got %q", id)
	}
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("expected empty correlation ID, got %q", got)
	}

	ctx = ContextWithCorrelationID(ctx, "run-1234")
	if got := CorrelationIDFromContext(ctx); got != "run-1234" {
		t.Errorf("CorrelationIDFromContext = %q", got)
	}

	ctx = ContextWithNewCorrelationID(context.Background())
	if got := CorrelationIDFromContext(ctx); len(got) != 8 {
		t.Errorf("generated correlation ID = %q", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "abc12345")
	ctx = ContextWithRequestID(ctx, "req-99")

	Ctx(ctx).Info().Msg("detection run completed")

	output := buf.String()
	for _, want := range []string{`"correlation_id":"abc12345"`, `"request_id":"req-99"`, "detection run completed"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestCtx_FallsBackToGlobal(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	Ctx(context.Background()).Warn().Msg("no context logger")

	output := buf.String()
	if !strings.Contains(output, "no context logger") {
		t.Errorf("global logger not used: %s", output)
	}
	if strings.Contains(output, "correlation_id") {
		t.Errorf("unexpected correlation_id: %s", output)
	}
}

func TestWithComponent(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	logger := WithComponent("websocket")
	logger.Info().Msg("client connected")

	if !strings.Contains(buf.String(), `"component":"websocket"`) {
		t.Errorf("missing component: %s", buf.String())
	}
}
