// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// captureServer records request bodies and headers and answers with status.
type captureServer struct {
	*httptest.Server

	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
}

func newCaptureServer(t *testing.T, status int) *captureServer {
	t.Helper()
	cs := &captureServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.bodies = append(cs.bodies, body)
		cs.headers = append(cs.headers, r.Header.Clone())
		cs.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) requests() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.bodies)
}

func sampleMoment() *Moment {
	songID := int64(3)
	return &Moment{
		ID:          11,
		Type:        SongPlaysType(100),
		EntityKey:   "3:100",
		TriggeredAt: testNow,
		Title:       "100 Plays",
		Description: "You've played Blinding Lights 100 times",
		StatLines:   []string{"104 plays", "Since Nov 2023"},
		SongID:      &songID,
		EntityName:  "Blinding Lights",
		ImageURL:    "https://img.example.com/cover.jpg",
		Tier:        TierSilver,
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK)
	n := NewWebhookNotifier(WebhookConfig{
		WebhookURL:  srv.URL,
		Headers:     map[string]string{"Authorization": "Bearer secret"},
		Enabled:     true,
		RateLimitMs: 1,
	})

	if err := n.Send(context.Background(), sampleMoment()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if srv.requests() != 1 {
		t.Fatalf("server got %d requests, want 1", srv.requests())
	}

	if got := srv.headers[0].Get("Authorization"); got != "Bearer secret" {
		t.Errorf("Authorization = %q", got)
	}
	if got := srv.headers[0].Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	var payload struct {
		EventType string `json:"event_type"`
		Source    string `json:"source"`
		Moment    struct {
			ID        int64    `json:"id"`
			Type      string   `json:"type"`
			EntityKey string   `json:"entity_key"`
			StatLines []string `json:"stat_lines"`
		} `json:"moment"`
	}
	if err := json.Unmarshal(srv.bodies[0], &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if payload.EventType != MessageTypeMomentCreated || payload.Source != "earmark" {
		t.Errorf("payload = %+v", payload)
	}
	if payload.Moment.ID != 11 || payload.Moment.Type != "SONG_PLAYS_100" || payload.Moment.EntityKey != "3:100" {
		t.Errorf("moment = %+v", payload.Moment)
	}
	if len(payload.Moment.StatLines) != 2 {
		t.Errorf("stat_lines = %v", payload.Moment.StatLines)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := newCaptureServer(t, http.StatusBadGateway)
	n := NewWebhookNotifier(WebhookConfig{WebhookURL: srv.URL, Enabled: true, RateLimitMs: 1})

	err := n.Send(context.Background(), sampleMoment())
	if err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestWebhookNotifier_CircuitOpens(t *testing.T) {
	srv := newCaptureServer(t, http.StatusInternalServerError)
	n := NewWebhookNotifier(WebhookConfig{WebhookURL: srv.URL, Enabled: true, RateLimitMs: 1})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := n.Send(ctx, sampleMoment()); err == nil {
			t.Fatalf("send %d: expected error", i)
		}
	}

	err := n.Send(ctx, sampleMoment())
	if !errors.Is(err, ErrNotifierUnavailable) {
		t.Errorf("err = %v, want ErrNotifierUnavailable", err)
	}
	if srv.requests() != 5 {
		t.Errorf("server got %d requests, want 5", srv.requests())
	}
}

func TestWebhookNotifier_Disabled(t *testing.T) {
	srv := newCaptureServer(t, http.StatusOK)

	tests := []struct {
		name string
		cfg  WebhookConfig
	}{
		{"disabled", WebhookConfig{WebhookURL: srv.URL}},
		{"no url", WebhookConfig{Enabled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewWebhookNotifier(tt.cfg)
			if n.Enabled() {
				t.Error("Enabled() = true")
			}
			if err := n.Send(context.Background(), sampleMoment()); err != nil {
				t.Errorf("Send failed: %v", err)
			}
		})
	}
	if srv.requests() != 0 {
		t.Errorf("server got %d requests, want 0", srv.requests())
	}

	n := NewWebhookNotifier(WebhookConfig{WebhookURL: srv.URL})
	n.SetEnabled(true)
	if !n.Enabled() {
		t.Error("SetEnabled(true) did not enable")
	}
}

func TestDiscordNotifier_Send(t *testing.T) {
	srv := newCaptureServer(t, http.StatusNoContent)
	n := NewDiscordNotifier(DiscordConfig{WebhookURL: srv.URL, Enabled: true, RateLimitMs: 1})

	if err := n.Send(context.Background(), sampleMoment()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if srv.requests() != 1 {
		t.Fatalf("server got %d requests, want 1", srv.requests())
	}

	var payload discordWebhookPayload
	if err := json.Unmarshal(srv.bodies[0], &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(payload.Embeds))
	}
	embed := payload.Embeds[0]
	if embed.Title != "100 Plays" || embed.Color != 0xBDC3C7 {
		t.Errorf("embed = %+v", embed)
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != "https://img.example.com/cover.jpg" {
		t.Errorf("thumbnail = %+v", embed.Thumbnail)
	}
	if embed.Footer.Text != "Earmark" {
		t.Errorf("footer = %q", embed.Footer.Text)
	}
}

func TestBuildEmbed(t *testing.T) {
	m := sampleMoment()
	m.EntityName = ""
	m.ImageURL = ""
	m.StatLines = nil
	m.Tier = TierGold

	embed := buildEmbed(m)
	if embed.Thumbnail != nil {
		t.Error("thumbnail set without image")
	}
	if embed.Color != 0xF1C40F {
		t.Errorf("Color = %#x", embed.Color)
	}
	for _, f := range embed.Fields {
		if f.Name == "For" || f.Name == "Stats" {
			t.Errorf("unexpected field %q", f.Name)
		}
	}

	full := buildEmbed(sampleMoment())
	var stats string
	for _, f := range full.Fields {
		if f.Name == "Stats" {
			stats = f.Value
		}
	}
	if stats != "104 plays\nSince Nov 2023" {
		t.Errorf("Stats field = %q", stats)
	}
}

func TestTierColor(t *testing.T) {
	tests := []struct {
		tier Tier
		want int
	}{
		{TierBronze, 0xCD7F32},
		{TierSilver, 0xBDC3C7},
		{TierGold, 0xF1C40F},
		{Tier("platinum"), 0x95A5A6},
	}
	for _, tt := range tests {
		if got := tierColor(tt.tier); got != tt.want {
			t.Errorf("tierColor(%s) = %#x, want %#x", tt.tier, got, tt.want)
		}
	}
}
