// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WebhookNotifier posts moments to a generic webhook endpoint.
type WebhookNotifier struct {
	webhookURL string
	headers    map[string]string
	enabled    bool
	mu         sync.RWMutex

	poster *poster
}

// WebhookConfig configures the generic webhook notifier.
type WebhookConfig struct {
	WebhookURL  string            `json:"webhook_url"`
	Headers     map[string]string `json:"headers,omitempty"` // e.g. Authorization
	Enabled     bool              `json:"enabled"`
	RateLimitMs int               `json:"rate_limit_ms"`
}

// WebhookPayload is the JSON body sent to the endpoint.
type WebhookPayload struct {
	Moment    *Moment   `json:"moment"`
	EventType string    `json:"event_type"` // moment_created
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// NewWebhookNotifier creates a generic webhook notifier.
func NewWebhookNotifier(config WebhookConfig) *WebhookNotifier {
	rateLimit := time.Duration(config.RateLimitMs) * time.Millisecond
	if rateLimit == 0 {
		rateLimit = 500 * time.Millisecond
	}

	headers := make(map[string]string, len(config.Headers))
	for k, v := range config.Headers {
		headers[k] = v
	}

	return &WebhookNotifier{
		webhookURL: config.WebhookURL,
		headers:    headers,
		enabled:    config.Enabled,
		poster:     newPoster("webhook", rateLimit),
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Enabled returns whether this notifier is enabled.
func (n *WebhookNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.webhookURL != ""
}

// SetEnabled enables or disables the notifier.
func (n *WebhookNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send delivers a moment to the webhook endpoint.
func (n *WebhookNotifier) Send(ctx context.Context, m *Moment) error {
	n.mu.RLock()
	if !n.enabled || n.webhookURL == "" {
		n.mu.RUnlock()
		return nil
	}
	webhookURL := n.webhookURL
	headers := make(map[string]string, len(n.headers))
	for k, v := range n.headers {
		headers[k] = v
	}
	n.mu.RUnlock()

	payload := WebhookPayload{
		Moment:    m,
		EventType: MessageTypeMomentCreated,
		Timestamp: time.Now(),
		Source:    "earmark",
	}

	if err := n.poster.post(ctx, webhookURL, headers, payload); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}
