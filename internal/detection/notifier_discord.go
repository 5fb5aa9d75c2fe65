// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DiscordNotifier posts moments to a Discord channel webhook.
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	mu         sync.RWMutex

	poster *poster
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	WebhookURL  string `json:"webhook_url"`
	Enabled     bool   `json:"enabled"`
	RateLimitMs int    `json:"rate_limit_ms"` // minimum ms between messages
}

// NewDiscordNotifier creates a Discord notifier.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	rateLimit := time.Duration(config.RateLimitMs) * time.Millisecond
	if rateLimit == 0 {
		rateLimit = time.Second
	}

	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled,
		poster:     newPoster("discord", rateLimit),
	}
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Enabled returns whether this notifier is enabled.
func (n *DiscordNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.webhookURL != ""
}

// SetEnabled enables or disables the notifier.
func (n *DiscordNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send delivers a moment to Discord as a single embed.
func (n *DiscordNotifier) Send(ctx context.Context, m *Moment) error {
	n.mu.RLock()
	if !n.enabled || n.webhookURL == "" {
		n.mu.RUnlock()
		return nil
	}
	webhookURL := n.webhookURL
	n.mu.RUnlock()

	payload := discordWebhookPayload{Embeds: []discordEmbed{buildEmbed(m)}}
	if err := n.poster.post(ctx, webhookURL, nil, payload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func buildEmbed(m *Moment) discordEmbed {
	fields := []discordEmbedField{
		{Name: "Tier", Value: string(m.Tier), Inline: true},
		{Name: "Type", Value: string(m.Type), Inline: true},
	}
	if m.EntityName != "" {
		fields = append(fields, discordEmbedField{Name: "For", Value: m.EntityName, Inline: true})
	}
	if len(m.StatLines) > 0 {
		fields = append(fields, discordEmbedField{Name: "Stats", Value: strings.Join(m.StatLines, "\n")})
	}

	embed := discordEmbed{
		Title:       m.Title,
		Description: m.Description,
		Color:       tierColor(m.Tier),
		Timestamp:   m.TriggeredAt.Format(time.RFC3339),
		Fields:      fields,
		Footer:      discordEmbedFooter{Text: "Earmark"},
	}
	if m.ImageURL != "" {
		embed.Thumbnail = &discordEmbedImage{URL: m.ImageURL}
	}
	return embed
}

func tierColor(t Tier) int {
	switch t {
	case TierGold:
		return 0xF1C40F
	case TierSilver:
		return 0xBDC3C7
	case TierBronze:
		return 0xCD7F32
	default:
		return 0x95A5A6
	}
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Thumbnail   *discordEmbedImage  `json:"thumbnail,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedImage struct {
	URL string `json:"url"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}
