// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/earmark/internal/logging"
)

// ErrNotifierUnavailable is returned while a notifier's circuit is open.
var ErrNotifierUnavailable = errors.New("notifier circuit open")

// poster sends JSON bodies to one webhook endpoint with rate limiting and
// a circuit breaker around the HTTP call.
type poster struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func newPoster(name string, rateLimit time.Duration) *poster {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("notifier", name).Str("from", from.String()).Str("to", to.String()).
				Msg("notifier circuit breaker state changed")
		},
	}

	return &poster{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(rateLimit), 1),
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// post waits for the rate limiter, then delivers payload. Status codes of
// 400 and above count as failures.
func (p *poster) post(ctx context.Context, url string, headers map[string]string, payload interface{}) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			return struct{}{}, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrNotifierUnavailable
	}
	return err
}
