// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package detection

import (
	"context"
	"time"

	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/metrics"
)

// dispatchTimeout bounds one notifier delivery.
const dispatchTimeout = 30 * time.Second

// MessageTypeMomentCreated is the WebSocket message type for new moments.
const MessageTypeMomentCreated = "moment_created"

// dispatch hands freshly persisted moments to every delivery channel.
// Delivery failures are logged and never affect the run result.
func (d *Detector) dispatch(ctx context.Context, moments []Moment) {
	d.mu.RLock()
	notifiers := make([]Notifier, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		if n.Enabled() {
			notifiers = append(notifiers, n)
		}
	}
	broadcaster := d.broadcaster
	publisher := d.publisher
	d.mu.RUnlock()

	logger := logging.Ctx(ctx)

	for i := range moments {
		m := &moments[i]

		if broadcaster != nil {
			broadcaster.BroadcastJSON(MessageTypeMomentCreated, m)
			metrics.RecordDispatch("websocket", "success")
		}

		if publisher != nil {
			if err := publisher.PublishMoment(ctx, m); err != nil {
				metrics.RecordDispatch("eventbus", "error")
				logger.Warn().Err(err).Int64("moment_id", m.ID).Msg("failed to publish moment")
			} else {
				metrics.RecordDispatch("eventbus", "success")
			}
		}
	}

	// Notifiers outlive the run context, so they get their own deadline.
	sendCtx := context.WithoutCancel(ctx)
	for i := range moments {
		m := &moments[i]
		for _, notifier := range notifiers {
			d.dispatchWG.Add(1)
			go func(n Notifier) {
				defer d.dispatchWG.Done()
				nctx, cancel := context.WithTimeout(sendCtx, dispatchTimeout)
				defer cancel()
				if err := n.Send(nctx, m); err != nil {
					metrics.RecordDispatch(n.Name(), "error")
					logging.Error().Err(err).Str("notifier", n.Name()).Int64("moment_id", m.ID).Msg("failed to send moment")
					return
				}
				metrics.RecordDispatch(n.Name(), "success")
			}(notifier)
		}
	}
}
