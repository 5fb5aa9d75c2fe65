// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

/*
Package eventprocessor publishes newly created moments to a Watermill
message bus so other services can react to them.

Each persisted moment becomes one message on the configured topic
(default "moments.created") carrying a JSON MomentEvent and the metadata
keys moment_type, tier, schema_version and correlation_id.

# Drivers

  - gochannel: in-process pub/sub. Subscribe returns the message stream,
    which is handy for tests and local consumers.
  - nats: JetStream through watermill-nats. With events.embedded set, an
    in-process nats-server is started with its store under
    events.store_dir. The MOMENTS stream is created or updated at startup,
    and message UUIDs double as Nats-Msg-Id for broker-side deduplication.

Publishing goes through a gobreaker circuit breaker. While it is open,
PublishMoment fails fast and the detector only logs the failure.

# Usage

	bus, err := eventprocessor.NewBus(ctx, eventprocessor.ConfigFromEvents(&cfg.Events))
	if err != nil {
	    return err
	}
	detector.SetPublisher(bus)
*/
package eventprocessor
