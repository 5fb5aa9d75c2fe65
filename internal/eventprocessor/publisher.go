// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/earmark/internal/config"
	"github.com/tomtom215/earmark/internal/detection"
	"github.com/tomtom215/earmark/internal/logging"
	"github.com/tomtom215/earmark/internal/metrics"
)

// ErrBusClosed is returned when publishing on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscribeUnsupported is returned by Subscribe on the NATS driver,
// whose consumers live outside this process.
var ErrSubscribeUnsupported = errors.New("subscribe is only supported by the gochannel driver")

// Config configures the moment event bus.
type Config struct {
	Driver   string
	Topic    string
	NATSURL  string
	Embedded bool
	StoreDir string
	Breaker  CircuitBreakerConfig
}

// ConfigFromEvents converts the application's events section.
func ConfigFromEvents(cfg *config.EventsConfig) Config {
	return Config{
		Driver:   cfg.Driver,
		Topic:    cfg.Topic,
		NATSURL:  cfg.NATSURL,
		Embedded: cfg.Embedded,
		StoreDir: cfg.StoreDir,
		Breaker:  DefaultCircuitBreakerConfig(),
	}
}

// Bus publishes moments.created messages. It satisfies detection.Publisher.
type Bus struct {
	cfg        Config
	publisher  message.Publisher
	goChannel  *gochannel.GoChannel
	conn       *natsgo.Conn
	server     *EmbeddedServer
	breaker    *gobreaker.CircuitBreaker[struct{}]
	logger     watermill.LoggerAdapter
	mu         sync.RWMutex
	closed     bool
	closeOnce  sync.Once
	closeError error
}

// NewBus builds the bus for cfg.Driver. For the NATS driver it starts the
// embedded server when requested and makes sure the stream exists.
func NewBus(ctx context.Context, cfg Config) (*Bus, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("event bus topic is required")
	}

	b := &Bus{
		cfg:     cfg,
		breaker: NewCircuitBreaker(cfg.Breaker),
		logger:  watermill.NewSlogLogger(logging.NewComponentSlogLogger("eventbus")),
	}

	switch cfg.Driver {
	case config.DriverGoChannel, "":
		b.goChannel = gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, b.logger)
		b.publisher = b.goChannel
	case config.DriverNATS:
		if err := b.initNATS(ctx); err != nil {
			b.closeResources()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown event bus driver %q", cfg.Driver)
	}

	logging.Info().
		Str("driver", b.Driver()).
		Str("topic", cfg.Topic).
		Bool("embedded", b.server != nil).
		Msg("event bus ready")
	return b, nil
}

func (b *Bus) initNATS(ctx context.Context) error {
	url := b.cfg.NATSURL
	if b.cfg.Embedded {
		serverCfg, err := ServerConfigFromURL(b.cfg.NATSURL, b.cfg.StoreDir)
		if err != nil {
			return err
		}
		srv, err := NewEmbeddedServer(serverCfg)
		if err != nil {
			return err
		}
		b.server = srv
		url = srv.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("earmark"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := natsgo.Connect(url, natsOpts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	b.conn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	if err := EnsureStream(ctx, js, DefaultStreamConfig(b.cfg.Topic)); err != nil {
		return err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, b.logger)
	if err != nil {
		return fmt.Errorf("create watermill publisher: %w", err)
	}
	b.publisher = pub
	return nil
}

// Driver returns the active driver name.
func (b *Bus) Driver() string {
	if b.goChannel != nil {
		return config.DriverGoChannel
	}
	return config.DriverNATS
}

// Topic returns the topic moments are published on.
func (b *Bus) Topic() string {
	return b.cfg.Topic
}

// PublishMoment publishes one moments.created message for m.
func (b *Bus) PublishMoment(ctx context.Context, m *detection.Moment) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	event := NewMomentEvent(ctx, m)
	data, err := SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize moment %d: %w", m.ID, err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set(MetadataMomentType, string(m.Type))
	msg.Metadata.Set(MetadataTier, string(m.Tier))
	msg.Metadata.Set(MetadataSchemaVersion, strconv.Itoa(SchemaVersion))
	if event.CorrelationID != "" {
		msg.Metadata.Set(MetadataCorrelationID, event.CorrelationID)
	}

	err = executeWithBreaker(b.breaker, func() error {
		return b.publisher.Publish(b.cfg.Topic, msg)
	})
	metrics.RecordEventBusPublish(b.cfg.Topic, err)
	if err != nil {
		return fmt.Errorf("publish moment %d: %w", m.ID, err)
	}
	return nil
}

// Subscribe returns the in-process message stream for the topic. Handlers
// must Ack each message.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if b.goChannel == nil {
		return nil, ErrSubscribeUnsupported
	}
	return b.goChannel.Subscribe(ctx, b.cfg.Topic)
}

// BreakerState returns the publish breaker state for health checks.
func (b *Bus) BreakerState() string {
	return b.breaker.State().String()
}

// Healthy reports whether the bus can currently publish.
func (b *Bus) Healthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	if b.server != nil && !b.server.IsRunning() {
		return false
	}
	if b.conn != nil && !b.conn.IsConnected() {
		return false
	}
	return true
}

// Close stops the publisher, the NATS connection and the embedded server.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		b.closeError = b.closeResources()
	})
	return b.closeError
}

func (b *Bus) closeResources() error {
	var errs []error
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
	if b.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown NATS server: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Serve implements suture.Service. The bus has no loop of its own; Serve
// watches its health and closes it on shutdown.
func (b *Bus) Serve(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := b.Close(); err != nil {
				logging.Warn().Err(err).Msg("event bus close failed")
			}
			return ctx.Err()
		case <-ticker.C:
			if !b.Healthy() {
				logging.Warn().Str("driver", b.Driver()).Str("breaker", b.BreakerState()).Msg("event bus unhealthy")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (b *Bus) String() string {
	return "event-bus"
}

var _ detection.Publisher = (*Bus)(nil)
