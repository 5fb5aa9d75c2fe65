// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package eventprocessor

import (
	"context"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/earmark/internal/config"
)

func TestServerConfigFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"default", "nats://127.0.0.1:4222", "127.0.0.1", 4222, false},
		{"random port", "nats://localhost:-1", "localhost", -1, false},
		{"missing port", "nats://localhost", "", 0, true},
		{"bad port", "nats://localhost:abc", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ServerConfigFromURL(tt.url, "/data/nats")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.Host != tt.wantHost || cfg.Port != tt.wantPort || cfg.StoreDir != "/data/nats" {
				t.Errorf("cfg = %+v", cfg)
			}
		})
	}
}

func TestEmbeddedServer_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS server in short mode")
	}

	srv, err := NewEmbeddedServer(ServerConfig{Host: "127.0.0.1", Port: -1, StoreDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	if !srv.IsRunning() || !srv.JetStreamEnabled() {
		t.Error("server should be running with JetStream")
	}
	if srv.ClientURL() == "" {
		t.Error("client URL should be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if srv.IsRunning() {
		t.Error("server should be stopped")
	}
}

func TestBus_NATSEmbedded(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedded NATS server in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := testConfig()
	cfg.Driver = config.DriverNATS
	cfg.NATSURL = "nats://127.0.0.1:-1"
	cfg.Embedded = true
	cfg.StoreDir = t.TempDir()

	bus, err := NewBus(ctx, cfg)
	if err != nil {
		t.Fatalf("NewBus() error = %v", err)
	}
	defer bus.Close()

	if bus.Driver() != config.DriverNATS || !bus.Healthy() {
		t.Fatalf("driver = %s healthy = %v", bus.Driver(), bus.Healthy())
	}
	if _, err := bus.Subscribe(ctx); err != ErrSubscribeUnsupported {
		t.Errorf("Subscribe() err = %v", err)
	}

	if err := bus.PublishMoment(ctx, testMoment()); err != nil {
		t.Fatalf("PublishMoment() error = %v", err)
	}

	nc, err := natsgo.Connect(bus.server.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := js.Stream(ctx, StreamName)
	if err != nil {
		t.Fatalf("stream lookup: %v", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.State.Msgs != 1 {
		t.Errorf("stream holds %d messages, want 1", info.State.Msgs)
	}

	// A second EnsureStream updates in place.
	if err := EnsureStream(ctx, js, DefaultStreamConfig(cfg.Topic)); err != nil {
		t.Errorf("EnsureStream() on existing stream error = %v", err)
	}
}
