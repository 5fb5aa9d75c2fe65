// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/earmark/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

var _ suture.Service = (*HTTPServerService)(nil)

// fakeHTTPServer blocks in ListenAndServe until Shutdown.
type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stop        chan struct{}
	shutdowns   atomic.Int32
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	f.started <- struct{}{}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stop)
	return f.shutdownErr
}

func serveAsync(ctx context.Context, svc *HTTPServerService) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return errCh
}

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		if svc := NewHTTPServerService(newFakeHTTPServer(), timeout); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout(%v) = %v", timeout, svc.shutdownTimeout)
		}
	}
	if got := NewHTTPServerService(newFakeHTTPServer(), 0).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	server := newFakeHTTPServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := serveAsync(ctx, svc)
	<-server.started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if server.shutdowns.Load() != 1 {
		t.Errorf("shutdowns = %d, want 1", server.shutdowns.Load())
	}
}

func TestHTTPServerService_StartupFailure(t *testing.T) {
	server := newFakeHTTPServer()
	server.listenErr = errors.New("bind: address already in use")

	err := NewHTTPServerService(server, time.Second).Serve(context.Background())
	if !errors.Is(err, server.listenErr) {
		t.Errorf("Serve() = %v", err)
	}
}

func TestHTTPServerService_ShutdownFailure(t *testing.T) {
	server := newFakeHTTPServer()
	server.shutdownErr = errors.New("shutdown timeout")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := serveAsync(ctx, NewHTTPServerService(server, time.Second))
	<-server.started
	cancel()

	if err := <-errCh; !errors.Is(err, server.shutdownErr) {
		t.Errorf("Serve() = %v", err)
	}
}

func TestHTTPServerService_RealServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := serveAsync(ctx, NewHTTPServerService(server, time.Second))

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if resp, err = http.Get("http://" + addr); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
}
