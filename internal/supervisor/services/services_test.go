// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeHTTPServer blocks in ListenAndServe until Shutdown is called.
type fakeHTTPServer struct {
	startErr error
	closed   chan struct{}
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{closed: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.closed
	return errors.New("http: Server closed")
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	close(f.closed)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newFakeHTTPServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop after cancel")
	}
}

func TestHTTPServerServicePropagatesStartFailure(t *testing.T) {
	srv := newFakeHTTPServer()
	srv.startErr = errors.New("listen tcp: address already in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.startErr) {
		t.Errorf("err = %v, want wrapped start error", err)
	}
}

func TestHTTPServerServiceName(t *testing.T) {
	svc := NewHTTPServerService(newFakeHTTPServer(), 0)
	if svc.String() != "http-server" {
		t.Errorf("name = %q, want http-server", svc.String())
	}
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want default 10s", svc.shutdownTimeout)
	}
}

type fakeHub struct {
	served chan struct{}
}

func (f *fakeHub) Serve(ctx context.Context) error {
	close(f.served)
	<-ctx.Done()
	return ctx.Err()
}

func TestHubServiceDelegates(t *testing.T) {
	hub := &fakeHub{served: make(chan struct{})}
	svc := NewHubService(hub)

	if svc.String() != "realtime-hub" {
		t.Errorf("name = %q, want realtime-hub", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-hub.served:
	case <-time.After(time.Second):
		t.Fatal("hub.Serve was never called")
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("service did not stop after cancel")
	}
}
