// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package main is the entry point for the Nutricoach server.
//
// Nutricoach is a personal nutrition coaching backend. It generates
// nutrition plans from a user profile, parses free-text diary
// entries, and runs a four-stage coaching pipeline (calc, trend,
// coach, dashboard) over an in-process event bus, pushing dashboard
// updates to connected websocket clients.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config file and
//     environment variables (Koanf v2)
//  2. Store: in-memory or BadgerDB-backed repository
//  3. Realtime hub: websocket fan-out, guarded by a circuit breaker
//  4. Event bus and pipeline coordinator: stage handlers with
//     idempotent delivery, bounded retries and a dead-letter queue
//  5. Orchestrator: the plan / diary / dashboard facade
//  6. HTTP server: REST API plus /ws, /healthz and /metrics
//
// The realtime hub and the HTTP server run under a suture supervision
// tree; a crash in one layer restarts that layer only.
//
// # Configuration
//
// Configuration sources, highest priority last:
//   - Built-in defaults
//   - Config file (NUTRICOACH_CONFIG, ./config.yaml, /etc/nutricoach/config.yaml)
//   - Environment variables with the NUTRICOACH_ prefix,
//     e.g. NUTRICOACH_SERVER_PORT=8642, NUTRICOACH_STORE_BACKEND=badger
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests (10s timeout), the hub closes its
// clients, and the store is closed last.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nutricoach/nutricoach/internal/api"
	"github.com/nutricoach/nutricoach/internal/bus"
	"github.com/nutricoach/nutricoach/internal/config"
	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/orchestrator"
	"github.com/nutricoach/nutricoach/internal/pipeline"
	"github.com/nutricoach/nutricoach/internal/realtime"
	"github.com/nutricoach/nutricoach/internal/store"
	"github.com/nutricoach/nutricoach/internal/supervisor"
	"github.com/nutricoach/nutricoach/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config errors surface through the default logger; the
		// configured one is not available yet.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("store_backend", cfg.Store.Backend).
		Bool("realtime_enabled", cfg.Realtime.Enabled).
		Str("environment", cfg.Server.Environment).
		Msg("Configuration loaded")

	// Repository selection per config. Badger gets a deferred close so
	// pending writes are flushed on shutdown.
	var repo store.Repository
	switch cfg.Store.Backend {
	case "badger":
		badgerRepo, db, err := store.OpenBadger(cfg.Store.Path)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open badger store")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing badger store")
			}
		}()
		repo = badgerRepo
		logging.Info().Str("path", cfg.Store.Path).Msg("Badger store opened")
	default:
		repo = store.NewMemoryRepository()
		logging.Warn().Msg("Using in-memory store, data is lost on restart")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})

	// The hub is both the websocket fan-out and the pipeline's
	// broadcast publisher. With realtime disabled the pipeline
	// broadcasts into a log-only publisher instead.
	var hub *realtime.Hub
	var pub realtime.Publisher
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub()
		pub = realtime.NewBreakerPublisher("realtime", hub)
		tree.AddMessagingService(services.NewHubService(hub))
		logging.Info().Msg("Realtime hub added to supervisor tree")
	} else {
		pub = realtime.LogPublisher{}
		logging.Info().Msg("Realtime updates disabled")
	}

	var b *bus.Bus
	if cfg.Bus.MaxAttempts > 0 {
		b = bus.NewWithMaxAttempts(cfg.Bus.MaxAttempts)
	} else {
		b = bus.New()
	}
	coord := pipeline.NewCoordinator(pipeline.DefaultAgents(), repo, pub)
	orch := orchestrator.New(repo, pub, b, coord)

	router := api.NewRouter(api.NewHandlers(orch, hub), &api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.API.CORSOrigins,
		RateLimitRequests:  cfg.API.RateLimitReqs,
		RateLimitWindow:    cfg.API.RateLimitWindow,
		RateLimitDisabled:  cfg.API.RateLimitDisabled,
	})

	if cfg.API.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED, do not run like this in production")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}
