// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package api exposes the coaching pipeline over HTTP: plan
// generation, diary ingestion, dashboard reads and the websocket
// upgrade endpoint, plus health and metrics for operators.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP surface. cfg may be nil for the
// middleware defaults.
func NewRouter(h *Handlers, cfg *MiddlewareConfig) http.Handler {
	if cfg == nil {
		cfg = DefaultMiddlewareConfig()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(traceMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(cfg))
	r.Use(metricsMiddleware)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", h.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimiter(cfg))

		r.Post("/plan", h.handleBuildPlan)
		r.Post("/diary", h.handleIngestDiary)
		r.Post("/cycle", h.handleFullCycle)
		r.Get("/dashboard/{user}", h.handleRefreshDashboard)
		r.Get("/dashboard/{user}/cached", h.handleCachedDashboard)
		r.Get("/dlq", h.handleDLQ)
	})

	return r
}
