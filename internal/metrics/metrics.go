// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package metrics provides Prometheus instrumentation for the pipeline:
// event-bus throughput and retries, dead-letter accumulation, stage agent
// invocations, orchestrator entry points, realtime broadcasts, and the
// HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event Bus Metrics
	BusEventsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_enqueued_total",
			Help: "Total number of events accepted onto the bus queue",
		},
		[]string{"event"},
	)

	BusEventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_processed_total",
			Help: "Total number of events successfully handled",
		},
		[]string{"event"},
	)

	BusEventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_skipped_total",
			Help: "Total number of publishes short-circuited by idempotency keys",
		},
		[]string{"event"},
	)

	BusEventsUnhandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_unhandled_total",
			Help: "Total number of events dropped because no handler was registered",
		},
		[]string{"event"},
	)

	BusRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_event_retries_total",
			Help: "Total number of handler failures that were requeued for retry",
		},
		[]string{"event"},
	)

	BusDLQEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_dlq_entries_total",
			Help: "Total number of events dead-lettered after exhausting retries",
		},
		[]string{"event"},
	)

	BusDLQSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bus_dlq_size",
			Help: "Current number of entries held in the dead-letter queue",
		},
	)

	BusQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bus_queue_depth",
			Help: "Current number of events waiting in the bus queue",
		},
	)

	// Stage Agent Metrics
	AgentInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_invocations_total",
			Help: "Total number of stage agent invocations",
		},
		[]string{"agent", "outcome"}, // outcome: "ok", "error"
	)

	AgentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_duration_seconds",
			Help:    "Duration of stage agent invocations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	// Orchestrator Metrics
	OrchestratorEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_events_total",
			Help: "Total number of orchestrator lifecycle events",
		},
		[]string{"event"}, // "plan.generated", "diary.ingested", "dashboard.refresh"
	)

	// Realtime Metrics
	RealtimeBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_broadcasts_total",
			Help: "Total number of realtime broadcast attempts",
		},
		[]string{"event", "outcome"}, // outcome: "ok", "error", "dropped"
	)

	RealtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_clients",
			Help: "Current number of connected realtime clients",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 = closed, 1 = half-open, 2 = open)",
		},
		[]string{"name"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordEnqueued increments the enqueue counter for an event name.
func RecordEnqueued(event string) {
	BusEventsEnqueued.WithLabelValues(event).Inc()
}

// RecordProcessed increments the processed counter for an event name.
func RecordProcessed(event string) {
	BusEventsProcessed.WithLabelValues(event).Inc()
}

// RecordSkipped increments the idempotency-skip counter for an event name.
func RecordSkipped(event string) {
	BusEventsSkipped.WithLabelValues(event).Inc()
}

// RecordUnhandled increments the unhandled-drop counter for an event name.
func RecordUnhandled(event string) {
	BusEventsUnhandled.WithLabelValues(event).Inc()
}

// RecordRetry increments the retry counter for an event name.
func RecordRetry(event string) {
	BusRetries.WithLabelValues(event).Inc()
}

// RecordDLQ increments the dead-letter counter and updates the DLQ gauge.
func RecordDLQ(event string, dlqSize int) {
	BusDLQEntries.WithLabelValues(event).Inc()
	BusDLQSize.Set(float64(dlqSize))
}

// RecordAgentInvocation records one agent call with its outcome and duration.
func RecordAgentInvocation(agent string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AgentInvocations.WithLabelValues(agent, outcome).Inc()
	AgentDuration.WithLabelValues(agent).Observe(elapsed.Seconds())
}

// RecordOrchestratorEvent counts one orchestrator lifecycle event.
func RecordOrchestratorEvent(event string) {
	OrchestratorEvents.WithLabelValues(event).Inc()
}

// RecordBroadcast counts one realtime broadcast attempt.
func RecordBroadcast(event, outcome string) {
	RealtimeBroadcasts.WithLabelValues(event, outcome).Inc()
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, elapsed time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
