// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package realtime

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/metrics"
)

// BreakerPublisher wraps a Publisher with a circuit breaker so a
// persistently failing downstream (a wedged hub, a full queue) cannot
// slow the pipeline down. While the circuit is open broadcasts are
// rejected immediately; callers already treat broadcast errors as
// non-fatal, so an open circuit degrades to silence rather than
// failure.
//
// Circuit breaker configuration:
// - Max 3 requests allowed through in half-open state
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker[interface{}]
}

// NewBreakerPublisher wraps next with a named circuit breaker.
func NewBreakerPublisher(name string, next Publisher) *BreakerPublisher {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening realtime broadcast circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToGauge(to))
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("realtime broadcast circuit state changed")
		},
	})

	return &BreakerPublisher{next: next, cb: cb}
}

// Broadcast forwards to the wrapped publisher through the breaker.
func (p *BreakerPublisher) Broadcast(ctx context.Context, channel, event string, data any) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.next.Broadcast(ctx, channel, event, data)
	})
	if err != nil {
		metrics.RecordBroadcast(event, "error")
	}
	return err
}

// State exposes the underlying breaker state for introspection.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.cb.State()
}

func stateToGauge(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
