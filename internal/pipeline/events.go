// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package pipeline

import (
	"fmt"

	"github.com/nutricoach/nutricoach/internal/bus"
)

// PayloadVersion tags every pipeline event payload. Bump it when a
// payload shape changes incompatibly; the version participates in
// idempotency keys so replays across versions never collide.
const PayloadVersion = "v1"

// Pipeline event names, in chain order.
const (
	EventCalcRequested      = "calc.requested"
	EventTrendRequested     = "trend.requested"
	EventCoachRequested     = "coach.requested"
	EventDashboardRequested = "dashboard.requested"
)

// Tagged payload types. Each event name maps to exactly one payload
// shape, so handlers type-assert instead of digging through maps.
// CalcRequested carries only the user: the calc handler reconstructs
// the run state from the repository. Every later stage carries the
// state forward.
type (
	// CalcRequested triggers a fresh pipeline run for a user.
	CalcRequested struct {
		User string
	}

	// TrendRequested carries the state after calc.
	TrendRequested struct {
		State *State
	}

	// CoachRequested carries the state after trend.
	CoachRequested struct {
		State *State
	}

	// DashboardRequested carries the fully accumulated state.
	DashboardRequested struct {
		State *State
	}
)

// IdempotencyKey builds the at-most-once delivery key for one stage of
// one run: "{stage}:{user}:{version}:{trace_id}".
func IdempotencyKey(stage, user, version, traceID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", stage, user, version, traceID)
}

// NewCalcEvent builds the event that starts a pipeline run.
func NewCalcEvent(user, traceID string) *bus.Event {
	return &bus.Event{
		Name:           EventCalcRequested,
		Payload:        CalcRequested{User: user},
		TraceID:        traceID,
		Version:        PayloadVersion,
		IdempotencyKey: IdempotencyKey(EventCalcRequested, user, PayloadVersion, traceID),
	}
}
