// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package bus

import "context"

// DefaultMaxAttempts caps handler retries for events that do not
// specify their own limit.
const DefaultMaxAttempts = 3

// Event is one unit of pipeline work. Events are created at publish time
// and discarded after successful handling or final dead-letter placement.
//
// Payload is a tagged payload struct owned by the publishing package
// (see pipeline.CalcRequested and friends); handlers type-assert it to
// the shape registered for the event name.
type Event struct {
	// Name routes the event to its registered handler.
	Name string

	// Payload carries the stage-specific input.
	Payload any

	// TraceID correlates every event of one pipeline run.
	TraceID string

	// Attempt counts completed handler invocations that failed.
	// The first delivery observes Attempt == 0.
	Attempt int

	// MaxAttempts bounds total handler invocations before the event
	// is dead-lettered. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Version tags the payload schema for forward compatibility.
	Version string

	// IdempotencyKey, when non-empty, guarantees at-most-once handler
	// execution for the lifetime of the bus instance. Convention:
	// "{stage}:{user}:{version}:{trace_id}".
	IdempotencyKey string

	// Metadata carries optional free-form annotations; the bus never
	// inspects it.
	Metadata map[string]string
}

// maxAttempts returns the effective retry bound for the event.
func (e *Event) maxAttempts() int {
	if e.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return e.MaxAttempts
}

// Handler processes one event. A non-nil error marks the delivery as
// failed; the bus retries up to the event's attempt budget and then
// dead-letters. Handlers must not retain the event past return.
type Handler func(ctx context.Context, event *Event) error
