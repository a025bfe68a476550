// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package bus implements the in-process event bus that sequences the
// coaching pipeline: FIFO dispatch to one handler per event name,
// at-most-once delivery via idempotency keys, bounded tail-requeue
// retries, and a dead-letter queue for exhausted events.
//
// Delivery contract:
//
//   - Publish does not return until the drain cycle it triggered has
//     emptied the queue; everything the published event transitively
//     enqueued has completed, retried, or dead-lettered by then.
//   - Handlers never run concurrently. For one trace id, stage N's
//     event is fully processed before stage N+1's event is dequeued.
//   - Retries carry no backoff delay; fairness among failing events
//     comes from tail requeue rotating the queue.
package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/metrics"
)

// DLQEntry pairs a dead-lettered event with its final handler error.
type DLQEntry struct {
	Event *Event
	Err   error
}

// drainKey marks contexts owned by an active drain loop, so that
// publishes from inside a handler enqueue without starting a nested
// drain (the owning loop processes them before its Publish returns).
type drainKey struct{}

// Bus is a single-process publish/dispatch/retry/DLQ engine.
// The zero value is not usable; construct with New.
type Bus struct {
	// mu guards queue, handlers, processed, and dlq. It is held only
	// around queue/set mutation, never across handler execution.
	mu        sync.Mutex
	queue     []*Event
	handlers  map[string]Handler
	processed map[string]struct{}
	dlq       []DLQEntry

	// drainMu serializes drain loops so handlers execute one at a
	// time. It is not held while enqueueing, so publishers of
	// unrelated events are never blocked by a slow handler.
	drainMu sync.Mutex

	// maxAttempts is stamped onto events published without their own
	// MaxAttempts.
	maxAttempts int

	logger zerolog.Logger
}

// New creates an empty bus with DefaultMaxAttempts as the retry bound.
func New() *Bus {
	return NewWithMaxAttempts(DefaultMaxAttempts)
}

// NewWithMaxAttempts creates an empty bus whose events default to the
// given retry bound. Values below 1 fall back to DefaultMaxAttempts.
// Events published with an explicit MaxAttempts keep their own bound.
func NewWithMaxAttempts(maxAttempts int) *Bus {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Bus{
		handlers:    make(map[string]Handler),
		processed:   make(map[string]struct{}),
		maxAttempts: maxAttempts,
		logger:      logging.WithComponent("bus"),
	}
}

// Register binds the handler for an event name. Last registration wins.
func (b *Bus) Register(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = handler
}

// Publish enqueues the event and drains the queue until empty.
//
// If the event carries an idempotency key that was already processed,
// Publish returns immediately without enqueueing. The silent no-op is
// intentional: it makes re-publication after upstream partial failures
// safe.
//
// When called from inside a handler, Publish only enqueues; the drain
// loop that invoked the handler processes the new event before the
// top-level Publish returns.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	b.mu.Lock()
	if event.IdempotencyKey != "" {
		if _, done := b.processed[event.IdempotencyKey]; done {
			b.mu.Unlock()
			logging.Ctx(ctx).Debug().
				Str("event", event.Name).
				Str("idempotency_key", event.IdempotencyKey).
				Msg("event skipped")
			metrics.RecordSkipped(event.Name)
			return nil
		}
	}
	if event.MaxAttempts == 0 {
		event.MaxAttempts = b.maxAttempts
	}
	b.queue = append(b.queue, event)
	metrics.BusQueueDepth.Set(float64(len(b.queue)))
	b.mu.Unlock()

	metrics.RecordEnqueued(event.Name)

	if ctx.Value(drainKey{}) != nil {
		// Enqueued inside an active drain loop; it drains on our behalf.
		return nil
	}

	b.drainMu.Lock()
	defer b.drainMu.Unlock()
	b.drain(ctx)
	return nil
}

// drain processes queued events until the queue is empty. Must be
// called with drainMu held.
func (b *Bus) drain(ctx context.Context) {
	hctx := context.WithValue(ctx, drainKey{}, struct{}{})

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.mu.Unlock()
			return
		}
		event := b.queue[0]
		b.queue = b.queue[1:]
		metrics.BusQueueDepth.Set(float64(len(b.queue)))
		handler := b.handlers[event.Name]
		// A duplicate key can be sitting in the queue behind the copy
		// that just completed (Publish only dedups against events that
		// finished before it ran), so the processed set is re-checked
		// at dequeue time.
		var done bool
		if event.IdempotencyKey != "" {
			_, done = b.processed[event.IdempotencyKey]
		}
		b.mu.Unlock()

		if done {
			b.logger.Debug().
				Str("event", event.Name).
				Str("idempotency_key", event.IdempotencyKey).
				Msg("event skipped")
			metrics.RecordSkipped(event.Name)
			continue
		}

		if handler == nil {
			// Configuration error, not a transient failure: drop.
			b.logger.Error().
				Str("event", event.Name).
				Str("trace_id", event.TraceID).
				Msg("no handler registered, dropping event")
			metrics.RecordUnhandled(event.Name)
			continue
		}

		ectx := logging.ContextWithTraceID(hctx, event.TraceID)
		if err := handler(ectx, event); err != nil {
			b.handleFailure(event, err)
			continue
		}

		if event.IdempotencyKey != "" {
			b.mu.Lock()
			b.processed[event.IdempotencyKey] = struct{}{}
			b.mu.Unlock()
		}
		metrics.RecordProcessed(event.Name)
	}
}

// handleFailure requeues the failed event at the tail, or dead-letters
// it once the attempt budget is spent. Tail requeue (not head) yields
// round-robin fairness among failing events instead of a hot retry loop.
func (b *Bus) handleFailure(event *Event, err error) {
	event.Attempt++
	if event.Attempt < event.maxAttempts() {
		b.logger.Warn().
			Err(err).
			Str("event", event.Name).
			Str("trace_id", event.TraceID).
			Int("attempt", event.Attempt).
			Int("max_attempts", event.maxAttempts()).
			Msg("handler failed, requeueing")
		metrics.RecordRetry(event.Name)

		b.mu.Lock()
		b.queue = append(b.queue, event)
		metrics.BusQueueDepth.Set(float64(len(b.queue)))
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	b.dlq = append(b.dlq, DLQEntry{Event: event, Err: err})
	dlqSize := len(b.dlq)
	b.mu.Unlock()

	b.logger.Error().
		Err(err).
		Str("event", event.Name).
		Str("trace_id", event.TraceID).
		Int("attempt", event.Attempt).
		Msg("event dead-lettered")
	metrics.RecordDLQ(event.Name, dlqSize)
}

// DLQ returns a snapshot of the dead-letter queue for operator and test
// inspection. The list is not cleared.
func (b *Bus) DLQ() []DLQEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DLQEntry, len(b.dlq))
	copy(out, b.dlq)
	return out
}

// QueueLen reports the number of events currently waiting.
func (b *Bus) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// ProcessedCount reports the number of recorded idempotency keys.
func (b *Bus) ProcessedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.processed)
}
