// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package realtime pushes pipeline results to connected dashboard
// clients over websockets. Broadcasting is fire-and-forget: a failed
// or dropped broadcast is logged and counted but never propagated
// back into the pipeline, which treats persistence as its durability
// boundary.
package realtime

import (
	"context"

	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/metrics"
)

// Well-known broadcast event names.
const (
	EventPlanUpdated      = "plan.updated"
	EventDiaryProcessed   = "diary.processed"
	EventDashboardUpdated = "dashboard.updated"
	EventPing             = "ping"
	EventPong             = "pong"
)

// Message is one websocket frame. Channel scopes delivery to the
// subscribers of a single user ("user:{name}"); an empty channel
// reaches every client.
type Message struct {
	Channel string `json:"channel,omitempty"`
	Event   string `json:"event"`
	Data    any    `json:"data,omitempty"`
}

// Publisher delivers a payload to the subscribers of a channel.
// Implementations must be safe for concurrent use. Callers log and
// swallow errors; a broadcast failure never aborts the work that
// produced the payload.
type Publisher interface {
	Broadcast(ctx context.Context, channel, event string, data any) error
}

// UserChannel returns the per-user channel name.
func UserChannel(user string) string {
	return "user:" + user
}

// LogPublisher writes broadcasts to the log instead of a socket.
// Used in tests and headless runs where no hub is wired.
type LogPublisher struct{}

// Broadcast logs the message and reports success.
func (LogPublisher) Broadcast(ctx context.Context, channel, event string, data any) error {
	logging.Ctx(ctx).Debug().
		Str("channel", channel).
		Str("event", event).
		Msg("realtime broadcast (log only)")
	metrics.RecordBroadcast(event, "ok")
	return nil
}
