// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package logging

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// contextKey is a private type for context keys defined by this package.
type contextKey string

const (
	// traceIDKey is the context key for pipeline trace ids.
	traceIDKey contextKey = "trace_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// GenerateTraceID creates a new trace id for a pipeline run.
// The hostname suffix eases correlation when logs from several
// nodes are aggregated.
func GenerateTraceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return uuid.New().String() + "-" + host
}

// ContextWithTraceID returns a new context carrying the given trace id.
//
//	ctx = logging.ContextWithTraceID(ctx, traceID)
func ContextWithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// TraceIDFromContext retrieves the trace id from context.
// Returns empty string if not present.
func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// EnsureTraceID returns the context's trace id, generating and attaching
// a fresh one when the context carries none.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if id := TraceIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateTraceID()
	return ContextWithTraceID(ctx, id), id
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the context's trace id automatically added.
// This is the recommended way to log inside handlers and stages.
//
//	logging.Ctx(ctx).Info().Msg("stage complete")
//	// {"level":"info","trace_id":"...","message":"stage complete"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		logger = logger.With().Str("trace_id", traceID).Logger()
	}
	return &logger
}

// CtxWith returns a logger context builder with the trace id pre-populated.
// Use this when additional fields are needed beyond the trace id.
//
//	logger := logging.CtxWith(ctx).Str("user", user).Logger()
func CtxWith(ctx context.Context) zerolog.Context {
	logCtx := LoggerFromContext(ctx).With()
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		logCtx = logCtx.Str("trace_id", traceID)
	}
	return logCtx
}
