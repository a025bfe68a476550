// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package api

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/nutricoach/nutricoach/internal/logging"
)

// errorBody is the JSON error envelope returned by every non-2xx
// response.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	TraceID string `json:"trace_id,omitempty"`
}

// respondJSON writes v as JSON with an FNV-1a ETag. Marshaling happens
// before headers are written so an encode failure still yields a clean
// 500 instead of a truncated body.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Msg("failed to encode response")
		http.Error(w, `{"error":"internal server error","code":"ENCODE_FAILED"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if status == http.StatusOK {
		w.Header().Set("ETag", generateETag(data))
	}
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("failed to write response body")
	}
}

// respondError writes the error envelope and logs the underlying
// cause. The client sees message and code only; err stays in the
// logs.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	traceID := logging.TraceIDFromContext(r.Context())

	evt := logging.Warn()
	if status >= http.StatusInternalServerError {
		evt = logging.Error()
	}
	evt.Err(err).
		Int("status", status).
		Str("code", code).
		Str("method", r.Method).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg(message)

	respondJSON(w, r, status, errorBody{Error: message, Code: code, TraceID: traceID})
}

// generateETag computes a weak ETag from the response body using
// FNV-1a. Weak because the body is semantically, not byte-for-byte,
// stable across encodes.
func generateETag(data []byte) string {
	h := fnv.New64a()
	h.Write(data) //nolint:errcheck // hash.Hash never returns an error
	return fmt.Sprintf(`W/"%x"`, h.Sum64())
}

// sanitizeLogValue strips CR/LF so attacker-controlled strings cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
