// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/models"
	"github.com/nutricoach/nutricoach/internal/orchestrator"
	"github.com/nutricoach/nutricoach/internal/realtime"
	"github.com/nutricoach/nutricoach/internal/store"
)

// maxBodyBytes caps request bodies. Diary entries are short text
// lines; anything larger is abuse.
const maxBodyBytes = 1 << 20

// Handlers holds the dependencies of every HTTP endpoint.
type Handlers struct {
	orch     *orchestrator.Orchestrator
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewHandlers wires the endpoint dependencies. hub may be nil, in
// which case the websocket endpoint answers 503.
func NewHandlers(orch *orchestrator.Orchestrator, hub *realtime.Hub) *Handlers {
	return &Handlers{
		orch: orch,
		hub:  hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS middleware on the
			// REST surface; the socket carries no credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

type planRequest struct {
	Profile models.UserProfile `json:"profile"`
}

type planResponse struct {
	Plan          models.NutritionPlan `json:"plan"`
	ClinicalNotes []string             `json:"clinical_notes"`
}

// handleBuildPlan generates and persists a nutrition plan for the
// submitted profile.
func (h *Handlers) handleBuildPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}

	plan, notes, err := h.orch.BuildPlan(r.Context(), req.Profile, logging.TraceIDFromContext(r.Context()))
	if err != nil {
		var verr *orchestrator.ValidationError
		if errors.As(err, &verr) {
			respondError(w, r, http.StatusBadRequest, "INVALID_PROFILE", verr.Error(), err)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "PLAN_FAILED", "failed to build plan", err)
		return
	}

	if notes == nil {
		notes = []string{}
	}
	respondJSON(w, r, http.StatusCreated, planResponse{Plan: plan, ClinicalNotes: notes})
}

type diaryRequest struct {
	User    string   `json:"user"`
	Entries []string `json:"entries"`
}

type diaryResponse struct {
	Log models.DailyLog `json:"log"`
}

// handleIngestDiary parses diary entries into a daily log and kicks
// off the recalculation chain for the user.
func (h *Handlers) handleIngestDiary(w http.ResponseWriter, r *http.Request) {
	var req diaryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.User == "" {
		respondError(w, r, http.StatusBadRequest, "MISSING_USER", "user is required", nil)
		return
	}
	if len(req.Entries) == 0 {
		respondError(w, r, http.StatusBadRequest, "EMPTY_DIARY", "entries must not be empty", nil)
		return
	}

	log, err := h.orch.IngestDiary(r.Context(), req.User, req.Entries, logging.TraceIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "DIARY_FAILED", "failed to ingest diary", err)
		return
	}

	respondJSON(w, r, http.StatusCreated, diaryResponse{Log: log})
}

// handleRefreshDashboard recomputes the dashboard synchronously from
// the stored plan, profile and logs.
func (h *Handlers) handleRefreshDashboard(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	dashboard, err := h.orch.RefreshDashboard(r.Context(), user, logging.TraceIDFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrNoPlan):
			respondError(w, r, http.StatusNotFound, "NO_PLAN", "no plan stored for user", err)
		case errors.Is(err, orchestrator.ErrNoProfile):
			respondError(w, r, http.StatusNotFound, "NO_PROFILE", "no profile stored for user", err)
		default:
			respondError(w, r, http.StatusInternalServerError, "DASHBOARD_FAILED", "failed to refresh dashboard", err)
		}
		return
	}

	respondJSON(w, r, http.StatusOK, dashboard)
}

// handleCachedDashboard returns the last persisted dashboard without
// recomputing anything.
func (h *Handlers) handleCachedDashboard(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	dashboard, err := h.orch.CachedDashboard(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "NO_DASHBOARD", "no dashboard stored for user", err)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "DASHBOARD_FAILED", "failed to load dashboard", err)
		return
	}

	respondJSON(w, r, http.StatusOK, dashboard)
}

type cycleRequest struct {
	Profile models.UserProfile `json:"profile"`
	Diary   []string           `json:"diary"`
}

// handleFullCycle runs plan generation, diary ingestion and dashboard
// refresh under a single trace.
func (h *Handlers) handleFullCycle(w http.ResponseWriter, r *http.Request) {
	var req cycleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dashboard, err := h.orch.FullCycle(r.Context(), req.Profile, req.Diary, logging.TraceIDFromContext(r.Context()))
	if err != nil {
		var verr *orchestrator.ValidationError
		if errors.As(err, &verr) {
			respondError(w, r, http.StatusBadRequest, "INVALID_PROFILE", verr.Error(), err)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "CYCLE_FAILED", "failed to run full cycle", err)
		return
	}

	respondJSON(w, r, http.StatusOK, dashboard)
}

type dlqEntry struct {
	Event          string `json:"event"`
	TraceID        string `json:"trace_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Attempts       int    `json:"attempts"`
	Error          string `json:"error"`
}

type dlqResponse struct {
	Entries []dlqEntry `json:"entries"`
	Count   int        `json:"count"`
}

// handleDLQ exposes dead-lettered events for operators.
func (h *Handlers) handleDLQ(w http.ResponseWriter, r *http.Request) {
	raw := h.orch.DLQ()
	entries := make([]dlqEntry, 0, len(raw))
	for _, e := range raw {
		entry := dlqEntry{
			Event:          e.Event.Name,
			TraceID:        e.Event.TraceID,
			IdempotencyKey: e.Event.IdempotencyKey,
			Attempts:       e.Event.Attempt,
		}
		if e.Err != nil {
			entry.Error = e.Err.Error()
		}
		entries = append(entries, entry)
	}

	respondJSON(w, r, http.StatusOK, dlqResponse{Entries: entries, Count: len(entries)})
}

// handleWebSocket upgrades the connection and registers the client on
// the hub, subscribed to the user channel from the query string. An
// empty user subscribes to every channel.
func (h *Handlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, "REALTIME_DISABLED", "realtime updates are disabled", nil)
		return
	}

	channel := ""
	if user := r.URL.Query().Get("user"); user != "" {
		channel = realtime.UserChannel(user)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.hub, conn, channel)
	h.hub.Register <- client
	client.Start()

	logging.Debug().
		Uint64("client_id", client.ID()).
		Str("channel", channel).
		Msg("websocket client connected")
}

// handleHealth reports liveness.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody decodes the JSON request body into v, answering 400 on
// malformed input. Returns false when a response was already written.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "invalid request body", err)
		return false
	}
	return true
}
