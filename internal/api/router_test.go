// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/nutricoach/nutricoach/internal/bus"
	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/models"
	"github.com/nutricoach/nutricoach/internal/orchestrator"
	"github.com/nutricoach/nutricoach/internal/pipeline"
	"github.com/nutricoach/nutricoach/internal/realtime"
	"github.com/nutricoach/nutricoach/internal/store"
)

//nolint:gochecknoinits // silence logging for the whole test package
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := store.NewMemoryRepository()
	pub := realtime.LogPublisher{}
	b := bus.New()
	coord := pipeline.NewCoordinator(pipeline.DefaultAgents(), repo, pub)
	orch := orchestrator.New(repo, pub, b, coord)

	cfg := DefaultMiddlewareConfig()
	cfg.RateLimitDisabled = true
	return NewRouter(NewHandlers(orch, nil), cfg)
}

func validProfileJSON() string {
	return `{"profile":{
		"name":"ana","age":32,"weight_kg":65,"height_cm":168,
		"sex":"female","activity_level":"moderate","goal":"maintain"
	}}`
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q, want application/json", ct)
	}
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("expected X-Trace-ID header on response")
	}
}

func TestBuildPlanEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/plan", validProfileJSON())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp planResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Plan.User != "ana" {
		t.Errorf("plan user = %q, want %q", resp.Plan.User, "ana")
	}
	if len(resp.Plan.Days) != 7 {
		t.Errorf("plan days = %d, want 7", len(resp.Plan.Days))
	}
	if resp.ClinicalNotes == nil {
		t.Error("clinical_notes should be an array, not null")
	}
}

func TestBuildPlanRejectsInvalidProfile(t *testing.T) {
	router := newTestRouter(t)

	body := `{"profile":{"name":"kid","age":12,"weight_kg":40,"height_cm":150,
		"sex":"male","activity_level":"light","goal":"maintain"}}`
	rec := doJSON(t, router, http.MethodPost, "/api/v1/plan", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var resp errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "INVALID_PROFILE" {
		t.Errorf("code = %q, want INVALID_PROFILE", resp.Code)
	}
}

func TestBuildPlanRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/plan", `{"profile":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDiaryEndpointRunsChain(t *testing.T) {
	router := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/api/v1/plan", validProfileJSON()); rec.Code != http.StatusCreated {
		t.Fatalf("plan setup failed: %d %s", rec.Code, rec.Body.String())
	}

	body := `{"user":"ana","entries":["Breakfast: oats 80g with banana 100g"]}`
	rec := doJSON(t, router, http.MethodPost, "/api/v1/diary", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp diaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Log.Meals) == 0 {
		t.Error("expected parsed meals in the returned log")
	}

	// The chain is drained before IngestDiary returns, so the cached
	// dashboard must exist immediately.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/dashboard/ana/cached", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cached dashboard status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDiaryEndpointValidatesInput(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing user", `{"entries":["Lunch: rice 100g"]}`, "MISSING_USER"},
		{"empty entries", `{"user":"ana","entries":[]}`, "EMPTY_DIARY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/diary", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			var resp errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestDashboardEndpointPreconditions(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/dashboard/ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var resp errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "NO_PLAN" {
		t.Errorf("code = %q, want NO_PLAN", resp.Code)
	}
}

func TestDashboardEndpointRefreshes(t *testing.T) {
	router := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/api/v1/plan", validProfileJSON()); rec.Code != http.StatusCreated {
		t.Fatalf("plan setup failed: %d", rec.Code)
	}
	body := `{"user":"ana","entries":["Dinner: salmon 150g with brown rice 120g"]}`
	if rec := doJSON(t, router, http.MethodPost, "/api/v1/diary", body); rec.Code != http.StatusCreated {
		t.Fatalf("diary setup failed: %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/dashboard/ana", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var dashboard models.DashboardState
	if err := json.Unmarshal(rec.Body.Bytes(), &dashboard); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dashboard.User != "ana" {
		t.Errorf("dashboard user = %q, want %q", dashboard.User, "ana")
	}
	if len(dashboard.Cards) == 0 {
		t.Error("expected dashboard cards")
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("expected ETag on 200 response")
	}
}

func TestCachedDashboardMissing(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/dashboard/ghost/cached", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFullCycleEndpoint(t *testing.T) {
	router := newTestRouter(t)

	var body bytes.Buffer
	body.WriteString(`{"profile":{"name":"bruno","age":41,"weight_kg":82,"height_cm":180,
		"sex":"male","activity_level":"light","goal":"cut"},
		"diary":["Breakfast: egg 100g with bread 60g","Lunch: grilled chicken 150g"]}`)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cycle", body.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var dashboard models.DashboardState
	if err := json.Unmarshal(rec.Body.Bytes(), &dashboard); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if dashboard.User != "bruno" {
		t.Errorf("dashboard user = %q, want %q", dashboard.User, "bruno")
	}
}

func TestDLQEndpointEmpty(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/dlq", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp dlqResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
	if resp.Entries == nil {
		t.Error("entries should be an array, not null")
	}
}

func TestWebSocketDisabled(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/ws?user=ana", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	repo := store.NewMemoryRepository()
	hub := realtime.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	b := bus.New()
	coord := pipeline.NewCoordinator(pipeline.DefaultAgents(), repo, hub)
	orch := orchestrator.New(repo, hub, b, coord)

	cfg := DefaultMiddlewareConfig()
	cfg.RateLimitDisabled = true
	srv := httptest.NewServer(NewRouter(NewHandlers(orch, hub), cfg))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=ana"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// Give the hub time to register the client before broadcasting.
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() == 0 {
		t.Fatal("client never registered on the hub")
	}

	if err := hub.Broadcast(context.Background(), realtime.UserChannel("ana"), realtime.EventDashboardUpdated, map[string]string{"hello": "ana"}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	var msg realtime.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != realtime.EventDashboardUpdated {
		t.Errorf("event = %q, want %q", msg.Event, realtime.EventDashboardUpdated)
	}
	if msg.Channel != "user:ana" {
		t.Errorf("channel = %q, want user:ana", msg.Channel)
	}
}

func TestTraceHeaderPropagated(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Trace-ID", "trace-from-client")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Trace-ID"); got != "trace-from-client" {
		t.Errorf("X-Trace-ID = %q, want %q", got, "trace-from-client")
	}
}

func TestRateLimitEnforced(t *testing.T) {
	repo := store.NewMemoryRepository()
	pub := realtime.LogPublisher{}
	b := bus.New()
	coord := pipeline.NewCoordinator(pipeline.DefaultAgents(), repo, pub)
	orch := orchestrator.New(repo, pub, b, coord)

	cfg := DefaultMiddlewareConfig()
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Minute
	router := NewRouter(NewHandlers(orch, nil), cfg)

	var last int
	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/dlq", "")
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want %d", last, http.StatusTooManyRequests)
	}
}
