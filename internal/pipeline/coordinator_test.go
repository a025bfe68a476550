// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nutricoach/nutricoach/internal/agents"
	"github.com/nutricoach/nutricoach/internal/bus"
	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/models"
	"github.com/nutricoach/nutricoach/internal/store"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "disabled",
		Output: io.Discard,
	})
}

// recordingPublisher captures broadcasts for assertion.
type recordingPublisher struct {
	mu    sync.Mutex
	calls []broadcastCall
}

type broadcastCall struct {
	Channel string
	Event   string
}

func (p *recordingPublisher) Broadcast(_ context.Context, channel, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, broadcastCall{Channel: channel, Event: event})
	return nil
}

func (p *recordingPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.Event == event {
			n++
		}
	}
	return n
}

func testProfile() models.UserProfile {
	return models.UserProfile{
		Name:          "ana",
		Age:           32,
		WeightKg:      65,
		HeightCm:      168,
		Sex:           models.SexFemale,
		ActivityLevel: models.ActivityModerate,
		Goal:          models.GoalMaintain,
	}
}

func testLog(user string) models.DailyLog {
	date := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	return models.DailyLog{
		User: user,
		Date: date,
		Meals: []models.MealEntry{
			{
				Timestamp:   date.Add(7 * time.Hour),
				Description: "egg and bread",
				Items: []models.FoodPortion{
					{Label: "egg", Quantity: 100, Unit: "g"},
					{Label: "bread", Quantity: 60, Unit: "g"},
				},
			},
			{
				Timestamp:   date.Add(12 * time.Hour),
				Description: "chicken and rice",
				Items: []models.FoodPortion{
					{Label: "chicken_breast", Quantity: 120, Unit: "g"},
					{Label: "brown_rice", Quantity: 150, Unit: "g"},
				},
			},
		},
	}
}

// seededCoordinator returns a coordinator over a repository pre-loaded
// with a profile, a generated plan, and one diary log.
func seededCoordinator(t *testing.T) (*Coordinator, *recordingPublisher, store.Repository) {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemoryRepository()

	profile := testProfile()
	if err := repo.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	out, err := agents.NewPlanner().Run(agents.PlannerInput{
		TraceID:        "seed-trace",
		PayloadVersion: PayloadVersion,
		Profile:        profile,
	})
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	if err := repo.SavePlan(ctx, out.Plan); err != nil {
		t.Fatalf("save plan: %v", err)
	}

	if err := repo.AppendLog(ctx, testLog("ana")); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	pub := &recordingPublisher{}
	return NewCoordinator(DefaultAgents(), repo, pub), pub, repo
}

func TestChainPersistsAndBroadcastsOnce(t *testing.T) {
	coord, pub, repo := seededCoordinator(t)
	b := bus.New()
	coord.Register(b)

	if err := b.Publish(context.Background(), NewCalcEvent("ana", "trace-1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if dlq := b.DLQ(); len(dlq) != 0 {
		t.Fatalf("DLQ has %d entries: %v", len(dlq), dlq[0].Err)
	}

	dash, err := repo.Dashboard(context.Background(), "ana")
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if dash.User != "ana" {
		t.Fatalf("dashboard user = %q", dash.User)
	}
	if len(dash.Cards) == 0 || len(dash.Charts) == 0 {
		t.Fatal("dashboard missing cards or charts")
	}
	if len(dash.CoachMessages) == 0 {
		t.Fatal("dashboard missing coach messages")
	}

	if got := pub.count("dashboard.updated"); got != 1 {
		t.Fatalf("dashboard.updated broadcast %d times, want 1", got)
	}
	if pub.calls[0].Channel != "user:ana" {
		t.Fatalf("broadcast channel = %q, want user:ana", pub.calls[0].Channel)
	}
}

func TestChainReplayIsIdempotent(t *testing.T) {
	coord, pub, _ := seededCoordinator(t)
	b := bus.New()
	coord.Register(b)

	event := NewCalcEvent("ana", "trace-replay")
	if err := b.Publish(context.Background(), event); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := b.Publish(context.Background(), NewCalcEvent("ana", "trace-replay")); err != nil {
		t.Fatalf("second publish: %v", err)
	}

	if got := pub.count("dashboard.updated"); got != 1 {
		t.Fatalf("replay broadcast dashboard.updated %d times, want 1", got)
	}
}

func TestSeparateTracesRunIndependently(t *testing.T) {
	coord, pub, _ := seededCoordinator(t)
	b := bus.New()
	coord.Register(b)

	for _, trace := range []string{"trace-a", "trace-b"} {
		if err := b.Publish(context.Background(), NewCalcEvent("ana", trace)); err != nil {
			t.Fatalf("publish %s: %v", trace, err)
		}
	}

	if got := pub.count("dashboard.updated"); got != 2 {
		t.Fatalf("dashboard.updated broadcast %d times, want 2", got)
	}
}

func TestCalcWithoutPlanDeadLetters(t *testing.T) {
	repo := store.NewMemoryRepository()
	pub := &recordingPublisher{}
	coord := NewCoordinator(DefaultAgents(), repo, pub)
	b := bus.New()
	coord.Register(b)

	if err := b.Publish(context.Background(), NewCalcEvent("ghost", "trace-ghost")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	dlq := b.DLQ()
	if len(dlq) != 1 {
		t.Fatalf("DLQ has %d entries, want 1", len(dlq))
	}
	if !errors.Is(dlq[0].Err, ErrNoPlan) {
		t.Fatalf("DLQ error = %v, want ErrNoPlan", dlq[0].Err)
	}
	if got := pub.count("dashboard.updated"); got != 0 {
		t.Fatalf("dashboard broadcast despite missing plan")
	}
}

func TestInlineStagesAccumulateMonotonically(t *testing.T) {
	coord, _, _ := seededCoordinator(t)
	ctx := context.Background()

	st, err := coord.LoadState(ctx, "ana")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.Profile == nil || st.Plan.User != "ana" || len(st.Logs) != 1 {
		t.Fatal("state not reconstructed from repository")
	}
	if st.Calc != nil || st.Trends != nil || st.CoachMessages != nil {
		t.Fatal("fresh state carries stage output")
	}

	if err := coord.RunCalc(ctx, st, "trace-inline"); err != nil {
		t.Fatalf("RunCalc: %v", err)
	}
	if st.Calc == nil {
		t.Fatal("calc snapshot not written")
	}
	if st.Calc.Macros.Calories <= 0 {
		t.Fatalf("calc estimated %.1f calories", st.Calc.Macros.Calories)
	}

	if err := coord.RunTrend(ctx, st, "trace-inline"); err != nil {
		t.Fatalf("RunTrend: %v", err)
	}
	if len(st.Trends) == 0 {
		t.Fatal("trend insights not written")
	}

	if err := coord.RunCoach(ctx, st, "trace-inline"); err != nil {
		t.Fatalf("RunCoach: %v", err)
	}
	if len(st.CoachMessages) == 0 {
		t.Fatal("coach messages not written")
	}

	dash, err := coord.RunDashboard(ctx, st, "trace-inline")
	if err != nil {
		t.Fatalf("RunDashboard: %v", err)
	}
	if dash.User != "ana" {
		t.Fatalf("dashboard user = %q", dash.User)
	}
}

func TestLoadStateMissingPlan(t *testing.T) {
	repo := store.NewMemoryRepository()
	coord := NewCoordinator(DefaultAgents(), repo, &recordingPublisher{})

	_, err := coord.LoadState(context.Background(), "ghost")
	if !errors.Is(err, ErrNoPlan) {
		t.Fatalf("LoadState error = %v, want ErrNoPlan", err)
	}
}

func TestRunCoachRequiresCalcSnapshot(t *testing.T) {
	coord, _, _ := seededCoordinator(t)
	st := &State{User: "ana"}

	if err := coord.RunCoach(context.Background(), st, "trace-x"); err == nil {
		t.Fatal("RunCoach accepted state without calc snapshot")
	}
	if _, err := coord.RunDashboard(context.Background(), st, "trace-x"); err == nil {
		t.Fatal("RunDashboard accepted state without calc snapshot")
	}
}

func TestIdempotencyKeyFormat(t *testing.T) {
	got := IdempotencyKey(EventTrendRequested, "ana", PayloadVersion, "trace-9")
	want := "trend.requested:ana:v1:trace-9"
	if got != want {
		t.Fatalf("IdempotencyKey = %q, want %q", got, want)
	}
}

func TestNewCalcEventShape(t *testing.T) {
	ev := NewCalcEvent("ana", "trace-7")
	if ev.Name != EventCalcRequested {
		t.Fatalf("event name = %q", ev.Name)
	}
	payload, ok := ev.Payload.(CalcRequested)
	if !ok || payload.User != "ana" {
		t.Fatalf("payload = %#v", ev.Payload)
	}
	if ev.IdempotencyKey != "calc.requested:ana:v1:trace-7" {
		t.Fatalf("idempotency key = %q", ev.IdempotencyKey)
	}
	if ev.Version != PayloadVersion {
		t.Fatalf("version = %q", ev.Version)
	}
}
