// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package orchestrator is the public facade over the coaching system.
// It exposes four entry points: BuildPlan and IngestDiary run their
// stage agents directly (plan creation and diary parsing are not part
// of the retryable chain), RefreshDashboard runs the full chain inline
// for a synchronous read, and FullCycle composes all three under one
// trace id. IngestDiary additionally triggers the background chain by
// publishing calc.requested.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nutricoach/nutricoach/internal/agents"
	"github.com/nutricoach/nutricoach/internal/bus"
	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/metrics"
	"github.com/nutricoach/nutricoach/internal/models"
	"github.com/nutricoach/nutricoach/internal/pipeline"
	"github.com/nutricoach/nutricoach/internal/realtime"
	"github.com/nutricoach/nutricoach/internal/store"
)

// Precondition errors, surfaced synchronously to the caller. They are
// usage errors, not pipeline faults: no event is published and no
// write is performed when one is raised.
var (
	ErrNoPlan    = errors.New("orchestrator: no plan stored for user")
	ErrNoProfile = errors.New("orchestrator: no profile stored for user")
)

// ValidationError wraps profile validation failures so callers can map
// them to a 4xx response instead of a server fault.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "profile validation: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Orchestrator coordinates agents, storage, realtime, and the event
// bus. Construct with New; all dependencies are injected, there is no
// package-level instance.
type Orchestrator struct {
	repo     store.Repository
	pub      realtime.Publisher
	bus      *bus.Bus
	coord    *pipeline.Coordinator
	planner  *agents.Planner
	diary    *agents.Diary
	validate *validator.Validate
}

// New wires the orchestrator and registers the pipeline handlers on
// the bus.
func New(repo store.Repository, pub realtime.Publisher, b *bus.Bus, coord *pipeline.Coordinator) *Orchestrator {
	coord.Register(b)
	return &Orchestrator{
		repo:     repo,
		pub:      pub,
		bus:      b,
		coord:    coord,
		planner:  agents.NewPlanner(),
		diary:    agents.NewDiary(),
		validate: validator.New(),
	}
}

// BuildPlan validates the profile, generates the weekly plan, persists
// both, and broadcasts plan.updated. The returned notes are advisory
// clinical observations; they never block plan creation.
func (o *Orchestrator) BuildPlan(ctx context.Context, profile models.UserProfile, traceID string) (models.NutritionPlan, []string, error) {
	ctx, traceID = o.ensureTrace(ctx, traceID)

	if err := o.validate.Struct(profile); err != nil {
		return models.NutritionPlan{}, nil, &ValidationError{Err: err}
	}
	notes := clinicalNotes(profile)

	start := time.Now()
	out, err := o.planner.Run(agents.PlannerInput{
		TraceID:        traceID,
		PayloadVersion: pipeline.PayloadVersion,
		Profile:        profile,
	})
	metrics.RecordAgentInvocation("planner", err, time.Since(start))
	if err != nil {
		return models.NutritionPlan{}, nil, fmt.Errorf("planner stage: %w", err)
	}

	if err := o.repo.UpsertProfile(ctx, profile); err != nil {
		return models.NutritionPlan{}, nil, fmt.Errorf("persist profile: %w", err)
	}
	if err := o.repo.SavePlan(ctx, out.Plan); err != nil {
		return models.NutritionPlan{}, nil, fmt.Errorf("persist plan: %w", err)
	}

	o.broadcast(ctx, profile.Name, realtime.EventPlanUpdated, out.Plan)

	logging.Ctx(ctx).Info().
		Str("user", profile.Name).
		Int("days", len(out.Plan.Days)).
		Int("clinical_notes", len(notes)).
		Msg("plan generated")
	metrics.RecordOrchestratorEvent("plan.generated")
	return out.Plan, notes, nil
}

// IngestDiary parses the free-text entries into a structured log,
// persists it, broadcasts diary.processed, and triggers the background
// calc→trend→coach→dashboard chain. Publish drains synchronously, so
// by the time IngestDiary returns the downstream chain for this trace
// has completed or dead-lettered.
func (o *Orchestrator) IngestDiary(ctx context.Context, user string, entries []string, traceID string) (models.DailyLog, error) {
	ctx, traceID = o.ensureTrace(ctx, traceID)

	start := time.Now()
	out, err := o.diary.Run(agents.DiaryInput{
		TraceID:        traceID,
		PayloadVersion: pipeline.PayloadVersion,
		User:           user,
		Entries:        entries,
	})
	metrics.RecordAgentInvocation("diary", err, time.Since(start))
	if err != nil {
		return models.DailyLog{}, fmt.Errorf("diary stage: %w", err)
	}

	if err := o.repo.AppendLog(ctx, out.Log); err != nil {
		return models.DailyLog{}, fmt.Errorf("persist log: %w", err)
	}

	o.broadcast(ctx, user, realtime.EventDiaryProcessed, out.Log)

	logging.Ctx(ctx).Info().
		Str("user", user).
		Int("meals", len(out.Log.Meals)).
		Msg("diary ingested")
	metrics.RecordOrchestratorEvent("diary.ingested")

	if err := o.bus.Publish(ctx, pipeline.NewCalcEvent(user, traceID)); err != nil {
		return models.DailyLog{}, fmt.Errorf("trigger pipeline: %w", err)
	}
	return out.Log, nil
}

// RefreshDashboard runs the four stages inline, bypassing the bus, for
// a strongly-ordered synchronous read. Both a stored plan and a stored
// profile are required; precondition failures are raised before any
// stage runs or any write occurs.
func (o *Orchestrator) RefreshDashboard(ctx context.Context, user string, traceID string) (models.DashboardState, error) {
	ctx, traceID = o.ensureTrace(ctx, traceID)

	st, err := o.coord.LoadState(ctx, user)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoPlan) {
			return models.DashboardState{}, fmt.Errorf("%w: %s", ErrNoPlan, user)
		}
		return models.DashboardState{}, err
	}
	if st.Profile == nil {
		return models.DashboardState{}, fmt.Errorf("%w: %s", ErrNoProfile, user)
	}

	if err := o.coord.RunCalc(ctx, st, traceID); err != nil {
		return models.DashboardState{}, err
	}
	if err := o.coord.RunTrend(ctx, st, traceID); err != nil {
		return models.DashboardState{}, err
	}
	if err := o.coord.RunCoach(ctx, st, traceID); err != nil {
		return models.DashboardState{}, err
	}
	board, err := o.coord.RunDashboard(ctx, st, traceID)
	if err != nil {
		return models.DashboardState{}, err
	}

	metrics.RecordOrchestratorEvent("dashboard.refresh")
	return board, nil
}

// FullCycle runs plan generation, diary ingestion, and a synchronous
// dashboard refresh in sequence under one trace id.
func (o *Orchestrator) FullCycle(ctx context.Context, profile models.UserProfile, diary []string, traceID string) (models.DashboardState, error) {
	ctx, traceID = o.ensureTrace(ctx, traceID)

	if _, _, err := o.BuildPlan(ctx, profile, traceID); err != nil {
		return models.DashboardState{}, err
	}
	if _, err := o.IngestDiary(ctx, profile.Name, diary, traceID); err != nil {
		return models.DashboardState{}, err
	}
	return o.RefreshDashboard(ctx, profile.Name, traceID)
}

// CachedDashboard returns the last persisted dashboard without running
// any stage.
func (o *Orchestrator) CachedDashboard(ctx context.Context, user string) (models.DashboardState, error) {
	return o.repo.Dashboard(ctx, user)
}

// DLQ exposes the bus dead-letter queue for operator introspection.
func (o *Orchestrator) DLQ() []bus.DLQEntry {
	return o.bus.DLQ()
}

// ensureTrace threads the trace id through the context, generating one
// when the caller did not supply it.
func (o *Orchestrator) ensureTrace(ctx context.Context, traceID string) (context.Context, string) {
	if traceID == "" {
		if existing := logging.TraceIDFromContext(ctx); existing != "" {
			return ctx, existing
		}
		traceID = logging.GenerateTraceID()
	}
	return logging.ContextWithTraceID(ctx, traceID), traceID
}

// broadcast is best-effort: failures are logged, never escalated.
func (o *Orchestrator) broadcast(ctx context.Context, user, event string, data any) {
	if err := o.pub.Broadcast(ctx, realtime.UserChannel(user), event, data); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user", user).
			Str("event", event).
			Msg("broadcast failed")
	}
}
