// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nutricoach/nutricoach/internal/agents"
	"github.com/nutricoach/nutricoach/internal/bus"
	"github.com/nutricoach/nutricoach/internal/logging"
	"github.com/nutricoach/nutricoach/internal/metrics"
	"github.com/nutricoach/nutricoach/internal/models"
	"github.com/nutricoach/nutricoach/internal/realtime"
	"github.com/nutricoach/nutricoach/internal/store"
)

// ErrNoPlan reports that a pipeline run was requested for a user with
// no stored plan. Calc cannot reconstruct a run state without one.
var ErrNoPlan = errors.New("pipeline: no plan for user")

// Agents bundles the stage agents the coordinator drives.
type Agents struct {
	Calc      *agents.Calc
	Trend     *agents.Trend
	Coach     *agents.Coach
	Dashboard *agents.Dashboard
}

// DefaultAgents returns the production stage agents.
func DefaultAgents() Agents {
	return Agents{
		Calc:      agents.NewCalc(),
		Trend:     agents.NewTrend(),
		Coach:     agents.NewCoach(),
		Dashboard: agents.NewDashboard(),
	}
}

// Coordinator binds the stage agents to the event bus and carries the
// run state between them. Stage methods are also directly callable for
// the synchronous refresh path; the bus handlers reuse them.
type Coordinator struct {
	agents Agents
	repo   store.Repository
	pub    realtime.Publisher
}

// NewCoordinator wires the coordinator. All dependencies are required.
func NewCoordinator(ag Agents, repo store.Repository, pub realtime.Publisher) *Coordinator {
	return &Coordinator{agents: ag, repo: repo, pub: pub}
}

// Register binds the four stage handlers. Call once before publishing.
func (c *Coordinator) Register(b *bus.Bus) {
	b.Register(EventCalcRequested, c.handleCalc(b))
	b.Register(EventTrendRequested, c.handleTrend(b))
	b.Register(EventCoachRequested, c.handleCoach(b))
	b.Register(EventDashboardRequested, c.handleDashboard)
}

// LoadState reconstructs a fresh run state from the repository. A
// missing plan is fatal (ErrNoPlan); a missing profile or empty log
// history degrade gracefully because calc can fall back to the plan's
// recorded targets.
func (c *Coordinator) LoadState(ctx context.Context, user string) (*State, error) {
	plan, err := c.repo.LatestPlan(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoPlan, user)
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}

	st := &State{User: user, Plan: plan}

	profile, err := c.repo.GetProfile(ctx, user)
	switch {
	case err == nil:
		st.Profile = &profile
	case errors.Is(err, store.ErrNotFound):
		// Plan-only targets; calc tolerates a nil profile.
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	logs, err := c.repo.Logs(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load logs: %w", err)
	}
	st.Logs = logs

	return st, nil
}

// RunCalc executes the calc stage and writes its snapshot into state.
func (c *Coordinator) RunCalc(ctx context.Context, st *State, traceID string) error {
	var latest *models.DailyLog
	if n := len(st.Logs); n > 0 {
		latest = &st.Logs[n-1]
	}

	start := time.Now()
	out, err := c.agents.Calc.Run(agents.CalcInput{
		TraceID:        traceID,
		PayloadVersion: PayloadVersion,
		Plan:           st.Plan,
		Profile:        st.Profile,
		Log:            latest,
	})
	metrics.RecordAgentInvocation("calc", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("calc stage: %w", err)
	}

	st.Calc = &CalcSnapshot{
		Macros:       out.Macros,
		MacroTargets: out.MacroTargets,
		Micros:       out.Micros,
		MicroTargets: out.MicroTargets,
		HydrationL:   out.HydrationL,
		Metabolism:   out.Metabolism,
		Projection:   out.WeeklyProjection,
		Alerts:       out.Alerts,
	}
	logging.Ctx(ctx).Debug().
		Str("user", st.User).
		Float64("calories", out.Macros.Calories).
		Int("alerts", len(out.Alerts)).
		Msg("calc stage completed")
	return nil
}

// RunTrend executes the trend stage and writes the insights into state.
func (c *Coordinator) RunTrend(ctx context.Context, st *State, traceID string) error {
	start := time.Now()
	out, err := c.agents.Trend.Run(agents.TrendInput{
		TraceID:        traceID,
		PayloadVersion: PayloadVersion,
		Logs:           st.Logs,
	})
	metrics.RecordAgentInvocation("trend", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("trend stage: %w", err)
	}

	st.Trends = out.Trends
	logging.Ctx(ctx).Debug().
		Str("user", st.User).
		Int("insights", len(out.Trends)).
		Msg("trend stage completed")
	return nil
}

// RunCoach executes the coach stage and writes the feed into state.
// Requires the calc snapshot.
func (c *Coordinator) RunCoach(ctx context.Context, st *State, traceID string) error {
	if st.Calc == nil {
		return errors.New("coach stage: calc snapshot missing from state")
	}

	start := time.Now()
	out, err := c.agents.Coach.Run(agents.CoachInput{
		TraceID:        traceID,
		PayloadVersion: PayloadVersion,
		Macros:         st.Calc.Macros,
		MacroTargets:   st.Calc.MacroTargets,
		Micros:         st.Calc.Micros,
		Trends:         st.Trends,
	})
	metrics.RecordAgentInvocation("coach", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("coach stage: %w", err)
	}

	st.CoachMessages = out.Messages
	logging.Ctx(ctx).Debug().
		Str("user", st.User).
		Int("messages", len(out.Messages)).
		Msg("coach stage completed")
	return nil
}

// RunDashboard executes the terminal stage: assemble the dashboard,
// persist it, broadcast it. Persistence failures are returned so the
// bus can retry; broadcast failures are logged and swallowed because
// persistence, not delivery, is the durability boundary.
func (c *Coordinator) RunDashboard(ctx context.Context, st *State, traceID string) (models.DashboardState, error) {
	if st.Calc == nil {
		return models.DashboardState{}, errors.New("dashboard stage: calc snapshot missing from state")
	}

	start := time.Now()
	out, err := c.agents.Dashboard.Run(agents.DashboardInput{
		TraceID:        traceID,
		PayloadVersion: PayloadVersion,
		User:           st.User,
		Plan:           st.Plan,
		Macros:         st.Calc.Macros,
		MacroTargets:   st.Calc.MacroTargets,
		Micros:         st.Calc.Micros,
		MicroTargets:   st.Calc.MicroTargets,
		HydrationL:     st.Calc.HydrationL,
		Logs:           st.Logs,
		Messages:       st.CoachMessages,
		CalcAlerts:     st.Calc.Alerts,
	})
	metrics.RecordAgentInvocation("dashboard", err, time.Since(start))
	if err != nil {
		return models.DashboardState{}, fmt.Errorf("dashboard stage: %w", err)
	}

	if err := c.repo.SaveDashboard(ctx, out.Dashboard); err != nil {
		return models.DashboardState{}, fmt.Errorf("persist dashboard: %w", err)
	}

	if err := c.pub.Broadcast(ctx, realtime.UserChannel(st.User), realtime.EventDashboardUpdated, out.Dashboard); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user", st.User).
			Msg("dashboard broadcast failed")
	}

	logging.Ctx(ctx).Info().
		Str("user", st.User).
		Int("cards", len(out.Dashboard.Cards)).
		Int("charts", len(out.Dashboard.Charts)).
		Msg("dashboard persisted")
	return out.Dashboard, nil
}

func (c *Coordinator) handleCalc(b *bus.Bus) bus.Handler {
	return func(ctx context.Context, event *bus.Event) error {
		payload, ok := event.Payload.(CalcRequested)
		if !ok {
			return fmt.Errorf("calc.requested: unexpected payload type %T", event.Payload)
		}

		st, err := c.LoadState(ctx, payload.User)
		if err != nil {
			return err
		}
		if err := c.RunCalc(ctx, st, event.TraceID); err != nil {
			return err
		}

		return b.Publish(ctx, &bus.Event{
			Name:           EventTrendRequested,
			Payload:        TrendRequested{State: st},
			TraceID:        event.TraceID,
			Version:        PayloadVersion,
			IdempotencyKey: IdempotencyKey(EventTrendRequested, st.User, PayloadVersion, event.TraceID),
		})
	}
}

func (c *Coordinator) handleTrend(b *bus.Bus) bus.Handler {
	return func(ctx context.Context, event *bus.Event) error {
		payload, ok := event.Payload.(TrendRequested)
		if !ok || payload.State == nil {
			return fmt.Errorf("trend.requested: unexpected payload %T", event.Payload)
		}
		st := payload.State

		if err := c.RunTrend(ctx, st, event.TraceID); err != nil {
			return err
		}

		return b.Publish(ctx, &bus.Event{
			Name:           EventCoachRequested,
			Payload:        CoachRequested{State: st},
			TraceID:        event.TraceID,
			Version:        PayloadVersion,
			IdempotencyKey: IdempotencyKey(EventCoachRequested, st.User, PayloadVersion, event.TraceID),
		})
	}
}

func (c *Coordinator) handleCoach(b *bus.Bus) bus.Handler {
	return func(ctx context.Context, event *bus.Event) error {
		payload, ok := event.Payload.(CoachRequested)
		if !ok || payload.State == nil {
			return fmt.Errorf("coach.requested: unexpected payload %T", event.Payload)
		}
		st := payload.State

		if err := c.RunCoach(ctx, st, event.TraceID); err != nil {
			return err
		}

		return b.Publish(ctx, &bus.Event{
			Name:           EventDashboardRequested,
			Payload:        DashboardRequested{State: st},
			TraceID:        event.TraceID,
			Version:        PayloadVersion,
			IdempotencyKey: IdempotencyKey(EventDashboardRequested, st.User, PayloadVersion, event.TraceID),
		})
	}
}

// handleDashboard is terminal: no republish.
func (c *Coordinator) handleDashboard(ctx context.Context, event *bus.Event) error {
	payload, ok := event.Payload.(DashboardRequested)
	if !ok || payload.State == nil {
		return fmt.Errorf("dashboard.requested: unexpected payload %T", event.Payload)
	}

	_, err := c.RunDashboard(ctx, payload.State, event.TraceID)
	return err
}
