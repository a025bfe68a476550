// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package pipeline encodes the fixed coaching topology
// calc → trend → coach → dashboard as event-bus handler registrations.
// A State is created fresh per trigger, owned by exactly one in-flight
// run, and accumulates monotonically: each stage writes only its own
// field and later stages never re-derive an earlier one.
package pipeline

import (
	"github.com/nutricoach/nutricoach/internal/agents"
	"github.com/nutricoach/nutricoach/internal/models"
)

// CalcSnapshot is the calc stage's contribution to the run state.
// It is written once and treated as immutable afterwards.
type CalcSnapshot struct {
	Macros       models.MacroBreakdown
	MacroTargets models.MacroBreakdown
	Micros       models.MicroBreakdown
	MicroTargets models.MicroBreakdown
	HydrationL   float64
	Metabolism   agents.Metabolism
	Projection   agents.WeeklyProjection
	Alerts       []string
}

// State is the per-(user, trace) scratch aggregate handed through the
// chain. It is never shared across traces; stages for one trace run
// strictly sequentially, so no locking is needed.
type State struct {
	User    string
	Plan    models.NutritionPlan
	Profile *models.UserProfile
	Logs    []models.DailyLog

	// Stage outputs, filled in chain order.
	Calc          *CalcSnapshot
	Trends        []models.TrendInsight
	CoachMessages []models.CoachingMessage
}
