// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package agents

import (
	"fmt"

	"github.com/nutricoach/nutricoach/internal/models"
)

// TrendInput is the diary history for one user.
type TrendInput struct {
	TraceID        string
	PayloadVersion string
	Logs           []models.DailyLog
}

// TrendOutput carries the detected intake patterns.
type TrendOutput struct {
	Trends []models.TrendInsight
}

// Trend detects calorie patterns over the diary history.
type Trend struct{}

// NewTrend returns the trend stage agent.
func NewTrend() *Trend { return &Trend{} }

// Run derives mean/delta insights from the log history. With no logs it
// emits a single placeholder insight so downstream stages always have a
// trend section to render.
func (t *Trend) Run(in TrendInput) (TrendOutput, error) {
	if len(in.Logs) == 0 {
		return TrendOutput{Trends: []models.TrendInsight{{
			Pattern:    "No history yet",
			Signal:     "-",
			Projection: "Collecting data",
		}}}, nil
	}

	calories := make([]float64, len(in.Logs))
	for i, log := range in.Logs {
		calories[i] = EstimateMacroIntake(&log).Calories
	}
	var sum float64
	for _, c := range calories {
		sum += c
	}
	avg := sum / float64(len(calories))
	delta := calories[len(calories)-1] - avg

	projection := "On track"
	if delta > 100 {
		projection = "Caloric upswing"
	}

	return TrendOutput{Trends: []models.TrendInsight{
		{
			Pattern:    "Average calories",
			Signal:     fmt.Sprintf("%.0f kcal", avg),
			Projection: projection,
		},
		{
			Pattern:    "Variation",
			Signal:     fmt.Sprintf("%+.0f kcal", delta),
			Projection: "Gradual adjustment",
		},
	}}, nil
}
