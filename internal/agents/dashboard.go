// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package agents

import (
	"fmt"
	"sort"
	"time"

	"github.com/nutricoach/nutricoach/internal/models"
)

// DashboardInput carries everything accumulated by the earlier stages.
type DashboardInput struct {
	TraceID        string
	PayloadVersion string
	User           string
	Plan           models.NutritionPlan
	Macros         models.MacroBreakdown
	MacroTargets   models.MacroBreakdown
	Micros         models.MicroBreakdown
	MicroTargets   models.MicroBreakdown
	HydrationL     float64
	Logs           []models.DailyLog
	Messages       []models.CoachingMessage
	CalcAlerts     []string
}

// DashboardOutput is the terminal pipeline artifact.
type DashboardOutput struct {
	Dashboard models.DashboardState
}

// Dashboard assembles the renderable dashboard from the accumulated
// pipeline state: status cards, charts, today/week summaries, alerts.
type Dashboard struct {
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewDashboard returns the dashboard stage agent.
func NewDashboard() *Dashboard {
	return &Dashboard{Now: time.Now}
}

// Run builds the DashboardState.
func (d *Dashboard) Run(in DashboardInput) (DashboardOutput, error) {
	hydrationTarget := in.Plan.Hydration.TotalLiters

	charts := []models.DashboardChart{
		macroRadarChart(in.MacroTargets, in.Macros),
		microRadarChart(in.MicroTargets, in.Micros),
		hydrationBarChart(hydrationTarget, in.HydrationL),
	}
	if len(in.Logs) > 0 {
		charts = append(charts,
			calorieTimelineChart(in.Logs),
			mealPieChart(in.Logs[len(in.Logs)-1]),
		)
	}

	board := models.DashboardState{
		User:          in.User,
		Cards:         buildStatusCards(in.Macros, in.MacroTargets, in.HydrationL, hydrationTarget),
		Charts:        charts,
		CoachMessages: in.Messages,
		Today: models.TodayOverview{
			Macros:          in.Macros,
			MacroTargets:    in.MacroTargets,
			Micros:          in.Micros,
			MicroTargets:    in.MicroTargets,
			HydrationL:      in.HydrationL,
			HydrationTarget: hydrationTarget,
		},
		Week:        buildWeekSection(in.Plan, in.Logs, in.MacroTargets),
		Alerts:      buildAlerts(in),
		LastUpdated: d.now(),
	}
	return DashboardOutput{Dashboard: board}, nil
}

func (d *Dashboard) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func buildStatusCards(macros, targets models.MacroBreakdown, hydrationActual, hydrationTarget float64) []models.DashboardCard {
	return []models.DashboardCard{
		statusCard("Calories", macros.Calories, targets.Calories, "kcal"),
		statusCard("Protein", macros.ProteinG, targets.ProteinG, "g"),
		statusCard("Carbohydrates", macros.CarbsG, targets.CarbsG, "g"),
		statusCard("Fats", macros.FatsG, targets.FatsG, "g"),
		statusCard("Hydration", hydrationActual, hydrationTarget, "L"),
	}
}

func statusCard(title string, value, target float64, unit string) models.DashboardCard {
	percent := safeRatio(value, target)
	severity := models.SeveritySuccess
	switch {
	case percent < 70:
		severity = models.SeverityWarning
	case percent > 130:
		severity = models.SeverityCritical
	}
	format := "%.1f %s"
	if unit == "kcal" {
		format = "%.0f %s"
	}
	return models.DashboardCard{
		Title:    title,
		Value:    fmt.Sprintf(format, value, unit),
		Target:   fmt.Sprintf(format, target, unit),
		Percent:  percent,
		Severity: severity,
	}
}

func buildWeekSection(plan models.NutritionPlan, logs []models.DailyLog, targets models.MacroBreakdown) models.WeekSection {
	week := models.WeekSection{
		PlannedDays:    len(plan.Days),
		TargetCalories: targets.Calories,
	}
	if len(logs) == 0 {
		return week
	}

	sorted := append([]models.DailyLog(nil), logs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	if len(sorted) > 7 {
		sorted = sorted[len(sorted)-7:]
	}

	var (
		sum      float64
		onTarget int
		bestDay  string
		bestGap  = -1.0
	)
	for _, log := range sorted {
		calories := EstimateMacroIntake(&log).Calories
		sum += calories
		gap := calories - targets.Calories
		if gap < 0 {
			gap = -gap
		}
		switch {
		case calories > targets.Calories*1.05, calories < targets.Calories*0.9:
			week.AttentionPoints++
		default:
			onTarget++
		}
		if bestGap < 0 || gap < bestGap {
			bestGap = gap
			bestDay = log.Date.Format("Mon")
		}
	}
	week.DaysLogged = len(sorted)
	week.AvgCalories = round1(sum / float64(len(sorted)))
	week.AdherencePct = round1(float64(onTarget) / float64(len(sorted)) * 100)
	week.BestDay = bestDay
	return week
}

func buildAlerts(in DashboardInput) []models.DashboardAlert {
	var alerts []models.DashboardAlert
	if in.Macros.ProteinG < in.MacroTargets.ProteinG*0.7 {
		alerts = append(alerts, models.DashboardAlert{
			Message:  "Protein short of target: reach at least 70% to preserve lean mass.",
			Severity: models.SeverityCritical,
		})
	}
	if in.Micros.FiberG < 20 {
		alerts = append(alerts, models.DashboardAlert{
			Message:  "Fiber low: add raw vegetables, seeds and oats to pass 20 g.",
			Severity: models.SeverityWarning,
		})
	}
	if in.Micros.SodiumMg > 2000 {
		alerts = append(alerts, models.DashboardAlert{
			Message:  "Sodium high: cut processed meats and industrial seasonings for the rest of the day.",
			Severity: models.SeverityWarning,
		})
	}
	if dinner := findDinner(in.Plan); dinner != nil && dinner.CarbsG > in.MacroTargets.CarbsG*0.4 {
		alerts = append(alerts, models.DashboardAlert{
			Message:  "Evening carbohydrates heavy: move part of them to the afternoon snack to avoid spikes.",
			Severity: models.SeverityInfo,
		})
	}
	if latest := latestLog(in.Logs); latest != nil && hasReactiveHungerGap(*latest) {
		alerts = append(alerts, models.DashboardAlert{
			Message:  "Meal gaps over 4h detected: schedule snacks to prevent reactive hunger.",
			Severity: models.SeverityWarning,
		})
	}
	if in.HydrationL < in.Plan.Hydration.TotalLiters*0.9 {
		alerts = append(alerts, models.DashboardAlert{
			Message:  "Hydration behind: complete the remaining volume in 250 ml doses each hour.",
			Severity: models.SeverityWarning,
		})
	}
	for _, raw := range in.CalcAlerts {
		alerts = append(alerts, models.DashboardAlert{
			Message:  "Clinical validation: " + raw,
			Severity: models.SeverityWarning,
		})
	}
	return alerts
}

func findDinner(plan models.NutritionPlan) *models.MealPlanEntry {
	if len(plan.Days) == 0 {
		return nil
	}
	meals := plan.Days[0].Meals
	for i := range meals {
		if meals[i].Label == "Dinner" {
			return &meals[i]
		}
	}
	return nil
}

func latestLog(logs []models.DailyLog) *models.DailyLog {
	if len(logs) == 0 {
		return nil
	}
	latest := &logs[0]
	for i := range logs {
		if logs[i].Date.After(latest.Date) {
			latest = &logs[i]
		}
	}
	return latest
}

// hasReactiveHungerGap reports whether any two consecutive meals are
// more than four hours apart.
func hasReactiveHungerGap(log models.DailyLog) bool {
	if len(log.Meals) < 2 {
		return false
	}
	meals := append([]models.MealEntry(nil), log.Meals...)
	sort.Slice(meals, func(i, j int) bool { return meals[i].Timestamp.Before(meals[j].Timestamp) })
	for i := 1; i < len(meals); i++ {
		if meals[i].Timestamp.Sub(meals[i-1].Timestamp) > 4*time.Hour {
			return true
		}
	}
	return false
}
