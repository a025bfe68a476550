// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package agents

import (
	"sort"

	"github.com/nutricoach/nutricoach/internal/models"
)

// Chart builders for the dashboard stage. Each returns a self-contained
// DashboardChart whose Data payload is what the frontend renders.

func macroRadarChart(targets, actuals models.MacroBreakdown) models.DashboardChart {
	return models.DashboardChart{
		Type:  models.ChartRadar,
		Title: "Macro Targets",
		Data: map[string]any{
			"labels": []string{"Protein", "Carbs", "Fats"},
			"target": []float64{targets.ProteinG, targets.CarbsG, targets.FatsG},
			"actual": []float64{actuals.ProteinG, actuals.CarbsG, actuals.FatsG},
		},
	}
}

func microRadarChart(targets, actuals models.MicroBreakdown) models.DashboardChart {
	return models.DashboardChart{
		Type:  models.ChartRadar,
		Title: "Micronutrients",
		Data: map[string]any{
			"labels": []string{"Fiber", "Omega-3", "Iron", "Calcium", "Sodium"},
			"target": []float64{
				targets.FiberG, targets.Omega3Mg, targets.IronMg, targets.CalciumMg, 2000,
			},
			"actual": []float64{
				actuals.FiberG, actuals.Omega3Mg, actuals.IronMg, actuals.CalciumMg, actuals.SodiumMg,
			},
		},
	}
}

func mealPieChart(log models.DailyLog) models.DashboardChart {
	labels := make([]string, 0, len(log.Meals))
	values := make([]float64, 0, len(log.Meals))
	for _, meal := range log.Meals {
		var quantity float64
		for _, item := range meal.Items {
			quantity += item.Quantity
		}
		labels = append(labels, meal.Description)
		values = append(values, quantity)
	}
	return models.DashboardChart{
		Type:  models.ChartPie,
		Title: "Diary Distribution",
		Data:  map[string]any{"labels": labels, "values": values},
	}
}

func calorieTimelineChart(logs []models.DailyLog) models.DashboardChart {
	sorted := append([]models.DailyLog(nil), logs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	labels := make([]string, len(sorted))
	values := make([]float64, len(sorted))
	for i, log := range sorted {
		labels[i] = log.Date.Format("02/01")
		values[i] = EstimateMacroIntake(&log).Calories
	}
	return models.DashboardChart{
		Type:  models.ChartTimeline,
		Title: "Calorie Timeline",
		Data:  map[string]any{"labels": labels, "values": values},
	}
}

func hydrationBarChart(targetL, actualL float64) models.DashboardChart {
	return models.DashboardChart{
		Type:  models.ChartBar,
		Title: "Hydration",
		Data:  map[string]any{"target": targetL, "actual": actualL},
	}
}
