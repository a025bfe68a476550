// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package agents holds the pipeline stage agents. Every agent is a pure
// computation: typed input in, typed output out, no I/O and no shared
// state, so the coordinator can invoke them from event handlers or
// inline without synchronization.
package agents

import (
	"math"
	"strings"

	"github.com/nutricoach/nutricoach/internal/models"
)

// Clinically safe daily calorie window. Intakes outside it always alert.
const (
	SafeCaloriesMin = 1100.0
	SafeCaloriesMax = 4800.0
)

var activityFactors = map[models.ActivityLevel]float64{
	models.ActivitySedentary: 1.2,
	models.ActivityLight:     1.375,
	models.ActivityModerate:  1.55,
	models.ActivityIntense:   1.725,
}

// Goal drivers scale TDEE into the calorie goal: cut -15%, bulk +12%.
var goalDrivers = map[models.Goal]float64{
	models.GoalCut:      -0.15,
	models.GoalMaintain: 0.0,
	models.GoalBulk:     0.12,
}

type foodCategory string

const (
	categoryProtein foodCategory = "protein"
	categoryCarb    foodCategory = "carb"
	categoryFat     foodCategory = "fat"
	categoryMixed   foodCategory = "mixed"
)

// Per-gram macro densities by dominant category. Coarse estimates for
// free-text diary items that never matched the food knowledge base.
var categoryMacros = map[foodCategory]models.MacroBreakdown{
	categoryProtein: {Calories: 4.1, ProteinG: 1.0, CarbsG: 0.05, FatsG: 0.02},
	categoryCarb:    {Calories: 3.9, ProteinG: 0.06, CarbsG: 0.8, FatsG: 0.02},
	categoryFat:     {Calories: 8.8, ProteinG: 0.02, CarbsG: 0.02, FatsG: 1.0},
	categoryMixed:   {Calories: 5.0, ProteinG: 0.2, CarbsG: 0.5, FatsG: 0.1},
}

var categoryMicros = map[foodCategory]models.MicroBreakdown{
	categoryProtein: {FiberG: 0.01, Omega3Mg: 60, IronMg: 0.12, CalciumMg: 5, SodiumMg: 4},
	categoryCarb:    {FiberG: 0.07, Omega3Mg: 20, IronMg: 0.05, CalciumMg: 2, SodiumMg: 1.5},
	categoryFat:     {FiberG: 0.0, Omega3Mg: 90, IronMg: 0.02, CalciumMg: 1, SodiumMg: 2},
	categoryMixed:   {FiberG: 0.04, Omega3Mg: 45, IronMg: 0.08, CalciumMg: 4, SodiumMg: 3},
}

var unitToGrams = map[string]float64{
	"g":     1.0,
	"gram":  1.0,
	"grams": 1.0,
	"kg":    1000.0,
	"ml":    1.0,
	"l":     1000.0,
	"oz":    28.3495,
	"lb":    453.592,
	"cup":   240.0,
	"tbsp":  15.0,
	"tsp":   5.0,
	"slice": 30.0,
	"unit":  75.0,
}

// MifflinStJeor returns basal metabolic rate in kcal/day.
func MifflinStJeor(weightKg, heightCm float64, age int, sex models.Sex) float64 {
	base := 10*weightKg + 6.25*heightCm - 5*float64(age)
	switch sex {
	case models.SexMale:
		return base + 5
	case models.SexFemale:
		return base - 161
	default:
		// Midpoint offset when sex is unspecified.
		return base - 78
	}
}

// TotalEnergyExpenditure scales BMR by the activity multiplier.
func TotalEnergyExpenditure(bmr float64, activity models.ActivityLevel) float64 {
	factor, ok := activityFactors[activity]
	if !ok {
		factor = activityFactors[models.ActivityModerate]
	}
	return bmr * factor
}

// GoalAdjustedCalories applies the goal driver percentage to TDEE.
func GoalAdjustedCalories(tdee float64, goal models.Goal) float64 {
	return tdee * (1 + goalDrivers[goal])
}

// ComputeMacroTargets derives macro targets from the calorie goal and
// body weight. Bulking raises the protein factor; fats floor at 20% of
// calories so aggressive cuts never starve essential fat intake.
func ComputeMacroTargets(calories, weightKg float64, goal models.Goal) models.MacroBreakdown {
	proteinFactor := 1.6
	if goal == models.GoalBulk {
		proteinFactor = 2.0
	}
	protein := weightKg * proteinFactor
	fats := weightKg * 0.8
	if floor := calories * 0.2 / 9; floor > fats {
		fats = floor
	}
	carbs := (calories - (protein*4 + fats*9)) / 4
	if carbs < 0 {
		carbs = 0
	}
	return models.MacroBreakdown{
		Calories: round1(calories),
		ProteinG: round1(protein),
		CarbsG:   round1(carbs),
		FatsG:    round1(fats),
	}
}

// ComputeMicroTargets estimates micronutrient targets from sex, age,
// weight, and goal.
func ComputeMicroTargets(profile models.UserProfile) models.MicroBreakdown {
	iron := 12.0
	if profile.Sex == models.SexFemale && profile.Age < 50 {
		iron = 18.0
	}
	calcium := 1000.0
	if profile.Age < 20 {
		calcium = 1300.0
	}
	fiber := profile.WeightKg * 0.35
	if fiber < 25.0 {
		fiber = 25.0
	}
	omega3 := 1100.0
	if profile.Sex == models.SexMale {
		omega3 = 1600.0
	}
	sodium := 1800.0
	if profile.Goal == models.GoalCut {
		sodium = 1500.0
	}
	return models.MicroBreakdown{
		FiberG:    round1(fiber),
		Omega3Mg:  omega3,
		IronMg:    iron,
		CalciumMg: calcium,
		SodiumMg:  sodium,
	}
}

// HydrationGoal is the daily water target in liters (35 ml per kg).
func HydrationGoal(weightKg float64) float64 {
	return round2(weightKg * 0.035)
}

// NormalizeQuantity converts a diary quantity to grams. Unknown units
// assume a 100 g portion.
func NormalizeQuantity(quantity float64, unit string) float64 {
	if factor, ok := unitToGrams[strings.ToLower(unit)]; ok {
		return quantity * factor
	}
	return quantity * 100.0
}

var categoryKeywords = []struct {
	category foodCategory
	keywords []string
}{
	{categoryProtein, []string{"chicken", "fish", "egg", "tofu", "beef", "protein"}},
	{categoryCarb, []string{"rice", "bread", "fruit", "pasta", "oat", "carb"}},
	{categoryFat, []string{"avocado", "oil", "nuts", "seed", "butter"}},
}

func classifyFood(label string) foodCategory {
	name := strings.ToLower(label)
	for _, group := range categoryKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(name, keyword) {
				return group.category
			}
		}
	}
	return categoryMixed
}

func addMacros(base, delta models.MacroBreakdown) models.MacroBreakdown {
	return models.MacroBreakdown{
		Calories: base.Calories + delta.Calories,
		ProteinG: base.ProteinG + delta.ProteinG,
		CarbsG:   base.CarbsG + delta.CarbsG,
		FatsG:    base.FatsG + delta.FatsG,
	}
}

func addMicros(base, delta models.MicroBreakdown) models.MicroBreakdown {
	return models.MicroBreakdown{
		FiberG:    base.FiberG + delta.FiberG,
		Omega3Mg:  base.Omega3Mg + delta.Omega3Mg,
		IronMg:    base.IronMg + delta.IronMg,
		CalciumMg: base.CalciumMg + delta.CalciumMg,
		SodiumMg:  base.SodiumMg + delta.SodiumMg,
	}
}

func macrosFromFood(category foodCategory, grams float64) models.MacroBreakdown {
	density := categoryMacros[category]
	return models.MacroBreakdown{
		Calories: grams * density.Calories,
		ProteinG: grams * density.ProteinG,
		CarbsG:   grams * density.CarbsG,
		FatsG:    grams * density.FatsG,
	}
}

func microsFromFood(category foodCategory, grams float64) models.MicroBreakdown {
	density := categoryMicros[category]
	return models.MicroBreakdown{
		FiberG:    grams * density.FiberG,
		Omega3Mg:  grams * density.Omega3Mg,
		IronMg:    grams * density.IronMg,
		CalciumMg: grams * density.CalciumMg,
		SodiumMg:  grams * density.SodiumMg,
	}
}

// EstimateMacroIntake sums category-estimated macros over a diary log.
func EstimateMacroIntake(log *models.DailyLog) models.MacroBreakdown {
	var totals models.MacroBreakdown
	if log == nil {
		return totals
	}
	for _, meal := range log.Meals {
		for _, item := range meal.Items {
			grams := NormalizeQuantity(item.Quantity, item.Unit)
			totals = addMacros(totals, macrosFromFood(classifyFood(item.Label), grams))
		}
	}
	return models.MacroBreakdown{
		Calories: round1(totals.Calories),
		ProteinG: round1(totals.ProteinG),
		CarbsG:   round1(totals.CarbsG),
		FatsG:    round1(totals.FatsG),
	}
}

// EstimateMicroIntake sums category-estimated micros over a diary log.
func EstimateMicroIntake(log *models.DailyLog) models.MicroBreakdown {
	var totals models.MicroBreakdown
	if log == nil {
		return totals
	}
	for _, meal := range log.Meals {
		for _, item := range meal.Items {
			grams := NormalizeQuantity(item.Quantity, item.Unit)
			totals = addMicros(totals, microsFromFood(classifyFood(item.Label), grams))
		}
	}
	return models.MicroBreakdown{
		FiberG:    round1(totals.FiberG),
		Omega3Mg:  round1(totals.Omega3Mg),
		IronMg:    round1(totals.IronMg),
		CalciumMg: round1(totals.CalciumMg),
		SodiumMg:  round1(totals.SodiumMg),
	}
}

// HydrationFromLog estimates liters drunk from liquid diary items,
// floored at half the fallback target so a sparse diary never reads as
// total dehydration.
func HydrationFromLog(log *models.DailyLog, fallback float64) float64 {
	if log == nil {
		return round2(fallback * 0.6)
	}
	liters := 0.0
	for _, meal := range log.Meals {
		for _, item := range meal.Items {
			unit := strings.ToLower(item.Unit)
			if unit == "ml" || unit == "l" || unit == "cup" ||
				strings.Contains(strings.ToLower(item.Label), "water") {
				liters += NormalizeQuantity(item.Quantity, item.Unit) / 1000
			}
		}
	}
	if floor := fallback * 0.5; liters < floor {
		liters = floor
	}
	return round2(liters)
}

// ValidateRanges checks intake against targets and the safe calorie
// window, returning human-readable alerts.
func ValidateRanges(
	macros, targets models.MacroBreakdown,
	micros, microTargets models.MicroBreakdown,
	hydrationActual, hydrationTarget float64,
) []string {
	var alerts []string
	if macros.Calories < SafeCaloriesMin {
		alerts = append(alerts, "Calories below the clinically recommended minimum.")
	}
	if macros.Calories > SafeCaloriesMax {
		alerts = append(alerts, "Calories above the safe daily limit.")
	}
	if macros.ProteinG < targets.ProteinG*0.7 {
		alerts = append(alerts, "Protein far below target.")
	}
	if macros.CarbsG > targets.CarbsG*1.4 {
		alerts = append(alerts, "Carbohydrates exceeded the planned limit.")
	}
	if micros.FiberG < microTargets.FiberG*0.6 {
		alerts = append(alerts, "Fiber insufficient for gut health.")
	}
	if hydrationActual < hydrationTarget*0.8 {
		alerts = append(alerts, "Hydration fell short of the daily goal.")
	}
	if micros.SodiumMg > 2000 {
		alerts = append(alerts, "Sodium exceeded 2000 mg for the day.")
	}
	return alerts
}

// WeeklyProjection extrapolates one day of intake over a week.
type WeeklyProjection struct {
	Calories   float64 `json:"calories"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatsG      float64 `json:"fats_g"`
	HydrationL float64 `json:"hydration_l"`
}

// ProjectWeek multiplies a daily snapshot by seven.
func ProjectWeek(macros models.MacroBreakdown, hydrationL float64) WeeklyProjection {
	return WeeklyProjection{
		Calories:   round1(macros.Calories * 7),
		ProteinG:   round1(macros.ProteinG * 7),
		CarbsG:     round1(macros.CarbsG * 7),
		FatsG:      round1(macros.FatsG * 7),
		HydrationL: round2(hydrationL * 7),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func safeRatio(value, target float64) float64 {
	if target <= 0 {
		return 0
	}
	ratio := value / target * 100
	if ratio < 0 {
		return 0
	}
	if ratio > 200 {
		return 200
	}
	return ratio
}
