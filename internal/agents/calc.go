// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package agents

import (
	"github.com/nutricoach/nutricoach/internal/models"
)

// Metabolism records how the calorie goal was derived for one run.
type Metabolism struct {
	BMR         float64 `json:"bmr"`
	TDEE        float64 `json:"tdee"`
	CalorieGoal float64 `json:"calorie_goal"`
}

// CalcInput is the data the calc stage needs: the active plan, the
// profile when known, and the latest diary log when one exists.
type CalcInput struct {
	TraceID        string
	PayloadVersion string
	Plan           models.NutritionPlan
	Profile        *models.UserProfile
	Log            *models.DailyLog

	// ClinicalAdjustments are optional per-macro overrides (e.g. renal
	// protocols) applied on top of the estimated intake.
	ClinicalAdjustments map[string]float64
}

// CalcOutput is the reconciled intake-versus-target snapshot.
type CalcOutput struct {
	Macros           models.MacroBreakdown
	Micros           models.MicroBreakdown
	HydrationL       float64
	Metabolism       Metabolism
	MacroTargets     models.MacroBreakdown
	MicroTargets     models.MicroBreakdown
	WeeklyProjection WeeklyProjection
	Alerts           []string
}

// Calc reconciles estimated diary intake against metabolic targets.
type Calc struct{}

// NewCalc returns the calc stage agent.
func NewCalc() *Calc { return &Calc{} }

// Run computes the calc snapshot. Missing profile falls back to the
// plan's recorded targets with moderate-activity assumptions.
func (c *Calc) Run(in CalcInput) (CalcOutput, error) {
	var (
		bmr          float64
		activity     = models.ActivityModerate
		goal         = models.GoalMaintain
		macroTargets = in.Plan.MacroTargets
		microTargets = in.Plan.MicroTargets
	)
	if in.Profile != nil {
		p := in.Profile
		bmr = MifflinStJeor(p.WeightKg, p.HeightCm, p.Age, p.Sex)
		activity = p.ActivityLevel
		goal = p.Goal
	} else {
		bmr = in.Plan.MacroTargets.Calories / activityFactors[models.ActivityModerate]
	}
	tdee := TotalEnergyExpenditure(bmr, activity)
	calorieGoal := GoalAdjustedCalories(tdee, goal)
	if in.Profile != nil {
		macroTargets = ComputeMacroTargets(calorieGoal, in.Profile.WeightKg, goal)
		microTargets = ComputeMicroTargets(*in.Profile)
	}

	macros := applyClinicalAdjustments(EstimateMacroIntake(in.Log), in.ClinicalAdjustments)
	micros := EstimateMicroIntake(in.Log)
	hydration := HydrationFromLog(in.Log, in.Plan.Hydration.TotalLiters)

	alerts := ValidateRanges(
		macros, macroTargets,
		micros, microTargets,
		hydration, in.Plan.Hydration.TotalLiters,
	)

	return CalcOutput{
		Macros:     macros,
		Micros:     micros,
		HydrationL: hydration,
		Metabolism: Metabolism{
			BMR:         round1(bmr),
			TDEE:        round1(tdee),
			CalorieGoal: round1(calorieGoal),
		},
		MacroTargets:     macroTargets,
		MicroTargets:     microTargets,
		WeeklyProjection: ProjectWeek(macros, hydration),
		Alerts:           alerts,
	}, nil
}

// applyClinicalAdjustments shifts estimated macros by the override
// deltas without letting calories drop below the safe floor.
func applyClinicalAdjustments(macros models.MacroBreakdown, adjustments map[string]float64) models.MacroBreakdown {
	if len(adjustments) == 0 {
		return macros
	}
	out := models.MacroBreakdown{
		Calories: macros.Calories + adjustments["calories"],
		ProteinG: macros.ProteinG + adjustments["protein_g"],
		CarbsG:   macros.CarbsG + adjustments["carbs_g"],
		FatsG:    macros.FatsG + adjustments["fats_g"],
	}
	if out.Calories < SafeCaloriesMin {
		out.Calories = SafeCaloriesMin
	}
	if out.ProteinG < 0 {
		out.ProteinG = 0
	}
	if out.CarbsG < 0 {
		out.CarbsG = 0
	}
	if out.FatsG < 0 {
		out.FatsG = 0
	}
	out.Calories = round1(out.Calories)
	return out
}
