// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

// Package models defines the domain entities shared across the backend:
// user profiles, diary logs, nutrition plans, trend insights, coaching
// messages, and the dashboard artifact produced by the pipeline.
package models

import "time"

// Sex is the biological sex used by the energy-expenditure formulas.
type Sex string

// Supported sexes.
const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// ActivityLevel scales basal metabolic rate into total expenditure.
type ActivityLevel string

// Supported activity levels.
const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityIntense   ActivityLevel = "intense"
)

// Goal is the user's body-composition objective.
type Goal string

// Supported goals.
const (
	GoalCut      Goal = "cut"
	GoalMaintain Goal = "maintain"
	GoalBulk     Goal = "bulk"
)

// UserProfile describes one coached user. The profile is keyed by Name;
// concurrent writers for the same user are resolved last-write-wins.
type UserProfile struct {
	Name          string        `json:"name" validate:"required,min=1,max=120"`
	Age           int           `json:"age" validate:"required,gte=18,lte=120"`
	WeightKg      float64       `json:"weight_kg" validate:"required,gt=0,lte=400"`
	HeightCm      float64       `json:"height_cm" validate:"required,gt=0,lte=260"`
	Sex           Sex           `json:"sex" validate:"required,oneof=male female other"`
	ActivityLevel ActivityLevel `json:"activity_level" validate:"required,oneof=sedentary light moderate intense"`
	Goal          Goal          `json:"goal" validate:"required,oneof=cut maintain bulk"`
	SystolicBP    int           `json:"systolic_bp" validate:"gte=0,lte=300"`
	DiastolicBP   int           `json:"diastolic_bp" validate:"gte=0,lte=200"`
	SodiumMg      int           `json:"sodium_mg" validate:"gte=0"`
	Allergies     []string      `json:"allergies,omitempty"`
	Comorbidities []string      `json:"comorbidities,omitempty"`
}

// FoodPortion is one parsed food item within a meal.
type FoodPortion struct {
	Label    string  `json:"label"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// MealEntry is one meal inside a daily diary log.
type MealEntry struct {
	Timestamp   time.Time     `json:"timestamp"`
	Description string        `json:"description"`
	Items       []FoodPortion `json:"items,omitempty"`
}

// DailyLog is one day of diary entries for a user.
type DailyLog struct {
	User  string      `json:"user"`
	Date  time.Time   `json:"date"`
	Meals []MealEntry `json:"meals"`
}

// MacroBreakdown carries calorie and macronutrient amounts, used both
// for targets (from a plan) and actuals (from diary intake).
type MacroBreakdown struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatsG    float64 `json:"fats_g"`
}

// MicroBreakdown carries the tracked micronutrient amounts.
type MicroBreakdown struct {
	FiberG    float64 `json:"fiber_g"`
	Omega3Mg  float64 `json:"omega3_mg"`
	IronMg    float64 `json:"iron_mg"`
	CalciumMg float64 `json:"calcium_mg"`
	SodiumMg  float64 `json:"sodium_mg"`
}

// HydrationPlan is the daily hydration target with reminder slots.
type HydrationPlan struct {
	TotalLiters float64  `json:"total_liters"`
	Reminders   []string `json:"reminders,omitempty"`
}

// MealPlanEntry is one planned meal within a plan day.
type MealPlanEntry struct {
	Label         string   `json:"label"`
	Time          string   `json:"time"`
	Items         []string `json:"items"`
	Calories      float64  `json:"calories"`
	ProteinG      float64  `json:"protein_g"`
	CarbsG        float64  `json:"carbs_g"`
	FatsG         float64  `json:"fats_g"`
	Micros        []string `json:"micros,omitempty"`
	Justification string   `json:"justification,omitempty"`
}

// PlanDay is one day of a nutrition plan.
type PlanDay struct {
	Day         string          `json:"day"`
	Meals       []MealPlanEntry `json:"meals"`
	Summary     MacroBreakdown  `json:"summary"`
	HydrationMl int             `json:"hydration_ml"`
}

// CaloricProfile records how the calorie target was derived.
type CaloricProfile struct {
	BMR            float64 `json:"bmr"`
	TDEE           float64 `json:"tdee"`
	AdjustmentKcal float64 `json:"adjustment_kcal"`
	TargetCalories float64 `json:"target_calories"`
}

// ShoppingCategory groups shopping-list items.
type ShoppingCategory struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// SubstitutionOption offers equivalent swaps for a planned item.
type SubstitutionOption struct {
	Item          string `json:"item"`
	Substitution1 string `json:"substitution_1"`
	Substitution2 string `json:"substitution_2"`
	Equivalence   string `json:"equivalence"`
}

// NutritionPlan is the complete weekly plan for a user.
type NutritionPlan struct {
	User           string               `json:"user"`
	Disclaimers    []string             `json:"disclaimers,omitempty"`
	CaloricProfile CaloricProfile       `json:"caloric_profile"`
	Days           []PlanDay            `json:"days"`
	MacroTargets   MacroBreakdown       `json:"macro_targets"`
	MicroTargets   MicroBreakdown       `json:"micro_targets"`
	Hydration      HydrationPlan        `json:"hydration"`
	ShoppingList   []ShoppingCategory   `json:"shopping_list,omitempty"`
	MealPrep       []string             `json:"meal_prep,omitempty"`
	Substitutions  []SubstitutionOption `json:"substitutions,omitempty"`
	FreeMeal       string               `json:"free_meal,omitempty"`
	AdherenceTips  []string             `json:"adherence_tips,omitempty"`
}

// TrendInsight is one pattern detected over the diary history.
type TrendInsight struct {
	Pattern    string `json:"pattern"`
	Signal     string `json:"signal"`
	Projection string `json:"projection"`
}

// Severity classifies coaching messages and dashboard alerts.
type Severity string

// Supported severities.
const (
	SeverityInfo     Severity = "info"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// CoachingMessage is one message produced by the coach stage.
type CoachingMessage struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Severity Severity `json:"severity"`
}

// ChartType identifies the rendering family of a dashboard chart.
type ChartType string

// Supported chart types.
const (
	ChartRadar    ChartType = "radar"
	ChartPie      ChartType = "pie"
	ChartBar      ChartType = "bar"
	ChartTimeline ChartType = "timeline"
)

// DashboardChart is one renderable chart. Data is a small label/series
// payload whose shape depends on the chart type; the backend treats it
// as opaque beyond construction.
type DashboardChart struct {
	Type  ChartType      `json:"type"`
	Title string         `json:"title"`
	Data  map[string]any `json:"data"`
}

// DashboardCard is one headline status card (calories, protein, hydration).
type DashboardCard struct {
	Title    string   `json:"title"`
	Value    string   `json:"value"`
	Target   string   `json:"target,omitempty"`
	Percent  float64  `json:"percent"`
	Severity Severity `json:"severity"`
}

// TodayOverview summarizes today's intake against targets.
type TodayOverview struct {
	Macros          MacroBreakdown `json:"macros"`
	MacroTargets    MacroBreakdown `json:"macro_targets"`
	Micros          MicroBreakdown `json:"micros"`
	MicroTargets    MicroBreakdown `json:"micro_targets"`
	HydrationL      float64        `json:"hydration_l"`
	HydrationTarget float64        `json:"hydration_target"`
}

// WeekSection summarizes adherence over the logged week.
type WeekSection struct {
	DaysLogged      int     `json:"days_logged"`
	PlannedDays     int     `json:"planned_days"`
	AvgCalories     float64 `json:"avg_calories"`
	TargetCalories  float64 `json:"target_calories"`
	AdherencePct    float64 `json:"adherence_pct"`
	BestDay         string  `json:"best_day,omitempty"`
	AttentionPoints int     `json:"attention_points"`
}

// DashboardAlert is one actionable warning surfaced on the dashboard.
type DashboardAlert struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// DashboardState is the terminal artifact of a pipeline run. Once
// persisted it is owned by the repository; the pipeline keeps no
// reference after handoff.
type DashboardState struct {
	User          string            `json:"user"`
	Cards         []DashboardCard   `json:"cards"`
	Charts        []DashboardChart  `json:"charts"`
	CoachMessages []CoachingMessage `json:"coach_messages"`
	Today         TodayOverview     `json:"today"`
	Week          WeekSection       `json:"week"`
	Alerts        []DashboardAlert  `json:"alerts"`
	LastUpdated   time.Time         `json:"last_updated"`
}
