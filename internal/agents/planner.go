// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package agents

import (
	"github.com/nutricoach/nutricoach/internal/models"
)

// PlannerInput is the validated profile a plan is built from.
type PlannerInput struct {
	TraceID        string
	PayloadVersion string
	Profile        models.UserProfile
}

// PlannerOutput carries the assembled weekly plan.
type PlannerOutput struct {
	Plan models.NutritionPlan
}

// Planner builds the weekly nutrition plan from a rotating meal
// library, the user's metabolic profile, and logistics helpers
// (shopping list, meal prep, substitutions).
type Planner struct{}

// NewPlanner returns the planner agent.
func NewPlanner() *Planner { return &Planner{} }

const planDisclaimer = "IMPORTANT: this meal plan is an educational tool only and does " +
	"not replace assessment by a dietitian or physician. Do not start intense " +
	"changes without professional supervision."

var weekDays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var mealOrder = []string{"breakfast", "snack_am", "lunch", "snack_pm", "dinner"}

// Planner energy profile differs from the calc stage on purpose: plans
// are built conservatively (cut -20%, bulk +15%, fats at 30% of
// calories) while calc reconciles actual intake.
var planGoalAdjustments = map[models.Goal]float64{
	models.GoalCut:      -0.20,
	models.GoalMaintain: 0.0,
	models.GoalBulk:     0.15,
}

var planProteinPerKg = map[models.Goal]float64{
	models.GoalCut:      1.4,
	models.GoalMaintain: 1.6,
	models.GoalBulk:     1.9,
}

type mealTemplate struct {
	label         string
	time          string
	items         []string
	calories      float64
	proteinG      float64
	carbsG        float64
	fatsG         float64
	micros        []string
	justification string
}

var mealLibrary = map[string][]mealTemplate{
	"breakfast": {
		{
			label: "Breakfast", time: "07:00",
			items: []string{
				"Omelette with 2 whole eggs (100g), spinach (40g) and tomato (50g)",
				"Rolled oats (30g) soaked in unsweetened plant milk (120ml)",
				"Chia seeds (10g) and fresh blueberries (40g)",
			},
			calories: 430, proteinG: 30, carbsG: 38, fatsG: 16,
			micros:        []string{"Iron", "Folate", "Vitamin C"},
			justification: "High-value protein and fiber stabilize morning glycemia.",
		},
		{
			label: "Breakfast", time: "07:15",
			items: []string{
				"Tapioca crepe (40g) filled with cottage cheese (60g) and oregano",
				"Papaya (150g) with ground golden flaxseed (15g)",
				"Brazil nuts (2 units)",
			},
			calories: 410, proteinG: 24, carbsG: 48, fatsG: 12,
			micros:        []string{"Vitamin A", "Selenium", "Potassium"},
			justification: "Light combination rich in soluble fiber and good fats for lasting satiety.",
		},
		{
			label: "Breakfast", time: "06:50",
			items: []string{
				"Overnight oats with light Greek yogurt (150g), oats (35g) and strawberries (80g)",
				"Honey (5g) and cinnamon to taste",
				"Chopped walnuts (15g)",
			},
			calories: 450, proteinG: 28, carbsG: 52, fatsG: 14,
			micros:        []string{"Calcium", "Vitamin C", "Magnesium"},
			justification: "Practical preparation rich in probiotics and antioxidants.",
		},
		{
			label: "Breakfast", time: "07:05",
			items: []string{
				"Smoothie bowl with frozen banana (120g), spinach (30g), plant protein (20g) and coconut drink (150ml)",
				"Sugar-free granola (25g)",
				"Whole-grain toast (1 slice) with peanut butter (15g)",
			},
			calories: 460, proteinG: 32, carbsG: 50, fatsG: 17,
			micros:        []string{"Potassium", "Vitamin K", "Vitamin E"},
			justification: "Quick energy, fiber and good fats for morning workouts.",
		},
	},
	"snack_am": {
		{
			label: "Morning Snack", time: "10:00",
			items: []string{
				"High-protein natural yogurt (160g)",
				"Whole-grain granola (20g)",
				"Mixed berries (70g)",
			},
			calories: 230, proteinG: 15, carbsG: 26, fatsG: 7,
			micros:        []string{"Calcium", "Vitamin C", "Probiotics"},
			justification: "Gut microbiome support with a mid-morning protein bridge.",
		},
		{
			label: "Morning Snack", time: "10:30",
			items: []string{
				"Apple (140g)",
				"Natural peanut butter (15g)",
				"Toasted pumpkin seeds (15g)",
			},
			calories: 260, proteinG: 10, carbsG: 28, fatsG: 12,
			micros:        []string{"Zinc", "Vitamin E", "Fiber"},
			justification: "Crunchy low-glycemic combination with magnesium for focus.",
		},
		{
			label: "Morning Snack", time: "09:45",
			items: []string{
				"Green smoothie with kiwi (100g), cucumber (50g), ginger and coconut water (200ml)",
				"Almonds (20g)",
			},
			calories: 210, proteinG: 7, carbsG: 26, fatsG: 9,
			micros:        []string{"Vitamin C", "Potassium", "Chlorophyll"},
			justification: "Hydrating snack with fast antioxidants between meals.",
		},
		{
			label: "Morning Snack", time: "10:15",
			items: []string{
				"Whole-grain crackers (30g)",
				"Herb-seasoned ricotta (60g)",
				"Grapes (90g)",
			},
			calories: 240, proteinG: 13, carbsG: 27, fatsG: 9,
			micros:        []string{"Calcium", "Vitamin K", "Anthocyanins"},
			justification: "Varied textures and calcium deliver satiety without heaviness.",
		},
	},
	"lunch": {
		{
			label: "Lunch", time: "13:00",
			items: []string{
				"Herb-marinated grilled chicken breast (120g)",
				"Cooked brown rice (150g)",
				"Steamed broccoli, carrot and zucchini mix (180g) with olive oil (5ml)",
				"Green salad with arugula, cherry tomato and sunflower seeds (1 tbsp)",
			},
			calories: 620, proteinG: 48, carbsG: 58, fatsG: 20,
			micros:        []string{"Iron", "Vitamin A", "Magnesium"},
			justification: "Balanced base of complex carbohydrate and varied vegetables.",
		},
		{
			label: "Lunch", time: "12:45",
			items: []string{
				"Herb-crusted baked salmon (140g)",
				"Cooked quinoa (140g)",
				"Grilled asparagus (100g) and roasted beets (80g)",
				"Lemon yogurt sauce (20g)",
			},
			calories: 640, proteinG: 46, carbsG: 52, fatsG: 26,
			micros:        []string{"Omega-3", "Vitamin K", "Folate"},
			justification: "High essential fatty acids and anti-inflammatory minerals.",
		},
		{
			label: "Lunch", time: "13:15",
			items: []string{
				"Mediterranean bowl with chickpeas (100g), cucumber, tomato, bell pepper and tahini (15g)",
				"Grilled tilapia (130g)",
				"Roasted sweet potato with paprika (120g)",
				"Leafy greens with olive oil and lemon",
			},
			calories: 610, proteinG: 44, carbsG: 62, fatsG: 18,
			micros:        []string{"Fiber", "Vitamin C", "Calcium"},
			justification: "Fiber-rich profile with monounsaturated fats for glycemic control.",
		},
		{
			label: "Lunch", time: "13:05",
			items: []string{
				"Lean beef cubes (120g)",
				"Mashed parsnip (140g)",
				"Turmeric-sauteed vegetables (150g)",
				"Leaf salad with mango (80g)",
			},
			calories: 630, proteinG: 45, carbsG: 60, fatsG: 22,
			micros:        []string{"Iron", "Vitamin E", "Beta-carotene"},
			justification: "Comforting combination with antioxidants and immune support.",
		},
	},
	"snack_pm": {
		{
			label: "Afternoon Snack", time: "16:00",
			items: []string{
				"Sourdough bread (1 slice) with chickpea spread (40g)",
				"Cucumber slices (60g) with lemon",
				"Iced green tea (200ml)",
			},
			calories: 260, proteinG: 11, carbsG: 34, fatsG: 8,
			micros:        []string{"Fiber", "Polyphenols", "Vitamin K"},
			justification: "Low-glycemic carbohydrates and bioactives for stable energy.",
		},
		{
			label: "Afternoon Snack", time: "16:30",
			items: []string{
				"Kefir bowl (150ml) with mango (100g)",
				"Protein granola (20g)",
				"Hemp seeds (10g)",
			},
			calories: 280, proteinG: 14, carbsG: 32, fatsG: 9,
			micros:        []string{"Probiotics", "Vitamin A", "Magnesium"},
			justification: "Reinforces the microbiome with good fats at peak-hunger time.",
		},
		{
			label: "Afternoon Snack", time: "15:45",
			items: []string{
				"Whole-grain pancake (2 units) with egg whites (80g) and banana (60g)",
				"Almond butter (10g)",
			},
			calories: 300, proteinG: 18, carbsG: 38, fatsG: 9,
			micros:        []string{"Vitamin B6", "Potassium", "Calcium"},
			justification: "Lean protein and fast carbohydrate around training windows.",
		},
		{
			label: "Afternoon Snack", time: "16:15",
			items: []string{
				"Light guacamole (40g) with tomato and cilantro",
				"Roasted chickpea chips (30g)",
				"Hibiscus infusion (200ml)",
			},
			calories: 270, proteinG: 9, carbsG: 28, fatsG: 13,
			micros:        []string{"Vitamin E", "Lycopene", "Soluble fiber"},
			justification: "Crunchy textures and monounsaturated fats aid satiety and mood.",
		},
	},
	"dinner": {
		{
			label: "Dinner", time: "19:30",
			items: []string{
				"Oven-baked tilapia fillet (130g) with lemon and dill",
				"Whole-grain couscous (120g) with peas (40g)",
				"Warm kale salad (80g) with walnuts (15g)",
			},
			calories: 520, proteinG: 42, carbsG: 42, fatsG: 18,
			micros:        []string{"Omega-3", "Vitamin K", "Magnesium"},
			justification: "Light dinner, high in protein and calming minerals.",
		},
		{
			label: "Dinner", time: "20:00",
			items: []string{
				"Pumpkin soup (250ml) with ginger and curry",
				"Turkey breast strips (110g)",
				"Whole-grain bread (1 slice) with olive oil (5ml)",
			},
			calories: 480, proteinG: 34, carbsG: 44, fatsG: 15,
			micros:        []string{"Beta-carotene", "Vitamin B6", "Iron"},
			justification: "Comforting texture rich in antioxidants and lean protein.",
		},
		{
			label: "Dinner", time: "19:45",
			items: []string{
				"Grilled tofu (140g) with tamari",
				"Brown-rice stir-fry with vegetables (180g)",
				"Sprout salad with sesame (10g)",
			},
			calories: 540, proteinG: 36, carbsG: 58, fatsG: 17,
			micros:        []string{"Calcium", "Iron", "Isoflavones"},
			justification: "Plant-based option with a complete amino-acid profile.",
		},
		{
			label: "Dinner", time: "19:20",
			items: []string{
				"Chickpea curry (160g) with light coconut milk",
				"Whole-grain basmati rice (130g)",
				"Turmeric-roasted cauliflower (100g)",
			},
			calories: 550, proteinG: 30, carbsG: 60, fatsG: 18,
			micros:        []string{"Manganese", "Vitamin C", "Fiber"},
			justification: "Thermogenic spices and high fiber aid digestion and satiety.",
		},
	},
}

// Run builds the full weekly plan: energy profile, macro and micro
// targets, seven rotated days, hydration schedule, and logistics.
func (p *Planner) Run(in PlannerInput) (PlannerOutput, error) {
	macroTargets, caloric := planEnergy(in.Profile)
	microTargets := ComputeMicroTargets(in.Profile)
	hydrationTotal := HydrationGoal(in.Profile.WeightKg)
	days := composeDays(hydrationTotal)

	plan := models.NutritionPlan{
		User:           in.Profile.Name,
		Disclaimers:    []string{planDisclaimer},
		CaloricProfile: caloric,
		Days:           days,
		MacroTargets:   macroTargets,
		MicroTargets:   microTargets,
		Hydration: models.HydrationPlan{
			TotalLiters: hydrationTotal,
			Reminders: []string{
				"500 ml on waking",
				"250 ml 30 min before meals",
				"Sips during workouts",
			},
		},
	}
	plan.ShoppingList = buildShoppingList(days)
	plan.MealPrep = mealPrepGuide()
	plan.Substitutions = buildSubstitutions(days)
	plan.FreeMeal = "Reserve one lunch per week as a mindful free meal: pick a comfort " +
		"dish, keep vegetables on the plate, limit sugary drinks, and resume the plan " +
		"at the next meal."
	plan.AdherenceTips = adherenceTips()
	return PlannerOutput{Plan: plan}, nil
}

func planEnergy(profile models.UserProfile) (models.MacroBreakdown, models.CaloricProfile) {
	bmr := MifflinStJeor(profile.WeightKg, profile.HeightCm, profile.Age, profile.Sex)
	tdee := TotalEnergyExpenditure(bmr, profile.ActivityLevel)
	target := tdee * (1 + planGoalAdjustments[profile.Goal])

	protein := profile.WeightKg * planProteinPerKg[profile.Goal]
	fats := target * 0.3 / 9
	carbs := (target - (protein*4 + fats*9)) / 4
	if carbs < 0 {
		carbs = 0
	}
	macroTargets := models.MacroBreakdown{
		Calories: round1(target),
		ProteinG: round1(protein),
		CarbsG:   round1(carbs),
		FatsG:    round1(fats),
	}
	caloric := models.CaloricProfile{
		BMR:            round1(bmr),
		TDEE:           round1(tdee),
		AdjustmentKcal: round1(target - tdee),
		TargetCalories: round1(target),
	}
	return macroTargets, caloric
}

func composeDays(hydrationTotalL float64) []models.PlanDay {
	hydrationMl := int(hydrationTotalL * 1000)
	days := make([]models.PlanDay, 0, len(weekDays))
	for idx, dayName := range weekDays {
		meals := make([]models.MealPlanEntry, 0, len(mealOrder))
		for offset, slot := range mealOrder {
			pool := mealLibrary[slot]
			meals = append(meals, mealEntry(pool[(idx+offset)%len(pool)]))
		}
		days = append(days, models.PlanDay{
			Day:         dayName,
			Meals:       meals,
			Summary:     summarizeDay(meals),
			HydrationMl: hydrationMl,
		})
	}
	return days
}

func mealEntry(t mealTemplate) models.MealPlanEntry {
	return models.MealPlanEntry{
		Label:         t.label,
		Time:          t.time,
		Items:         append([]string(nil), t.items...),
		Calories:      t.calories,
		ProteinG:      t.proteinG,
		CarbsG:        t.carbsG,
		FatsG:         t.fatsG,
		Micros:        append([]string(nil), t.micros...),
		Justification: t.justification,
	}
}

func summarizeDay(meals []models.MealPlanEntry) models.MacroBreakdown {
	var sum models.MacroBreakdown
	for _, meal := range meals {
		sum.Calories += meal.Calories
		sum.ProteinG += meal.ProteinG
		sum.CarbsG += meal.CarbsG
		sum.FatsG += meal.FatsG
	}
	sum.Calories = round1(sum.Calories)
	sum.ProteinG = round1(sum.ProteinG)
	sum.CarbsG = round1(sum.CarbsG)
	sum.FatsG = round1(sum.FatsG)
	return sum
}
