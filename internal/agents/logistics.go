// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package agents

import (
	"sort"
	"strings"

	"github.com/nutricoach/nutricoach/internal/models"
)

// Plan logistics: categorized shopping list, meal-prep guide, and
// equivalence substitutions derived from the composed week.

var shoppingCategoryOrder = []string{
	"Produce",
	"Proteins",
	"Grains & Cereals",
	"Dairy & Alternatives",
	"Nuts & Seeds",
	"Seasonings & Oils",
	"Healthy Snacks",
	"Drinks & Hydration",
}

var ingredientCategories = map[string]string{
	"spinach":     "Produce",
	"tomato":      "Produce",
	"blueberries": "Produce",
	"papaya":      "Produce",
	"strawberr":   "Produce",
	"banana":      "Produce",
	"apple":       "Produce",
	"grapes":      "Produce",
	"kiwi":        "Produce",
	"cucumber":    "Produce",
	"broccoli":    "Produce",
	"carrot":      "Produce",
	"zucchini":    "Produce",
	"asparagus":   "Produce",
	"beet":        "Produce",
	"bell pepper": "Produce",
	"kale":        "Produce",
	"cauliflower": "Produce",
	"arugula":     "Produce",
	"mango":       "Produce",
	"pumpkin":     "Produce",
	"tilapia":     "Proteins",
	"chicken":     "Proteins",
	"salmon":      "Proteins",
	"beef":        "Proteins",
	"turkey":      "Proteins",
	"tofu":        "Proteins",
	"chickpea":    "Proteins",
	"egg":         "Proteins",
	"yogurt":      "Dairy & Alternatives",
	"cottage":     "Dairy & Alternatives",
	"kefir":       "Dairy & Alternatives",
	"ricotta":     "Dairy & Alternatives",
	"plant milk":  "Dairy & Alternatives",
	"oats":        "Grains & Cereals",
	"tapioca":     "Grains & Cereals",
	"granola":     "Grains & Cereals",
	"quinoa":      "Grains & Cereals",
	"rice":        "Grains & Cereals",
	"couscous":    "Grains & Cereals",
	"bread":       "Grains & Cereals",
	"parsnip":     "Grains & Cereals",
	"potato":      "Grains & Cereals",
	"pancake":     "Grains & Cereals",
	"flaxseed":    "Nuts & Seeds",
	"chia":        "Nuts & Seeds",
	"walnut":      "Nuts & Seeds",
	"almond":      "Nuts & Seeds",
	"nuts":        "Nuts & Seeds",
	"hemp":        "Nuts & Seeds",
	"sesame":      "Nuts & Seeds",
	"olive oil":   "Seasonings & Oils",
	"tahini":      "Seasonings & Oils",
	"curry":       "Seasonings & Oils",
	"ginger":      "Seasonings & Oils",
	"herb":        "Seasonings & Oils",
	"lemon":       "Seasonings & Oils",
	"turmeric":    "Seasonings & Oils",
	"hibiscus":    "Drinks & Hydration",
	"tea":         "Drinks & Hydration",
	"coconut":     "Drinks & Hydration",
	"smoothie":    "Drinks & Hydration",
	"crackers":    "Healthy Snacks",
	"chips":       "Healthy Snacks",
}

type substitution struct {
	keyword string
	option  models.SubstitutionOption
}

var substitutionBank = []substitution{
	{"chicken", models.SubstitutionOption{
		Item: "Grilled chicken 120g", Substitution1: "Grilled tilapia 150g",
		Substitution2: "Firm tofu 180g", Equivalence: "Keeps ~30g of lean protein",
	}},
	{"salmon", models.SubstitutionOption{
		Item: "Salmon 140g", Substitution1: "Fresh sardines 130g",
		Substitution2: "Eggs + flaxseed mix", Equivalence: "Replaces omega-3 and complete protein",
	}},
	{"oats", models.SubstitutionOption{
		Item: "Oats 35g", Substitution1: "Rye flakes 35g",
		Substitution2: "Sugar-free granola 40g", Equivalence: "Preserves soluble fiber",
	}},
	{"rice", models.SubstitutionOption{
		Item: "Brown rice 150g", Substitution1: "Quinoa 130g",
		Substitution2: "Roasted sweet potato 160g", Equivalence: "Equivalent complex carbohydrates",
	}},
	{"yogurt", models.SubstitutionOption{
		Item: "Greek yogurt 150g", Substitution1: "Kefir 180ml",
		Substitution2: "Protein plant drink 200ml", Equivalence: "Probiotics + 12-15g of protein",
	}},
	{"chickpea", models.SubstitutionOption{
		Item: "Chickpeas 100g", Substitution1: "White beans 120g",
		Substitution2: "Edamame 140g", Equivalence: "Same fiber and plant-protein delivery",
	}},
	{"quinoa", models.SubstitutionOption{
		Item: "Cooked quinoa 140g", Substitution1: "Whole barley 150g",
		Substitution2: "Black rice 130g", Equivalence: "Low-GI carbohydrate profile",
	}},
	{"chia", models.SubstitutionOption{
		Item: "Chia 10g", Substitution1: "Golden flaxseed 12g",
		Substitution2: "Sunflower + pumpkin seed mix 18g", Equivalence: "Fiber + omega-3",
	}},
	{"almond", models.SubstitutionOption{
		Item: "Almonds 20g", Substitution1: "Cashews 25g",
		Substitution2: "Pistachios 25g", Equivalence: "Good fats and magnesium",
	}},
	{"potato", models.SubstitutionOption{
		Item: "Sweet potato 160g", Substitution1: "Yam 150g",
		Substitution2: "Cauliflower mash 200g", Equivalence: "Same satiety at a lower glycemic index",
	}},
}

var fallbackSubstitutions = []models.SubstitutionOption{
	{
		Item: "Eggs 2 units", Substitution1: "Cottage cheese 80g",
		Substitution2: "Tempeh 120g", Equivalence: "Fast protein for snacks",
	},
	{
		Item: "Peanut butter 15g", Substitution1: "Tahini 15g",
		Substitution2: "Almond butter 15g", Equivalence: "Monounsaturated fats",
	},
	{
		Item: "Overnight oats", Substitution1: "Whole-grain pancake",
		Substitution2: "Filled tapioca crepe", Equivalence: "Similar caloric balance",
	},
}

const maxSubstitutions = 10

func buildShoppingList(days []models.PlanDay) []models.ShoppingCategory {
	grouped := make(map[string]map[string]struct{}, len(shoppingCategoryOrder))
	for _, day := range days {
		for _, meal := range day.Meals {
			for _, item := range meal.Items {
				lowered := strings.ToLower(item)
				for keyword, category := range ingredientCategories {
					if strings.Contains(lowered, keyword) {
						if grouped[category] == nil {
							grouped[category] = make(map[string]struct{})
						}
						grouped[category][normalizeShoppingItem(item)] = struct{}{}
					}
				}
			}
		}
	}
	var list []models.ShoppingCategory
	for _, category := range shoppingCategoryOrder {
		items := grouped[category]
		if len(items) == 0 {
			continue
		}
		sorted := make([]string, 0, len(items))
		for item := range items {
			sorted = append(sorted, item)
		}
		sort.Strings(sorted)
		list = append(list, models.ShoppingCategory{Name: category, Items: sorted})
	}
	return list
}

// normalizeShoppingItem strips portion annotations: "Cooked quinoa
// (140g)" becomes "Cooked Quinoa".
func normalizeShoppingItem(raw string) string {
	base := raw
	if idx := strings.Index(base, "("); idx >= 0 {
		base = base[:idx]
	}
	base = strings.ReplaceAll(base, "-", " ")
	words := strings.Fields(strings.ToLower(base))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func buildSubstitutions(days []models.PlanDay) []models.SubstitutionOption {
	ingredients := make(map[string]struct{})
	for _, day := range days {
		for _, meal := range day.Meals {
			for _, item := range meal.Items {
				ingredients[strings.ToLower(item)] = struct{}{}
			}
		}
	}
	var found []models.SubstitutionOption
	for _, sub := range substitutionBank {
		for ingredient := range ingredients {
			if strings.Contains(ingredient, sub.keyword) {
				found = append(found, sub.option)
				break
			}
		}
	}
	for _, fallback := range fallbackSubstitutions {
		if len(found) >= maxSubstitutions {
			break
		}
		found = append(found, fallback)
	}
	if len(found) > maxSubstitutions {
		found = found[:maxSubstitutions]
	}
	return found
}

func mealPrepGuide() []string {
	return []string{
		"Sunday: cook 1kg of chicken breast, shred half and freeze in portions.",
		"Prepare 4 containers of rice or quinoa (150g cooked) for the week's lunches.",
		"Roast trays of vegetables (broccoli, carrot, zucchini) and store for up to 3 days.",
		"Assemble overnight oats in 3 jars with fruit and seeds for quick breakfasts.",
		"Portion snacks (nut mix + dried fruit) into individual bags.",
		"Keep healthy sauces ready (citrus vinaigrette, lemon tahini, light pesto).",
	}
}

func adherenceTips() []string {
	return []string{
		"Prioritize protein at every meal to preserve lean mass.",
		"Hydrate before main meals to modulate appetite.",
		"Use smaller plates and chew each bite 20 times to signal satiety.",
		"Shop with the categorized list and never go to the market hungry.",
		"Record emotions in the food diary so trends can surface triggers.",
	}
}
