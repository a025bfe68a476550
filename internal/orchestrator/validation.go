// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package orchestrator

import (
	"fmt"
	"strings"

	"github.com/nutricoach/nutricoach/internal/models"
)

// clinicalNotes inspects the profile for conditions that deserve a
// professional review. Notes are advisory: they ride along with the
// generated plan but never block it. Structural validity (ranges,
// required fields) is enforced separately by the struct validator.
func clinicalNotes(profile models.UserProfile) []string {
	var notes []string

	if profile.SystolicBP >= 140 || profile.DiastolicBP >= 90 {
		notes = append(notes, fmt.Sprintf(
			"Blood pressure %d/%d mmHg suggests hypertension; the plan favors low-sodium "+
				"choices, and a medical review is recommended before intense training.",
			profile.SystolicBP, profile.DiastolicBP))
	}

	if profile.SodiumMg > 2300 {
		notes = append(notes, fmt.Sprintf(
			"Reported habitual sodium intake (%d mg/day) exceeds the 2300 mg guideline; "+
				"the plan's seasoning suggestions lean on herbs over salt.",
			profile.SodiumMg))
	}

	bmi := bodyMassIndex(profile.WeightKg, profile.HeightCm)
	switch {
	case bmi > 0 && bmi < 18.5 && profile.Goal == models.GoalCut:
		notes = append(notes,
			"BMI is below 18.5; a caloric deficit is not advisable without professional "+
				"supervision, so the plan applies a conservative adjustment.")
	case bmi >= 35:
		notes = append(notes,
			"BMI is 35 or above; weight management at this range benefits from "+
				"multidisciplinary follow-up alongside the plan.")
	}

	if profile.Age >= 60 && profile.Goal == models.GoalCut {
		notes = append(notes,
			"For adults 60+, gradual deficits preserve lean mass better; prioritize the "+
				"plan's protein targets and resistance activity.")
	}

	if len(profile.Allergies) > 0 {
		notes = append(notes, fmt.Sprintf(
			"Declared allergies (%s): use the substitution table for equivalent swaps and "+
				"double-check packaged foods.",
			strings.Join(profile.Allergies, ", ")))
	}

	for _, c := range profile.Comorbidities {
		switch {
		case containsFold(c, "diabetes"):
			notes = append(notes,
				"Diabetes reported: spread carbohydrates evenly across meals and monitor "+
					"glycemia when changing intake patterns.")
		case containsFold(c, "renal"), containsFold(c, "kidney"):
			notes = append(notes,
				"Renal condition reported: protein targets may need professional adjustment; "+
					"treat the plan's values as an upper bound.")
		}
	}

	return notes
}

func bodyMassIndex(weightKg, heightCm float64) float64 {
	if heightCm <= 0 {
		return 0
	}
	m := heightCm / 100
	return weightKg / (m * m)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
