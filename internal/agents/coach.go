// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package agents

import (
	"fmt"

	"github.com/nutricoach/nutricoach/internal/models"
)

// CoachInput is the reconciled intake snapshot plus detected trends.
type CoachInput struct {
	TraceID        string
	PayloadVersion string
	Macros         models.MacroBreakdown
	MacroTargets   models.MacroBreakdown
	Micros         models.MicroBreakdown
	Trends         []models.TrendInsight
}

// CoachOutput carries the ordered coaching feed.
type CoachOutput struct {
	Messages []models.CoachingMessage
}

const disclaimerBody = "This coaching feed is an educational tool and does not replace " +
	"assessment by a registered dietitian or physician. Do not start intense " +
	"dietary changes without professional supervision."

var progressQuotes = []string{
	"Your body responds to what you do consistently, not what you do perfectly.",
	"Improve 1% a day and your future changes.",
	"You are building a stronger, more conscious eating identity.",
}

var microHabits = []string{
	"Breathe deeply for 90 seconds before your main meal to signal there is no rush.",
	"Pre-portion protein snacks at night so the morning starts with ready choices.",
	"Drink a glass of water while plating to make hydration automatic.",
	"Do a quick real-versus-emotional hunger check before dinner and note what you feel.",
	"Set a phone timer to stand and stretch between long working meals.",
}

// Coach produces the rule-based coaching feed.
type Coach struct {
	// quoteIndex rotates the motivational content deterministically so
	// repeated runs for the same user vary without randomness.
	quoteIndex int
}

// NewCoach returns the coach stage agent.
func NewCoach() *Coach { return &Coach{} }

// Run assembles the coaching feed: disclaimer first, then reinforcement,
// motivational content, nutrient guidance keyed on threshold rules, and
// one echo per trend insight.
func (c *Coach) Run(in CoachInput) (CoachOutput, error) {
	messages := []models.CoachingMessage{
		{Title: "Important notice", Body: disclaimerBody, Severity: models.SeverityInfo},
		c.reinforcement(in.Macros, in.MacroTargets),
		{Title: "Progress over perfection", Body: c.pick(progressQuotes), Severity: models.SeverityInfo},
		{Title: "Micro-habit of the week", Body: c.pick(microHabits), Severity: models.SeveritySuccess},
	}
	messages = append(messages, nutrientGuidance(in.Macros, in.MacroTargets, in.Micros)...)
	for _, trend := range in.Trends {
		messages = append(messages, models.CoachingMessage{
			Title:    "Trend: " + trend.Pattern,
			Body:     fmt.Sprintf("%s. %s", trend.Signal, trend.Projection),
			Severity: models.SeveritySuccess,
		})
	}
	messages = append(messages, models.CoachingMessage{
		Title: "Emotional regulation",
		Body: "When anxiety hits, take 90 seconds to breathe and name the feeling " +
			"before reaching for food. Gentle discipline prevents impulses.",
		Severity: models.SeverityInfo,
	})
	return CoachOutput{Messages: messages}, nil
}

func (c *Coach) reinforcement(macros, targets models.MacroBreakdown) models.CoachingMessage {
	body := fmt.Sprintf(
		"You reached %.0f%% of the calorie target and %.0f%% of the protein target. "+
			"Steady pacing teaches the body to trust the routine.",
		safeRatio(macros.Calories, targets.Calories),
		safeRatio(macros.ProteinG, targets.ProteinG),
	)
	return models.CoachingMessage{Title: "Gentle consistency", Body: body, Severity: models.SeveritySuccess}
}

func nutrientGuidance(macros, targets models.MacroBreakdown, micros models.MicroBreakdown) []models.CoachingMessage {
	var guidance []models.CoachingMessage
	if safeRatio(macros.ProteinG, targets.ProteinG) < 70 {
		guidance = append(guidance, models.CoachingMessage{
			Title:    "Protein boost",
			Body:     "Keep lean, pre-portioned sources at hand to avoid improvising when hunger strikes.",
			Severity: models.SeverityWarning,
		})
	}
	if micros.FiberG < 20 {
		guidance = append(guidance, models.CoachingMessage{
			Title:    "Protective fiber",
			Body:     "Add crunchy greens or seeds to two meals to slow down reactive hunger.",
			Severity: models.SeverityWarning,
		})
	}
	if micros.SodiumMg > 2000 {
		guidance = append(guidance, models.CoachingMessage{
			Title:    "Sodium watch",
			Body:     "Swap ready-made seasonings for fresh herbs and taste before adding extra salt.",
			Severity: models.SeverityWarning,
		})
	}
	if macros.CarbsG-targets.CarbsG > 30 {
		guidance = append(guidance, models.CoachingMessage{
			Title:    "Evening carbohydrates",
			Body:     "Shift complex carbs earlier in the day and keep vegetables plus protein for dinner.",
			Severity: models.SeverityInfo,
		})
	}
	return guidance
}

func (c *Coach) pick(pool []string) string {
	s := pool[c.quoteIndex%len(pool)]
	c.quoteIndex++
	return s
}
