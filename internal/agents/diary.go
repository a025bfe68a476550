// Nutricoach - Personal Nutrition Coaching Backend
// Copyright 2026 Nutricoach Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nutricoach/nutricoach

package agents

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nutricoach/nutricoach/internal/models"
)

// DiaryInput is a batch of free-text diary entries for one user.
type DiaryInput struct {
	TraceID        string
	PayloadVersion string
	User           string
	Entries        []string

	// Date anchors the resulting log; zero means today (UTC).
	Date time.Time
}

// DiaryOutput is the structured daily log plus the contextual signals
// (emotions, social setting, time hints) extracted along the way.
type DiaryOutput struct {
	Log      models.DailyLog
	Contexts DiaryContexts
}

// DiaryContexts aggregates the non-nutritional signals found in the
// entries. The coach and trend stages read them as behavioral hints.
type DiaryContexts struct {
	Emotions  []string `json:"emotions,omitempty"`
	Social    []string `json:"social,omitempty"`
	TimeHints []string `json:"time_hints,omitempty"`
}

// foodRecord is one entry of the built-in food knowledge base.
type foodRecord struct {
	canonical       string
	aliases         []string
	defaultUnit     string
	defaultQuantity float64
}

var foodKnowledgeBase = []foodRecord{
	{
		canonical:       "chicken_breast",
		aliases:         []string{"grilled chicken", "chicken breast", "chicken"},
		defaultUnit:     "g",
		defaultQuantity: 120,
	},
	{
		canonical:       "brown_rice",
		aliases:         []string{"brown rice", "rice"},
		defaultUnit:     "g",
		defaultQuantity: 100,
	},
	{
		canonical:       "avocado",
		aliases:         []string{"avocado"},
		defaultUnit:     "g",
		defaultQuantity: 70,
	},
	{
		canonical:       "espresso",
		aliases:         []string{"espresso", "black coffee", "coffee"},
		defaultUnit:     "ml",
		defaultQuantity: 60,
	},
	{
		canonical:       "oats",
		aliases:         []string{"overnight oats", "oatmeal", "oats"},
		defaultUnit:     "g",
		defaultQuantity: 40,
	},
	{
		canonical:       "egg",
		aliases:         []string{"eggs", "egg", "omelette"},
		defaultUnit:     "unit",
		defaultQuantity: 2,
	},
	{
		canonical:       "salmon",
		aliases:         []string{"salmon"},
		defaultUnit:     "g",
		defaultQuantity: 140,
	},
	{
		canonical:       "water",
		aliases:         []string{"water"},
		defaultUnit:     "ml",
		defaultQuantity: 250,
	},
	{
		canonical:       "bread",
		aliases:         []string{"whole-grain bread", "toast", "bread"},
		defaultUnit:     "slice",
		defaultQuantity: 2,
	},
	{
		canonical:       "yogurt",
		aliases:         []string{"greek yogurt", "yogurt"},
		defaultUnit:     "g",
		defaultQuantity: 150,
	},
	{
		canonical:       "banana",
		aliases:         []string{"banana"},
		defaultUnit:     "unit",
		defaultQuantity: 1,
	},
}

// unitSynonyms maps spelled-out units onto the canonical unit plus the
// multiplier into that unit.
var unitSynonyms = map[string]struct {
	unit       string
	multiplier float64
}{
	"g":      {"g", 1},
	"gram":   {"g", 1},
	"grams":  {"g", 1},
	"kg":     {"g", 1000},
	"ml":     {"ml", 1},
	"l":      {"ml", 1000},
	"liter":  {"ml", 1000},
	"liters": {"ml", 1000},
	"tbsp":   {"g", 15},
	"tsp":    {"g", 5},
	"cup":    {"ml", 240},
	"cups":   {"ml", 240},
	"unit":   {"g", 50},
	"units":  {"g", 50},
	"slice":  {"g", 30},
	"slices": {"g", 30},
	"oz":     {"g", 28.3495},
	"lb":     {"g", 453.592},
}

var preparationKeywords = map[string]string{
	"grilled": "grilled",
	"boiled":  "boiled",
	"baked":   "baked",
	"raw":     "raw",
	"sauteed": "sauteed",
	"fried":   "fried",
}

var emotionKeywords = map[string]string{
	"happy":      "positive",
	"motivated":  "motivated",
	"anxious":    "anxious",
	"tired":      "tired",
	"stressed":   "stressed",
	"calm":       "calm",
	"frustrated": "frustrated",
}

var socialKeywords = map[string]string{
	"family":  "family",
	"friends": "friends",
	"alone":   "solo",
	"work":    "work",
}

var mealTimeKeywords = []struct {
	keyword string
	hint    string
}{
	{"breakfast", "07:30"},
	{"morning", "07:30"},
	{"lunch", "12:30"},
	{"afternoon", "16:00"},
	{"dinner", "20:00"},
	{"night", "20:30"},
	{"evening", "20:00"},
}

var (
	quantityPattern = buildQuantityPattern()
	clockPattern    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

func buildQuantityPattern() *regexp.Regexp {
	units := make([]string, 0, len(unitSynonyms))
	for unit := range unitSynonyms {
		units = append(units, regexp.QuoteMeta(unit))
	}
	// Longest first so "grams" wins over "g".
	sort.Slice(units, func(i, j int) bool { return len(units[i]) > len(units[j]) })
	return regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(` + strings.Join(units, "|") + `)\b`)
}

type parsedContext struct {
	emotion  string
	social   string
	timeHint string
}

// Diary turns free-text entries into a structured daily log using the
// food knowledge base plus regex quantity extraction. Parsing stays
// deliberately heuristic; unknown foods become 100 g mixed portions.
type Diary struct{}

// NewDiary returns the diary parsing agent.
func NewDiary() *Diary { return &Diary{} }

// Run parses all entries into one DailyLog dated at in.Date.
func (d *Diary) Run(in DiaryInput) (DiaryOutput, error) {
	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	var (
		meals    []models.MealEntry
		contexts DiaryContexts
	)
	for _, raw := range in.Entries {
		meal, ctx := parseEntry(raw, date)
		if len(meal.Items) == 0 {
			continue
		}
		meals = append(meals, meal)
		if ctx.emotion != "" {
			contexts.Emotions = append(contexts.Emotions, ctx.emotion)
		}
		if ctx.social != "" {
			contexts.Social = append(contexts.Social, ctx.social)
		}
		if ctx.timeHint != "" {
			contexts.TimeHints = append(contexts.TimeHints, ctx.timeHint)
		}
	}
	sort.Slice(meals, func(i, j int) bool { return meals[i].Timestamp.Before(meals[j].Timestamp) })

	return DiaryOutput{
		Log: models.DailyLog{
			User:  in.User,
			Date:  date,
			Meals: meals,
		},
		Contexts: contexts,
	}, nil
}

func parseEntry(text string, baseDate time.Time) (models.MealEntry, parsedContext) {
	ctx := detectContext(text)
	preparation := detectPreparation(text)
	foods := matchFoods(text)
	candidates := extractQuantities(text)
	timestamp := resolveTimestamp(baseDate, ctx.timeHint)

	items := make([]models.FoodPortion, 0, len(foods))
	for i, record := range foods {
		quantity, unit := record.defaultQuantity, record.defaultUnit
		if i < len(candidates) {
			quantity, unit = candidates[i].quantity, candidates[i].unit
		}
		normalized, normalizedUnit := normalizeUnit(quantity, unit)
		items = append(items, models.FoodPortion{
			Label:    record.canonical,
			Quantity: normalized,
			Unit:     normalizedUnit,
		})
	}

	descParts := []string{describeFoods(foods)}
	if preparation != "" {
		descParts = append(descParts, "("+preparation+")")
	}
	if ctx.emotion != "" {
		descParts = append(descParts, "emotion:"+ctx.emotion)
	}
	if ctx.social != "" {
		descParts = append(descParts, "social:"+ctx.social)
	}

	return models.MealEntry{
		Timestamp:   timestamp,
		Description: strings.Join(descParts, " "),
		Items:       items,
	}, ctx
}

func describeFoods(foods []foodRecord) string {
	names := make([]string, len(foods))
	for i, record := range foods {
		names[i] = strings.ReplaceAll(record.canonical, "_", " ")
	}
	return strings.Join(names, ", ")
}

func detectPreparation(text string) string {
	lowered := strings.ToLower(text)
	for keyword, label := range preparationKeywords {
		if strings.Contains(lowered, keyword) {
			return label
		}
	}
	return ""
}

func detectContext(text string) parsedContext {
	lowered := strings.ToLower(text)
	var ctx parsedContext
	for keyword, label := range emotionKeywords {
		if strings.Contains(lowered, keyword) {
			ctx.emotion = label
			break
		}
	}
	for keyword, label := range socialKeywords {
		if strings.Contains(lowered, keyword) {
			ctx.social = label
			break
		}
	}
	if m := clockPattern.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 24 && minute < 60 {
			ctx.timeHint = fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}
	if ctx.timeHint == "" {
		for _, entry := range mealTimeKeywords {
			if strings.Contains(lowered, entry.keyword) {
				ctx.timeHint = entry.hint
				break
			}
		}
	}
	return ctx
}

// matchFoods returns knowledge-base records found in the text, ordered
// by first occurrence. Text with no match yields a single unknown
// 100 g portion so the entry still counts.
func matchFoods(text string) []foodRecord {
	lowered := strings.ToLower(text)
	type hit struct {
		pos    int
		record foodRecord
	}
	var hits []hit
	claimed := make(map[string]bool)
	for _, record := range foodKnowledgeBase {
		best := -1
		for _, alias := range record.aliases {
			if pos := strings.Index(lowered, alias); pos >= 0 && (best < 0 || pos < best) {
				best = pos
			}
		}
		if best >= 0 && !claimed[record.canonical] {
			claimed[record.canonical] = true
			hits = append(hits, hit{pos: best, record: record})
		}
	}
	if len(hits) == 0 {
		return []foodRecord{{
			canonical:       "unknown",
			defaultUnit:     "g",
			defaultQuantity: 100,
		}}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	records := make([]foodRecord, len(hits))
	for i, h := range hits {
		records[i] = h.record
	}
	return records
}

type quantityCandidate struct {
	quantity float64
	unit     string
}

func extractQuantities(text string) []quantityCandidate {
	var out []quantityCandidate
	for _, m := range quantityPattern.FindAllStringSubmatch(text, -1) {
		qty, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		out = append(out, quantityCandidate{quantity: qty, unit: strings.ToLower(m[2])})
	}
	return out
}

// normalizeUnit converts a quantity into its canonical unit (g or ml).
func normalizeUnit(quantity float64, unit string) (float64, string) {
	if syn, ok := unitSynonyms[strings.ToLower(unit)]; ok {
		return quantity * syn.multiplier, syn.unit
	}
	return quantity, "g"
}

func resolveTimestamp(baseDate time.Time, timeHint string) time.Time {
	day := time.Date(baseDate.Year(), baseDate.Month(), baseDate.Day(), 0, 0, 0, 0, time.UTC)
	if timeHint == "" {
		return day
	}
	parts := strings.SplitN(timeHint, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}
