package coach

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nutricoach/internal/catalog"
	"nutricoach/internal/utility"
)

/* =================================================================================
							SYSTEM INSTRUCTION TEMPLATE
	Every {{NAME}} below must have a value in Compile, otherwise compilation fails.
=================================================================================*/

const (
	DefaultDisplayName        = "Usuario"
	DefaultGoal               = GoalEatBetter
	DefaultDailyCalorieTarget = 2000
)

const SystemPromptTemplate = `You are a friendly, expert nutrition coach for a Colombian dairy brand. Your tone is warm, motivating and close, but professional. Always answer in natural Colombian Spanish without heavy slang.

You are talking to {{USER_NAME}}.
- Their nutrition goal: {{USER_GOAL}}
- Their daily calorie target: {{DAILY_CALORIE_TARGET}} kcal
- Calories logged so far today: {{TODAY_CALORIES}} kcal

When the user shares a food (text or photo):
1. Identify the food as precisely as you can.
2. Estimate calories and macronutrients (protein, carbs, fat in grams) for a standard portion.
3. If it is a typical Colombian dish, use the Colombian food reference table below.
4. ALWAYS put the estimate in this block BEFORE your conversational answer:

<food_analysis>
{"food_name": "food name", "calories": number, "protein": grams, "carbs": grams, "fat": grams, "confidence": "high" | "medium" | "low", "is_colombian": true | false}
</food_analysis>

5. If a product from the catalog below would genuinely complement or replace what the user is eating, you may add:

<product_recommendation>
{"product_name": "product name", "reason": "short reason", "calories": number, "protein": number, "carbs": number, "fat": number}
</product_recommendation>

Recommendation rules:
- Do NOT recommend a product in every message. At most once every three interactions, and only when it is relevant.
- Recommendations must feel natural. You are a coach who sometimes suggests a product, not a salesperson.
- Never emit more than one block of each kind in a reply.

For general nutrition questions:
- Give accurate, practical information adapted to Colombian food culture.
- Congratulate the user when the day is going well; suggest lighter alternatives without judging when they are over target.

Product catalog:
{{PRODUCT_CATALOG}}

Colombian food reference table:
{{REGIONAL_FOODS}}

General rules:
- NEVER give medical diagnoses. If the user mentions a medical condition, recommend seeing a health professional.
- All values are estimates; say so.
- Keep answers to 3-4 sentences for simple questions.`

var goalDescriptions = map[Goal]string{
	GoalLoseWeight: "lose weight",
	GoalGainWeight: "gain weight",
	GoalEatBetter:  "eat better",
	GoalFitness:    "improve fitness",
}

var placeholderRe = regexp.MustCompile(`\{\{[A-Z_]+\}\}`)

// CompiledPrompt is a filled system instruction plus the profile fields that
// had to be defaulted to fill it.
type CompiledPrompt struct {
	Text      string
	Defaulted []string
}

// ApplyProfileDefaults fills missing or unusable profile fields and reports
// which ones were replaced.
func ApplyProfileDefaults(p Profile) (Profile, []string) {
	var defaulted []string

	name := strings.TrimSpace(p.DisplayName)
	switch {
	case name == "":
		p.DisplayName = DefaultDisplayName
		defaulted = append(defaulted, "display_name")
	case utility.ContainsProfanity(name):
		p.DisplayName = DefaultDisplayName
		defaulted = append(defaulted, "display_name (flagged)")
	default:
		p.DisplayName = name
	}

	if !p.Goal.Valid() {
		p.Goal = DefaultGoal
		defaulted = append(defaulted, "goal")
	}
	if p.DailyCalorieTarget <= 0 {
		p.DailyCalorieTarget = DefaultDailyCalorieTarget
		defaulted = append(defaulted, "daily_calorie_target")
	}
	if p.TodayCalories < 0 {
		p.TodayCalories = 0
	}
	return p, defaulted
}

// Compile fills SystemPromptTemplate. The catalogs must already be truncated.
func Compile(p Profile, products []catalog.Product, foods []catalog.RegionalFood) (CompiledPrompt, error) {
	return compile(SystemPromptTemplate, p, products, foods)
}

func compile(template string, p Profile, products []catalog.Product, foods []catalog.RegionalFood) (CompiledPrompt, error) {
	p, defaulted := ApplyProfileDefaults(p)
	if products == nil {
		products = []catalog.Product{}
	}
	if foods == nil {
		foods = []catalog.RegionalFood{}
	}

	productJSON, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return CompiledPrompt{}, fmt.Errorf("failed to encode product catalog: %w", err)
	}
	foodJSON, err := json.MarshalIndent(foods, "", "  ")
	if err != nil {
		return CompiledPrompt{}, fmt.Errorf("failed to encode regional foods: %w", err)
	}

	values := map[string]string{
		"{{USER_NAME}}":            p.DisplayName,
		"{{USER_GOAL}}":            fmt.Sprintf("%s (%s)", goalDescriptions[p.Goal], p.Goal),
		"{{DAILY_CALORIE_TARGET}}": strconv.Itoa(p.DailyCalorieTarget),
		"{{TODAY_CALORIES}}":       strconv.FormatFloat(p.TodayCalories, 'f', 0, 64),
		"{{PRODUCT_CATALOG}}":      string(productJSON),
		"{{REGIONAL_FOODS}}":       string(foodJSON),
	}

	// Checked on the template so catalog text can never be mistaken for a placeholder.
	for _, ph := range placeholderRe.FindAllString(template, -1) {
		if _, ok := values[ph]; !ok {
			return CompiledPrompt{}, fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, ph)
		}
	}

	pairs := make([]string, 0, len(values)*2)
	for ph, v := range values {
		pairs = append(pairs, ph, v)
	}
	return CompiledPrompt{
		Text:      strings.NewReplacer(pairs...).Replace(template),
		Defaulted: defaulted,
	}, nil
}
