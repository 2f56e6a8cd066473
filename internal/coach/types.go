/*
Package coach runs one coaching turn against the language model: it compiles
the system instruction, bounds the conversation context, builds the multimodal
request, calls the model and pulls the structured blocks out of the reply.

The package performs no writes. Persisting turns and updating the ledger is
the caller's job, and only after Respond has returned successfully.
*/
package coach

import "errors"

var (
	// ErrGenerationFailed marks any failure to obtain a reply from the model.
	// Nothing may be persisted for a turn that ends with this error.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrUnresolvedPlaceholder means the prompt template names a placeholder
	// the compiler has no value for.
	ErrUnresolvedPlaceholder = errors.New("unresolved prompt placeholder")

	// ErrEmptyContent is returned when a turn has no text and no usable image.
	ErrEmptyContent = errors.New("turn has neither text nor a usable image")

	// ErrMalformedBlock wraps tagged-block parse diagnostics.
	ErrMalformedBlock = errors.New("malformed tagged block")
)

type Goal string

const (
	GoalLoseWeight Goal = "lose_weight"
	GoalGainWeight Goal = "gain_weight"
	GoalEatBetter  Goal = "eat_better"
	GoalFitness    Goal = "fitness"
)

// Valid reports whether g is one of the known goals.
func (g Goal) Valid() bool {
	switch g {
	case GoalLoseWeight, GoalGainWeight, GoalEatBetter, GoalFitness:
		return true
	}
	return false
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Profile is what the coach knows about the user for this turn.
type Profile struct {
	DisplayName        string
	Goal               Goal
	DailyCalorieTarget int
	TodayCalories      float64
}

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one persisted conversation message as the coach sees it.
type Turn struct {
	Role     string
	Text     string
	HasImage bool

	// ShowedRecommendation is set on assistant turns that surfaced a product.
	ShowedRecommendation bool
}

// FoodAnalysis is the model's estimate for the food discussed in a reply.
type FoodAnalysis struct {
	FoodName    string     `json:"food_name"`
	Calories    float64    `json:"calories"`
	Protein     float64    `json:"protein"`
	Carbs       float64    `json:"carbs"`
	Fat         float64    `json:"fat"`
	Confidence  Confidence `json:"confidence"`
	IsColombian bool       `json:"is_colombian"`
}

// ProductRecommendation is an optional branded product suggestion.
type ProductRecommendation struct {
	ProductName string  `json:"product_name"`
	Reason      string  `json:"reason"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
}
