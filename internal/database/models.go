package database

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("record not found")

// DateLayout is the calendar-date format used for ledger keys.
const DateLayout = "2006-01-02"

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CoachProfile is the read-only slice of the user profile the coach consumes.
// Empty fields mean the profile row left them unset.
type CoachProfile struct {
	UserID             string `json:"user_id"`
	DisplayName        string `json:"display_name"`
	Goal               string `json:"goal"`
	DailyCalorieTarget int32  `json:"daily_calorie_target"`
}

// ChatMessage is one persisted conversation turn.
type ChatMessage struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ImageURL  string          `json:"image_url,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type CreateChatMessageParams struct {
	ID        uuid.UUID
	UserID    string
	Role      string
	Content   string
	ImageURL  string
	Metadata  json.RawMessage
	CreatedAt time.Time
}

// DailySummary is the ledger entry of one user on one calendar day.
type DailySummary struct {
	UserID        string    `json:"user_id"`
	Date          string    `json:"date"`
	TotalCalories float64   `json:"total_calories"`
	TotalProtein  float64   `json:"total_protein"`
	TotalCarbs    float64   `json:"total_carbs"`
	TotalFat      float64   `json:"total_fat"`
	EntriesCount  int32     `json:"entries_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FoodEntry is one immutable logged food analysis.
type FoodEntry struct {
	ID                 uuid.UUID `json:"id"`
	UserID             string    `json:"user_id"`
	Date               string    `json:"date"`
	FoodName           string    `json:"food_name"`
	Calories           float64   `json:"calories"`
	Protein            float64   `json:"protein"`
	Carbs              float64   `json:"carbs"`
	Fat                float64   `json:"fat"`
	Confidence         string    `json:"confidence"`
	IsColombian        bool      `json:"is_colombian"`
	Source             string    `json:"source"`
	ImageURL           string    `json:"image_url,omitempty"`
	RecommendedProduct string    `json:"recommended_product,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// LogFoodEntryParams carries one food entry to insert and fold into the day's ledger.
type LogFoodEntryParams struct {
	ID                 uuid.UUID
	UserID             string
	Date               string
	FoodName           string
	Calories           float64
	Protein            float64
	Carbs              float64
	Fat                float64
	Confidence         string
	IsColombian        bool
	Source             string
	ImageURL           string
	RecommendedProduct string
	CreatedAt          time.Time
}
