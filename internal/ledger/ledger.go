// Package ledger folds food analyses into the per-user, per-day nutrition totals.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"nutricoach/internal/coach"
	"nutricoach/internal/database"
)

// Entry sources.
const (
	SourceText  = "text"
	SourceImage = "image"
)

// EntryLogger is the storage the aggregator writes through. The store must
// apply the entry insert and the summary increment atomically.
type EntryLogger interface {
	LogFoodEntry(ctx context.Context, arg database.LogFoodEntryParams) (database.DailySummary, bool, error)
}

// Notifier receives every applied summary change.
type Notifier interface {
	Publish(userID string, payload any)
}

// SummaryUpdatedType tags SummaryUpdate messages.
const SummaryUpdatedType = "summary_updated"

// SummaryUpdate is the message pushed to live dashboards.
type SummaryUpdate struct {
	Type    string                `json:"type"`
	Summary database.DailySummary `json:"summary"`
}

// Entry is one food analysis to apply.
type Entry struct {
	ID                 uuid.UUID
	UserID             string
	Date               string
	Analysis           coach.FoodAnalysis
	Source             string
	ImageURL           string
	RecommendedProduct string
	At                 time.Time
}

type Aggregator struct {
	store    EntryLogger
	notifier Notifier
}

// NewAggregator returns an aggregator; notifier may be nil.
func NewAggregator(store EntryLogger, notifier Notifier) *Aggregator {
	return &Aggregator{store: store, notifier: notifier}
}

// Record applies e once. Replaying the same entry id returns the current
// summary with applied false and changes nothing.
func (a *Aggregator) Record(ctx context.Context, e Entry) (database.DailySummary, bool, error) {
	fa := e.Analysis
	if fa.Calories < 0 || fa.Protein < 0 || fa.Carbs < 0 || fa.Fat < 0 {
		return database.DailySummary{}, false, fmt.Errorf("food analysis %q has negative values", fa.FoodName)
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	summary, applied, err := a.store.LogFoodEntry(ctx, database.LogFoodEntryParams{
		ID:                 e.ID,
		UserID:             e.UserID,
		Date:               e.Date,
		FoodName:           fa.FoodName,
		Calories:           fa.Calories,
		Protein:            fa.Protein,
		Carbs:              fa.Carbs,
		Fat:                fa.Fat,
		Confidence:         string(fa.Confidence),
		IsColombian:        fa.IsColombian,
		Source:             e.Source,
		ImageURL:           e.ImageURL,
		RecommendedProduct: e.RecommendedProduct,
		CreatedAt:          e.At,
	})
	if err != nil {
		return database.DailySummary{}, false, fmt.Errorf("failed to record food entry: %w", err)
	}

	if applied {
		log.Debug().
			Str("user_id", e.UserID).
			Str("date", e.Date).
			Float64("total_calories", summary.TotalCalories).
			Int32("entries", summary.EntriesCount).
			Msg("Ledger updated")
		if a.notifier != nil {
			a.notifier.Publish(e.UserID, SummaryUpdate{Type: SummaryUpdatedType, Summary: summary})
		}
	}
	return summary, applied, nil
}
