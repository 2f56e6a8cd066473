package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"nutricoach/internal/coach"
	"nutricoach/internal/database"
	"nutricoach/internal/ledger"
	"nutricoach/internal/utility"
)

var (
	// ErrEmptyTurn is returned for a chat request with no text and no usable image.
	ErrEmptyTurn   = errors.New("message or image is required")
	ErrInvalidDate = errors.New("invalid date")
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// ChatRequest is the payload of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	ImageData string `json:"image_data,omitempty"` // data:<mime>;base64,<payload>
	Date      string `json:"date,omitempty"`       // YYYY-MM-DD, defaults to today (UTC)
}

// ChatResponse is returned for every successful generation, even when a
// later write failed (Saved is then false).
type ChatResponse struct {
	RequestID      string                       `json:"request_id"`
	Message        string                       `json:"message"`
	FoodAnalysis   *coach.FoodAnalysis          `json:"food_analysis"`
	Recommendation *coach.ProductRecommendation `json:"product_recommendation"`
	Summary        database.DailySummary        `json:"daily_summary"`
	Saved          bool                         `json:"saved"`
}

// messageMetadata is stored with assistant turns.
type messageMetadata struct {
	FoodAnalysis             *coach.FoodAnalysis          `json:"food_analysis"`
	ProductRecommendation    *coach.ProductRecommendation `json:"product_recommendation"`
	RecommendationSuppressed bool                         `json:"recommendation_suppressed,omitempty"`
}

// sagaID derives a stable id per (user, request, step) so a retried request
// writes the same rows again instead of new ones.
func sagaID(userID, requestID, step string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("nutricoach:"+userID+":"+requestID+":"+step))
}

// turnContext is everything loaded before calling the model.
type turnContext struct {
	profile database.CoachProfile
	summary database.DailySummary
	history []database.ChatMessage // newest first
}

func (s *Service) loadTurnContext(ctx context.Context, log *zerolog.Logger, userID, date string) (turnContext, error) {
	var tc turnContext
	g, grpCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.store.GetCoachProfile(grpCtx, userID)
		if errors.Is(err, database.ErrNotFound) {
			log.Warn().Msg("No coach profile, using defaults")
			return nil
		}
		tc.profile = p
		return err
	})

	g.Go(func() error {
		sum, err := s.store.GetDailySummary(grpCtx, userID, date)
		if errors.Is(err, database.ErrNotFound) {
			tc.summary = database.DailySummary{UserID: userID, Date: date}
			return nil
		}
		tc.summary = sum
		return err
	})

	g.Go(func() error {
		msgs, err := s.store.ListRecentChatMessages(grpCtx, userID, s.historyFetchSize())
		tc.history = msgs
		return err
	})

	if err := g.Wait(); err != nil {
		return tc, fmt.Errorf("failed to load chat context: %w", err)
	}
	return tc, nil
}

// toTurns converts newest-first rows into oldest-first coach turns.
func toTurns(msgs []database.ChatMessage) []coach.Turn {
	newestFirst := make([]coach.Turn, 0, len(msgs))
	for _, m := range msgs {
		t := coach.Turn{Role: m.Role, Text: m.Content, HasImage: m.ImageURL != ""}
		if m.Role == database.RoleAssistant && len(m.Metadata) > 0 {
			var meta messageMetadata
			if err := json.Unmarshal(m.Metadata, &meta); err == nil {
				t.ShowedRecommendation = meta.ProductRecommendation != nil
			}
		}
		newestFirst = append(newestFirst, t)
	}
	return coach.Chronological(newestFirst)
}

// Chat runs one coaching turn as a saga: generate, extract, apply the ledger
// entry, then append the user and assistant turns. Nothing is written unless
// generation succeeds. Every write is keyed by an id derived from requestID,
// so replaying the request never double counts.
func (s *Service) Chat(ctx context.Context, log *zerolog.Logger, userID, requestID string, req ChatRequest) (ChatResponse, error) {
	now := s.now()

	date, err := utility.ParseDate(req.Date, now)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	text := strings.TrimSpace(req.Message)
	if text == "" && strings.TrimSpace(req.ImageData) == "" {
		return ChatResponse{}, ErrEmptyTurn
	}

	tc, err := s.loadTurnContext(ctx, log, userID, date)
	if err != nil {
		return ChatResponse{}, err
	}

	reply, err := s.agent.Respond(ctx, log, coach.Request{
		Profile: coach.Profile{
			DisplayName:        tc.profile.DisplayName,
			Goal:               coach.Goal(tc.profile.Goal),
			DailyCalorieTarget: int(tc.profile.DailyCalorieTarget),
			TodayCalories:      tc.summary.TotalCalories,
		},
		History:   toTurns(tc.history),
		Text:      text,
		ImageData: req.ImageData,
	})
	if errors.Is(err, coach.ErrEmptyContent) {
		return ChatResponse{}, ErrEmptyTurn
	}
	if err != nil {
		return ChatResponse{}, err
	}

	resp := ChatResponse{
		RequestID:      requestID,
		Message:        reply.Text,
		FoodAnalysis:   reply.FoodAnalysis,
		Recommendation: reply.Recommendation,
		Summary:        tc.summary,
		Saved:          true,
	}

	// Generation succeeded; from here on failures are logged, never returned.
	var imageURL string
	if reply.Image != nil {
		imageURL, err = s.media.Save(ctx, userID, requestID, reply.Image)
		if err != nil {
			log.Warn().Err(err).Msg("Image upload failed, saving turn without it")
			imageURL = ""
		}
	}

	if fa := reply.FoodAnalysis; fa != nil {
		source := ledger.SourceText
		if reply.Image != nil {
			source = ledger.SourceImage
		}
		var recommended string
		if reply.Recommendation != nil {
			recommended = reply.Recommendation.ProductName
		}

		sum, applied, err := s.ledger.Record(ctx, ledger.Entry{
			ID:                 sagaID(userID, requestID, "food_entry"),
			UserID:             userID,
			Date:               date,
			Analysis:           *fa,
			Source:             source,
			ImageURL:           imageURL,
			RecommendedProduct: recommended,
			At:                 now,
		})
		if err != nil {
			log.Warn().Err(err).Str("step", "ledger").Msg("Saga step failed")
			resp.Saved = false
		} else {
			resp.Summary = sum
			if !applied {
				log.Info().Msg("Food entry already recorded for this request")
			}
		}
	}

	userContent := text
	if userContent == "" {
		userContent = coach.UserImagePlaceholder
	}
	if err := s.store.CreateChatMessage(ctx, database.CreateChatMessageParams{
		ID:        sagaID(userID, requestID, "user_turn"),
		UserID:    userID,
		Role:      database.RoleUser,
		Content:   userContent,
		ImageURL:  imageURL,
		CreatedAt: now,
	}); err != nil {
		log.Warn().Err(err).Str("step", "user_turn").Msg("Saga step failed")
		resp.Saved = false
	}

	meta, err := json.Marshal(messageMetadata{
		FoodAnalysis:             reply.FoodAnalysis,
		ProductRecommendation:    reply.Recommendation,
		RecommendationSuppressed: reply.RecommendationSuppressed,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode message metadata")
		meta = nil
	}
	if err := s.store.CreateChatMessage(ctx, database.CreateChatMessageParams{
		ID:        sagaID(userID, requestID, "assistant_turn"),
		UserID:    userID,
		Role:      database.RoleAssistant,
		Content:   reply.Text,
		Metadata:  meta,
		CreatedAt: now.Add(time.Millisecond),
	}); err != nil {
		log.Warn().Err(err).Str("step", "assistant_turn").Msg("Saga step failed")
		resp.Saved = false
	}

	return resp, nil
}

// ChatHandler handles POST /chat.
func (s *Service) ChatHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	requestID := utility.GetRequestID(c)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	resp, err := s.Chat(c.Request().Context(), log, userID, requestID, req)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, resp)
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrEmptyTurn):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, coach.ErrGenerationFailed):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "The coach could not answer right now. Please try again."})
	default:
		log.Error().Err(err).Msg("Chat request failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process chat message"})
	}
}
