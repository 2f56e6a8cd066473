package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"nutricoach/internal/coach"
	"nutricoach/internal/database"
	"nutricoach/internal/ledger"
	"nutricoach/internal/utility"
)

// SummaryResponse is the body of GET /summary.
type SummaryResponse struct {
	Summary            database.DailySummary `json:"summary"`
	Entries            []database.FoodEntry  `json:"entries"`
	DailyCalorieTarget int                   `json:"daily_calorie_target"`
	RemainingCalories  float64               `json:"remaining_calories"`
}

// DaySummary returns the running totals of one day together with its entries.
// A day without entries has a zero summary.
func (s *Service) DaySummary(ctx context.Context, userID, date string) (SummaryResponse, error) {
	var (
		sum     database.DailySummary
		entries []database.FoodEntry
		profile database.CoachProfile
	)
	g, grpCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		sum, err = s.store.GetDailySummary(grpCtx, userID, date)
		if errors.Is(err, database.ErrNotFound) {
			sum = database.DailySummary{UserID: userID, Date: date}
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.store.ListFoodEntries(grpCtx, userID, date)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.store.GetCoachProfile(grpCtx, userID)
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return SummaryResponse{}, err
	}

	if entries == nil {
		entries = []database.FoodEntry{}
	}
	target := int(profile.DailyCalorieTarget)
	if target <= 0 {
		target = coach.DefaultDailyCalorieTarget
	}

	return SummaryResponse{
		Summary:            sum,
		Entries:            entries,
		DailyCalorieTarget: target,
		RemainingCalories:  float64(target) - sum.TotalCalories,
	}, nil
}

// SummaryHandler handles GET /summary?date=YYYY-MM-DD.
func (s *Service) SummaryHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	date, err := utility.ParseDate(c.QueryParam("date"), s.now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	resp, err := s.DaySummary(c.Request().Context(), userID, date)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("Failed to load daily summary")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load daily summary"})
	}
	return c.JSON(http.StatusOK, resp)
}

// SummarySocketHandler handles GET /ws/summary. The socket receives the
// current summary on connect and a summary_updated message after every
// applied ledger entry.
func (s *Service) SummarySocketHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if s.hub == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Live updates are disabled"})
	}

	ws, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return nil
	}

	client := s.hub.Register(userID, ws)
	defer s.hub.Unregister(client)
	log.Debug().Int("open_sockets", s.hub.Connections(userID)).Msg("Summary socket opened")

	date, _ := utility.ParseDate("", s.now())
	sum, err := s.store.GetDailySummary(c.Request().Context(), userID, date)
	if errors.Is(err, database.ErrNotFound) {
		sum, err = database.DailySummary{UserID: userID, Date: date}, nil
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load summary for new socket")
	} else if err := client.Send(ledger.SummaryUpdate{Type: ledger.SummaryUpdatedType, Summary: sum}); err != nil {
		log.Warn().Err(err).Msg("Failed to send initial summary")
		return nil
	}

	// Keep the connection alive until the client goes away.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return nil
		}
	}
}
