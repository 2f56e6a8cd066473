package user

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"nutricoach/internal/coach"
	"nutricoach/internal/database"
	"nutricoach/internal/utility"
)

const (
	maxDisplayNameLen = 60
	minCalorieTarget  = 800
	maxCalorieTarget  = 6000
)

// UpdateProfileRequest is the body of PUT /profile.
type UpdateProfileRequest struct {
	DisplayName        string `json:"display_name"`
	Goal               string `json:"goal"`
	DailyCalorieTarget int32  `json:"daily_calorie_target"`
}

func (r UpdateProfileRequest) validate() error {
	name := strings.TrimSpace(r.DisplayName)
	if name == "" {
		return errors.New("display_name is required")
	}
	if len([]rune(name)) > maxDisplayNameLen {
		return errors.New("display_name is too long")
	}
	if utility.ContainsProfanity(name) {
		return errors.New("display_name contains inappropriate language")
	}
	if !coach.Goal(r.Goal).Valid() {
		return errors.New("goal must be one of lose_weight, gain_weight, eat_better, fitness")
	}
	if r.DailyCalorieTarget < minCalorieTarget || r.DailyCalorieTarget > maxCalorieTarget {
		return errors.New("daily_calorie_target must be between 800 and 6000")
	}
	return nil
}

// GetProfileHandler handles GET /profile. Users without a stored profile get
// the defaults the coach would use.
func (s *Service) GetProfileHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	p, err := s.store.GetCoachProfile(c.Request().Context(), userID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Error().Err(err).Msg("Failed to load coach profile")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load profile"})
	}

	resolved, _ := coach.ApplyProfileDefaults(coach.Profile{
		DisplayName:        p.DisplayName,
		Goal:               coach.Goal(p.Goal),
		DailyCalorieTarget: int(p.DailyCalorieTarget),
	})

	return c.JSON(http.StatusOK, map[string]any{
		"display_name":         resolved.DisplayName,
		"goal":                 resolved.Goal,
		"daily_calorie_target": resolved.DailyCalorieTarget,
		"is_default":           errors.Is(err, database.ErrNotFound),
	})
}

// UpdateProfileHandler handles PUT /profile.
func (s *Service) UpdateProfileHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	p := database.CoachProfile{
		UserID:             userID,
		DisplayName:        strings.TrimSpace(req.DisplayName),
		Goal:               req.Goal,
		DailyCalorieTarget: req.DailyCalorieTarget,
	}
	if err := s.store.UpsertCoachProfile(c.Request().Context(), p); err != nil {
		log.Error().Err(err).Msg("Failed to save coach profile")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save profile"})
	}

	log.Info().Str("goal", p.Goal).Msg("Coach profile updated")
	return c.JSON(http.StatusOK, map[string]any{
		"display_name":         p.DisplayName,
		"goal":                 p.Goal,
		"daily_calorie_target": p.DailyCalorieTarget,
	})
}
