package user

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"nutricoach/internal/database"
	"nutricoach/internal/utility"
)

// HistoryMessage is one chat turn as shown to the client.
type HistoryMessage struct {
	ID        uuid.UUID       `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ImageURL  string          `json:"image_url,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func historyLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultHistoryPage
	}
	return min(n, maxHistoryPage)
}

// HistoryHandler handles GET /chat/history?limit=N and returns the latest
// turns oldest first.
func (s *Service) HistoryHandler(c echo.Context) error {
	log := utility.GetLogger(c)

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	msgs, err := s.store.ListRecentChatMessages(c.Request().Context(), userID, historyLimit(c.QueryParam("limit")))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list chat history")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load chat history"})
	}

	out := make([]HistoryMessage, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = toHistoryMessage(m)
	}

	return c.JSON(http.StatusOK, map[string]any{"messages": out})
}

func toHistoryMessage(m database.ChatMessage) HistoryMessage {
	return HistoryMessage{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt,
	}
}
