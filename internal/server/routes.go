package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"nutricoach/internal/admin"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", admin.HealthHandler(s.db))

	// Protected routes
	protected := e.Group("")
	protected.Use(s.auth.JwtAuthMiddleware)

	// Coaching chat
	chatMiddleware := []echo.MiddlewareFunc{}
	if s.chatLimiter != nil {
		chatMiddleware = append(chatMiddleware, s.chatLimiter.Middleware())
	}
	protected.POST("/chat", s.users.ChatHandler, chatMiddleware...)
	protected.GET("/chat/history", s.users.HistoryHandler)

	// Daily ledger
	protected.GET("/summary", s.users.SummaryHandler)
	protected.GET("/ws/summary", s.users.SummarySocketHandler)

	// Coach profile
	protected.GET("/profile", s.users.GetProfileHandler)
	protected.PUT("/profile", s.users.UpdateProfileHandler)

	return e
}

// LoggerMiddleware tags the request with an id (the caller's X-Request-ID
// when present) and a logger carrying it.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}
