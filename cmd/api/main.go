package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	user "nutricoach/internal/User"
	"nutricoach/internal/auth"
	"nutricoach/internal/catalog"
	"nutricoach/internal/coach"
	"nutricoach/internal/config"
	"nutricoach/internal/database"
	"nutricoach/internal/ledger"
	"nutricoach/internal/media"
	"nutricoach/internal/server"
	"nutricoach/internal/utility"
)

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight chat turns get the same budget as a model call.
	ctx, cancel := context.WithTimeout(context.Background(), 65*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogger(cfg)

	ctx := context.Background()

	dbService, err := database.NewService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not open database")
	}
	defer dbService.Close()

	cat, err := catalog.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load catalogs")
	}

	images, err := media.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not configure image storage")
	}

	limiter, err := utility.NewRateLimiter(cfg.ChatRatePerMinute, 10000)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create rate limiter")
	}

	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, every chat turn will fail")
	}

	agent := coach.NewAgent(
		coach.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL),
		cat,
		coach.Options{
			HistoryLimit:        cfg.HistoryLimit,
			ProductCatalogLimit: cfg.ProductCatalogLimit,
			RegionalFoodLimit:   cfg.RegionalFoodLimit,
			Policy:              coach.RecommendationPolicy{CooldownTurns: cfg.RecommendationCooldownTurns},
		},
	)

	hub := utility.NewHub()
	users := user.NewService(user.Deps{
		Store:         dbService,
		Agent:         agent,
		Ledger:        ledger.NewAggregator(dbService, hub),
		Media:         images,
		Hub:           hub,
		HistoryLimit:  cfg.HistoryLimit,
		CooldownTurns: cfg.RecommendationCooldownTurns,
	})

	apiServer := server.NewServer(cfg, server.Deps{
		DB:          dbService,
		Auth:        auth.NewAuthenticator(cfg.SessionSecret),
		Users:       users,
		ChatLimiter: limiter,
	})

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, done)

	log.Info().Str("addr", apiServer.Addr).Str("model", cfg.GeminiModel).Msg("Starting server")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server error")
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
