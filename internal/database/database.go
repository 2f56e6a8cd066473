package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"nutricoach/internal/config"
)

// Store is the persistence surface of the coaching pipeline.
type Store interface {
	GetCoachProfile(ctx context.Context, userID string) (CoachProfile, error)
	UpsertCoachProfile(ctx context.Context, p CoachProfile) error

	ListRecentChatMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error)
	CreateChatMessage(ctx context.Context, arg CreateChatMessageParams) error

	GetDailySummary(ctx context.Context, userID, date string) (DailySummary, error)
	ListFoodEntries(ctx context.Context, userID, date string) ([]FoodEntry, error)

	// LogFoodEntry inserts the entry and folds it into the (user, date)
	// summary in one transaction. applied is false when the entry id was
	// already logged; the summary is then returned unchanged.
	LogFoodEntry(ctx context.Context, arg LogFoodEntryParams) (summary DailySummary, applied bool, err error)
}

// Service represents a service that interacts with a database.
type Service interface {
	Store

	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	Close()
}

// NewService opens the store selected by cfg.DBDriver and applies the schema.
func NewService(ctx context.Context, cfg config.Config) (Service, error) {
	switch cfg.DBDriver {
	case "sqlite":
		s, err := NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("Connected to sqlite")
		return s, nil
	case "postgres":
		s, err := newPostgresService(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Connected to postgres")
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

type service struct {
	*Queries
	Dbpool *pgxpool.Pool
}

func newPostgresService(ctx context.Context, connStr string) (*service, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &service{Queries: New(pool), Dbpool: pool}, nil
}

func (s *service) LogFoodEntry(ctx context.Context, arg LogFoodEntryParams) (DailySummary, bool, error) {
	day, err := parseDate(arg.Date)
	if err != nil {
		return DailySummary{}, false, err
	}

	tx, err := s.Dbpool.Begin(ctx)
	if err != nil {
		return DailySummary{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	qtx := s.Queries.WithTx(tx)

	inserted, err := qtx.insertFoodEntry(ctx, arg, day)
	if err != nil {
		return DailySummary{}, false, fmt.Errorf("failed to insert food entry: %w", err)
	}

	var summary DailySummary
	if inserted == 0 {
		summary, err = qtx.GetDailySummary(ctx, arg.UserID, arg.Date)
	} else {
		summary, err = qtx.addToDailySummary(ctx, arg, day)
	}
	if err != nil {
		return DailySummary{}, false, fmt.Errorf("failed to update daily summary: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DailySummary{}, false, fmt.Errorf("failed to commit ledger update: %w", err)
	}
	return summary, inserted > 0, nil
}

// Health checks the health of the database connection.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.Dbpool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Error().Err(err).Msg("db down")
		return stats
	}

	poolStats := s.Dbpool.Stat()
	stats["status"] = "up"
	stats["driver"] = "postgres"
	stats["total_conns"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(poolStats.MaxConns()))
	stats["acquire_duration_ms"] = strconv.FormatInt(poolStats.AcquireDuration().Milliseconds(), 10)

	if poolStats.AcquiredConns() > (poolStats.MaxConns() * 8 / 10) { // 80% capacity
		stats["message"] = "The database connection pool is experiencing heavy load."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() {
	log.Info().Msg("Disconnected from postgres")
	s.Dbpool.Close()
}
