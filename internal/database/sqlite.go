package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// sqliteTimeLayout is fixed width so TEXT ordering equals time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Service on an embedded SQLite file. It backs local
// development and the storage tests.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the handle for fixtures.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close sqlite")
	}
}

func (s *SQLiteStore) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := map[string]string{"driver": "sqlite"}
	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}
	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprint(dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprint(dbStats.InUse)
	stats["wait_count"] = fmt.Sprint(dbStats.WaitCount)
	return stats
}

func (s *SQLiteStore) GetCoachProfile(ctx context.Context, userID string) (CoachProfile, error) {
	var p CoachProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, COALESCE(display_name, ''), COALESCE(goal, ''), COALESCE(daily_calorie_target, 0)
		FROM coach_profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.DisplayName, &p.Goal, &p.DailyCalorieTarget)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) UpsertCoachProfile(ctx context.Context, p CoachProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coach_profiles (user_id, display_name, goal, daily_calorie_target, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = excluded.display_name,
			goal = excluded.goal,
			daily_calorie_target = excluded.daily_calorie_target,
			updated_at = excluded.updated_at`,
		p.UserID, p.DisplayName, p.Goal, p.DailyCalorieTarget, formatTime(time.Now()))
	return err
}

func (s *SQLiteStore) ListRecentChatMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, COALESCE(image_url, ''), metadata, created_at
		FROM chat_messages
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ChatMessage
	for rows.Next() {
		var (
			m         ChatMessage
			metadata  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.ImageURL, &metadata, &createdAt); err != nil {
			return nil, err
		}
		if metadata.Valid {
			m.Metadata = []byte(metadata.String)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) CreateChatMessage(ctx context.Context, arg CreateChatMessageParams) error {
	var metadata sql.NullString
	if len(arg.Metadata) > 0 {
		metadata = sql.NullString{String: string(arg.Metadata), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, user_id, role, content, image_url, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		arg.ID.String(), arg.UserID, arg.Role, arg.Content, nullString(arg.ImageURL), metadata, formatTime(arg.CreatedAt))
	return err
}

const sqliteSummaryColumns = `user_id, summary_date, total_calories, total_protein, total_carbs, total_fat, entries_count, updated_at`

func (s *SQLiteStore) GetDailySummary(ctx context.Context, userID, date string) (DailySummary, error) {
	if _, err := parseDate(date); err != nil {
		return DailySummary{}, err
	}
	summary, err := scanSQLiteSummary(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteSummaryColumns+` FROM daily_summaries WHERE user_id = ? AND summary_date = ?`,
		userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return DailySummary{UserID: userID, Date: date}, ErrNotFound
	}
	return summary, err
}

func (s *SQLiteStore) LogFoodEntry(ctx context.Context, arg LogFoodEntryParams) (DailySummary, bool, error) {
	if _, err := parseDate(arg.Date); err != nil {
		return DailySummary{}, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DailySummary{}, false, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO food_entries (id, user_id, entry_date, food_name, calories, protein, carbs, fat,
			confidence, is_colombian, source, image_url, recommended_product, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		arg.ID.String(), arg.UserID, arg.Date, arg.FoodName,
		arg.Calories, arg.Protein, arg.Carbs, arg.Fat,
		arg.Confidence, arg.IsColombian, arg.Source,
		nullString(arg.ImageURL), nullString(arg.RecommendedProduct), formatTime(arg.CreatedAt))
	if err != nil {
		return DailySummary{}, false, fmt.Errorf("failed to insert food entry: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return DailySummary{}, false, err
	}

	var row *sql.Row
	if inserted == 0 {
		row = tx.QueryRowContext(ctx,
			`SELECT `+sqliteSummaryColumns+` FROM daily_summaries WHERE user_id = ? AND summary_date = ?`,
			arg.UserID, arg.Date)
	} else {
		row = tx.QueryRowContext(ctx, `
			INSERT INTO daily_summaries (`+sqliteSummaryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT (user_id, summary_date) DO UPDATE SET
				total_calories = daily_summaries.total_calories + excluded.total_calories,
				total_protein  = daily_summaries.total_protein + excluded.total_protein,
				total_carbs    = daily_summaries.total_carbs + excluded.total_carbs,
				total_fat      = daily_summaries.total_fat + excluded.total_fat,
				entries_count  = daily_summaries.entries_count + 1,
				updated_at     = excluded.updated_at
			RETURNING `+sqliteSummaryColumns,
			arg.UserID, arg.Date, arg.Calories, arg.Protein, arg.Carbs, arg.Fat, formatTime(time.Now()))
	}

	summary, err := scanSQLiteSummary(row)
	if err != nil {
		return DailySummary{}, false, fmt.Errorf("failed to update daily summary: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return DailySummary{}, false, fmt.Errorf("failed to commit ledger update: %w", err)
	}
	return summary, inserted > 0, nil
}

func (s *SQLiteStore) ListFoodEntries(ctx context.Context, userID, date string) ([]FoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, entry_date, food_name, calories, protein, carbs, fat,
			confidence, is_colombian, source, COALESCE(image_url, ''), COALESCE(recommended_product, ''), created_at
		FROM food_entries
		WHERE user_id = ? AND entry_date = ?
		ORDER BY created_at ASC`, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FoodEntry
	for rows.Next() {
		var (
			e         FoodEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.FoodName, &e.Calories, &e.Protein, &e.Carbs, &e.Fat,
			&e.Confidence, &e.IsColombian, &e.Source, &e.ImageURL, &e.RecommendedProduct, &createdAt); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanSQLiteSummary(row *sql.Row) (DailySummary, error) {
	var (
		s         DailySummary
		updatedAt string
	)
	if err := row.Scan(&s.UserID, &s.Date, &s.TotalCalories, &s.TotalProtein, &s.TotalCarbs, &s.TotalFat, &s.EntriesCount, &updatedAt); err != nil {
		return s, err
	}
	var err error
	s.UpdatedAt, err = parseTime(updatedAt)
	return s, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
