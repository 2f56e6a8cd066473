package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the Postgres statements of the coaching store.
type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const getCoachProfile = `-- name: GetCoachProfile :one
SELECT user_id, COALESCE(display_name, ''), COALESCE(goal, ''), COALESCE(daily_calorie_target, 0)
FROM coach_profiles
WHERE user_id = $1`

func (q *Queries) GetCoachProfile(ctx context.Context, userID string) (CoachProfile, error) {
	var p CoachProfile
	err := q.db.QueryRow(ctx, getCoachProfile, userID).Scan(&p.UserID, &p.DisplayName, &p.Goal, &p.DailyCalorieTarget)
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

const upsertCoachProfile = `-- name: UpsertCoachProfile :exec
INSERT INTO coach_profiles (user_id, display_name, goal, daily_calorie_target, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (user_id) DO UPDATE SET
    display_name = excluded.display_name,
    goal = excluded.goal,
    daily_calorie_target = excluded.daily_calorie_target,
    updated_at = now()`

func (q *Queries) UpsertCoachProfile(ctx context.Context, p CoachProfile) error {
	_, err := q.db.Exec(ctx, upsertCoachProfile, p.UserID, p.DisplayName, p.Goal, p.DailyCalorieTarget)
	return err
}

const getDailySummary = `-- name: GetDailySummary :one
SELECT user_id, summary_date, total_calories, total_protein, total_carbs, total_fat, entries_count, updated_at
FROM daily_summaries
WHERE user_id = $1 AND summary_date = $2`

func (q *Queries) GetDailySummary(ctx context.Context, userID, date string) (DailySummary, error) {
	day, err := parseDate(date)
	if err != nil {
		return DailySummary{}, err
	}
	s, err := scanPgSummary(q.db.QueryRow(ctx, getDailySummary, userID, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return DailySummary{UserID: userID, Date: date}, ErrNotFound
	}
	return s, err
}

const listRecentChatMessages = `-- name: ListRecentChatMessages :many
SELECT id, user_id, role, content, image_url, metadata, created_at
FROM chat_messages
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

// ListRecentChatMessages returns up to limit messages, newest first.
func (q *Queries) ListRecentChatMessages(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	rows, err := q.db.Query(ctx, listRecentChatMessages, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ChatMessage
	for rows.Next() {
		var (
			m        ChatMessage
			imageURL pgtype.Text
			metadata []byte
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &imageURL, &metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ImageURL = imageURL.String
		m.Metadata = metadata
		items = append(items, m)
	}
	return items, rows.Err()
}

const createChatMessage = `-- name: CreateChatMessage :exec
INSERT INTO chat_messages (id, user_id, role, content, image_url, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

// CreateChatMessage inserts a message; replaying the same id is a no-op.
func (q *Queries) CreateChatMessage(ctx context.Context, arg CreateChatMessageParams) error {
	var metadata []byte
	if len(arg.Metadata) > 0 {
		metadata = arg.Metadata
	}
	_, err := q.db.Exec(ctx, createChatMessage,
		arg.ID,
		arg.UserID,
		arg.Role,
		arg.Content,
		textOrNull(arg.ImageURL),
		metadata,
		arg.CreatedAt,
	)
	return err
}

const insertFoodEntry = `-- name: InsertFoodEntry :execrows
INSERT INTO food_entries (id, user_id, entry_date, food_name, calories, protein, carbs, fat,
    confidence, is_colombian, source, image_url, recommended_product, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO NOTHING`

func (q *Queries) insertFoodEntry(ctx context.Context, arg LogFoodEntryParams, day time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, insertFoodEntry,
		arg.ID,
		arg.UserID,
		day,
		arg.FoodName,
		arg.Calories,
		arg.Protein,
		arg.Carbs,
		arg.Fat,
		arg.Confidence,
		arg.IsColombian,
		arg.Source,
		textOrNull(arg.ImageURL),
		textOrNull(arg.RecommendedProduct),
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// The increment happens inside the database so concurrent writers never
// read-modify-write the same row from application memory.
const addToDailySummary = `-- name: AddToDailySummary :one
INSERT INTO daily_summaries (user_id, summary_date, total_calories, total_protein, total_carbs, total_fat, entries_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, now())
ON CONFLICT (user_id, summary_date) DO UPDATE SET
    total_calories = daily_summaries.total_calories + excluded.total_calories,
    total_protein  = daily_summaries.total_protein + excluded.total_protein,
    total_carbs    = daily_summaries.total_carbs + excluded.total_carbs,
    total_fat      = daily_summaries.total_fat + excluded.total_fat,
    entries_count  = daily_summaries.entries_count + 1,
    updated_at     = now()
RETURNING user_id, summary_date, total_calories, total_protein, total_carbs, total_fat, entries_count, updated_at`

func (q *Queries) addToDailySummary(ctx context.Context, arg LogFoodEntryParams, day time.Time) (DailySummary, error) {
	return scanPgSummary(q.db.QueryRow(ctx, addToDailySummary,
		arg.UserID, day, arg.Calories, arg.Protein, arg.Carbs, arg.Fat))
}

const listFoodEntries = `-- name: ListFoodEntries :many
SELECT id, user_id, entry_date, food_name, calories, protein, carbs, fat,
    confidence, is_colombian, source, image_url, recommended_product, created_at
FROM food_entries
WHERE user_id = $1 AND entry_date = $2
ORDER BY created_at ASC`

func (q *Queries) ListFoodEntries(ctx context.Context, userID, date string) ([]FoodEntry, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, listFoodEntries, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []FoodEntry
	for rows.Next() {
		var (
			e           FoodEntry
			entryDate   time.Time
			imageURL    pgtype.Text
			recommended pgtype.Text
		)
		if err := rows.Scan(&e.ID, &e.UserID, &entryDate, &e.FoodName, &e.Calories, &e.Protein, &e.Carbs, &e.Fat,
			&e.Confidence, &e.IsColombian, &e.Source, &imageURL, &recommended, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Date = entryDate.Format(DateLayout)
		e.ImageURL = imageURL.String
		e.RecommendedProduct = recommended.String
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanPgSummary(row pgx.Row) (DailySummary, error) {
	var (
		s   DailySummary
		day time.Time
	)
	err := row.Scan(&s.UserID, &day, &s.TotalCalories, &s.TotalProtein, &s.TotalCarbs, &s.TotalFat, &s.EntriesCount, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	s.Date = day.Format(DateLayout)
	return s, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func parseDate(date string) (time.Time, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day, nil
}
