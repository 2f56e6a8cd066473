package database

// postgresSchema is applied at startup; every statement is idempotent.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS coach_profiles (
		user_id              TEXT PRIMARY KEY,
		display_name         TEXT,
		goal                 TEXT,
		daily_calorie_target INTEGER,
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id         UUID PRIMARY KEY,
		user_id    TEXT NOT NULL,
		role       TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content    TEXT NOT NULL,
		image_url  TEXT,
		metadata   JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS food_entries (
		id                  UUID PRIMARY KEY,
		user_id             TEXT NOT NULL,
		entry_date          DATE NOT NULL,
		food_name           TEXT NOT NULL,
		calories            DOUBLE PRECISION NOT NULL CHECK (calories >= 0),
		protein             DOUBLE PRECISION NOT NULL CHECK (protein >= 0),
		carbs               DOUBLE PRECISION NOT NULL CHECK (carbs >= 0),
		fat                 DOUBLE PRECISION NOT NULL CHECK (fat >= 0),
		confidence          TEXT NOT NULL,
		is_colombian        BOOLEAN NOT NULL DEFAULT false,
		source              TEXT NOT NULL,
		image_url           TEXT,
		recommended_product TEXT,
		created_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_food_entries_user_date ON food_entries (user_id, entry_date)`,
	`CREATE TABLE IF NOT EXISTS daily_summaries (
		user_id        TEXT NOT NULL,
		summary_date   DATE NOT NULL,
		total_calories DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_protein  DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_carbs    DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_fat      DOUBLE PRECISION NOT NULL DEFAULT 0,
		entries_count  INTEGER NOT NULL DEFAULT 0,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, summary_date)
	)`,
}

// sqliteSchema mirrors postgresSchema. Dates are TEXT (YYYY-MM-DD) and
// timestamps are fixed-width UTC TEXT so they sort lexically.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS coach_profiles (
	user_id              TEXT PRIMARY KEY,
	display_name         TEXT,
	goal                 TEXT,
	daily_calorie_target INTEGER,
	updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content    TEXT NOT NULL,
	image_url  TEXT,
	metadata   TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages (user_id, created_at);

CREATE TABLE IF NOT EXISTS food_entries (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	entry_date          TEXT NOT NULL,
	food_name           TEXT NOT NULL,
	calories            REAL NOT NULL CHECK (calories >= 0),
	protein             REAL NOT NULL CHECK (protein >= 0),
	carbs               REAL NOT NULL CHECK (carbs >= 0),
	fat                 REAL NOT NULL CHECK (fat >= 0),
	confidence          TEXT NOT NULL,
	is_colombian        INTEGER NOT NULL DEFAULT 0,
	source              TEXT NOT NULL,
	image_url           TEXT,
	recommended_product TEXT,
	created_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_food_entries_user_date ON food_entries (user_id, entry_date);

CREATE TABLE IF NOT EXISTS daily_summaries (
	user_id        TEXT NOT NULL,
	summary_date   TEXT NOT NULL,
	total_calories REAL NOT NULL DEFAULT 0,
	total_protein  REAL NOT NULL DEFAULT 0,
	total_carbs    REAL NOT NULL DEFAULT 0,
	total_fat      REAL NOT NULL DEFAULT 0,
	entries_count  INTEGER NOT NULL DEFAULT 0,
	updated_at     TEXT NOT NULL,
	PRIMARY KEY (user_id, summary_date)
);
`
