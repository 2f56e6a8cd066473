/*
Package config resolves the service configuration.

Values are layered: built-in defaults, then an optional TOML file named by
COACH_CONFIG, then environment variables (a local .env file is autoloaded).
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	_ "github.com/joho/godotenv/autoload"
)

// Config holds every tunable of the coaching service.
type Config struct {
	Port int `toml:"port"`

	// Storage
	DBDriver    string `toml:"db_driver"` // "postgres" or "sqlite"
	DatabaseURL string `toml:"database_url"`
	SQLitePath  string `toml:"sqlite_path"`

	// Model provider
	GeminiAPIKey  string `toml:"gemini_api_key"`
	GeminiModel   string `toml:"gemini_model"`
	GeminiBaseURL string `toml:"gemini_base_url"`

	// Auth
	SessionSecret string `toml:"session_secret"`

	// Coaching pipeline bounds
	HistoryLimit                int `toml:"history_limit"`
	ProductCatalogLimit         int `toml:"product_catalog_limit"`
	RegionalFoodLimit           int `toml:"regional_food_limit"`
	RecommendationCooldownTurns int `toml:"recommendation_cooldown_turns"`
	ChatRatePerMinute           int `toml:"chat_rate_per_minute"`

	// Image storage
	S3Bucket    string `toml:"s3_bucket"`
	S3Region    string `toml:"s3_region"`
	S3PublicURL string `toml:"s3_public_url"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogPretty bool   `toml:"log_pretty"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Port:                        8080,
		DBDriver:                    "postgres",
		SQLitePath:                  "nutricoach.db",
		GeminiModel:                 "gemini-2.5-flash",
		GeminiBaseURL:               "https://generativelanguage.googleapis.com/v1beta",
		HistoryLimit:                10,
		ProductCatalogLimit:         15,
		RegionalFoodLimit:           20,
		RecommendationCooldownTurns: 2,
		ChatRatePerMinute:           20,
		LogLevel:                    "info",
	}
}

// Load builds the configuration from defaults, the optional TOML file and the environment.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("COACH_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment. getenv is injected for tests.
func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
		return nil
	}

	str("DB_DRIVER", &c.DBDriver)
	str("DATABASE_URL", &c.DatabaseURL)
	str("SQLITE_PATH", &c.SQLitePath)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)
	str("GEMINI_BASE_URL", &c.GeminiBaseURL)
	str("SESSION_SECRET", &c.SessionSecret)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_PUBLIC_URL", &c.S3PublicURL)
	str("LOG_LEVEL", &c.LogLevel)

	if c.S3Region == "" {
		str("AWS_REGION", &c.S3Region)
	}

	for key, dst := range map[string]*int{
		"PORT":                          &c.Port,
		"HISTORY_LIMIT":                 &c.HistoryLimit,
		"PRODUCT_CATALOG_LIMIT":         &c.ProductCatalogLimit,
		"REGIONAL_FOOD_LIMIT":           &c.RegionalFoodLimit,
		"RECOMMENDATION_COOLDOWN_TURNS": &c.RecommendationCooldownTurns,
		"CHAT_RATE_PER_MINUTE":          &c.ChatRatePerMinute,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}

	if v := strings.TrimSpace(getenv("LOG_PRETTY")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_PRETTY %q: %w", v, err)
		}
		c.LogPretty = b
	}

	// Fall back to the discrete BLUEPRINT_DB_* variables when no URL is given.
	if c.DatabaseURL == "" && getenv("BLUEPRINT_DB_HOST") != "" {
		c.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
			getenv("BLUEPRINT_DB_USERNAME"),
			getenv("BLUEPRINT_DB_PASSWORD"),
			getenv("BLUEPRINT_DB_HOST"),
			getenv("BLUEPRINT_DB_PORT"),
			getenv("BLUEPRINT_DB_DATABASE"),
			getenv("BLUEPRINT_DB_SCHEMA"),
		)
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL (or BLUEPRINT_DB_*) is required for the postgres driver")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive")
	}
	if c.ProductCatalogLimit < 0 || c.RegionalFoodLimit < 0 {
		return fmt.Errorf("catalog limits must not be negative")
	}
	if c.RecommendationCooldownTurns < 0 {
		return fmt.Errorf("recommendation_cooldown_turns must not be negative")
	}
	return nil
}
