package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultIsValidForSQLite(t *testing.T) {
	cfg := Default()
	cfg.DBDriver = "sqlite"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.HistoryLimit)
	assert.Equal(t, 15, cfg.ProductCatalogLimit)
	assert.Equal(t, 20, cfg.RegionalFoodLimit)
	assert.Equal(t, 2, cfg.RecommendationCooldownTurns)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"PORT":                          "9090",
		"DB_DRIVER":                     "sqlite",
		"HISTORY_LIMIT":                 "4",
		"RECOMMENDATION_COOLDOWN_TURNS": "0",
		"LOG_PRETTY":                    "true",
		"AWS_REGION":                    "us-east-1",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 4, cfg.HistoryLimit)
	assert.Equal(t, 0, cfg.RecommendationCooldownTurns)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "us-east-1", cfg.S3Region)
}

func TestApplyEnvRejectsBadNumber(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{"HISTORY_LIMIT": "ten"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HISTORY_LIMIT")
}

func TestApplyEnvRejectsBadBool(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{"LOG_PRETTY": "sometimes"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_PRETTY")
}

func TestApplyEnvBuildsBlueprintURL(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{
		"BLUEPRINT_DB_HOST":     "db",
		"BLUEPRINT_DB_PORT":     "5432",
		"BLUEPRINT_DB_USERNAME": "coach",
		"BLUEPRINT_DB_PASSWORD": "secret",
		"BLUEPRINT_DB_DATABASE": "nutri",
		"BLUEPRINT_DB_SCHEMA":   "public",
	})))
	assert.Equal(t, "postgres://coach:secret@db:5432/nutri?sslmode=disable&search_path=public", cfg.DatabaseURL)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate(), "postgres without a URL must fail")

	cfg.DBDriver = "mysql"
	require.Error(t, cfg.Validate())

	cfg.DBDriver = "sqlite"
	cfg.HistoryLimit = 0
	require.Error(t, cfg.Validate())
}

func TestLoadReadsTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coach.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_driver = "sqlite"
sqlite_path = "/tmp/coach.db"
history_limit = 6
product_catalog_limit = 5
`), 0o600))

	t.Setenv("COACH_CONFIG", path)
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("PORT", "")
	t.Setenv("HISTORY_LIMIT", "")
	t.Setenv("PRODUCT_CATALOG_LIMIT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/coach.db", cfg.SQLitePath)
	assert.Equal(t, 6, cfg.HistoryLimit)
	assert.Equal(t, 5, cfg.ProductCatalogLimit)
}
