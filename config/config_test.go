package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("OLLAMA_URL", "http://localhost:11434")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "llama3:instruct", cfg.Ollama.Model)
	assert.Equal(t, 90, cfg.Scheduler.AuditRetentionDays)
	assert.Equal(t, "0 * * * * *", cfg.Scheduler.AlertEvalSpec)
	assert.False(t, cfg.Scheduler.Disabled)
}

func TestValidate_MissingRequired(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = "8080"
	assert.Error(t, cfg.Validate())

	cfg.Database.Host = "localhost"
	assert.Error(t, cfg.Validate())

	cfg.Ollama.URL = "http://localhost:11434"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "plantpulse",
		Password: "secret", Name: "plantpulse", SSLMode: "require",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestGetEnvAsInt_BadValueFallsBack(t *testing.T) {
	t.Setenv("OLLAMA_NUM_CTX", "not-a-number")
	t.Setenv("PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("OLLAMA_URL", "http://localhost:11434")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Ollama.NumCtx)
}
