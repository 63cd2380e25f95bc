package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 10, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 64, cfg.SubmitWorkers)
	assert.Equal(t, 7*24*time.Hour, cfg.OutboxRetention)
	assert.Equal(t, "@daily", cfg.OutboxCleanupSchedule)
	assert.True(t, cfg.PricingStrict)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("DB_DRIVER", "postgres")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.False(t, cfg.PricingStrict)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_PricingStrictOverride(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PRICING_STRICT", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.PricingStrict)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=7070\nRATE_LIMIT_MAX=25\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, 25, cfg.RateLimitMax)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_InvalidSubmitWorkers(t *testing.T) {
	t.Setenv("SUBMIT_WORKERS", "0")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
