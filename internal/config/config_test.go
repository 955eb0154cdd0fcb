package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT", "LOCAL_DATA_SOURCE", "LOCAL_DATA_CSV",
	"DATABASE_URL", "LOCAL_DATA_TABLE", "DATASET_RELOAD_INTERVAL", "LIVE_BASE_URL",
	"LIVE_TIMEOUT", "LIVE_RATE_LIMIT", "LIVE_DISABLED", "HTTP_TIMEOUT", "CACHE_SIZE",
	"CACHE_TTL", "MODELS_DIR", "DEFAULT_HORIZON", "MAX_HORIZON",
}

// clearEnv blanks every key so ambient values do not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, SourceCSV, cfg.LocalSource)
	assert.Equal(t, time.Hour, cfg.ReloadInterval)
	assert.Equal(t, 10*time.Second, cfg.LiveTimeout)
	assert.Equal(t, 5.0, cfg.LiveRateLimit)
	assert.Equal(t, 6, cfg.DefaultHorizon)
	assert.Equal(t, 36, cfg.MaxHorizon)
	assert.False(t, cfg.LiveDisabled)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LOCAL_DATA_SOURCE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/incidence")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("LIVE_RATE_LIMIT", "0.5")
	t.Setenv("LIVE_DISABLED", "true")
	t.Setenv("MAX_HORIZON", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, SourcePostgres, cfg.LocalSource)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 0.5, cfg.LiveRateLimit)
	assert.True(t, cfg.LiveDisabled)
	assert.Equal(t, 12, cfg.MaxHorizon)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{"bad duration", map[string]string{"LIVE_TIMEOUT": "soon"}, "LIVE_TIMEOUT"},
		{"negative duration", map[string]string{"CACHE_TTL": "-1m"}, "CACHE_TTL"},
		{"bad rate", map[string]string{"LIVE_RATE_LIMIT": "fast"}, "LIVE_RATE_LIMIT"},
		{"unknown source", map[string]string{"LOCAL_DATA_SOURCE": "sqlite"}, "LOCAL_DATA_SOURCE"},
		{"postgres without dsn", map[string]string{"LOCAL_DATA_SOURCE": "postgres"}, "DATABASE_URL"},
		{"default above max", map[string]string{"DEFAULT_HORIZON": "40"}, "DEFAULT_HORIZON"},
		{"zero max", map[string]string{"MAX_HORIZON": "0"}, "MAX_HORIZON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
