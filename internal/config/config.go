package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Local dataset backends.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

type AppConfig struct {
	Port string
	Env  string

	LogLevel  string
	LogFormat string

	// LocalSource selects the local dataset backend: "csv" or "postgres".
	LocalSource string
	LocalCSV    string
	DatabaseURL string
	LocalTable  string

	// ReloadInterval controls how often the CSV dataset is re-read (0 = never).
	ReloadInterval time.Duration

	LiveBaseURL string
	LiveTimeout time.Duration
	// LiveRateLimit is the outbound request budget per second (0 = unlimited).
	LiveRateLimit float64
	// LiveDisabled skips the live stage entirely.
	LiveDisabled bool

	HTTPTimeout time.Duration

	// Forecast result cache.
	CacheSize int
	CacheTTL  time.Duration

	ModelsDir string

	DefaultHorizon int
	MaxHorizon     int
}

// Load reads configuration from the environment (and .env if present) with
// sensible defaults.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:           getenvDefault("PORT", "8080"),
		Env:            getenvDefault("ENV", "development"),
		LogLevel:       getenvDefault("LOG_LEVEL", "info"),
		LogFormat:      getenvDefault("LOG_FORMAT", "json"),
		LocalSource:    strings.ToLower(getenvDefault("LOCAL_DATA_SOURCE", SourceCSV)),
		LocalCSV:       getenvDefault("LOCAL_DATA_CSV", "data/incidence_monthly.csv"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LocalTable:     getenvDefault("LOCAL_DATA_TABLE", "incidence_monthly"),
		LiveBaseURL:    getenvDefault("LIVE_BASE_URL", "https://disease.sh/v3/covid-19"),
		LiveDisabled:   getenvBool("LIVE_DISABLED", false),
		CacheSize:      getenvInt("CACHE_SIZE", 256),
		ModelsDir:      getenvDefault("MODELS_DIR", "models"),
		DefaultHorizon: getenvInt("DEFAULT_HORIZON", 6),
		MaxHorizon:     getenvInt("MAX_HORIZON", 36),
	}

	var err error
	if cfg.ReloadInterval, err = getenvDuration("DATASET_RELOAD_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.LiveTimeout, err = getenvDuration("LIVE_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "15m"); err != nil {
		return nil, err
	}
	if v := os.Getenv("LIVE_RATE_LIMIT"); v != "" {
		if cfg.LiveRateLimit, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid LIVE_RATE_LIMIT: %w", err)
		}
	} else {
		cfg.LiveRateLimit = 5
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *AppConfig) Validate() error {
	switch c.LocalSource {
	case SourceCSV:
		if c.LocalCSV == "" {
			return fmt.Errorf("LOCAL_DATA_CSV is required when LOCAL_DATA_SOURCE=csv")
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when LOCAL_DATA_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("invalid LOCAL_DATA_SOURCE %q: want csv or postgres", c.LocalSource)
	}
	if c.MaxHorizon < 1 {
		return fmt.Errorf("MAX_HORIZON must be at least 1, got %d", c.MaxHorizon)
	}
	if c.DefaultHorizon < 1 || c.DefaultHorizon > c.MaxHorizon {
		return fmt.Errorf("DEFAULT_HORIZON must be within 1..%d, got %d", c.MaxHorizon, c.DefaultHorizon)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("CACHE_SIZE must not be negative, got %d", c.CacheSize)
	}
	if c.LiveRateLimit < 0 {
		return fmt.Errorf("LIVE_RATE_LIMIT must not be negative, got %g", c.LiveRateLimit)
	}
	for name, d := range map[string]time.Duration{
		"DATASET_RELOAD_INTERVAL": c.ReloadInterval,
		"LIVE_TIMEOUT":            c.LiveTimeout,
		"HTTP_TIMEOUT":            c.HTTPTimeout,
		"CACHE_TTL":               c.CacheTTL,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
