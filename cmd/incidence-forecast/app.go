package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/i474232898/incidence-forecast/internal/config"
	"github.com/i474232898/incidence-forecast/internal/forecast"
	"github.com/i474232898/incidence-forecast/internal/incidence"
	"github.com/i474232898/incidence-forecast/internal/logger"
	"github.com/i474232898/incidence-forecast/internal/metrics"
	"github.com/i474232898/incidence-forecast/internal/sources"
	"github.com/i474232898/incidence-forecast/internal/store"
)

// application is the wired object graph shared by the commands.
type application struct {
	cfg     *config.AppConfig
	log     zerolog.Logger
	service *incidence.Service
	metrics *metrics.Metrics
	cache   *store.MemoryStore
	// dataset is nil when the local data lives in Postgres.
	dataset *sources.Dataset
	pool    *pgxpool.Pool
}

// newApplication loads configuration and wires sources, cache, metrics and
// the service. Logs go to logOut.
func newApplication(ctx context.Context, logOut io.Writer) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Env: cfg.Env, Out: logOut})

	app := &application{cfg: cfg, log: log, metrics: metrics.New()}
	app.cache = store.NewMemoryStore(cfg.CacheSize, cfg.CacheTTL, app.metrics.ObserveCache)

	var local incidence.LocalSource
	switch cfg.LocalSource {
	case config.SourcePostgres:
		pool, err := sources.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.pool = pool
		local = sources.NewPostgresDataset(pool, cfg.LocalTable)
	default:
		app.dataset = sources.NewDataset(cfg.LocalCSV, log)
		local = app.dataset
	}

	var live incidence.LiveSource
	if !cfg.LiveDisabled {
		var limiter *rate.Limiter
		if cfg.LiveRateLimit > 0 {
			limiter = rate.NewLimiter(rate.Limit(cfg.LiveRateLimit), 1)
		}
		live = sources.NewDiseaseSh(sources.DiseaseShConfig{
			BaseURL: cfg.LiveBaseURL,
			Timeout: cfg.LiveTimeout,
			HTTP: sources.HTTPClientConfig{
				Client:  &http.Client{Timeout: cfg.HTTPTimeout},
				Backoff: sources.DefaultBackoff,
				Limiter: limiter,
			},
		})
	}

	var registry *forecast.Registry
	if cfg.ModelsDir != "" {
		if registry, err = forecast.NewRegistry(cfg.ModelsDir); err != nil {
			app.close()
			return nil, err
		}
	}

	app.service = incidence.NewService(incidence.ServiceConfig{
		Live:      live,
		Local:     local,
		Synthetic: sources.Synthetic{},
		Cache:     app.cache,
		Recorder:  app.metrics,
		Registry:  registry,
		Logger:    log,
	})
	return app, nil
}

func (a *application) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
