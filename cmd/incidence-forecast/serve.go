package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/incidence-forecast/internal/api/http"
	"github.com/i474232898/incidence-forecast/internal/scheduler"
)

const serviceName = "incidence-forecast"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApplication(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	// Reload the CSV dataset periodically; cached forecasts are dropped after
	// every successful reload.
	if a.dataset != nil {
		if err := a.dataset.Reload(); err != nil {
			log.Warn().Err(err).Msg("initial dataset load failed; continuing without local data")
		}
		sched := scheduler.New(a.dataset, a.cfg.ReloadInterval, func(err error) {
			a.metrics.ObserveReload(err)
			if err == nil {
				a.cache.Purge()
			}
		}, log)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          a.cfg.HTTPTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler(log),
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	httpapi.RegisterOps(app, serviceName, a.metrics.Handler())
	httpapi.RegisterRoutes(app, a.service, httpapi.Options{
		DefaultHorizon: a.cfg.DefaultHorizon,
		MaxHorizon:     a.cfg.MaxHorizon,
		RequestTimeout: a.cfg.HTTPTimeout,
	})

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", a.cfg.Port).Msg("http server listening")
		errc <- app.Listen(":" + a.cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("http server stopped")
	return nil
}
