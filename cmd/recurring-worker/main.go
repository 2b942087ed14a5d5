package main

import (
	"context"
	"os"
	"time"

	"household/internal/backend"
	"household/internal/cli"
	applog "household/internal/log"
	"household/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker)
	logger.Info("Starting recurring-worker")

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	// Regeneration writes tasks only, so no publisher is needed.
	backendConfig.AMQPURL = ""
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	processor := services.NewRecurringProcessor(services.NewTaskService(result.Store), cfg.RenewInterval)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("Recurring processor stop failed", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Recurring task processor configured",
		"interval", cfg.RenewInterval.String(),
		"backend", cfg.DataBackend)
	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start recurring processor", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
