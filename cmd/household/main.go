package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"household/internal/auth"
	"household/internal/backend"
	"household/internal/cache"
	"household/internal/cli"
	apphttp "household/internal/http"
	applog "household/internal/log"
	"household/internal/metrics"
	"household/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var publisher services.EventPublisher
	if result.Publisher != nil {
		publisher = result.Publisher
	}

	m := metrics.New()
	janitor := cache.NewJanitor()
	insights, err := cli.InitInsights(context.Background(), logger, cfg, janitor, m.ObserveInsight)
	if err != nil {
		logger.Error("Failed to initialize insights", applog.FieldError, err, applog.FieldProvider, cfg.InsightProvider)
		os.Exit(1)
	}

	tasks := services.NewTaskService(result.Store)
	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:        result.Store,
		Auth:         auth.NewAuthenticator(result.Store, auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)),
		Tasks:        tasks,
		Goals:        services.NewGoalService(result.Store),
		Transactions: services.NewTransactionService(result.Store, publisher),
		Dashboard:    services.NewDashboardService(result.Store, result.Store),
		Insights:     insights,
		Metrics:      m,
		Logger:       logger,
	}, apphttp.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to configure server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	go janitor.Run(ctx, time.Minute)

	logger.Info("Starting household server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		applog.FieldProvider, cfg.InsightProvider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
