// Package cli provides common CLI initialization utilities shared by
// cmd/household, cmd/ledger-worker and cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"household/internal/cache"
	"household/internal/config"
	"household/internal/insight"
	"household/internal/insight/gemini"
	"household/internal/insight/openai"
	applog "household/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(component string) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// NewInsightGenerator returns the configured provider, or nil when
// INSIGHT_PROVIDER is none.
func NewInsightGenerator(ctx context.Context, cfg *config.Config) (insight.Generator, error) {
	switch cfg.InsightProvider {
	case config.InsightGemini:
		return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.InsightOpenAI:
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case config.InsightNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown insight provider %q", cfg.InsightProvider)
	}
}

// InitInsights wires the generator, the prompt set and an LRU cache that
// janitor keeps clean. observe may be nil.
func InitInsights(ctx context.Context, logger *applog.Logger, cfg *config.Config, janitor *cache.Janitor,
	observe func(provider, outcome string, elapsed time.Duration)) (*insight.Service, error) {
	gen, err := NewInsightGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	prompts, err := insight.LoadPrompts()
	if err != nil {
		return nil, err
	}

	lru := cache.NewLRU[string](cfg.InsightCacheSize, cfg.InsightCacheTTL)
	if janitor != nil {
		janitor.Register(lru)
	}
	opts := []insight.Option{insight.WithCache(lru)}
	if observe != nil {
		opts = append(opts, insight.WithObserver(observe))
	}

	logger.Info("Insight generator configured",
		applog.FieldProvider, cfg.InsightProvider,
		"cache_size", cfg.InsightCacheSize,
		"timeout", cfg.InsightTimeout.String())
	return insight.NewService(gen, cfg.InsightProvider, prompts, cfg.InsightTimeout, opts...), nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
