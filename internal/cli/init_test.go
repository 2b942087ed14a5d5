package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"household/internal/cache"
	"household/internal/config"
	"household/internal/insight"
	"household/internal/insight/openai"
	applog "household/internal/log"
)

func TestNewInsightGenerator(t *testing.T) {
	ctx := context.Background()

	gen, err := NewInsightGenerator(ctx, &config.Config{InsightProvider: config.InsightNone})
	if err != nil || gen != nil {
		t.Fatalf("none provider = %v, %v", gen, err)
	}

	gen, err = NewInsightGenerator(ctx, &config.Config{InsightProvider: config.InsightOpenAI, OpenAIBaseURL: "http://localhost:11434/v1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gen.(*openai.Client); !ok {
		t.Fatalf("openai provider built %T", gen)
	}

	gen, err = NewInsightGenerator(ctx, &config.Config{InsightProvider: config.InsightGemini, GeminiAPIKey: "key"})
	if err != nil || gen == nil {
		t.Fatalf("gemini provider = %v, %v", gen, err)
	}

	if _, err := NewInsightGenerator(ctx, &config.Config{InsightProvider: "claude"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestInitInsightsWithoutProviderFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf})
	janitor := cache.NewJanitor()

	var outcomes []string
	svc, err := InitInsights(context.Background(), logger, &config.Config{
		InsightProvider:  config.InsightNone,
		InsightTimeout:   time.Second,
		InsightCacheSize: 8,
		InsightCacheTTL:  time.Minute,
	}, janitor, func(_, outcome string, _ time.Duration) { outcomes = append(outcomes, outcome) })
	if err != nil {
		t.Fatal(err)
	}

	if got := svc.Financial(context.Background(), "saldo positivo"); got != insight.Fallback {
		t.Fatalf("insight = %q", got)
	}
	if len(outcomes) != 1 || outcomes[0] != insight.OutcomeDisabled {
		t.Fatalf("outcomes = %v", outcomes)
	}
	if janitor.Sweep() != 0 {
		t.Fatal("nothing should be cached")
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, applog.ComponentWorker)
	if logger.Component() != applog.ComponentWorker {
		t.Fatalf("component = %q", logger.Component())
	}
	if !logger.Enabled(context.Background(), -4) {
		t.Fatal("debug level should be enabled")
	}
}
