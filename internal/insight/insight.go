// Package insight turns dashboard summaries into short advice produced by
// an external text-generation model.
package insight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"household/internal/cache"
	"household/internal/report"
)

// Texts returned instead of generated advice.
const (
	Fallback = "Não foi possível gerar o insight."
	Empty    = "Nenhum insight gerado."
)

// ErrNotConfigured is reported when no provider was set up.
var ErrNotConfigured = errors.New("insight provider not configured")

// Generator calls a text-generation model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service never fails: errors and timeouts degrade to Fallback.
type Service struct {
	gen      Generator
	provider string
	prompts  *Prompts
	timeout  time.Duration
	cache    cache.Cache[string]
	observe  func(provider, outcome string, elapsed time.Duration)
}

type Option func(*Service)

// WithCache caches successful generations by prompt.
func WithCache(c cache.Cache[string]) Option {
	return func(s *Service) { s.cache = c }
}

// WithObserver reports each generation outcome, e.g. to metrics.
func WithObserver(fn func(provider, outcome string, elapsed time.Duration)) Option {
	return func(s *Service) { s.observe = fn }
}

// NewService wraps gen, which may be nil when no provider is configured.
func NewService(gen Generator, provider string, prompts *Prompts, timeout time.Duration, opts ...Option) *Service {
	s := &Service{gen: gen, provider: provider, prompts: prompts, timeout: timeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcomes passed to the observer.
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeDisabled = "disabled"
)

// Generate returns the model's answer for prompt, Empty for a blank
// answer and Fallback on any failure.
func (s *Service) Generate(ctx context.Context, prompt string) string {
	start := time.Now()
	key := promptKey(prompt)
	if s.cache != nil {
		if text, ok := s.cache.Get(key); ok {
			s.record(OutcomeCached, start)
			return text
		}
	}

	if s.gen == nil {
		slog.WarnContext(ctx, "Insight requested without a provider", "error", ErrNotConfigured)
		s.record(OutcomeDisabled, start)
		return Fallback
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.gen.Generate(genCtx, prompt)
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}
		slog.ErrorContext(ctx, "Insight generation failed",
			"provider", s.provider,
			"outcome", outcome,
			"error", err)
		s.record(outcome, start)
		return Fallback
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.record(OutcomeEmpty, start)
		return Empty
	}
	if s.cache != nil {
		s.cache.Set(key, text)
	}
	s.record(OutcomeOK, start)
	return text
}

// Financial advises on a free-text financial summary.
func (s *Service) Financial(ctx context.Context, summary string) string {
	prompt, err := s.prompts.Financial(summary)
	if err != nil {
		return s.promptFailed(ctx, err)
	}
	return s.Generate(ctx, prompt)
}

// Productivity advises on daily completion and per-tag counts.
func (s *Service) Productivity(ctx context.Context, days []report.DayProductivity, tags []report.TagCount) string {
	prompt, err := s.prompts.Productivity(days, tags)
	if err != nil {
		return s.promptFailed(ctx, err)
	}
	return s.Generate(ctx, prompt)
}

// Complete advises on goals, the daily routine and finances together.
func (s *Service) Complete(ctx context.Context, goals []GoalLine, routine []RoutineItem, financial string) string {
	prompt, err := s.prompts.Complete(goals, routine, financial)
	if err != nil {
		return s.promptFailed(ctx, err)
	}
	return s.Generate(ctx, prompt)
}

func (s *Service) promptFailed(ctx context.Context, err error) string {
	slog.ErrorContext(ctx, "Insight prompt rendering failed", "error", err)
	return Fallback
}

func (s *Service) record(outcome string, start time.Time) {
	if s.observe != nil {
		s.observe(s.provider, outcome, time.Since(start))
	}
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
