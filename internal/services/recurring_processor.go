package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Renewer runs one regeneration pass for the given instant.
type Renewer interface {
	Renew(ctx context.Context, now time.Time) (RenewResult, error)
}

// RecurringProcessor calls Renew on startup and then on every tick. Renew is
// idempotent per day, so ticks after the first one of a day are no-ops.
type RecurringProcessor struct {
	renewer  Renewer
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRecurringProcessor(renewer Renewer, interval time.Duration) *RecurringProcessor {
	return &RecurringProcessor{renewer: renewer, interval: interval, now: time.Now}
}

// Start begins the processing loop. Returns an error if already running.
func (p *RecurringProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("recurring processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Recurring processor started", "interval", p.interval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *RecurringProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Recurring processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurring processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *RecurringProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RecurringProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.RunOnce(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass and logs its outcome.
func (p *RecurringProcessor) RunOnce(ctx context.Context) {
	now := p.now()
	res, err := p.renewer.Renew(ctx, now)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring task regeneration failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "Recurring task regeneration complete",
		"generated", res.Generated,
		"count", res.Count,
		"message", res.Message,
		"next_check", now.Add(p.interval).Format("15:04:05"))
}
