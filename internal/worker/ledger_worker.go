// Package worker holds the event handlers run by the background binaries.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"household/internal/amqp"
	"household/internal/ledger"
)

// LedgerWorker applies transaction events to the external ledger.
type LedgerWorker struct {
	ledger ledger.Ledger
}

func NewLedgerWorker(l ledger.Ledger) *LedgerWorker {
	return &LedgerWorker{ledger: l}
}

// HandleEvent is the AMQP consumer callback. Ledger errors requeue the
// message; malformed events wrap amqp.ErrPermanent so they are dropped.
func (w *LedgerWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"kind", ev.Kind,
		"id", ev.ID,
		"user_id", ev.UserID)

	switch ev.Kind {
	case amqp.TransactionCreated, amqp.TransactionUpdated:
		if ev.Transaction == nil {
			return fmt.Errorf("%w: %s event %s without transaction", amqp.ErrPermanent, ev.Kind, ev.ID)
		}
		if err := w.ledger.Upsert(ctx, *ev.Transaction); err != nil {
			return fmt.Errorf("upsert ledger row: %w", err)
		}
	case amqp.TransactionDeleted:
		if err := w.ledger.Delete(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete ledger row: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown event kind %q", amqp.ErrPermanent, ev.Kind)
	}
	return nil
}
