package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"household/internal/amqp"
	"household/internal/core"
	"household/internal/report"
	"household/internal/storage"
)

// EventPublisher announces transaction writes to other processes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// TransactionService stores transactions and publishes an event after every
// successful write. Publishing is best effort.
type TransactionService struct {
	txs       storage.Transactions
	publisher EventPublisher
}

// NewTransactionService accepts a nil publisher when no broker is configured.
func NewTransactionService(txs storage.Transactions, publisher EventPublisher) *TransactionService {
	return &TransactionService{txs: txs, publisher: publisher}
}

type (
	NewTransaction struct {
		Title       string
		Amount      core.Money
		Type        core.TransactionType
		Category    string
		Date        time.Time
		Description *string
		Responsavel *string
	}

	// TransactionPatch changes only the non-nil fields. When Type or Amount
	// change, the amount sign is reconciled with the type again.
	TransactionPatch struct {
		Title       *string
		Amount      *core.Money
		Type        *core.TransactionType
		Category    *string
		Date        *time.Time
		Description *string
		Responsavel *string
	}
)

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	txs, err := s.txs.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) Create(ctx context.Context, userID string, in NewTransaction) (core.Transaction, error) {
	amount, typ, err := core.NormalizeAmount(in.Amount, in.Type)
	if err != nil {
		return core.Transaction{}, amountError(err)
	}
	tx := core.Transaction{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Amount:      amount,
		Type:        typ,
		Category:    strings.TrimSpace(in.Category),
		Date:        in.Date,
		Description: trimPtr(in.Description),
		Responsavel: trimPtr(in.Responsavel),
		UserID:      userID,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.txs.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", tx.ID,
		"user_id", userID,
		"amount_cents", tx.Amount.Cents)
	s.publish(ctx, amqp.TransactionCreated, tx)
	return tx, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id string, p TransactionPatch) (core.Transaction, error) {
	tx, err := s.owned(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if p.Title != nil {
		tx.Title = strings.TrimSpace(*p.Title)
	}
	if p.Category != nil {
		tx.Category = strings.TrimSpace(*p.Category)
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.Description != nil {
		tx.Description = core.StringPtr(*p.Description)
	}
	if p.Responsavel != nil {
		tx.Responsavel = core.StringPtr(*p.Responsavel)
	}
	if p.Amount != nil || p.Type != nil {
		amount := tx.Amount
		if p.Amount != nil {
			amount = *p.Amount
		}
		var declared core.TransactionType
		if p.Type != nil {
			declared = *p.Type
		} else if p.Amount == nil {
			declared = tx.Type
		}
		if tx.Amount, tx.Type, err = core.NormalizeAmount(amount, declared); err != nil {
			return core.Transaction{}, amountError(err)
		}
	}

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.txs.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.publish(ctx, amqp.TransactionUpdated, tx)
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	tx, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.txs.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "user_id", userID)
	s.publish(ctx, amqp.TransactionDeleted, tx)
	return nil
}

// Summary aggregates the transactions selected by f.
func (s *TransactionService) Summary(ctx context.Context, f storage.TransactionFilter) (report.FinancialSummary, error) {
	txs, err := s.List(ctx, f)
	if err != nil {
		return report.FinancialSummary{}, err
	}
	return report.Financial(txs), nil
}

// FillResponsavel labels every unlabelled transaction of the user.
func (s *TransactionService) FillResponsavel(ctx context.Context, userID, responsavel string) (int, error) {
	responsavel = strings.TrimSpace(responsavel)
	if responsavel == "" {
		return 0, &core.ValidationError{Field: "responsavel", Err: core.ErrEmptyName}
	}
	n, err := s.txs.FillResponsavel(ctx, userID, responsavel)
	if err != nil {
		return 0, fmt.Errorf("fill responsavel: %w", err)
	}
	slog.InfoContext(ctx, "Responsavel filled", "user_id", userID, "count", n)
	return n, nil
}

func (s *TransactionService) owned(ctx context.Context, userID, id string) (core.Transaction, error) {
	tx, err := s.txs.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *TransactionService) publish(ctx context.Context, kind amqp.EventKind, tx core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping transaction event", "kind", kind)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(kind, tx)); err != nil {
		// Don't fail the request, the transaction is stored.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind,
			"transaction_id", tx.ID,
			"error", err)
	}
}

func amountError(err error) error {
	field := "amount"
	if errors.Is(err, core.ErrInvalidType) {
		field = "type"
	}
	return &core.ValidationError{Field: field, Err: err}
}
