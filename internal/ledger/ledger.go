// Package ledger mirrors stored transactions into an external ledger,
// one row per transaction keyed by its id.
package ledger

import (
	"context"

	"household/internal/core"
)

// Ports for outbound adapters.
type (
	// Writer inserts or replaces the row of a transaction.
	Writer interface {
		Upsert(ctx context.Context, tx core.Transaction) error
	}

	// Deleter removes the row of a transaction. Deleting a missing row is
	// not an error.
	Deleter interface {
		Delete(ctx context.Context, id string) error
	}

	Ledger interface {
		Writer
		Deleter
	}
)

// Header is the column layout every ledger adapter writes.
var Header = []string{"ID", "Data", "Título", "Valor", "Tipo", "Categoria", "Responsável", "Descrição", "Usuário"}

// Row renders tx in Header order. The amount is a plain decimal string.
func Row(tx core.Transaction) []string {
	return []string{
		tx.ID,
		core.DayKey(tx.Date),
		tx.Title,
		tx.Amount.String(),
		string(tx.Type),
		tx.Category,
		core.Deref(tx.Responsavel),
		core.Deref(tx.Description),
		tx.UserID,
	}
}
