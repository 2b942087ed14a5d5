// Package memory is an in-process ledger used by tests and local runs.
package memory

import (
	"context"
	"slices"
	"sync"

	"household/internal/core"
	"household/internal/ledger"
)

type Ledger struct {
	mu   sync.Mutex
	ids  []string
	rows map[string][]string
}

var _ ledger.Ledger = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{rows: make(map[string][]string)}
}

func (l *Ledger) Upsert(_ context.Context, tx core.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[tx.ID]; !ok {
		l.ids = append(l.ids, tx.ID)
	}
	l.rows[tx.ID] = ledger.Row(tx)
	return nil
}

func (l *Ledger) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[id]; !ok {
		return nil
	}
	delete(l.rows, id)
	l.ids = slices.DeleteFunc(l.ids, func(v string) bool { return v == id })
	return nil
}

// Rows returns a copy of the rows in insertion order.
func (l *Ledger) Rows() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]string, 0, len(l.ids))
	for _, id := range l.ids {
		out = append(out, slices.Clone(l.rows[id]))
	}
	return out
}
