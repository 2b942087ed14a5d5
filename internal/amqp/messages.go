package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"household/internal/core"
)

// EventKind names what happened to a transaction.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case TransactionCreated, TransactionUpdated, TransactionDeleted:
		return true
	}
	return false
}

// TransactionEvent is published after a transaction write succeeds.
// Created and updated events carry the stored transaction; deleted events
// carry only its identity.
type TransactionEvent struct {
	Kind        EventKind         `json:"kind"`
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewTransactionEvent builds an event for tx. The snapshot is dropped for
// deletions.
func NewTransactionEvent(kind EventKind, tx core.Transaction) *TransactionEvent {
	ev := &TransactionEvent{
		Kind:      kind,
		ID:        tx.ID,
		UserID:    tx.UserID,
		Timestamp: time.Now(),
	}
	if kind != TransactionDeleted {
		snapshot := tx
		ev.Transaction = &snapshot
	}
	return ev
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("event without transaction id")
	}
	if msg.Kind != TransactionDeleted && msg.Transaction == nil {
		return nil, fmt.Errorf("%s event without transaction", msg.Kind)
	}
	return &msg, nil
}
