// Package storage defines the record store ports shared by every backend
// together with the filter semantics they must all honour.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"household/internal/core"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

type (
	Users interface {
		// CreateUser fails with ErrEmailTaken when the email is already used.
		CreateUser(ctx context.Context, u core.User) error
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	Tasks interface {
		// CreateTasks inserts all tasks in one operation.
		CreateTasks(ctx context.Context, tasks ...core.Task) error
		GetTask(ctx context.Context, id string) (core.Task, error)
		// ListTasks returns matches newest first.
		ListTasks(ctx context.Context, f TaskFilter) ([]core.Task, error)
		UpdateTask(ctx context.Context, t core.Task) error
		DeleteTask(ctx context.Context, id string) error
	}

	Goals interface {
		CreateGoal(ctx context.Context, g core.Goal) error
		GetGoal(ctx context.Context, id string) (core.Goal, error)
		// ListGoals returns matches newest first.
		ListGoals(ctx context.Context, f GoalFilter) ([]core.Goal, error)
		UpdateGoal(ctx context.Context, g core.Goal) error
		DeleteGoal(ctx context.Context, id string) error
	}

	Transactions interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		// ListTransactions returns matches by date, latest first.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
		// FillResponsavel sets responsavel on the user's transactions that
		// have none and reports how many rows changed.
		FillResponsavel(ctx context.Context, userID, responsavel string) (int, error)
	}

	// Store is the full record store a backend provides.
	Store interface {
		Users
		Tasks
		Goals
		Transactions
		Ping(ctx context.Context) error
		Close() error
	}
)

// TaskFilter selects tasks. Zero values mean "any".
type TaskFilter struct {
	UserID    string
	Tag       string
	Search    string
	Recurring *bool
	// CreatedFrom and CreatedTo are inclusive bounds.
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
}

func (f TaskFilter) Matches(t core.Task) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.Tag != "" && core.Deref(t.Tag) != f.Tag {
		return false
	}
	if f.Recurring != nil && t.Recurring != *f.Recurring {
		return false
	}
	if !inRange(t.CreatedAt, f.CreatedFrom, f.CreatedTo) {
		return false
	}
	return matchesSearch(f.Search, t.Title, core.Deref(t.Description))
}

// GoalFilter selects goals. Zero values mean "any".
type GoalFilter struct {
	UserID      string
	Responsible string
	Search      string
}

func (f GoalFilter) Matches(g core.Goal) bool {
	if f.UserID != "" && g.UserID != f.UserID {
		return false
	}
	if f.Responsible != "" && core.Deref(g.Responsible) != f.Responsible {
		return false
	}
	return matchesSearch(f.Search, g.Title, core.Deref(g.Description))
}

// TransactionFilter selects transactions. Zero values mean "any".
type TransactionFilter struct {
	UserID      string
	Category    string
	Type        core.TransactionType
	Responsavel string
	// From and To are inclusive bounds on the transaction date.
	From time.Time
	To   time.Time
}

func (f TransactionFilter) Matches(tx core.Transaction) bool {
	if f.UserID != "" && tx.UserID != f.UserID {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Responsavel != "" && core.Deref(tx.Responsavel) != f.Responsavel {
		return false
	}
	return inRange(tx.Date, f.From, f.To)
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

// matchesSearch is a case-insensitive substring match over any of fields.
func matchesSearch(search string, fields ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// SearchPattern builds the LIKE pattern SQL backends use for Search,
// escaping LIKE metacharacters with a backslash.
func SearchPattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}
