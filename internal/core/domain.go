package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	TaskPending TaskStatus = "Pendente"
	TaskDone    TaskStatus = "Concluído"

	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TaskStatus string

	TransactionType string

	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	Task struct {
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		Description *string    `json:"description,omitempty"`
		Status      TaskStatus `json:"status"`
		Tag         *string    `json:"tag,omitempty"`
		Recurring   bool       `json:"recurring"`
		UserID      string     `json:"userId"`
		CreatedAt   time.Time  `json:"createdAt"`
	}

	Goal struct {
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		Description *string    `json:"description,omitempty"`
		Category    *string    `json:"category,omitempty"`
		Responsible *string    `json:"responsible,omitempty"`
		Deadline    *time.Time `json:"deadline,omitempty"`
		Completed   bool       `json:"completed"`
		UserID      string     `json:"userId"`
		CreatedAt   time.Time  `json:"createdAt"`
	}

	// Transaction amounts are signed: positive is income, negative is expense.
	Transaction struct {
		ID          string          `json:"id"`
		Title       string          `json:"title"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Date        time.Time       `json:"date"`
		Description *string         `json:"description,omitempty"`
		Responsavel *string         `json:"responsavel,omitempty"`
		UserID      string          `json:"userId"`
	}
)

var (
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrTypeMismatch  = errors.New("transaction type does not match amount sign")
	ErrMissingOwner  = errors.New("missing owning user")
)

// ValidationError ties a validation failure to the offending field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskDone
}

// ParseTaskStatus accepts both the stored labels and their English names.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pendente", "pending":
		return TaskPending, nil
	case "concluído", "concluido", "done":
		return TaskDone, nil
	}
	return "", ErrInvalidStatus
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// TypeOf derives the transaction type from a signed amount.
func TypeOf(m Money) TransactionType {
	if m.Cents < 0 {
		return Expense
	}
	return Income
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	if !ValidEmail(u.Email) {
		return invalid("email", ErrInvalidEmail)
	}
	return nil
}

// ValidEmail performs a shape check only.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}
	return strings.Contains(email[at+1:], ".") && !strings.ContainsAny(email, " \t\n")
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return invalid("title", ErrEmptyTitle)
	}
	if !t.Status.Valid() {
		return invalid("status", ErrInvalidStatus)
	}
	if t.UserID == "" {
		return invalid("userId", ErrMissingOwner)
	}
	return nil
}

// Done reports whether the task has been completed.
func (t Task) Done() bool { return t.Status == TaskDone }

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return invalid("title", ErrEmptyTitle)
	}
	if g.UserID == "" {
		return invalid("userId", ErrMissingOwner)
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return invalid("title", ErrEmptyTitle)
	}
	if t.Amount.IsZero() {
		return invalid("amount", ErrInvalidAmount)
	}
	if !t.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if t.Type != TypeOf(t.Amount) {
		return invalid("type", ErrTypeMismatch)
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if t.Date.IsZero() {
		return invalid("date", ErrInvalidDate)
	}
	if t.UserID == "" {
		return invalid("userId", ErrMissingOwner)
	}
	return nil
}

// NormalizeAmount reconciles a signed amount with an optional declared type.
// A declared type wins over the sign of the input, so "expense" with 40
// becomes -40. With no type the sign decides.
func NormalizeAmount(amount Money, declared TransactionType) (Money, TransactionType, error) {
	if amount.IsZero() {
		return Money{}, "", ErrInvalidAmount
	}
	switch declared {
	case "":
		return amount, TypeOf(amount), nil
	case Expense:
		return amount.Abs().Neg(), Expense, nil
	case Income:
		return amount.Abs(), Income, nil
	}
	return Money{}, "", ErrInvalidType
}

// StringPtr returns nil for blank strings so optional fields stay absent.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
