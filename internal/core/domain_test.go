package core

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		declared TransactionType
		want     int64
		wantType TransactionType
		wantErr  error
	}{
		{"sign decides income", 100, "", 100, Income, nil},
		{"sign decides expense", -40, "", -40, Expense, nil},
		{"expense forces negative", 40, Expense, -40, Expense, nil},
		{"income forces positive", -40, Income, 40, Income, nil},
		{"zero rejected", 0, Income, 0, "", ErrInvalidAmount},
		{"unknown type", 10, "gift", 0, "", ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, typ, err := NormalizeAmount(Money{Cents: tt.amount}, tt.declared)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got.Cents != tt.want || typ != tt.wantType {
				t.Fatalf("got (%d, %s), want (%d, %s)", got.Cents, typ, tt.want, tt.wantType)
			}
		})
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Title:    "Mercado",
		Amount:   Money{Cents: -4000},
		Type:     Expense,
		Category: "Alimentação",
		Date:     time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		UserID:   "u1",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mismatch := good
	mismatch.Type = Income
	err := mismatch.Validate()
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected type mismatch, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "type" {
		t.Fatalf("expected field 'type', got %v", err)
	}

	noOwner := good
	noOwner.UserID = ""
	if !errors.Is(noOwner.Validate(), ErrMissingOwner) {
		t.Fatalf("expected missing owner")
	}
}

func TestTaskValidate(t *testing.T) {
	task := Task{Title: " ", Status: TaskPending, UserID: "u1"}
	if !errors.Is(task.Validate(), ErrEmptyTitle) {
		t.Fatalf("expected empty title error")
	}
	task.Title = "Lavar louça"
	task.Status = "whatever"
	if !errors.Is(task.Validate(), ErrInvalidStatus) {
		t.Fatalf("expected invalid status error")
	}
}

func TestParseTaskStatus(t *testing.T) {
	for in, want := range map[string]TaskStatus{
		"Done":      TaskDone,
		"concluído": TaskDone,
		"Pendente":  TaskPending,
		"pending":   TaskPending,
	} {
		got, err := ParseTaskStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseTaskStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseTaskStatus("later"); err == nil {
		t.Errorf("expected error")
	}
}

func TestValidEmail(t *testing.T) {
	cases := map[string]bool{
		"a@b.co":      true,
		"ana@casa.br": true,
		"@b.co":       false,
		"a@b":         false,
		"a b@c.d":     false,
		"":            false,
	}
	for in, want := range cases {
		if got := ValidEmail(in); got != want {
			t.Errorf("ValidEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMonthRange(t *testing.T) {
	start, end, err := MonthRange("2024-02", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if DayKey(start) != "2024-02-01" || DayKey(end) != "2024-02-29" {
		t.Fatalf("got %s..%s", start, end)
	}
	if end.Hour() != 23 || end.Minute() != 59 {
		t.Fatalf("expected last instant, got %s", end)
	}
	if _, _, err := MonthRange("2024-13", time.UTC); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected invalid date, got %v", err)
	}
}

func TestDayBounds(t *testing.T) {
	now := time.Date(2025, 3, 4, 15, 30, 0, 0, time.UTC)
	if !StartOfDay(now).Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bad start of day")
	}
	end := EndOfDay(now)
	if DayKey(end) != "2025-03-04" || !end.Add(time.Nanosecond).Equal(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("bad end of day %s", end)
	}
}
