package sheets

import (
	"context"
	"testing"
	"time"

	"household/internal/core"
)

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"ID"},
		{"a"},
		{},
		{" b "},
		{"ID"},
	}
	tests := []struct {
		id   string
		want int
	}{
		{"a", 2},
		{"b", 4},
		{"missing", -1},
		{"ID", 5},
	}
	for _, tt := range tests {
		if got := findRow(values, tt.id); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestRowValues(t *testing.T) {
	tx := core.Transaction{
		ID:          "tx-1",
		Title:       "Mercado",
		Amount:      core.Money{Cents: -4050},
		Type:        core.Expense,
		Category:    "Alimentação",
		Date:        time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		Responsavel: core.StringPtr("Mãe"),
		UserID:      "u1",
	}
	row := rowValues(tx)
	if len(row) != 9 {
		t.Fatalf("row has %d cells", len(row))
	}
	if row[0] != "tx-1" || row[1] != "2025-02-03" || row[6] != "Mãe" || row[7] != "" {
		t.Fatalf("unexpected row %v", row)
	}
	if amount, ok := row[3].(float64); !ok || amount != -40.5 {
		t.Fatalf("amount cell = %#v", row[3])
	}
}

func TestA1(t *testing.T) {
	if got := a1("Contas da Casa", "A:A"); got != "'Contas da Casa'!A:A" {
		t.Fatalf("a1 = %q", got)
	}
	if got := a1("Ana's", "A1"); got != "'Ana''s'!A1" {
		t.Fatalf("a1 = %q", got)
	}
}

func TestNewClientRequiresSettings(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, Options{}); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
	if _, err := NewClient(ctx, Options{SpreadsheetID: "id"}); err == nil {
		t.Fatal("expected error without credentials")
	}
}
