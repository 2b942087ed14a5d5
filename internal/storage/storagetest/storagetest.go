// Package storagetest runs the same behavioural checks against every
// storage.Store implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"household/internal/core"
	"household/internal/storage"
)

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"users", testUsers},
		{"task filters and order", testTasks},
		{"task update and delete", testTaskMutations},
		{"goals", testGoals},
		{"transactions", testTransactions},
		{"fill responsavel", testFillResponsavel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

var base = time.Date(2025, 1, 10, 9, 0, 0, 0, time.Local)

func str(s string) *string { return &s }

func mustUser(t *testing.T, s storage.Store, email string) core.User {
	t.Helper()
	u := core.User{ID: uuid.NewString(), Name: "Ana", Email: email, PasswordHash: "hash", CreatedAt: base}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "ana@casa.br")

	if err := s.CreateUser(ctx, core.User{ID: uuid.NewString(), Name: "Other", Email: "ANA@casa.br", PasswordHash: "x", CreatedAt: base}); !errors.Is(err, storage.ErrEmailTaken) {
		t.Fatalf("duplicate email: got %v, want ErrEmailTaken", err)
	}

	got, err := s.GetUserByEmail(ctx, "Ana@Casa.BR")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "hash" {
		t.Fatalf("got %+v", got)
	}
	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing user: got %v", err)
	}
	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("list users: %v %v", users, err)
	}
}

func testTasks(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "a@b.co")
	other := mustUser(t, s, "c@d.co")
	recurring := true

	tasks := []core.Task{
		{ID: "t1", Title: "Lavar louça", Status: core.TaskPending, Tag: str("Casa"), Recurring: true, UserID: u.ID, CreatedAt: base},
		{ID: "t2", Title: "Academia", Description: str("Treino de PERNAS"), Status: core.TaskDone, Tag: str("Saúde"), UserID: u.ID, CreatedAt: base.Add(time.Hour)},
		{ID: "t3", Title: "Regar plantas", Status: core.TaskPending, Tag: str("Casa"), Recurring: true, UserID: u.ID, CreatedAt: base.AddDate(0, 0, 1)},
		{ID: "t4", Title: "Outro", Status: core.TaskPending, UserID: other.ID, CreatedAt: base},
	}
	if err := s.CreateTasks(ctx, tasks...); err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	cases := []struct {
		name   string
		filter storage.TaskFilter
		want   []string
	}{
		{"by user newest first", storage.TaskFilter{UserID: u.ID}, []string{"t3", "t2", "t1"}},
		{"by tag", storage.TaskFilter{UserID: u.ID, Tag: "Casa"}, []string{"t3", "t1"}},
		{"search description case-insensitive", storage.TaskFilter{UserID: u.ID, Search: "pernas"}, []string{"t2"}},
		{"search title", storage.TaskFilter{Search: "LOUÇA"}, []string{"t1"}},
		{"day range", storage.TaskFilter{UserID: u.ID, CreatedFrom: core.StartOfDay(base), CreatedTo: core.EndOfDay(base)}, []string{"t2", "t1"}},
		{"recurring with limit", storage.TaskFilter{Recurring: &recurring, Limit: 1}, []string{"t3"}},
		{"search escapes wildcards", storage.TaskFilter{Search: "%"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ListTasks(ctx, tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d tasks (%v), want %v", len(got), ids(got), tc.want)
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Fatalf("got %v, want %v", ids(got), tc.want)
				}
			}
		})
	}

	got, err := s.GetTask(ctx, "t2")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != core.TaskDone || core.Deref(got.Description) != "Treino de PERNAS" || !got.CreatedAt.Equal(tasks[1].CreatedAt) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func ids(tasks []core.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func testTaskMutations(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "a@b.co")
	task := core.Task{ID: "t1", Title: "Old", Status: core.TaskPending, UserID: u.ID, CreatedAt: base}
	if err := s.CreateTasks(ctx, task); err != nil {
		t.Fatalf("create: %v", err)
	}

	task.Title = "New"
	task.Status = core.TaskDone
	task.Tag = str("Casa")
	if err := s.UpdateTask(ctx, task); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetTask(ctx, "t1")
	if got.Title != "New" || !got.Done() || core.Deref(got.Tag) != "Casa" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := s.UpdateTask(ctx, core.Task{ID: "nope", Title: "x", Status: core.TaskPending}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing: got %v", err)
	}
	if err := s.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTask(ctx, "t1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func testGoals(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "a@b.co")
	deadline := base.AddDate(0, 2, 0)

	g1 := core.Goal{ID: "g1", Title: "Viagem", Responsible: str("Ana"), Deadline: &deadline, UserID: u.ID, CreatedAt: base}
	g2 := core.Goal{ID: "g2", Title: "Reserva de emergência", Description: str("Guardar 6 meses"), UserID: u.ID, CreatedAt: base.Add(time.Minute)}
	for _, g := range []core.Goal{g1, g2} {
		if err := s.CreateGoal(ctx, g); err != nil {
			t.Fatalf("create goal: %v", err)
		}
	}

	all, err := s.ListGoals(ctx, storage.GoalFilter{UserID: u.ID})
	if err != nil || len(all) != 2 || all[0].ID != "g2" {
		t.Fatalf("list goals: %+v %v", all, err)
	}
	byResp, _ := s.ListGoals(ctx, storage.GoalFilter{UserID: u.ID, Responsible: "Ana"})
	if len(byResp) != 1 || byResp[0].ID != "g1" || byResp[0].Deadline == nil || !byResp[0].Deadline.Equal(deadline) {
		t.Fatalf("by responsible: %+v", byResp)
	}
	search, _ := s.ListGoals(ctx, storage.GoalFilter{Search: "MESES"})
	if len(search) != 1 || search[0].ID != "g2" {
		t.Fatalf("search: %+v", search)
	}

	g1.Completed = true
	g1.Deadline = nil
	if err := s.UpdateGoal(ctx, g1); err != nil {
		t.Fatalf("update goal: %v", err)
	}
	got, _ := s.GetGoal(ctx, "g1")
	if !got.Completed || got.Deadline != nil {
		t.Fatalf("update not applied: %+v", got)
	}
	if err := s.DeleteGoal(ctx, "g1"); err != nil {
		t.Fatalf("delete goal: %v", err)
	}
	if _, err := s.GetGoal(ctx, "g1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("deleted goal: got %v", err)
	}
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "a@b.co")
	mk := func(id string, cents int64, cat string, date time.Time, resp *string) core.Transaction {
		return core.Transaction{ID: id, Title: id, Amount: core.Money{Cents: cents}, Type: core.TypeOf(core.Money{Cents: cents}),
			Category: cat, Date: date, Responsavel: resp, UserID: u.ID}
	}
	txs := []core.Transaction{
		mk("x1", 500000, "Salário", time.Date(2025, 1, 5, 0, 0, 0, 0, time.Local), str("Ana")),
		mk("x2", -4000, "Alimentação", time.Date(2025, 1, 31, 23, 0, 0, 0, time.Local), nil),
		mk("x3", -1500, "Alimentação", time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local), str("Beto")),
	}
	for _, tx := range txs {
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}

	jan, janEnd, _ := core.MonthRange("2025-01", time.Local)
	cases := []struct {
		name   string
		filter storage.TransactionFilter
		want   []string
	}{
		{"all by date desc", storage.TransactionFilter{UserID: u.ID}, []string{"x3", "x2", "x1"}},
		{"month", storage.TransactionFilter{UserID: u.ID, From: jan, To: janEnd}, []string{"x2", "x1"}},
		{"type", storage.TransactionFilter{Type: core.Expense}, []string{"x3", "x2"}},
		{"category", storage.TransactionFilter{Category: "Salário"}, []string{"x1"}},
		{"responsavel", storage.TransactionFilter{Responsavel: "Beto"}, []string{"x3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ListTransactions(ctx, tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d, want %v", len(got), tc.want)
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	got, err := s.GetTransaction(ctx, "x2")
	if err != nil || got.Amount.Cents != -4000 || got.Type != core.Expense {
		t.Fatalf("get: %+v %v", got, err)
	}
	got.Amount = core.Money{Cents: -4500}
	if err := s.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "x1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "x1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
}

func testFillResponsavel(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "a@b.co")
	other := mustUser(t, s, "c@d.co")
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	for i, owner := range []string{u.ID, u.ID, other.ID} {
		tx := core.Transaction{ID: uuid.NewString(), Title: "t", Amount: core.Money{Cents: -100}, Type: core.Expense,
			Category: "Casa", Date: day.AddDate(0, 0, i), UserID: owner}
		if i == 1 {
			tx.Responsavel = str("Beto")
		}
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := s.FillResponsavel(ctx, u.ID, "Mãe")
	if err != nil || n != 1 {
		t.Fatalf("fill: n=%d err=%v", n, err)
	}
	filled, _ := s.ListTransactions(ctx, storage.TransactionFilter{UserID: u.ID, Responsavel: "Mãe"})
	if len(filled) != 1 {
		t.Fatalf("expected one filled transaction, got %d", len(filled))
	}
	untouched, _ := s.ListTransactions(ctx, storage.TransactionFilter{UserID: other.ID})
	if len(untouched) != 1 || untouched[0].Responsavel != nil {
		t.Fatalf("other user's transaction changed: %+v", untouched)
	}
}
