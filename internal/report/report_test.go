package report

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"household/internal/core"
)

func day(s string) time.Time {
	t, err := time.Parse(core.DayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func str(s string) *string { return &s }

func TestProductivityByDay(t *testing.T) {
	tasks := []core.Task{
		{CreatedAt: day("2025-01-02"), Status: core.TaskDone},
		{CreatedAt: day("2025-01-01"), Status: core.TaskDone},
		{CreatedAt: day("2025-01-01").Add(5 * time.Hour), Status: core.TaskPending},
	}
	got := ProductivityByDay(tasks)
	want := []DayProductivity{
		{Date: "2025-01-01", Concluidas: 1, Total: 2},
		{Date: "2025-01-02", Concluidas: 1, Total: 1},
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := ProductivityByDay(nil); got == nil || len(got) != 0 {
		t.Errorf("ProductivityByDay(nil) = %#v", got)
	}
	if got := TasksByCategory(nil); got == nil || len(got) != 0 {
		t.Errorf("TasksByCategory(nil) = %#v", got)
	}
	s := Financial(nil)
	if !s.Total.IsZero() || s.CategorySummary == nil || s.MonthlySummary == nil || s.ResponsibleSummary == nil {
		t.Errorf("Financial(nil) = %#v", s)
	}
	g := Goals(nil)
	if g.Total != 0 || g.CategorySummary == nil {
		t.Errorf("Goals(nil) = %#v", g)
	}
	b, _ := json.Marshal(Financial(nil))
	if string(b) != `{"total":0,"categorySummary":[],"monthlySummary":[],"responsibleSummary":[]}` {
		t.Errorf("unexpected json %s", b)
	}
}

func TestFinancialExample(t *testing.T) {
	txs := []core.Transaction{
		{Amount: core.Money{Cents: 10000}, Category: "Salário", Date: day("2025-01-05")},
		{Amount: core.Money{Cents: -4000}, Category: "Alimentação", Date: day("2025-01-06")},
		{Amount: core.Money{Cents: -1000}, Category: "Alimentação", Date: day("2025-02-01"), Responsavel: str("Ana")},
	}
	s := Financial(txs)
	if s.Total.Cents != 5000 {
		t.Fatalf("total = %v, want 50", s.Total)
	}
	want := []CategoryFlow{
		{Category: "Salário", Flow: Flow{Income: core.Money{Cents: 10000}}},
		{Category: "Alimentação", Flow: Flow{Expense: core.Money{Cents: 5000}}},
	}
	if fmt.Sprint(s.CategorySummary) != fmt.Sprint(want) {
		t.Fatalf("categorySummary = %v, want %v", s.CategorySummary, want)
	}
	if len(s.MonthlySummary) != 2 || s.MonthlySummary[0].Month != "2025-01" || s.MonthlySummary[1].Month != "2025-02" {
		t.Fatalf("monthlySummary = %v", s.MonthlySummary)
	}
	if s.ResponsibleSummary[0].Responsavel != NoResponsible || s.ResponsibleSummary[1].Responsavel != "Ana" {
		t.Fatalf("responsibleSummary = %v", s.ResponsibleSummary)
	}
}

func TestFinancialSumsDoNotWrap(t *testing.T) {
	big := core.Money{Cents: math.MaxInt64 - 1}
	txs := []core.Transaction{
		{Amount: big, Category: "Salário", Date: day("2025-01-05")},
		{Amount: big, Category: "Salário", Date: day("2025-01-06")},
		{Amount: big.Neg(), Category: "Aluguel", Date: day("2025-01-07")},
		{Amount: big.Neg(), Category: "Aluguel", Date: day("2025-01-08")},
	}
	s := Financial(txs)
	if s.CategorySummary[0].Income.Cents != math.MaxInt64 {
		t.Fatalf("income = %d, want saturated max", s.CategorySummary[0].Income.Cents)
	}
	if s.CategorySummary[1].Expense.Cents != math.MaxInt64 {
		t.Fatalf("expense = %d, want saturated max", s.CategorySummary[1].Expense.Cents)
	}
	if s.MonthlySummary[0].Income.Cents < 0 || s.MonthlySummary[0].Expense.Cents < 0 {
		t.Fatalf("monthly flow wrapped: %+v", s.MonthlySummary[0])
	}
}

func TestFinancialProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	cats := []string{"Casa", "Lazer", "Salário", ""}
	people := []*string{nil, str("Ana"), str("Beto")}
	for round := 0; round < 50; round++ {
		n := r.Intn(40)
		txs := make([]core.Transaction, n)
		var sum int64
		for i := range txs {
			cents := r.Int63n(200000) - 100000
			sum += cents
			txs[i] = core.Transaction{
				Amount:      core.Money{Cents: cents},
				Category:    cats[r.Intn(len(cats))],
				Date:        day("2025-01-01").AddDate(0, r.Intn(6), r.Intn(28)),
				Responsavel: people[r.Intn(len(people))],
			}
		}
		s := Financial(txs)
		if s.Total.Cents != sum {
			t.Fatalf("round %d: total %d != %d", round, s.Total.Cents, sum)
		}
		for name, nets := range map[string][]Flow{
			"category":    flows(s.CategorySummary, func(c CategoryFlow) Flow { return c.Flow }),
			"month":       flows(s.MonthlySummary, func(c MonthFlow) Flow { return c.Flow }),
			"responsible": flows(s.ResponsibleSummary, func(c ResponsibleFlow) Flow { return c.Flow }),
		} {
			var net int64
			for _, f := range nets {
				net += f.Net().Cents
			}
			if net != sum {
				t.Fatalf("round %d: %s breakdown nets %d, want %d", round, name, net, sum)
			}
		}
		if !sort.SliceIsSorted(s.MonthlySummary, func(i, j int) bool {
			return s.MonthlySummary[i].Month < s.MonthlySummary[j].Month
		}) {
			t.Fatalf("round %d: months not sorted: %v", round, s.MonthlySummary)
		}
	}
}

func flows[T any](in []T, f func(T) Flow) []Flow {
	out := make([]Flow, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

func TestGoals(t *testing.T) {
	jan := day("2025-01-20")
	mar := day("2025-03-01")
	goals := []core.Goal{
		{Title: "Viagem", Deadline: &mar, Completed: true, Responsible: str("Ana"), Category: str("Lazer")},
		{Title: "Reserva"},
		{Title: "Curso", Deadline: &jan, Responsible: str("Ana")},
	}
	s := Goals(goals)
	if s.Total != 3 || s.Completed != 1 || s.Pending != 2 {
		t.Fatalf("counts = %d/%d/%d", s.Total, s.Completed, s.Pending)
	}
	months := make([]string, len(s.MonthlySummary))
	for i, m := range s.MonthlySummary {
		months[i] = m.Month
	}
	if fmt.Sprint(months) != "[2025-01 2025-03 Sem prazo]" {
		t.Fatalf("months = %v", months)
	}

	var sawSentinel bool
	for _, r := range s.ResponsibleSummary {
		if r.Responsavel == NotInformed {
			sawSentinel = true
			if r.Pending != 1 {
				t.Fatalf("sentinel bucket = %+v", r)
			}
		}
	}
	if !sawSentinel {
		t.Fatalf("goal without responsible dropped: %v", s.ResponsibleSummary)
	}
}

func TestGoalsPartition(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	people := []*string{nil, str("Ana"), str("Beto")}
	for round := 0; round < 30; round++ {
		goals := make([]core.Goal, r.Intn(25))
		for i := range goals {
			goals[i] = core.Goal{Completed: r.Intn(2) == 0, Responsible: people[r.Intn(3)], Category: people[r.Intn(3)]}
			if r.Intn(2) == 0 {
				d := day("2025-01-01").AddDate(0, r.Intn(12), 0)
				goals[i].Deadline = &d
			}
		}
		s := Goals(goals)
		if s.Completed+s.Pending != s.Total {
			t.Fatalf("completed+pending != total")
		}
		var byResp, byCat, byMonth int
		for _, b := range s.ResponsibleSummary {
			byResp += b.Completed + b.Pending
		}
		for _, b := range s.CategorySummary {
			byCat += b.Completed + b.Pending
		}
		for _, b := range s.MonthlySummary {
			byMonth += b.Completed + b.Pending
		}
		if byResp != len(goals) || byCat != len(goals) || byMonth != len(goals) {
			t.Fatalf("round %d: partition broken resp=%d cat=%d month=%d n=%d", round, byResp, byCat, byMonth, len(goals))
		}
	}
}

func TestTasksByCategory(t *testing.T) {
	tasks := []core.Task{
		{Tag: str("Casa"), Status: core.TaskDone},
		{Tag: str("Casa")},
		{Status: core.TaskDone},
		{Tag: str("Saúde")},
	}
	got := TasksByCategory(tasks)
	want := []TagCount{
		{Tag: "Casa", Criadas: 2, Concluidas: 1},
		{Tag: NoCategory, Criadas: 1, Concluidas: 1},
		{Tag: "Saúde", Criadas: 1},
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	var total int
	for _, c := range got {
		total += c.Criadas
	}
	if total != len(tasks) {
		t.Fatalf("partition broken: %d != %d", total, len(tasks))
	}
}

func TestDayGroupingDistinctAndSorted(t *testing.T) {
	times := []time.Time{day("2025-02-01"), day("2025-01-15"), day("2025-02-01"), day("2024-12-31")}
	got := CountByDay(times)
	want := []DayCount{{"2024-12-31", 1}, {"2025-01-15", 1}, {"2025-02-01", 2}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEvolution(t *testing.T) {
	users := []core.User{{CreatedAt: day("2025-01-01")}}
	tasks := []core.Task{{CreatedAt: day("2025-01-02")}, {CreatedAt: day("2025-01-01")}}
	got := Evolution(users, tasks)
	want := []DayEvolution{
		{Date: "2025-01-01", UserCount: 1, TaskCount: 1},
		{Date: "2025-01-02", TaskCount: 1},
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
