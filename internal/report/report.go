// Package report turns flat entity lists into the grouped summaries behind
// the dashboards. Every function is pure and returns empty slices, never nil,
// for empty input so JSON callers always get arrays.
package report

import (
	"sort"
	"time"

	"household/internal/core"
)

// Sentinel bucket labels for records missing the grouping field.
const (
	NoCategory    = "Sem categoria"
	NoResponsible = "Desconhecido"
	NotInformed   = "Não informado"
	NoDeadline    = "Sem prazo"
)

type (
	DayProductivity struct {
		Date       string `json:"date"`
		Concluidas int    `json:"concluidas"`
		Total      int    `json:"total"`
	}

	DayCount struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	}

	DayEvolution struct {
		Date      string `json:"date"`
		UserCount int    `json:"userCount"`
		TaskCount int    `json:"taskCount"`
	}

	TagCount struct {
		Tag        string `json:"tag"`
		Criadas    int    `json:"criadas"`
		Concluidas int    `json:"concluidas"`
	}

	Flow struct {
		Income  core.Money `json:"income"`
		Expense core.Money `json:"expense"`
	}

	CategoryFlow struct {
		Category string `json:"category"`
		Flow
	}

	MonthFlow struct {
		Month string `json:"month"`
		Flow
	}

	ResponsibleFlow struct {
		Responsavel string `json:"responsavel"`
		Flow
	}

	FinancialSummary struct {
		Total              core.Money        `json:"total"`
		CategorySummary    []CategoryFlow    `json:"categorySummary"`
		MonthlySummary     []MonthFlow       `json:"monthlySummary"`
		ResponsibleSummary []ResponsibleFlow `json:"responsibleSummary"`
	}

	Progress struct {
		Completed int `json:"completed"`
		Pending   int `json:"pending"`
	}

	CategoryProgress struct {
		Category string `json:"category"`
		Progress
	}

	MonthProgress struct {
		Month string `json:"month"`
		Progress
	}

	ResponsibleProgress struct {
		Responsavel string `json:"responsavel"`
		Progress
	}

	GoalSummary struct {
		Total              int                   `json:"total"`
		Completed          int                   `json:"completed"`
		Pending            int                   `json:"pending"`
		CategorySummary    []CategoryProgress    `json:"categorySummary"`
		MonthlySummary     []MonthProgress       `json:"monthlySummary"`
		ResponsibleSummary []ResponsibleProgress `json:"responsibleSummary"`
	}
)

// buckets accumulates values per key and remembers first-seen key order.
type buckets[V any] struct {
	keys []string
	vals map[string]*V
}

func newBuckets[V any]() *buckets[V] {
	return &buckets[V]{vals: make(map[string]*V)}
}

func (b *buckets[V]) at(key string) *V {
	v, ok := b.vals[key]
	if !ok {
		v = new(V)
		b.vals[key] = v
		b.keys = append(b.keys, key)
	}
	return v
}

// sortedKeys returns keys ascending with sentinel, if present, moved last.
func (b *buckets[V]) sortedKeys(sentinel string) []string {
	keys := append([]string(nil), b.keys...)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == sentinel {
			return false
		}
		if keys[j] == sentinel {
			return true
		}
		return keys[i] < keys[j]
	})
	return keys
}

func labelOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// ProductivityByDay counts created and completed tasks per creation day.
func ProductivityByDay(tasks []core.Task) []DayProductivity {
	b := newBuckets[DayProductivity]()
	for _, t := range tasks {
		d := b.at(core.DayKey(t.CreatedAt))
		d.Total++
		if t.Done() {
			d.Concluidas++
		}
	}
	out := make([]DayProductivity, 0, len(b.keys))
	for _, k := range b.sortedKeys("") {
		d := *b.vals[k]
		d.Date = k
		out = append(out, d)
	}
	return out
}

// CountByDay counts timestamps per calendar day, ascending.
func CountByDay(times []time.Time) []DayCount {
	b := newBuckets[int]()
	for _, t := range times {
		*b.at(core.DayKey(t))++
	}
	out := make([]DayCount, 0, len(b.keys))
	for _, k := range b.sortedKeys("") {
		out = append(out, DayCount{Date: k, Count: *b.vals[k]})
	}
	return out
}

// Evolution merges user and task creation counts per day.
func Evolution(users []core.User, tasks []core.Task) []DayEvolution {
	b := newBuckets[DayEvolution]()
	for _, u := range users {
		b.at(core.DayKey(u.CreatedAt)).UserCount++
	}
	for _, t := range tasks {
		b.at(core.DayKey(t.CreatedAt)).TaskCount++
	}
	out := make([]DayEvolution, 0, len(b.keys))
	for _, k := range b.sortedKeys("") {
		e := *b.vals[k]
		e.Date = k
		out = append(out, e)
	}
	return out
}

// TasksByCategory counts created and completed tasks per tag in first-seen order.
func TasksByCategory(tasks []core.Task) []TagCount {
	b := newBuckets[TagCount]()
	for _, t := range tasks {
		c := b.at(labelOr(t.Tag, NoCategory))
		c.Criadas++
		if t.Done() {
			c.Concluidas++
		}
	}
	out := make([]TagCount, 0, len(b.keys))
	for _, k := range b.keys {
		c := *b.vals[k]
		c.Tag = k
		out = append(out, c)
	}
	return out
}

func (f *Flow) add(amount core.Money) {
	if amount.Cents >= 0 {
		f.Income = f.Income.Add(amount)
	} else {
		f.Expense = f.Expense.Add(amount.Abs())
	}
}

// Net is income minus expense.
func (f Flow) Net() core.Money {
	return f.Income.Add(f.Expense.Neg())
}

// Financial sums signed amounts and splits them into income and expense per
// category, month and responsible party.
func Financial(txs []core.Transaction) FinancialSummary {
	var total core.Money
	cats := newBuckets[Flow]()
	months := newBuckets[Flow]()
	resp := newBuckets[Flow]()
	for _, tx := range txs {
		total = total.Add(tx.Amount)
		category := tx.Category
		if category == "" {
			category = NoCategory
		}
		cats.at(category).add(tx.Amount)
		months.at(core.MonthKey(tx.Date)).add(tx.Amount)
		resp.at(labelOr(tx.Responsavel, NoResponsible)).add(tx.Amount)
	}

	s := FinancialSummary{
		Total:              total,
		CategorySummary:    make([]CategoryFlow, 0, len(cats.keys)),
		MonthlySummary:     make([]MonthFlow, 0, len(months.keys)),
		ResponsibleSummary: make([]ResponsibleFlow, 0, len(resp.keys)),
	}
	for _, k := range cats.keys {
		s.CategorySummary = append(s.CategorySummary, CategoryFlow{Category: k, Flow: *cats.vals[k]})
	}
	for _, k := range months.sortedKeys("") {
		s.MonthlySummary = append(s.MonthlySummary, MonthFlow{Month: k, Flow: *months.vals[k]})
	}
	for _, k := range resp.keys {
		s.ResponsibleSummary = append(s.ResponsibleSummary, ResponsibleFlow{Responsavel: k, Flow: *resp.vals[k]})
	}
	return s
}

func (p *Progress) add(done bool) {
	if done {
		p.Completed++
	} else {
		p.Pending++
	}
}

// Goals counts completed and pending goals overall and per category,
// deadline month and responsible party. Goals without a deadline land in
// the NoDeadline bucket, which always sorts after the real months.
func Goals(goals []core.Goal) GoalSummary {
	cats := newBuckets[Progress]()
	months := newBuckets[Progress]()
	resp := newBuckets[Progress]()
	s := GoalSummary{Total: len(goals)}
	for _, g := range goals {
		if g.Completed {
			s.Completed++
		}
		cats.at(labelOr(g.Category, NotInformed)).add(g.Completed)
		month := NoDeadline
		if g.Deadline != nil && !g.Deadline.IsZero() {
			month = core.MonthKey(*g.Deadline)
		}
		months.at(month).add(g.Completed)
		resp.at(labelOr(g.Responsible, NotInformed)).add(g.Completed)
	}
	s.Pending = s.Total - s.Completed

	s.CategorySummary = make([]CategoryProgress, 0, len(cats.keys))
	for _, k := range cats.keys {
		s.CategorySummary = append(s.CategorySummary, CategoryProgress{Category: k, Progress: *cats.vals[k]})
	}
	s.MonthlySummary = make([]MonthProgress, 0, len(months.keys))
	for _, k := range months.sortedKeys(NoDeadline) {
		s.MonthlySummary = append(s.MonthlySummary, MonthProgress{Month: k, Progress: *months.vals[k]})
	}
	s.ResponsibleSummary = make([]ResponsibleProgress, 0, len(resp.keys))
	for _, k := range resp.keys {
		s.ResponsibleSummary = append(s.ResponsibleSummary, ResponsibleProgress{Responsavel: k, Progress: *resp.vals[k]})
	}
	return s
}
