// Package memory is a process-local record store used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"household/internal/core"
	"household/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	users []core.User
	tasks []core.Task
	goals []core.Goal
	txs   []core.Transaction
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return storage.ErrEmailTaken
		}
	}
	s.users = append(s.users, u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, storage.ErrNotFound
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.User{}, s.users...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateTasks(_ context.Context, tasks ...core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, tasks...)
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.tasks, id, func(t core.Task) string { return t.ID }); i >= 0 {
		return s.tasks[i], nil
	}
	return core.Task{}, storage.ErrNotFound
}

func (s *Store) ListTasks(_ context.Context, f storage.TaskFilter) ([]core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Task{}
	for _, t := range s.tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UpdateTask(_ context.Context, t core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.tasks, t.ID, func(t core.Task) string { return t.ID })
	if i < 0 {
		return storage.ErrNotFound
	}
	s.tasks[i] = t
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(&s.tasks, id, func(t core.Task) string { return t.ID })
}

func (s *Store) CreateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append(s.goals, g)
	return nil
}

func (s *Store) GetGoal(_ context.Context, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.goals, id, func(g core.Goal) string { return g.ID }); i >= 0 {
		return s.goals[i], nil
	}
	return core.Goal{}, storage.ErrNotFound
}

func (s *Store) ListGoals(_ context.Context, f storage.GoalFilter) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Goal{}
	for _, g := range s.goals {
		if f.Matches(g) {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.goals, g.ID, func(g core.Goal) string { return g.ID })
	if i < 0 {
		return storage.ErrNotFound
	}
	s.goals[i] = g
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(&s.goals, id, func(g core.Goal) string { return g.ID })
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.txs, id, func(tx core.Transaction) string { return tx.ID }); i >= 0 {
		return s.txs[i], nil
	}
	return core.Transaction{}, storage.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, tx := range s.txs {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.txs, tx.ID, func(tx core.Transaction) string { return tx.ID })
	if i < 0 {
		return storage.ErrNotFound
	}
	s.txs[i] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return remove(&s.txs, id, func(tx core.Transaction) string { return tx.ID })
}

func (s *Store) FillResponsavel(_ context.Context, userID, responsavel string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.txs {
		if s.txs[i].UserID == userID && s.txs[i].Responsavel == nil {
			r := responsavel
			s.txs[i].Responsavel = &r
			n++
		}
	}
	return n, nil
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, it := range items {
		if key(it) == id {
			return i
		}
	}
	return -1
}

func remove[T any](items *[]T, id string, key func(T) string) error {
	i := indexOf(*items, id, key)
	if i < 0 {
		return storage.ErrNotFound
	}
	*items = append((*items)[:i], (*items)[i+1:]...)
	return nil
}
