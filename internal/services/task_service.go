package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"household/internal/core"
	"household/internal/storage"
)

// Messages returned by Renew.
const (
	RenewAlreadyDone = "Tarefas recorrentes já foram geradas hoje."
	RenewDone        = "Tarefas recorrentes geradas com sucesso."
	RenewNothing     = "Nenhuma tarefa recorrente encontrada."
)

// AllTags disables the tag filter when listing tasks.
const AllTags = "Todos"

// TaskService handles task lifecycle and the daily recurring regeneration.
type TaskService struct {
	tasks storage.Tasks
	now   func() time.Time

	// renewMu serializes Renew within the process.
	renewMu sync.Mutex
}

func NewTaskService(tasks storage.Tasks) *TaskService {
	return &TaskService{tasks: tasks, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

type (
	// TaskQuery lists tasks created on Day, today when Day is zero.
	TaskQuery struct {
		Tag    string
		Search string
		Day    time.Time
	}

	NewTask struct {
		Title       string
		Description *string
		Tag         *string
		Recurring   bool
	}

	// TaskPatch changes only the non-nil fields. An empty Description or
	// Tag clears it.
	TaskPatch struct {
		Title       *string
		Description *string
		Tag         *string
		Recurring   *bool
	}

	RenewResult struct {
		Generated bool   `json:"generated"`
		Count     int    `json:"count"`
		Message   string `json:"message"`
	}
)

func (s *TaskService) List(ctx context.Context, userID string, q TaskQuery) ([]core.Task, error) {
	day := q.Day
	if day.IsZero() {
		day = s.now()
	}
	f := storage.TaskFilter{
		UserID:      userID,
		Search:      q.Search,
		CreatedFrom: core.StartOfDay(day),
		CreatedTo:   core.EndOfDay(day),
	}
	if q.Tag != AllTags {
		f.Tag = strings.TrimSpace(q.Tag)
	}

	tasks, err := s.tasks.ListTasks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, in NewTask) (core.Task, error) {
	t := core.Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: trimPtr(in.Description),
		Status:      core.TaskPending,
		Tag:         trimPtr(in.Tag),
		Recurring:   in.Recurring,
		UserID:      userID,
		CreatedAt:   s.now(),
	}
	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}
	if err := s.tasks.CreateTasks(ctx, t); err != nil {
		return core.Task{}, fmt.Errorf("create task: %w", err)
	}

	slog.InfoContext(ctx, "Task created", "task_id", t.ID, "user_id", userID, "recurring", t.Recurring)
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id string, p TaskPatch) (core.Task, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return core.Task{}, err
	}
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = core.StringPtr(*p.Description)
	}
	if p.Tag != nil {
		t.Tag = core.StringPtr(*p.Tag)
	}
	if p.Recurring != nil {
		t.Recurring = *p.Recurring
	}
	return t, s.save(ctx, t)
}

func (s *TaskService) MarkDone(ctx context.Context, userID, id string) (core.Task, error) {
	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return core.Task{}, err
	}
	t.Status = core.TaskDone
	return t, s.save(ctx, t)
}

func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	slog.InfoContext(ctx, "Task deleted", "task_id", id, "user_id", userID)
	return nil
}

func (s *TaskService) save(ctx context.Context, t core.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.tasks.UpdateTask(ctx, t); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// owned loads a task and hides other users' tasks behind ErrNotFound.
func (s *TaskService) owned(ctx context.Context, userID, id string) (core.Task, error) {
	t, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return core.Task{}, err
	}
	if t.UserID != userID {
		return core.Task{}, storage.ErrNotFound
	}
	return t, nil
}

// Renew clones the recurring tasks into now's calendar day, at most once per
// day. The template of each series (same user, title and tag) is its most
// recent instance, so earlier clones are never cloned again.
func (s *TaskService) Renew(ctx context.Context, now time.Time) (RenewResult, error) {
	s.renewMu.Lock()
	defer s.renewMu.Unlock()

	recurring := true
	today, err := s.tasks.ListTasks(ctx, storage.TaskFilter{
		Recurring:   &recurring,
		CreatedFrom: core.StartOfDay(now),
		CreatedTo:   core.EndOfDay(now),
		Limit:       1,
	})
	if err != nil {
		return RenewResult{}, fmt.Errorf("check today's recurring tasks: %w", err)
	}
	if len(today) > 0 {
		return RenewResult{Message: RenewAlreadyDone}, nil
	}

	all, err := s.tasks.ListTasks(ctx, storage.TaskFilter{Recurring: &recurring})
	if err != nil {
		return RenewResult{}, fmt.Errorf("list recurring tasks: %w", err)
	}
	templates := latestPerSeries(all)
	if len(templates) == 0 {
		return RenewResult{Message: RenewNothing}, nil
	}

	clones := make([]core.Task, 0, len(templates))
	for _, t := range templates {
		clones = append(clones, core.Task{
			ID:          uuid.NewString(),
			Title:       t.Title,
			Description: t.Description,
			Status:      core.TaskPending,
			Tag:         t.Tag,
			Recurring:   true,
			UserID:      t.UserID,
			CreatedAt:   now,
		})
	}
	if err := s.tasks.CreateTasks(ctx, clones...); err != nil {
		return RenewResult{}, fmt.Errorf("create recurring tasks: %w", err)
	}

	slog.InfoContext(ctx, "Recurring tasks generated",
		"count", len(clones),
		"day", core.DayKey(now))
	return RenewResult{Generated: true, Count: len(clones), Message: RenewDone}, nil
}

// latestPerSeries keeps the first task of each series from a newest-first list.
func latestPerSeries(tasks []core.Task) []core.Task {
	seen := make(map[string]bool, len(tasks))
	var out []core.Task
	for _, t := range tasks {
		key := t.UserID + "\x00" + strings.ToLower(strings.TrimSpace(t.Title)) + "\x00" + core.Deref(t.Tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return core.StringPtr(*s)
}
