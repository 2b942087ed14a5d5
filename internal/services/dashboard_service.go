package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"household/internal/core"
	"household/internal/report"
	"household/internal/storage"
)

// DashboardService feeds the chart endpoints.
type DashboardService struct {
	users storage.Users
	tasks storage.Tasks
}

func NewDashboardService(users storage.Users, tasks storage.Tasks) *DashboardService {
	return &DashboardService{users: users, tasks: tasks}
}

// Evolution counts user sign-ups and task creations per day across the
// whole household.
func (s *DashboardService) Evolution(ctx context.Context) ([]report.DayEvolution, error) {
	var (
		users []core.User
		tasks []core.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if users, err = s.users.ListUsers(gctx); err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if tasks, err = s.tasks.ListTasks(gctx, storage.TaskFilter{}); err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report.Evolution(users, tasks), nil
}

func (s *DashboardService) Productivity(ctx context.Context, userID string) ([]report.DayProductivity, error) {
	tasks, err := s.tasks.ListTasks(ctx, storage.TaskFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return report.ProductivityByDay(tasks), nil
}

func (s *DashboardService) TasksByCategory(ctx context.Context, userID string) ([]report.TagCount, error) {
	tasks, err := s.tasks.ListTasks(ctx, storage.TaskFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return report.TasksByCategory(tasks), nil
}
