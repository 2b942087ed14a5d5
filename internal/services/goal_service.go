package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"household/internal/core"
	"household/internal/report"
	"household/internal/storage"
)

// AllResponsible disables the responsible filter when listing goals.
const AllResponsible = "All"

type GoalService struct {
	goals storage.Goals
	now   func() time.Time
}

func NewGoalService(goals storage.Goals) *GoalService {
	return &GoalService{goals: goals, now: time.Now}
}

type (
	GoalQuery struct {
		Responsible string
		Search      string
	}

	NewGoal struct {
		Title       string
		Description *string
		Category    *string
		Responsible *string
		Deadline    *time.Time
	}

	// GoalPatch changes only the non-nil fields. Empty strings clear the
	// optional text fields and ClearDeadline removes the deadline.
	GoalPatch struct {
		Title         *string
		Description   *string
		Category      *string
		Responsible   *string
		Deadline      *time.Time
		ClearDeadline bool
		Completed     *bool
	}
)

func (s *GoalService) List(ctx context.Context, userID string, q GoalQuery) ([]core.Goal, error) {
	f := storage.GoalFilter{UserID: userID, Search: q.Search}
	if q.Responsible != AllResponsible {
		f.Responsible = strings.TrimSpace(q.Responsible)
	}
	goals, err := s.goals.ListGoals(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *GoalService) Create(ctx context.Context, userID string, in NewGoal) (core.Goal, error) {
	g := core.Goal{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: trimPtr(in.Description),
		Category:    trimPtr(in.Category),
		Responsible: trimPtr(in.Responsible),
		Deadline:    in.Deadline,
		UserID:      userID,
		CreatedAt:   s.now(),
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.goals.CreateGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal created", "goal_id", g.ID, "user_id", userID)
	return g, nil
}

func (s *GoalService) Update(ctx context.Context, userID, id string, p GoalPatch) (core.Goal, error) {
	g, err := s.owned(ctx, userID, id)
	if err != nil {
		return core.Goal{}, err
	}
	if p.Title != nil {
		g.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		g.Description = core.StringPtr(*p.Description)
	}
	if p.Category != nil {
		g.Category = core.StringPtr(*p.Category)
	}
	if p.Responsible != nil {
		g.Responsible = core.StringPtr(*p.Responsible)
	}
	switch {
	case p.ClearDeadline:
		g.Deadline = nil
	case p.Deadline != nil:
		g.Deadline = p.Deadline
	}
	if p.Completed != nil {
		g.Completed = *p.Completed
	}
	return g, s.save(ctx, g)
}

func (s *GoalService) Complete(ctx context.Context, userID, id string) (core.Goal, error) {
	done := true
	return s.Update(ctx, userID, id, GoalPatch{Completed: &done})
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.goals.DeleteGoal(ctx, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	slog.InfoContext(ctx, "Goal deleted", "goal_id", id, "user_id", userID)
	return nil
}

// Summary aggregates every goal of the user.
func (s *GoalService) Summary(ctx context.Context, userID string) (report.GoalSummary, error) {
	goals, err := s.goals.ListGoals(ctx, storage.GoalFilter{UserID: userID})
	if err != nil {
		return report.GoalSummary{}, fmt.Errorf("list goals: %w", err)
	}
	return report.Goals(goals), nil
}

func (s *GoalService) save(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := s.goals.UpdateGoal(ctx, g); err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

func (s *GoalService) owned(ctx context.Context, userID, id string) (core.Goal, error) {
	g, err := s.goals.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, err
	}
	if g.UserID != userID {
		return core.Goal{}, storage.ErrNotFound
	}
	return g, nil
}
