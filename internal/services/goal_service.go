package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/store"
)

type GoalService struct {
	store  store.GoalStore
	events *Events
	now    func() time.Time
}

func NewGoalService(st store.GoalStore, events *Events) *GoalService {
	return &GoalService{store: st, events: events, now: time.Now}
}

// GoalInput holds the user-editable fields of an income goal.
type GoalInput struct {
	Target      decimal.Decimal `json:"target"`
	TargetDate  core.Date       `json:"target_date"`
	Description string          `json:"description"`
	Accumulated decimal.Decimal `json:"accumulated"`
}

// Create stores a new goal with nothing accumulated and no notes.
func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (core.GoalStatus, error) {
	g := core.IncomeGoal{
		Target:      in.Target,
		TargetDate:  in.TargetDate,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now().UTC(),
		Accumulated: decimal.Zero,
		Notes:       []string{},
	}
	if err := g.Validate(); err != nil {
		return core.GoalStatus{}, invalid(err)
	}

	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()
	created, err := s.store.CreateGoal(ctx2, userID, g)
	if err != nil {
		return core.GoalStatus{}, fmt.Errorf("save goal: %w", err)
	}
	s.events.Changed(ctx, amqp.EntityGoal, amqp.OpCreate, userID, created.ID)
	return status(created), nil
}

// List returns the user's goals with their progress.
func (s *GoalService) List(ctx context.Context, userID string) ([]core.GoalStatus, error) {
	ctx, cancel := withStorageTimeout(ctx)
	defer cancel()
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return analytics.GoalStatuses(goals), nil
}

// Update replaces target, date, description and accumulated amount. Notes
// and creation time are kept.
func (s *GoalService) Update(ctx context.Context, userID, id string, in GoalInput) (core.GoalStatus, error) {
	return s.modify(ctx, userID, id, func(g *core.IncomeGoal) error {
		g.Target = in.Target
		g.TargetDate = in.TargetDate
		g.Description = strings.TrimSpace(in.Description)
		g.Accumulated = in.Accumulated
		return g.Validate()
	})
}

// AddNote appends a note to the goal.
func (s *GoalService) AddNote(ctx context.Context, userID, id, note string) (core.GoalStatus, error) {
	if err := core.ValidateNote(note); err != nil {
		return core.GoalStatus{}, invalid(err)
	}
	return s.modify(ctx, userID, id, func(g *core.IncomeGoal) error {
		g.Notes = append(g.Notes, strings.TrimSpace(note))
		return nil
	})
}

func (s *GoalService) modify(ctx context.Context, userID, id string, apply func(*core.IncomeGoal) error) (core.GoalStatus, error) {
	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()

	g, err := s.store.GetGoal(ctx2, userID, id)
	if err != nil {
		return core.GoalStatus{}, fmt.Errorf("get goal %s: %w", id, err)
	}
	if err := apply(&g); err != nil {
		return core.GoalStatus{}, invalid(err)
	}
	if err := s.store.UpdateGoal(ctx2, userID, id, g); err != nil {
		return core.GoalStatus{}, fmt.Errorf("update goal %s: %w", id, err)
	}
	s.events.Changed(ctx, amqp.EntityGoal, amqp.OpUpdate, userID, id)
	return status(g), nil
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()
	if err := s.store.DeleteGoal(ctx2, userID, id); err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	s.events.Changed(ctx, amqp.EntityGoal, amqp.OpDelete, userID, id)
	return nil
}

func status(g core.IncomeGoal) core.GoalStatus {
	return core.GoalStatus{IncomeGoal: g, Progress: analytics.GoalProgress(g)}
}
