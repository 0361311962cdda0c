package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/store"
)

// BudgetService manages a user's spending limits.
type BudgetService struct {
	store  store.BudgetStore
	events *Events
}

func NewBudgetService(st store.BudgetStore, events *Events) *BudgetService {
	return &BudgetService{store: st, events: events}
}

// Get returns the stored limits, or the defaults when none were saved.
func (s *BudgetService) Get(ctx context.Context, userID string) (core.BudgetLimits, error) {
	ctx, cancel := withStorageTimeout(ctx)
	defer cancel()
	return s.get(ctx, userID)
}

func (s *BudgetService) get(ctx context.Context, userID string) (core.BudgetLimits, error) {
	limits, ok, err := s.store.GetBudgetLimits(ctx, userID)
	if err != nil {
		return core.BudgetLimits{}, fmt.Errorf("get budget limits: %w", err)
	}
	if !ok {
		return core.DefaultBudgetLimits(), nil
	}
	if limits.Custom == nil {
		limits.Custom = []core.CustomLimit{}
	}
	return limits, nil
}

// SetLimits overwrites the daily and monthly limits and keeps custom ones.
func (s *BudgetService) SetLimits(ctx context.Context, userID string, daily, monthly decimal.Decimal) (core.BudgetLimits, error) {
	return s.modify(ctx, userID, func(l *core.BudgetLimits) error {
		l.Daily = core.RoundAmount(daily)
		l.Monthly = core.RoundAmount(monthly)
		return l.Validate()
	})
}

// AddCustomLimit appends a limit over an inclusive date range.
func (s *BudgetService) AddCustomLimit(ctx context.Context, userID string, c core.CustomLimit) (core.BudgetLimits, error) {
	c.Amount = core.RoundAmount(c.Amount)
	if err := c.Validate(); err != nil {
		return core.BudgetLimits{}, invalid(err)
	}
	return s.modify(ctx, userID, func(l *core.BudgetLimits) error {
		l.Custom = append(l.Custom, c)
		return nil
	})
}

// RemoveCustomLimit drops the custom limit at index. An index out of range
// is reported as store.ErrNotFound.
func (s *BudgetService) RemoveCustomLimit(ctx context.Context, userID string, index int) (core.BudgetLimits, error) {
	return s.modify(ctx, userID, func(l *core.BudgetLimits) error {
		if index < 0 || index >= len(l.Custom) {
			return fmt.Errorf("custom limit %d: %w", index, store.ErrNotFound)
		}
		l.Custom = append(l.Custom[:index:index], l.Custom[index+1:]...)
		return nil
	})
}

// Alerts evaluates the user's limits against the given expenses.
func (s *BudgetService) Alerts(ctx context.Context, userID string, txs []core.Transaction, now time.Time) ([]core.Alert, error) {
	limits, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return analytics.BudgetAlerts(txs, limits, now), nil
}

func (s *BudgetService) modify(ctx context.Context, userID string, apply func(*core.BudgetLimits) error) (core.BudgetLimits, error) {
	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()

	limits, err := s.get(ctx2, userID)
	if err != nil {
		return core.BudgetLimits{}, err
	}
	before := len(limits.Custom)
	if err := apply(&limits); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.BudgetLimits{}, err
		}
		return core.BudgetLimits{}, invalid(err)
	}
	if err := s.store.PutBudgetLimits(ctx2, userID, limits); err != nil {
		return core.BudgetLimits{}, fmt.Errorf("save budget limits: %w", err)
	}

	slog.InfoContext(ctx, "Budget limits saved",
		"user_id", userID,
		"daily", limits.Daily.String(),
		"monthly", limits.Monthly.String(),
		"custom_before", before,
		"custom_after", len(limits.Custom))

	s.events.Changed(ctx, amqp.EntityBudget, amqp.OpUpdate, userID, "")
	return limits, nil
}
