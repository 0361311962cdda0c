// Package store declares the per-user persistence ports. Every call is scoped
// by user id; an entity is never visible to another user.
package store

import (
	"context"
	"errors"

	"finanzas/internal/core"
)

// ErrNotFound is returned when an id does not exist for the given user.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	TransactionStore interface {
		// CreateTransaction assigns an id and returns the stored entity.
		CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		// UpdateTransaction replaces every mutable field.
		UpdateTransaction(ctx context.Context, userID, id string, t core.Transaction) error
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	GoalStore interface {
		CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error)
		GetGoal(ctx context.Context, userID, id string) (core.IncomeGoal, error)
		ListGoals(ctx context.Context, userID string) ([]core.IncomeGoal, error)
		UpdateGoal(ctx context.Context, userID, id string, g core.IncomeGoal) error
		DeleteGoal(ctx context.Context, userID, id string) error
	}

	ReminderStore interface {
		CreateReminder(ctx context.Context, userID string, r core.Reminder) (core.Reminder, error)
		GetReminder(ctx context.Context, userID, id string) (core.Reminder, error)
		ListReminders(ctx context.Context, userID string) ([]core.Reminder, error)
		UpdateReminder(ctx context.Context, userID, id string, r core.Reminder) error
		DeleteReminder(ctx context.Context, userID, id string) error
	}

	BudgetStore interface {
		// GetBudgetLimits reports ok=false when the user never saved limits.
		GetBudgetLimits(ctx context.Context, userID string) (limits core.BudgetLimits, ok bool, err error)
		PutBudgetLimits(ctx context.Context, userID string, limits core.BudgetLimits) error
	}

	// Store is the full set of ports a backend provides.
	Store interface {
		TransactionStore
		GoalStore
		ReminderStore
		BudgetStore
		Ping(ctx context.Context) error
		Close() error
	}
)
