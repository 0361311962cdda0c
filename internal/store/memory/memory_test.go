package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/store"
)

func TestTransactionsCRUDIsScopedPerUser(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.CreateTransaction(ctx, "u1", core.Transaction{
		Kind:     core.KindExpense,
		Category: "Food",
		Amount:   decimal.NewFromInt(12),
		Date:     time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil || created.ID == "" {
		t.Fatalf("unexpected create: %+v err=%v", created, err)
	}

	if items, _ := s.ListTransactions(ctx, "u2"); len(items) != 0 {
		t.Fatalf("other user should see nothing, got %d", len(items))
	}
	if err := s.DeleteTransaction(ctx, "u2", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("cross-user delete should be not found, got %v", err)
	}

	created.Category = "Groceries"
	if err := s.UpdateTransaction(ctx, "u1", created.ID, created); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetTransaction(ctx, "u1", created.ID)
	if err != nil || got.Category != "Groceries" {
		t.Fatalf("unexpected get: %+v err=%v", got, err)
	}

	if err := s.DeleteTransaction(ctx, "u1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "u1", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.UpdateTransaction(ctx, "u1", "missing", created); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	g, _ := s.CreateGoal(ctx, "u1", core.IncomeGoal{Target: decimal.NewFromInt(10), TargetDate: core.NewDate(2024, 6, 1)})

	goals, _ := s.ListGoals(ctx, "u1")
	goals[0].Notes = append(goals[0].Notes, "mutated")

	again, _ := s.GetGoal(ctx, "u1", g.ID)
	if len(again.Notes) != 0 {
		t.Fatalf("stored notes were mutated through a listed copy: %v", again.Notes)
	}
}

func TestBudgetLimits(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, ok, err := s.GetBudgetLimits(ctx, "u1"); ok || err != nil {
		t.Fatalf("expected no limits, ok=%v err=%v", ok, err)
	}
	l := core.DefaultBudgetLimits()
	l.Custom = append(l.Custom, core.CustomLimit{Amount: decimal.NewFromInt(5), Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 2)})
	if err := s.PutBudgetLimits(ctx, "u1", l); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.GetBudgetLimits(ctx, "u1")
	if err != nil || !ok || len(got.Custom) != 1 {
		t.Fatalf("unexpected limits: %+v ok=%v err=%v", got, ok, err)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	if err := s.Seed(ctx, "demo", now, time.UTC); err != nil {
		t.Fatalf("seed: %v", err)
	}

	txs, _ := s.ListTransactions(ctx, "demo")
	if len(txs) != 7 {
		t.Fatalf("expected 7 seeded transactions, got %d", len(txs))
	}
	expenses := 0
	for _, tx := range txs {
		if tx.Kind == core.KindExpense {
			expenses++
		}
		if !tx.Date.Equal(now) {
			t.Fatalf("seeded transaction should be dated now, got %v", tx.Date)
		}
	}
	if expenses != 4 {
		t.Fatalf("expected 4 expenses, got %d", expenses)
	}

	reminders, _ := s.ListReminders(ctx, "demo")
	if len(reminders) != 2 || reminders[0].Due != core.NewDate(2024, 3, 17) || reminders[1].Due != core.NewDate(2024, 3, 24) {
		t.Fatalf("unexpected reminders: %+v", reminders)
	}

	limits, ok, _ := s.GetBudgetLimits(ctx, "demo")
	if !ok || !limits.Daily.Equal(decimal.NewFromInt(100)) || !limits.Monthly.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("unexpected limits: %+v", limits)
	}
}

func TestSeedFromRejectsBadData(t *testing.T) {
	s := New()
	bad := []byte("transactions:\n  - kind: transfer\n    category: x\n    amount: \"1\"\n")
	if err := s.SeedFrom(context.Background(), bad, "u", time.Now(), time.UTC); !errors.Is(err, core.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}
