package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/analytics"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/store"
	"finanzas/internal/store/memory"
)

// DemoUserID owns the seeded data behind the public demo view.
const DemoUserID = "demo"

// DataStore is every port the dashboard reads.
type DataStore interface {
	store.TransactionStore
	store.GoalStore
	store.ReminderStore
	store.BudgetStore
}

// Snapshot is everything one user has stored, loaded at LoadedAt.
type Snapshot struct {
	Transactions []core.Transaction
	Goals        []core.IncomeGoal
	Reminders    []core.Reminder
	Limits       core.BudgetLimits
	LoadedAt     time.Time
}

type ViewRequest struct {
	Frame core.TimeFrame
	// Ref anchors day and month frames. Zero means now.
	Ref time.Time
}

type CategoryLists struct {
	Expense []string `json:"expense"`
	Income  []string `json:"income"`
}

// View is the computed dashboard for one frame.
type View struct {
	Frame            core.TimeFrame           `json:"frame"`
	Reference        time.Time                `json:"reference"`
	Summary          core.Summary             `json:"summary"`
	ExpenseBreakdown []core.NamedCategoryStat `json:"expense_breakdown"`
	IncomeBreakdown  []core.NamedCategoryStat `json:"income_breakdown"`
	ExpenseSeries    []core.SeriesPoint       `json:"expense_series"`
	IncomeSeries     []core.SeriesPoint       `json:"income_series"`
	Categories       CategoryLists            `json:"categories"`
	Transactions     []core.Transaction       `json:"transactions"`
	Limits           core.BudgetLimits        `json:"limits"`
	Alerts           []core.Alert             `json:"alerts"`
	Goals            []core.GoalStatus        `json:"goals"`
	Reminders        []core.ReminderStatus    `json:"upcoming_reminders"`
}

// DashboardService loads a user's data and runs the evaluator over it.
type DashboardService struct {
	store     DataStore
	eval      *analytics.Evaluator
	snapshots *cache.LRUCache[Snapshot]
	now       func() time.Time
}

// NewDashboardService wires the snapshot cache to events so that any
// mutation for a user drops that user's snapshot. snapshots may be nil.
func NewDashboardService(st DataStore, eval *analytics.Evaluator, snapshots *cache.LRUCache[Snapshot], events *Events) *DashboardService {
	if eval == nil {
		eval = analytics.New()
	}
	s := &DashboardService{store: st, eval: eval, snapshots: snapshots, now: time.Now}
	if snapshots != nil {
		events.OnChange(snapshots.Delete)
	}
	return s
}

// Load returns the user's snapshot, from cache when fresh.
func (s *DashboardService) Load(ctx context.Context, userID string) (Snapshot, error) {
	if s.snapshots != nil {
		if snap, ok := s.snapshots.Get(userID); ok {
			return snap, nil
		}
	}

	snap, err := loadSnapshot(ctx, s.store, userID, s.now())
	if err != nil {
		return Snapshot{}, err
	}
	if s.snapshots != nil {
		s.snapshots.Set(userID, snap)
	}
	return snap, nil
}

// Invalidate drops the cached snapshot for userID.
func (s *DashboardService) Invalidate(userID string) {
	if s.snapshots != nil {
		s.snapshots.Delete(userID)
	}
}

func loadSnapshot(ctx context.Context, st DataStore, userID string, now time.Time) (Snapshot, error) {
	ctx, cancel := withStorageTimeout(ctx)
	defer cancel()

	snap := Snapshot{LoadedAt: now}
	var (
		limits core.BudgetLimits
		stored bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Transactions, err = st.ListTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Goals, err = st.ListGoals(gctx, userID)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap.Reminders, err = st.ListReminders(gctx, userID)
		if err != nil {
			return fmt.Errorf("list reminders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		limits, stored, err = st.GetBudgetLimits(gctx, userID)
		if err != nil {
			return fmt.Errorf("get budget limits: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	if !stored {
		limits = core.DefaultBudgetLimits()
	}
	if limits.Custom == nil {
		limits.Custom = []core.CustomLimit{}
	}
	snap.Limits = limits
	return snap, nil
}

// View computes the dashboard for userID.
func (s *DashboardService) View(ctx context.Context, userID string, req ViewRequest) (View, error) {
	if req.Frame == "" {
		req.Frame = core.FrameAll
	}
	if !req.Frame.Valid() {
		return View{}, invalid(core.ErrInvalidTimeFrame)
	}
	snap, err := s.Load(ctx, userID)
	if err != nil {
		return View{}, err
	}
	return s.build(snap, req, s.now()), nil
}

// RangeTotals sums income and expenses over the inclusive date range.
func (s *DashboardService) RangeTotals(ctx context.Context, userID string, start, end core.Date) (core.Summary, error) {
	if start.IsZero() || end.IsZero() {
		return core.Summary{}, invalid(core.ErrInvalidDate)
	}
	if start.After(end.Time) {
		return core.Summary{}, invalid(core.ErrInvalidRange)
	}
	snap, err := s.Load(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	return s.eval.RangeTotals(snap.Transactions, start, end), nil
}

// Demo computes a view over freshly seeded sample data. Nothing is stored
// beyond the call.
func (s *DashboardService) Demo(ctx context.Context, req ViewRequest) (View, error) {
	if req.Frame == "" {
		req.Frame = core.FrameAll
	}
	if !req.Frame.Valid() {
		return View{}, invalid(core.ErrInvalidTimeFrame)
	}

	now := s.now()
	demo := memory.New()
	if err := demo.Seed(ctx, DemoUserID, now, s.eval.ViewLocation()); err != nil {
		return View{}, fmt.Errorf("seed demo data: %w", err)
	}
	snap, err := loadSnapshot(ctx, demo, DemoUserID, now)
	if err != nil {
		return View{}, err
	}
	return s.build(snap, req, now), nil
}

func (s *DashboardService) build(snap Snapshot, req ViewRequest, now time.Time) View {
	ref := req.Ref
	if ref.IsZero() {
		ref = now
	}
	expenses := analytics.ByKind(snap.Transactions, core.KindExpense)
	incomes := analytics.ByKind(snap.Transactions, core.KindIncome)
	expenseCats, incomeCats := s.eval.Categories(snap.Transactions, req.Frame, ref)

	v := View{
		Frame:            req.Frame,
		Reference:        ref.In(s.eval.ViewLocation()),
		Summary:          s.eval.Summarize(snap.Transactions, req.Frame, ref),
		ExpenseBreakdown: analytics.SortedBreakdown(s.eval.CategoryBreakdown(expenses, req.Frame, ref)),
		IncomeBreakdown:  analytics.SortedBreakdown(s.eval.CategoryBreakdown(incomes, req.Frame, ref)),
		ExpenseSeries:    s.eval.TimeSeries(expenses, req.Frame, ref),
		IncomeSeries:     s.eval.TimeSeries(incomes, req.Frame, ref),
		Categories:       CategoryLists{Expense: expenseCats, Income: incomeCats},
		Transactions:     s.eval.Filter(snap.Transactions, analytics.TransactionFilter{Frame: req.Frame, Ref: ref}),
		Limits:           snap.Limits,
		Alerts:           analytics.BudgetAlerts(snap.Transactions, snap.Limits, now),
		Goals:            analytics.GoalStatuses(snap.Goals),
		Reminders:        s.eval.UpcomingReminders(snap.Reminders, now),
	}

	slog.Debug("Dashboard view computed",
		"frame", req.Frame,
		"transactions", len(v.Transactions),
		"alerts", len(v.Alerts))
	return v
}
