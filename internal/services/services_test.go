package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/amqp"
	"finanzas/internal/analytics"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/store"
	"finanzas/internal/store/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ChangeMessage
	err  error
}

func (p *recordingPublisher) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

// failingStore fails every call; it proves validation runs before storage.
type failingStore struct{ *memory.Store }

var errStorage = errors.New("storage down")

func (failingStore) CreateTransaction(context.Context, string, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, errStorage
}

func (failingStore) ListTransactions(context.Context, string) ([]core.Transaction, error) {
	return nil, errStorage
}

func expense(category, amount string, at time.Time) core.Transaction {
	return core.Transaction{Kind: core.KindExpense, Category: category, Amount: decimal.RequireFromString(amount), Date: at}
}

func TestTransactionService_CreateValidatesFirst(t *testing.T) {
	svc := NewTransactionService(failingStore{memory.New()}, nil, nil)

	_, err := svc.Create(context.Background(), "u1", core.Transaction{Kind: "transfer", Category: "x", Amount: decimal.NewFromInt(1), Date: time.Now()})
	require.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, core.ErrInvalidKind)

	_, err = svc.Create(context.Background(), "u1", expense("Food", "10", time.Now()))
	require.ErrorIs(t, err, errStorage)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestTransactionService_CreateNormalizesAndPublishes(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewTransactionService(memory.New(), nil, NewEvents(pub))

	created, err := svc.Create(context.Background(), "u1", expense("  Food ", "-12.5", time.Now()))
	require.NoError(t, err, "publish failure must not fail the request")
	assert.Equal(t, "Food", created.Category)
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("12.5")))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, amqp.EntityTransaction, pub.msgs[0].Entity)
	assert.Equal(t, amqp.OpCreate, pub.msgs[0].Op)
	assert.Equal(t, created.ID, pub.msgs[0].ID)
}

func TestTransactionService_ListFilters(t *testing.T) {
	ctx := context.Background()
	svc := NewTransactionService(memory.New(), analytics.New(analytics.WithViewLocation(time.UTC)), nil)
	jan := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	_, _ = svc.Create(ctx, "u1", expense("Food", "10", jan))
	_, _ = svc.Create(ctx, "u1", expense("Rent", "500", feb))
	_, _ = svc.Create(ctx, "u1", core.Transaction{Kind: core.KindIncome, Category: "Salary", Amount: decimal.NewFromInt(1000), Date: feb})

	all, err := svc.List(ctx, "u1", ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Date.Equal(feb), "newest first")

	onlyExpenses, err := svc.List(ctx, "u1", ListQuery{Kind: core.KindExpense, Frame: core.FrameMonth, Ref: feb})
	require.NoError(t, err)
	require.Len(t, onlyExpenses, 1)
	assert.Equal(t, "Rent", onlyExpenses[0].Category)

	byCategory, err := svc.List(ctx, "u1", ListQuery{Category: "Food"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)

	_, err = svc.List(ctx, "u1", ListQuery{Frame: "week"})
	assert.ErrorIs(t, err, core.ErrInvalidTimeFrame)
}

func TestTransactionService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewTransactionService(memory.New(), nil, NewEvents(pub))

	created, err := svc.Create(ctx, "u1", expense("Food", "10", time.Now()))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "u1", created.ID, expense("Groceries", "11", created.Date))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	_, err = svc.Update(ctx, "u1", "missing", expense("Food", "1", time.Now()))
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Update(ctx, "u1", created.ID, expense("", "1", time.Now()))
	assert.ErrorIs(t, err, core.ErrEmptyCategory)

	require.NoError(t, svc.Delete(ctx, "u1", created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", created.ID), store.ErrNotFound)

	ops := []amqp.Op{}
	for _, m := range pub.msgs {
		ops = append(ops, m.Op)
	}
	assert.Equal(t, []amqp.Op{amqp.OpCreate, amqp.OpUpdate, amqp.OpDelete}, ops)
}

func TestTransactionService_DeleteCategory(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc := NewTransactionService(st, nil, nil)
	now := time.Now()

	_, _ = svc.Create(ctx, "u1", expense("Food", "1", now))
	_, _ = svc.Create(ctx, "u1", expense("Food", "2", now))
	_, _ = svc.Create(ctx, "u1", expense("Rent", "3", now))
	_, _ = svc.Create(ctx, "u1", core.Transaction{Kind: core.KindIncome, Category: "Food", Amount: decimal.NewFromInt(4), Date: now})

	n, err := svc.DeleteCategory(ctx, "u1", core.KindExpense, "Food")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, _ := st.ListTransactions(ctx, "u1")
	assert.Len(t, left, 2, "the income in the same category must survive")

	_, err = svc.DeleteCategory(ctx, "u1", core.KindExpense, " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGoalService(t *testing.T) {
	ctx := context.Background()
	svc := NewGoalService(memory.New(), nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) }

	created, err := svc.Create(ctx, "u1", GoalInput{
		Target:      decimal.NewFromInt(1000),
		TargetDate:  core.NewDate(2024, 6, 30),
		Accumulated: decimal.NewFromInt(999),
	})
	require.NoError(t, err)
	assert.True(t, created.Accumulated.IsZero(), "accumulated starts at zero")
	assert.Equal(t, []string{}, created.Notes)
	assert.Equal(t, 0.0, created.Progress)

	updated, err := svc.Update(ctx, "u1", created.ID, GoalInput{
		Target:      decimal.NewFromInt(1000),
		TargetDate:  core.NewDate(2024, 6, 30),
		Accumulated: decimal.NewFromInt(250),
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Progress)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	withNote, err := svc.AddNote(ctx, "u1", created.ID, "  first deposit ")
	require.NoError(t, err)
	assert.Equal(t, []string{"first deposit"}, withNote.Notes)

	_, err = svc.AddNote(ctx, "u1", created.ID, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyNote)

	_, err = svc.Update(ctx, "u1", created.ID, GoalInput{Target: decimal.Zero, TargetDate: core.NewDate(2024, 6, 30)})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 25.0, list[0].Progress)

	require.NoError(t, svc.Delete(ctx, "u1", created.ID))
	_, err = svc.AddNote(ctx, "u1", created.ID, "late")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReminderService(t *testing.T) {
	ctx := context.Background()
	svc := NewReminderService(memory.New(), nil)

	_, err := svc.Create(ctx, "u1", ReminderInput{Title: " ", Due: core.NewDate(2024, 3, 1)})
	assert.ErrorIs(t, err, core.ErrEmptyTitle)

	later, err := svc.Create(ctx, "u1", ReminderInput{Title: "Rent", Due: core.NewDate(2024, 3, 5)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1", ReminderInput{Title: "Card", Due: core.NewDate(2024, 3, 1)})
	require.NoError(t, err)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Card", list[0].Title)

	noted, err := svc.AddNote(ctx, "u1", later.ID, "paid half")
	require.NoError(t, err)
	assert.Equal(t, []string{"paid half"}, noted.Notes)

	updated, err := svc.Update(ctx, "u1", later.ID, ReminderInput{Title: "Rent March", Due: core.NewDate(2024, 3, 6)})
	require.NoError(t, err)
	assert.Equal(t, []string{"paid half"}, updated.Notes, "notes survive an update")

	require.NoError(t, svc.Delete(ctx, "u1", later.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", later.ID), store.ErrNotFound)
}

func TestBudgetService(t *testing.T) {
	ctx := context.Background()
	svc := NewBudgetService(memory.New(), nil)

	limits, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, limits.Daily.Equal(decimal.NewFromInt(100)))
	assert.True(t, limits.Monthly.Equal(decimal.NewFromInt(2000)))
	assert.Empty(t, limits.Custom)

	limits, err = svc.SetLimits(ctx, "u1", decimal.NewFromInt(50), decimal.NewFromInt(1500))
	require.NoError(t, err)
	assert.True(t, limits.Daily.Equal(decimal.NewFromInt(50)))

	_, err = svc.SetLimits(ctx, "u1", decimal.NewFromInt(-1), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, core.ErrNegativeLimit)

	_, err = svc.AddCustomLimit(ctx, "u1", core.CustomLimit{Amount: decimal.NewFromInt(10), Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 1, 1)})
	assert.ErrorIs(t, err, core.ErrInvalidRange)

	jan := core.CustomLimit{Amount: decimal.NewFromInt(500), Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31)}
	feb := core.CustomLimit{Amount: decimal.NewFromInt(400), Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 2, 29)}
	_, err = svc.AddCustomLimit(ctx, "u1", jan)
	require.NoError(t, err)
	limits, err = svc.AddCustomLimit(ctx, "u1", feb)
	require.NoError(t, err)
	require.Len(t, limits.Custom, 2)
	assert.True(t, limits.Daily.Equal(decimal.NewFromInt(50)), "custom limits keep daily")

	limits, err = svc.RemoveCustomLimit(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, limits.Custom, 1)
	assert.Equal(t, feb.Start, limits.Custom[0].Start)

	_, err = svc.RemoveCustomLimit(ctx, "u1", 5)
	assert.ErrorIs(t, err, store.ErrNotFound)

	alerts, err := svc.Alerts(ctx, "u1", []core.Transaction{
		expense("Food", "60", time.Date(2024, 2, 10, 17, 0, 0, 0, time.UTC)),
	}, time.Date(2024, 2, 10, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, core.AlertDaily, alerts[0].Kind)
}

func TestDashboardService_ViewAndCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	events := NewEvents(nil)
	eval := analytics.New(analytics.WithViewLocation(time.UTC))
	snapshots := cache.NewLRUCache[Snapshot](10, time.Hour)
	dash := NewDashboardService(st, eval, snapshots, events)
	txSvc := NewTransactionService(st, eval, events)

	now := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)
	dash.now = func() time.Time { return now }

	_, err := txSvc.Create(ctx, "u1", expense("Food", "40", now))
	require.NoError(t, err)

	v, err := dash.View(ctx, "u1", ViewRequest{Frame: core.FrameDay})
	require.NoError(t, err)
	assert.True(t, v.Summary.Expense.Equal(decimal.NewFromInt(40)))
	assert.Empty(t, v.Alerts)
	assert.Equal(t, 1, snapshots.Size())

	_, err = txSvc.Create(ctx, "u1", expense("Food", "70", now))
	require.NoError(t, err)
	assert.Equal(t, 0, snapshots.Size(), "mutation drops the cached snapshot")

	v, err = dash.View(ctx, "u1", ViewRequest{Frame: core.FrameDay})
	require.NoError(t, err)
	assert.True(t, v.Summary.Expense.Equal(decimal.NewFromInt(110)))
	require.Len(t, v.Alerts, 1)
	assert.Equal(t, core.AlertDaily, v.Alerts[0].Kind)
	require.Len(t, v.ExpenseBreakdown, 1)
	assert.Equal(t, 100.0, v.ExpenseBreakdown[0].Percentage)
	assert.Equal(t, []string{"Food"}, v.Categories.Expense)
	assert.Empty(t, v.IncomeSeries)

	_, err = dash.View(ctx, "u1", ViewRequest{Frame: "year"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDashboardService_LoadPropagatesStorageErrors(t *testing.T) {
	dash := NewDashboardService(failingStore{memory.New()}, nil, nil, nil)
	_, err := dash.Load(context.Background(), "u1")
	assert.ErrorIs(t, err, errStorage)
}

func TestDashboardService_RangeTotals(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	dash := NewDashboardService(st, analytics.New(analytics.WithViewLocation(time.UTC)), nil, nil)

	_, _ = st.CreateTransaction(ctx, "u1", expense("Food", "600", time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)))
	_, _ = st.CreateTransaction(ctx, "u1", expense("Food", "50", time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)))

	sum, err := dash.RangeTotals(ctx, "u1", core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	require.NoError(t, err)
	assert.True(t, sum.Expense.Equal(decimal.NewFromInt(600)))
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(-600)))

	_, err = dash.RangeTotals(ctx, "u1", core.NewDate(2024, 2, 1), core.NewDate(2024, 1, 1))
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestDashboardService_Demo(t *testing.T) {
	dash := NewDashboardService(memory.New(), analytics.New(), nil, nil)
	dash.now = func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }

	v, err := dash.Demo(context.Background(), ViewRequest{})
	require.NoError(t, err)
	assert.Equal(t, core.FrameAll, v.Frame)
	assert.True(t, v.Summary.Expense.Equal(decimal.NewFromInt(1000)))
	assert.True(t, v.Summary.Income.Equal(decimal.NewFromInt(4500)))
	assert.True(t, v.Summary.Balance.Equal(decimal.NewFromInt(3500)))
	assert.Len(t, v.Reminders, 2)

	// 1000 spent today against a daily limit of 100 and a monthly of 2000.
	require.Len(t, v.Alerts, 1)
	assert.Equal(t, core.AlertDaily, v.Alerts[0].Kind)
}

func TestEventsNilIsNoop(t *testing.T) {
	var e *Events
	e.OnChange(func(string) {})
	e.Changed(context.Background(), amqp.EntityGoal, amqp.OpCreate, "u1", "g1")
}
