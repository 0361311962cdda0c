package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/store"

	_ "modernc.org/sqlite"
)

// timestampLayout is fixed width so stored instants sort lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		// Rows written by other tools may use plain RFC3339.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored amount %q: %w", s, err)
	}
	return d, nil
}

func encodeNotes(notes []string) (string, error) {
	if notes == nil {
		notes = []string{}
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return "", fmt.Errorf("encode notes: %w", err)
	}
	return string(b), nil
}

func decodeNotes(s string) ([]string, error) {
	notes := []string{}
	if s == "" {
		return notes, nil
	}
	if err := json.Unmarshal([]byte(s), &notes); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return notes, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// Transactions

const transactionColumns = `id, user_id, kind, category, amount, occurred_at, description`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		kind, amount, atText string
	)
	if err := s.Scan(&t.ID, &t.UserID, &kind, &t.Category, &amount, &atText, &t.Description); err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.Kind(kind)
	var err error
	if t.Amount, err = parseAmount(amount); err != nil {
		return core.Transaction{}, err
	}
	if t.Date, err = parseTimestamp(atText); err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", atText, err)
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	t.UserID = userID
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, kind, category, amount, occurred_at, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, string(t.Kind), t.Category, t.Amount.String(), formatTimestamp(t.Date), t.Description)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", userID,
		"kind", t.Kind,
		"category", t.Category,
		"amount", t.Amount.String())

	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY occurred_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// UpdateTransaction replaces the mutable fields and marks the row for a
// fresh mirror sync.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET kind = ?, category = ?, amount = ?, occurred_at = ?, description = ?,
		     sync_status = 'pending', updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		string(t.Kind), t.Category, t.Amount.String(), formatTimestamp(t.Date), t.Description,
		formatTimestamp(time.Now()), userID, id)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res)
}

// PendingSyncTransactions returns transactions the mirror has not confirmed,
// oldest first.
func (r *SQLiteRepository) PendingSyncTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE sync_status = 'pending' ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkSynced records that the mirror holds the current version of a row.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncSynced)
}

// MarkSyncError flags a row the mirror could not accept.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Transaction sync status updated", "id", id, "status", status)
	return nil
}

// Income goals

const goalColumns = `id, user_id, target, target_date, description, accumulated, notes, created_at`

func scanGoal(s scanner) (core.IncomeGoal, error) {
	var (
		g                                 core.IncomeGoal
		target, date, acc, notes, created string
	)
	if err := s.Scan(&g.ID, &g.UserID, &target, &date, &g.Description, &acc, &notes, &created); err != nil {
		return core.IncomeGoal{}, err
	}
	var err error
	if g.Target, err = parseAmount(target); err != nil {
		return core.IncomeGoal{}, err
	}
	if g.Accumulated, err = parseAmount(acc); err != nil {
		return core.IncomeGoal{}, err
	}
	if g.TargetDate, err = core.ParseDate(date); err != nil {
		return core.IncomeGoal{}, fmt.Errorf("parse stored target date %q: %w", date, err)
	}
	if g.Notes, err = decodeNotes(notes); err != nil {
		return core.IncomeGoal{}, err
	}
	if g.CreatedAt, err = parseTimestamp(created); err != nil {
		return core.IncomeGoal{}, fmt.Errorf("parse stored created_at %q: %w", created, err)
	}
	return g, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, userID string, g core.IncomeGoal) (core.IncomeGoal, error) {
	g.ID = uuid.NewString()
	g.UserID = userID
	if g.Notes == nil {
		g.Notes = []string{}
	}
	notes, err := encodeNotes(g.Notes)
	if err != nil {
		return core.IncomeGoal{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO income_goals (id, user_id, target, target_date, description, accumulated, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, userID, g.Target.String(), g.TargetDate.String(), g.Description, g.Accumulated.String(),
		notes, formatTimestamp(g.CreatedAt))
	if err != nil {
		return core.IncomeGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id string) (core.IncomeGoal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM income_goals WHERE user_id = ? AND id = ?`, userID, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.IncomeGoal{}, store.ErrNotFound
	}
	if err != nil {
		return core.IncomeGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.IncomeGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM income_goals WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := []core.IncomeGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, userID, id string, g core.IncomeGoal) error {
	notes, err := encodeNotes(g.Notes)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE income_goals SET target = ?, target_date = ?, description = ?, accumulated = ?, notes = ?
		 WHERE user_id = ? AND id = ?`,
		g.Target.String(), g.TargetDate.String(), g.Description, g.Accumulated.String(), notes, userID, id)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM income_goals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireAffected(res)
}

// Reminders

const reminderColumns = `id, user_id, title, due_date, description, notes`

func scanReminder(s scanner) (core.Reminder, error) {
	var (
		rm         core.Reminder
		due, notes string
	)
	if err := s.Scan(&rm.ID, &rm.UserID, &rm.Title, &due, &rm.Description, &notes); err != nil {
		return core.Reminder{}, err
	}
	var err error
	if rm.Due, err = core.ParseDate(due); err != nil {
		return core.Reminder{}, fmt.Errorf("parse stored due date %q: %w", due, err)
	}
	if rm.Notes, err = decodeNotes(notes); err != nil {
		return core.Reminder{}, err
	}
	return rm, nil
}

func (r *SQLiteRepository) CreateReminder(ctx context.Context, userID string, rm core.Reminder) (core.Reminder, error) {
	rm.ID = uuid.NewString()
	rm.UserID = userID
	if rm.Notes == nil {
		rm.Notes = []string{}
	}
	notes, err := encodeNotes(rm.Notes)
	if err != nil {
		return core.Reminder{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reminders (id, user_id, title, due_date, description, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		rm.ID, userID, rm.Title, rm.Due.String(), rm.Description, notes)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("insert reminder: %w", err)
	}
	return rm, nil
}

func (r *SQLiteRepository) GetReminder(ctx context.Context, userID, id string) (core.Reminder, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? AND id = ?`, userID, id)
	rm, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Reminder{}, store.ErrNotFound
	}
	if err != nil {
		return core.Reminder{}, fmt.Errorf("get reminder: %w", err)
	}
	return rm, nil
}

func (r *SQLiteRepository) ListReminders(ctx context.Context, userID string) ([]core.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? ORDER BY due_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	out := []core.Reminder{}
	for rows.Next() {
		rm, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateReminder(ctx context.Context, userID, id string, rm core.Reminder) error {
	notes, err := encodeNotes(rm.Notes)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET title = ?, due_date = ?, description = ?, notes = ? WHERE user_id = ? AND id = ?`,
		rm.Title, rm.Due.String(), rm.Description, notes, userID, id)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	return requireAffected(res)
}

func (r *SQLiteRepository) DeleteReminder(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return requireAffected(res)
}

// Budget limits

func (r *SQLiteRepository) GetBudgetLimits(ctx context.Context, userID string) (core.BudgetLimits, bool, error) {
	var daily, monthly string
	err := r.db.QueryRowContext(ctx,
		`SELECT daily, monthly FROM budget_limits WHERE user_id = ?`, userID).Scan(&daily, &monthly)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetLimits{}, false, nil
	}
	if err != nil {
		return core.BudgetLimits{}, false, fmt.Errorf("get budget limits: %w", err)
	}

	limits := core.BudgetLimits{Custom: []core.CustomLimit{}}
	if limits.Daily, err = parseAmount(daily); err != nil {
		return core.BudgetLimits{}, false, err
	}
	if limits.Monthly, err = parseAmount(monthly); err != nil {
		return core.BudgetLimits{}, false, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT amount, start_date, end_date FROM custom_limits WHERE user_id = ? ORDER BY position`, userID)
	if err != nil {
		return core.BudgetLimits{}, false, fmt.Errorf("list custom limits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var amount, start, end string
		if err := rows.Scan(&amount, &start, &end); err != nil {
			return core.BudgetLimits{}, false, fmt.Errorf("scan custom limit: %w", err)
		}
		c := core.CustomLimit{}
		if c.Amount, err = parseAmount(amount); err != nil {
			return core.BudgetLimits{}, false, err
		}
		if c.Start, err = core.ParseDate(start); err != nil {
			return core.BudgetLimits{}, false, fmt.Errorf("parse stored start date %q: %w", start, err)
		}
		if c.End, err = core.ParseDate(end); err != nil {
			return core.BudgetLimits{}, false, fmt.Errorf("parse stored end date %q: %w", end, err)
		}
		limits.Custom = append(limits.Custom, c)
	}
	if err := rows.Err(); err != nil {
		return core.BudgetLimits{}, false, fmt.Errorf("iterate custom limits: %w", err)
	}
	return limits, true, nil
}

// PutBudgetLimits overwrites the user's limits, custom list included, in one
// transaction.
func (r *SQLiteRepository) PutBudgetLimits(ctx context.Context, userID string, limits core.BudgetLimits) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO budget_limits (user_id, daily, monthly, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET daily = excluded.daily, monthly = excluded.monthly, updated_at = excluded.updated_at`,
		userID, limits.Daily.String(), limits.Monthly.String(), formatTimestamp(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert budget limits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_limits WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear custom limits: %w", err)
	}
	for i, c := range limits.Custom {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO custom_limits (user_id, position, amount, start_date, end_date) VALUES (?, ?, ?, ?, ?)`,
			userID, i, c.Amount.String(), c.Start.String(), c.End.String())
		if err != nil {
			return fmt.Errorf("insert custom limit %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget limits: %w", err)
	}
	return nil
}
