package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/analytics"
	"finanzas/internal/core"
	"finanzas/internal/store"
)

// TransactionService validates and persists income and expense records.
type TransactionService struct {
	store  store.TransactionStore
	eval   *analytics.Evaluator
	events *Events
}

func NewTransactionService(st store.TransactionStore, eval *analytics.Evaluator, events *Events) *TransactionService {
	if eval == nil {
		eval = analytics.New()
	}
	return &TransactionService{store: st, eval: eval, events: events}
}

// ListQuery narrows List. A zero Kind matches both kinds, an empty
// Category matches every category and a zero Frame means all.
type ListQuery struct {
	Kind     core.Kind
	Category string
	Frame    core.TimeFrame
	Ref      time.Time
}

func (s *TransactionService) Create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}

	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()
	created, err := s.store.CreateTransaction(ctx2, userID, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"user_id", userID,
		"kind", created.Kind,
		"category", created.Category,
		"amount", created.Amount.String())

	s.events.Changed(ctx, amqp.EntityTransaction, amqp.OpCreate, userID, created.ID)
	return created, nil
}

// List returns the user's transactions matching q, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, q ListQuery) ([]core.Transaction, error) {
	if q.Kind != "" {
		if err := q.Kind.Validate(); err != nil {
			return nil, invalid(err)
		}
	}
	if q.Frame == "" {
		q.Frame = core.FrameAll
	}
	if !q.Frame.Valid() {
		return nil, invalid(core.ErrInvalidTimeFrame)
	}

	ctx, cancel := withStorageTimeout(ctx)
	defer cancel()
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if q.Kind != "" {
		txs = analytics.ByKind(txs, q.Kind)
	}
	return s.eval.Filter(txs, analytics.TransactionFilter{
		Category: strings.TrimSpace(q.Category),
		Frame:    q.Frame,
		Ref:      q.Ref,
	}), nil
}

// Update replaces every mutable field of an existing transaction.
func (s *TransactionService) Update(ctx context.Context, userID, id string, t core.Transaction) (core.Transaction, error) {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}

	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()
	if err := s.store.UpdateTransaction(ctx2, userID, id, t); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	t.ID, t.UserID = id, userID

	s.events.Changed(ctx, amqp.EntityTransaction, amqp.OpUpdate, userID, id)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()
	if err := s.store.DeleteTransaction(ctx2, userID, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	s.events.Changed(ctx, amqp.EntityTransaction, amqp.OpDelete, userID, id)
	return nil
}

// DeleteCategory deletes every transaction of kind in category, one at a
// time, and reports how many were removed. A failure stops the loop; rows
// already deleted stay deleted.
func (s *TransactionService) DeleteCategory(ctx context.Context, userID string, kind core.Kind, category string) (int, error) {
	if err := kind.Validate(); err != nil {
		return 0, invalid(err)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return 0, invalid(core.ErrEmptyCategory)
	}

	listCtx, cancel := withStorageTimeout(ctx)
	txs, err := s.store.ListTransactions(listCtx, userID)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}

	deleted := 0
	for _, t := range txs {
		if t.Kind != kind || t.Category != category {
			continue
		}
		if err := s.Delete(ctx, userID, t.ID); err != nil {
			return deleted, err
		}
		deleted++
	}

	slog.InfoContext(ctx, "Category deleted",
		"user_id", userID,
		"kind", kind,
		"category", category,
		"deleted", deleted)
	return deleted, nil
}
