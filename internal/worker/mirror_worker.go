package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/sheets"
	"finanzas/internal/store"
)

// SyncSource is the part of the SQLite repository the mirror needs.
type SyncSource interface {
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	PendingSyncTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// MirrorWorker copies transaction changes from the database into the
// spreadsheet mirror.
type MirrorWorker struct {
	source    SyncSource
	mirror    sheets.TransactionMirror
	batchSize int
}

func NewMirrorWorker(source SyncSource, mirror sheets.TransactionMirror, batchSize int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &MirrorWorker{source: source, mirror: mirror, batchSize: batchSize}
}

// HandleChange processes one change message. Only transactions are
// mirrored; other entities are acknowledged and ignored.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Entity != amqp.EntityTransaction {
		slog.DebugContext(ctx, "Ignoring change for unmirrored entity",
			"entity", msg.Entity,
			"op", msg.Op)
		return nil
	}

	slog.InfoContext(ctx, "Processing transaction change",
		"op", msg.Op,
		"id", msg.ID,
		"user_id", msg.UserID)

	switch msg.Op {
	case amqp.OpDelete:
		if err := w.mirror.DeleteTransaction(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete mirrored transaction: %w", err)
		}
		slog.InfoContext(ctx, "Removed transaction from mirror", "id", msg.ID)
		return nil
	default:
		t, err := w.source.GetTransaction(ctx, msg.UserID, msg.ID)
		if errors.Is(err, store.ErrNotFound) {
			// Deleted before the event was consumed; the delete event follows.
			slog.InfoContext(ctx, "Transaction no longer exists, skipping", "id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		return w.sync(ctx, t)
	}
}

// ProcessPending mirrors rows still marked pending. It backs up lost
// messages and worker downtime.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (synced int, err error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending sweep once when the worker starts.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

func (w *MirrorWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.source.PendingSyncTransactions(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	for _, t := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.sync(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", t.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

func (w *MirrorWorker) sync(ctx context.Context, t core.Transaction) error {
	ref, err := w.mirror.UpsertTransaction(ctx, t)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, t.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", t.ID, "error", markErr)
		}
		return fmt.Errorf("write to mirror: %w", err)
	}

	// The row is mirrored even if the status update fails.
	if err := w.source.MarkSynced(ctx, t.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction",
		"id", t.ID,
		"sheets_ref", ref,
		"kind", t.Kind,
		"amount", t.Amount.String())
	return nil
}
