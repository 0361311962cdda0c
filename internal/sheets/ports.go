package sheets

import (
	"context"

	"finanzas/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps a spreadsheet copy of stored transactions,
	// one row per transaction id.
	TransactionMirror interface {
		// UpsertTransaction writes t to its row, appending one when the id
		// has not been mirrored yet. It returns the written range.
		UpsertTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// DeleteTransaction removes the row for id. A missing row is not an error.
		DeleteTransaction(ctx context.Context, id string) error
	}
)
