package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/config"
	"finanzas/internal/core"
)

func TestOpenMemory(t *testing.T) {
	res, err := Open(context.Background(), &config.Config{DataBackend: config.BackendMemory}, nil)
	require.NoError(t, err)
	defer res.Close()

	assert.Nil(t, res.SQLite)
	txs, err := res.Store.ListTransactions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "finanzas.db")
	res, err := Open(context.Background(), &config.Config{DataBackend: config.BackendSQLite, SQLiteDBPath: path}, nil)
	require.NoError(t, err)
	defer res.Close()

	require.NotNil(t, res.SQLite)
	_, ok, err := res.Store.GetBudgetLimits(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	limits := core.DefaultBudgetLimits()
	require.NoError(t, res.Store.PutBudgetLimits(context.Background(), "u1", limits))
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{DataBackend: "sheets"}, nil)
	assert.ErrorContains(t, err, "unsupported backend")

	_, err = Open(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestCloseNilResult(t *testing.T) {
	var res *Result
	assert.NoError(t, res.Close())
}
