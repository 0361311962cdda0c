// Package backend opens the storage backend selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"

	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/storage"
	"finanzas/internal/store"
	"finanzas/internal/store/memory"
)

// Result holds the opened store. SQLite is set only for the sqlite backend,
// which the sync tooling needs for its pending-row queries.
type Result struct {
	Store  store.Store
	SQLite *storage.SQLiteRepository
}

// Close releases the backend's resources.
func (r *Result) Close() error {
	if r == nil || r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// Open creates the backend named by cfg.DataBackend and checks it answers.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}
	if logger == nil {
		logger = log.FromContext(ctx)
	}
	logger = logger.WithComponent(log.ComponentBackend)

	var res *Result
	switch cfg.DataBackend {
	case config.BackendMemory:
		res = &Result{Store: memory.New()}
		logger.Info("Initialized memory backend")
	case config.BackendSQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res = &Result{Store: repo, SQLite: repo}
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	default:
		return nil, fmt.Errorf("unsupported backend type: %q", cfg.DataBackend)
	}

	if err := res.Store.Ping(ctx); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("ping %s backend: %w", cfg.DataBackend, err)
	}
	return res, nil
}
