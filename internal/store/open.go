package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/serum-dashboard/internal/config"
	"github.com/rickgao/serum-dashboard/internal/database"
)

// Open returns the Store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.DashboardConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Store.Driver {
	case "memory":
		logger.Info("using in-memory store")
		return NewMemory(), nil

	case "sqlite":
		kv, err := OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite store", "path", cfg.Store.Path)
		return New(kv), nil

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Database.Postgres, cfg.Instance.ID)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		kv, err := NewPostgres(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("using postgres store",
			"host", cfg.Database.Postgres.Host,
			"database", cfg.Database.Postgres.Name,
		)
		return New(kv), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
