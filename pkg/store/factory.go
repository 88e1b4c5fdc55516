package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	dbutils "github.com/tendant/db-utils/db"
)

// Config selects a backend.
type Config struct {
	PersistenceType string // postgres, sqlite or inmem

	// DatabaseURL is used for postgres when set; otherwise Db is used.
	DatabaseURL string
	Db          dbutils.DbConfig

	SQLiteDSN string
}

// New opens the backend named by cfg.PersistenceType.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.PersistenceType {
	case "postgres", "postgresql", "":
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w: %w", ErrStoreUnavailable, err)
		}
		return NewPostgresStore(pool), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLiteDSN)
	case "inmem":
		slog.Warn("Using in-memory store, data will not survive a restart")
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, sqlite, inmem)", cfg.PersistenceType)
	}
}

func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create pool: %w: %w", ErrStoreUnavailable, err)
		}
		return pool, nil
	}
	pool, err := dbutils.NewDbPool(ctx, cfg.Db)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", cfg.Db.Database, "host", cfg.Db.Host, "port", cfg.Db.Port, "user", cfg.Db.User)
		return nil, fmt.Errorf("create pool: %w: %w", ErrStoreUnavailable, err)
	}
	return pool, nil
}
