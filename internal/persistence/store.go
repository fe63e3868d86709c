package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/provisioning-assistant/internal/config"
)

// Store is the durable database selected by STORE_DRIVER.
type Store struct {
	DB     *sql.DB
	Driver string

	postgres *Postgres
	sqlite   *SQLite
}

// OpenStore connects to the configured driver and applies migrations.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if pg.SQLDB() == nil {
			return nil, errors.New("POSTGRES_DSN is required for the postgres store")
		}
		store := &Store{DB: pg.SQLDB(), Driver: cfg.Store.Driver, postgres: pg}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, store.DB, store.Driver, logger); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil
	case config.StoreDriverSQLite:
		lite, err := NewSQLite(ctx, cfg.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		store := &Store{DB: lite.DB, Driver: cfg.Store.Driver, sqlite: lite}
		if err := RunMigrations(ctx, store.DB, store.Driver, logger); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	switch {
	case s == nil:
		return errors.New("store not configured")
	case s.postgres != nil:
		return s.postgres.Ping(ctx)
	default:
		return s.sqlite.Ping(ctx)
	}
}

// Close releases the underlying connections.
func (s *Store) Close() {
	if s == nil {
		return
	}
	if s.postgres != nil {
		s.postgres.Close()
	}
	if s.sqlite != nil {
		s.sqlite.Close()
	}
}
