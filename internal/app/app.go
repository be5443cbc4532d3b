// Package app wires the store and use cases from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"libraryapi/internal/config"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/store"
	"libraryapi/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	Store   usecase.Store
	Catalog *usecase.CatalogUsecase
	Patron  *usecase.PatronUsecase
	Lending *usecase.LendingUsecase

	pool *pgxpool.Pool
}

// New opens the configured store and builds the use cases on top of it. An
// empty DB_DSN selects the in-memory store.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	var s usecase.Store
	var pool *pgxpool.Pool

	if cfg.UseMemoryStore() {
		logger.Warn("DB_DSN not set, using in-memory store")
		s = store.NewMemory()
	} else {
		var err error
		pool, err = OpenPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("database connection OK", "dsn", cfg.RedactedDSN())
		s = store.NewPostgres(pool, cfg.DBTimeout)
	}

	lending := usecase.NewLendingUsecase(s, logger)
	return &App{
		Store:   s,
		Catalog: usecase.NewCatalogUsecase(s, lending),
		Patron:  usecase.NewPatronUsecase(s, lending, crypto.NewBcryptHasher(cfg.BcryptCost)),
		Lending: lending,
		pool:    pool,
	}, nil
}

// OpenPool connects to Postgres and verifies the connection.
func OpenPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DB_DSN: %w", err)
	}
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = cfg.DBMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database (%s): %w", cfg.RedactedDSN(), err)
	}
	return pool, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
