package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"restaurant-floor/internal/config"
	"restaurant-floor/internal/logger"
)

// Startup tuning for the floor store pool
const (
	startupAttempts = 5
	startupBackoff  = 2 * time.Second
	pingTimeout     = 5 * time.Second
)

// DB is the PostgreSQL Persistence Store
type DB struct {
	Pool   *pgxpool.Pool
	logger *logger.Logger
}

// New opens the floor store pool, waiting for PostgreSQL to accept
// connections for up to startupAttempts tries.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	poolConfig, err := floorPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		pool, err := openPool(ctx, poolConfig)
		if err == nil {
			return &DB{Pool: pool, logger: log}, nil
		}
		if attempt == startupAttempts {
			return nil, fmt.Errorf("floor store unreachable after %d attempts: %w", attempt, err)
		}

		wait := time.Duration(attempt) * startupBackoff
		log.Warn("store_unreachable", fmt.Sprintf("PostgreSQL not ready, retrying in %v", wait), "startup", map[string]interface{}{
			"attempt": attempt,
			"host":    cfg.Database.Host,
			"reason":  err.Error(),
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// floorPoolConfig sizes the pool for short serialized transactions
func floorPoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("invalid database settings: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnIdleTime = 15 * time.Minute
	return poolConfig, nil
}

// openPool makes one connection attempt and checks it with a ping
func openPool(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
