// Package db opens the postgres connection pool used by the datastore
// prober and the meeting-notes repositories.
package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"meetscribe/internal/pkg/config"
)

// PoolConfig holds connection pool settings, loaded from environment
// variables with defaults sized for a small service.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns the default pool settings.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// Open creates a connection pool for the given DSN using the pgx stdlib
// driver. The pool is not pinged here; connectivity is the postgres
// prober's job, and a datastore outage at startup should not stop the
// monitor from running.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}

	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cfg := poolConfigFromEnv()
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	return pool, nil
}

// poolConfigFromEnv reads pool settings from DB_MAX_OPEN_CONNS,
// DB_MAX_IDLE_CONNS, DB_CONN_MAX_LIFETIME, and DB_CONN_MAX_IDLE_TIME,
// falling back to defaults on missing or invalid values.
func poolConfigFromEnv() PoolConfig {
	defaults := DefaultPoolConfig()

	positiveInt := func(v int) error { return config.ValidateIntRange(v, 1, 1000) }

	return PoolConfig{
		MaxOpenConns:    config.LoadEnvInt("DB_MAX_OPEN_CONNS", defaults.MaxOpenConns, positiveInt).Value,
		MaxIdleConns:    config.LoadEnvInt("DB_MAX_IDLE_CONNS", defaults.MaxIdleConns, positiveInt).Value,
		ConnMaxLifetime: config.LoadEnvDuration("DB_CONN_MAX_LIFETIME", defaults.ConnMaxLifetime, config.ValidatePositiveDuration).Value,
		ConnMaxIdleTime: config.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", defaults.ConnMaxIdleTime, config.ValidatePositiveDuration).Value,
	}
}
