package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "min_conns", poolCfg.MinConns, "max_conns", poolCfg.MaxConns)
	return pool, nil
}

// RunMigrations applies the schema. Statements are idempotent, so running
// them on every startup is safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cumulative_counters (
			guild_id  TEXT NOT NULL,
			member_id TEXT NOT NULL,
			sent      BIGINT NOT NULL DEFAULT 0,
			received  BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (guild_id, member_id)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_counters (
			guild_id  TEXT NOT NULL,
			member_id TEXT NOT NULL,
			day       DATE NOT NULL,
			sent      BIGINT NOT NULL DEFAULT 0,
			received  BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (guild_id, member_id, day)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_counters_guild_day ON daily_counters(guild_id, day)`,
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id         TEXT PRIMARY KEY,
			marker           TEXT,
			channel_id       TEXT,
			send_day         TEXT,
			send_time        TEXT,
			last_dispatch_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS member_names (
			guild_id     TEXT NOT NULL,
			member_id    TEXT NOT NULL,
			display_name TEXT NOT NULL,
			PRIMARY KEY (guild_id, member_id)
		)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
