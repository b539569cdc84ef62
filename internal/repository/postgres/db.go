package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/cintia-dashboard/internal/infra"
)

// DB: методы pgxpool.Pool, которыми пользуются репозитории.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// NewPool открывает пул и проверяет доступность базы (fail fast при старте).
func NewPool(ctx context.Context, cfg infra.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}
	return pool, nil
}

// Migrate создает таблицы записей и журнала просмотров, если их нет.
func Migrate(ctx context.Context, db DB, recordTable string) error {
	table := pgx.Identifier{recordTable}.Sanitize()

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id                 BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			idusuario          TEXT NOT NULL,
			facultad           TEXT NOT NULL,
			programa           TEXT NOT NULL,
			accesos_plataforma DOUBLE PRECISION
		)`, table),
		`CREATE TABLE IF NOT EXISTS dashboard_views (
			id              UUID PRIMARY KEY,
			trace_id        TEXT NOT NULL,
			endpoint        TEXT NOT NULL,
			facultades      TEXT[] NOT NULL DEFAULT '{}',
			programas       TEXT[] NOT NULL DEFAULT '{}',
			dataset_version TEXT NOT NULL,
			records         INTEGER NOT NULL,
			professors      INTEGER NOT NULL,
			empty           BOOLEAN NOT NULL,
			cache_hit       BOOLEAN NOT NULL,
			duration_ms     BIGINT NOT NULL,
			error           TEXT,
			created_at      TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
