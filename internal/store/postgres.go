package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowmesh/flowmesh/internal/platform/envutil"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
)

// Config is the Postgres connection configuration for the Store adapter.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LoadConfig reads the Postgres connection configuration from the
// environment, the same variable names and defaults used by other GORM
// connection setup in this codebase.
func LoadConfig() Config {
	return Config{
		Host:     envutil.String("POSTGRES_HOST", "localhost"),
		Port:     envutil.String("POSTGRES_PORT", "5432"),
		User:     envutil.String("POSTGRES_USER", "postgres"),
		Password: envutil.String("POSTGRES_PASSWORD", ""),
		Name:     envutil.String("POSTGRES_NAME", "flowmesh"),
		SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
	}
}

func (c Config) dsn() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// Postgres is the required Store adapter implementation: job HASH
// storage, stream/task-list/hook-signal tables, advisory-lock scout
// election, and LISTEN/NOTIFY broadcast, all over one pgx pool.
type Postgres struct {
	pool  *pgxpool.Pool
	log   *logger.Logger
	locks *lockHolder
}

// NewPostgres opens the pool, enables the uuid-ossp extension, and runs
// the schema migration.
func NewPostgres(ctx context.Context, cfg Config, log *logger.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	p := &Postgres{pool: pool, log: log.With("component", "store.Postgres"), locks: newLockHolder()}

	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`); err != nil {
		return nil, fmt.Errorf("store: enable uuid-ossp: %w", err)
	}
	p.log.Info("uuid-ossp extension enabled")

	if err := p.migrate(ctx); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) migrate(ctx context.Context) error {
	p.log.Info("running schema migration")
	for _, stmt := range migrationStatements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration statement: %w", err)
		}
	}
	return nil
}

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS job_state (
		job_id        text PRIMARY KEY,
		group_id      text NOT NULL,
		app           text NOT NULL,
		version       text NOT NULL,
		aid           text NOT NULL,
		status        int  NOT NULL,
		attempts      int  NOT NULL DEFAULT 0,
		trace_id      text,
		span_id       text,
		created_at    timestamptz NOT NULL DEFAULT now(),
		updated_at    timestamptz NOT NULL DEFAULT now(),
		locked_at     timestamptz,
		heartbeat_at  timestamptz,
		wake_at       timestamptz,
		last_error_at timestamptz,
		last_error    text,
		fields        jsonb NOT NULL DEFAULT '{}'::jsonb
	);`,
	`CREATE INDEX IF NOT EXISTS job_state_status_idx ON job_state (status);`,
	`CREATE INDEX IF NOT EXISTS job_state_group_id_idx ON job_state (group_id);`,
	`CREATE TABLE IF NOT EXISTS stream_entry (
		id         text PRIMARY KEY,
		topic      text NOT NULL,
		job_id     text NOT NULL,
		aid        text NOT NULL,
		payload    jsonb NOT NULL DEFAULT '{}'::jsonb,
		meta       jsonb NOT NULL DEFAULT '{}'::jsonb,
		claimed_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS stream_entry_topic_idx ON stream_entry (topic, created_at) WHERE claimed_at IS NULL;`,
	`CREATE TABLE IF NOT EXISTS task_list_entry (
		list_key   text NOT NULL,
		job_id     text NOT NULL,
		aid        text NOT NULL,
		wake_at    timestamptz NOT NULL,
		claimed_at timestamptz,
		PRIMARY KEY (list_key, job_id)
	);`,
	`CREATE INDEX IF NOT EXISTS task_list_entry_wake_idx ON task_list_entry (list_key, wake_at) WHERE claimed_at IS NULL;`,
	`CREATE TABLE IF NOT EXISTS hook_signal (
		signal_id  text PRIMARY KEY,
		job_id     text NOT NULL,
		payload    jsonb NOT NULL DEFAULT '{}'::jsonb,
		created_at timestamptz NOT NULL DEFAULT now()
	);`,
}
