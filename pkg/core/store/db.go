// Package store persists scenario and sweep results: JSONB rows in Postgres
// through pgx, with a local JSON file tier for runs without a database.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// InitDB initializes the database connection pool from a DATABASE_URL.
func InitDB(ctx context.Context, dbURL string) error {
	var err error
	once.Do(func() {
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL environment variable not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}
		err = Migrate(ctx, pool)
	})
	return err
}

// GetPool returns the database connection pool
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS scenario_results (
	run_id       UUID PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	config_key   TEXT NOT NULL,
	reactor_type TEXT NOT NULL,
	total_epc    DOUBLE PRECISION NOT NULL,
	npv          DOUBLE PRECISION NOT NULL,
	result_json  JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS scenario_results_config_key ON scenario_results (config_key, created_at DESC);

CREATE TABLE IF NOT EXISTS sweeps (
	sweep_id   UUID PRIMARY KEY,
	base_json  JSONB NOT NULL,
	failed     INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sweep_outcomes (
	sweep_id  UUID NOT NULL REFERENCES sweeps (sweep_id) ON DELETE CASCADE,
	case_key  TEXT NOT NULL,
	driver    TEXT NOT NULL DEFAULT '',
	band      DOUBLE PRECISION NOT NULL,
	npv       DOUBLE PRECISION,
	lcoe      DOUBLE PRECISION,
	error     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (sweep_id, case_key)
);
`

// Migrate creates the tables when they do not exist.
func Migrate(ctx context.Context, p *pgxpool.Pool) error {
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
