package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fusion_costing/pkg/core/sweep"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SweepRepo stores sweep headers with one normalized row per case.
type SweepRepo struct {
	pool *pgxpool.Pool
}

// NewSweepRepo creates a new sweep repository
func NewSweepRepo(pool *pgxpool.Pool) *SweepRepo {
	return &SweepRepo{pool: pool}
}

// Save writes the sweep and all its outcomes in one transaction.
func (r *SweepRepo) Save(ctx context.Context, res *sweep.Result) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	baseJSON, err := json.Marshal(res.Base)
	if err != nil {
		return fmt.Errorf("failed to marshal sweep base: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin sweep save: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sweeps (sweep_id, base_json, failed, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sweep_id) DO UPDATE SET failed = EXCLUDED.failed`,
		res.SweepID, baseJSON, res.Failed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save sweep: %w", err)
	}

	// Replace existing rows for this sweep
	if _, err := tx.Exec(ctx, "DELETE FROM sweep_outcomes WHERE sweep_id = $1", res.SweepID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, o := range res.Outcomes {
		var npv *float64
		if o.Error == "" {
			npv = &o.NPV
		}
		batch.Queue(`
			INSERT INTO sweep_outcomes (sweep_id, case_key, driver, band, npv, lcoe, error)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			res.SweepID, o.Key, string(o.Driver), o.Band, npv, o.LCOE, o.Error)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save sweep outcomes: %w", err)
	}
	return tx.Commit(ctx)
}

// LoadOutcomes retrieves the case rows of a sweep.
func (r *SweepRepo) LoadOutcomes(ctx context.Context, sweepID string) (map[string]sweep.Outcome, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT case_key, driver, band, npv, lcoe, error
		FROM sweep_outcomes WHERE sweep_id = $1`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sweep outcomes: %w", err)
	}
	defer rows.Close()

	out := map[string]sweep.Outcome{}
	for rows.Next() {
		var (
			o      sweep.Outcome
			driver string
			npv    *float64
		)
		if err := rows.Scan(&o.Key, &driver, &o.Band, &npv, &o.LCOE, &o.Error); err != nil {
			return nil, err
		}
		o.Driver = sweep.Driver(driver)
		if npv != nil {
			o.NPV = *npv
		}
		out[o.Key] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
