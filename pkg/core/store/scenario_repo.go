package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fusion_costing/pkg/core/scenario"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by Load when no row matches.
var ErrNotFound = errors.New("result not found")

// ConfigKey is a deterministic id for a configuration: identical inputs after
// defaults give the same key. The name is not part of it.
func ConfigKey(cfg scenario.Config) (string, error) {
	cfg = cfg.WithDefaults()
	cfg.Name = ""
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, data).String(), nil
}

// Summary is the indexed header of a stored result.
type Summary struct {
	RunID       string    `json:"run_id"`
	Name        string    `json:"name"`
	ReactorType string    `json:"reactor_type"`
	TotalEPC    float64   `json:"total_epc_cost"`
	NPV         float64   `json:"npv"`
	CreatedAt   time.Time `json:"created_at"`
}

// ScenarioRepo handles the storage of scenario results.
type ScenarioRepo struct {
	pool *pgxpool.Pool
}

// NewScenarioRepo creates a new repository instance.
func NewScenarioRepo(pool *pgxpool.Pool) *ScenarioRepo {
	return &ScenarioRepo{pool: pool}
}

// Save persists a result as JSONB. It uses an upsert keyed by run id.
func (r *ScenarioRepo) Save(ctx context.Context, res *scenario.Result) error {
	if r.pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	key, err := ConfigKey(res.Config)
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO scenario_results (run_id, name, config_key, reactor_type, total_epc, npv, result_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			total_epc = EXCLUDED.total_epc,
			npv = EXCLUDED.npv,
			result_json = EXCLUDED.result_json;
	`
	_, err = r.pool.Exec(ctx, query,
		res.RunID, res.Name, key, res.Config.ReactorType,
		res.TotalEPC, res.Financial.NPV, jsonData, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (r *ScenarioRepo) loadOne(ctx context.Context, query string, arg any) (*scenario.Result, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	var jsonData []byte
	err := r.pool.QueryRow(ctx, query, arg).Scan(&jsonData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load result: %w", err)
	}
	var res scenario.Result
	if err := json.Unmarshal(jsonData, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &res, nil
}

// Load retrieves a result by run id.
func (r *ScenarioRepo) Load(ctx context.Context, runID string) (*scenario.Result, error) {
	return r.loadOne(ctx, `SELECT result_json FROM scenario_results WHERE run_id = $1`, runID)
}

// LoadByConfigKey retrieves the newest result for a configuration.
func (r *ScenarioRepo) LoadByConfigKey(ctx context.Context, key string) (*scenario.Result, error) {
	return r.loadOne(ctx, `
		SELECT result_json FROM scenario_results
		WHERE config_key = $1
		ORDER BY created_at DESC
		LIMIT 1`, key)
}

// List returns the newest result headers.
func (r *ScenarioRepo) List(ctx context.Context, limit int) ([]Summary, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT run_id::text, name, reactor_type, total_epc, npv, created_at
		FROM scenario_results
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.RunID, &s.Name, &s.ReactorType, &s.TotalEPC, &s.NPV, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
