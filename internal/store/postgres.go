package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema.sql
var schemaSQL string

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the tables if they do not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) SavePlanMetrics(ctx context.Context, m PlanMetrics) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	selects, err := json.Marshal(m.OperatorSelects)
	if err != nil {
		return err
	}
	weights, err := json.Marshal(m.FinalWeights)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO plan_metrics (id, scenario_id, algo, run_id, seed, iterations, improvements, accepted_worse, initial_fulfilled, best_fulfilled, initial_cost, best_cost, stop_reason, elapsed_ms, operator_selects, final_weights)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        ON CONFLICT (scenario_id, algo) DO UPDATE SET
          run_id=$4, seed=$5, iterations=$6, improvements=$7, accepted_worse=$8, initial_fulfilled=$9, best_fulfilled=$10, initial_cost=$11, best_cost=$12, stop_reason=$13, elapsed_ms=$14, operator_selects=$15, final_weights=$16, created_at=now()`,
		m.ID, m.ScenarioID, m.Algo, m.RunID, m.Seed, m.Iterations, m.Improvements, m.AcceptedWorse,
		m.InitialFulfilled, m.BestFulfilled, m.InitialCost, m.BestCost, m.StopReason, m.ElapsedMs, selects, weights,
	)
	return err
}

func (p *Postgres) ListPlanMetrics(ctx context.Context, scenarioID, algo string) ([]PlanMetrics, error) {
	base := `SELECT id, scenario_id, algo, run_id, seed, iterations, improvements, accepted_worse, initial_fulfilled, best_fulfilled, initial_cost, best_cost, stop_reason, elapsed_ms, operator_selects, final_weights, created_at FROM plan_metrics WHERE scenario_id=$1`
	args := []any{scenarioID}
	if algo != "" {
		base += ` AND algo=$2`
		args = append(args, algo)
	}
	rows, err := p.db.QueryContext(ctx, base+` ORDER BY algo`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PlanMetrics{}
	for rows.Next() {
		var m PlanMetrics
		var initCost, bestCost sql.NullFloat64
		var selects, weights []byte
		if err := rows.Scan(&m.ID, &m.ScenarioID, &m.Algo, &m.RunID, &m.Seed, &m.Iterations, &m.Improvements, &m.AcceptedWorse,
			&m.InitialFulfilled, &m.BestFulfilled, &initCost, &bestCost, &m.StopReason, &m.ElapsedMs, &selects, &weights, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.InitialCost, m.BestCost = initCost.Float64, bestCost.Float64
		if len(selects) > 0 {
			if err := json.Unmarshal(selects, &m.OperatorSelects); err != nil {
				return nil, err
			}
		}
		if len(weights) > 0 {
			if err := json.Unmarshal(weights, &m.FinalWeights); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SavePlanMetricsWeights replaces the snapshot history of the key.
func (p *Postgres) SavePlanMetricsWeights(ctx context.Context, scenarioID, algo string, snaps []WeightSnapshot) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_metrics_weights WHERE scenario_id=$1 AND algo=$2`, scenarioID, algo); err != nil {
		return err
	}
	for _, s0 := range snaps {
		js, err := json.Marshal(s0.Weights)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO plan_metrics_weights (id, scenario_id, algo, iteration, weights)
            VALUES ($1,$2,$3,$4,$5)`, uuid.New().String(), scenarioID, algo, s0.Iteration, js)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListPlanMetricsWeights(ctx context.Context, scenarioID, algo string) ([]WeightSnapshot, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT iteration, weights FROM plan_metrics_weights WHERE scenario_id=$1 AND algo=$2 ORDER BY iteration`, scenarioID, algo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WeightSnapshot{}
	for rows.Next() {
		var s WeightSnapshot
		var js []byte
		if err := rows.Scan(&s.Iteration, &js); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(js, &s.Weights); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context, scenarioID string) (map[string]any, error) {
	row := p.db.QueryRowContext(ctx, `SELECT config FROM optimizer_config WHERE scenario_id=$1`, scenarioID)
	var js []byte
	if err := row.Scan(&js); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(js, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, scenarioID string, cfg map[string]any) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO optimizer_config (scenario_id, config, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (scenario_id) DO UPDATE SET config=$2, updated_at=now()`, scenarioID, js)
	return err
}
