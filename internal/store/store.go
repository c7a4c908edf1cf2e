package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fleetplan/internal/opt"
)

// PlanMetrics is one solver run as persisted. Solutions themselves are
// never stored.
type PlanMetrics struct {
	ID               string             `json:"id"`
	ScenarioID       string             `json:"scenarioId"`
	Algo             string             `json:"algo"`
	RunID            string             `json:"runId"`
	Seed             int64              `json:"seed"`
	Iterations       int                `json:"iterations"`
	Improvements     int                `json:"improvements"`
	AcceptedWorse    int                `json:"acceptedWorse"`
	InitialFulfilled int                `json:"initialFulfilled"`
	BestFulfilled    int                `json:"bestFulfilled"`
	InitialCost      float64            `json:"initialCost"`
	BestCost         float64            `json:"bestCost"`
	StopReason       string             `json:"stopReason"`
	ElapsedMs        int64              `json:"elapsedMs"`
	OperatorSelects  map[string]int     `json:"operatorSelects"`
	FinalWeights     map[string]float64 `json:"finalWeights"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// WeightSnapshot is the operator weight table at the end of one segment.
type WeightSnapshot struct {
	Iteration int                `json:"iteration"`
	Weights   map[string]float64 `json:"weights"`
}

// NewPlanMetrics flattens solver metrics into a storable row.
func NewPlanMetrics(scenarioID, algo, runID string, m opt.Metrics) PlanMetrics {
	return PlanMetrics{
		ID:               uuid.New().String(),
		ScenarioID:       scenarioID,
		Algo:             algo,
		RunID:            runID,
		Seed:             m.Seed,
		Iterations:       m.Iterations,
		Improvements:     m.Improvements,
		AcceptedWorse:    m.AcceptedWorse,
		InitialFulfilled: m.InitialFulfilled,
		BestFulfilled:    m.BestFulfilled,
		InitialCost:      m.InitialCost,
		BestCost:         m.BestCost,
		StopReason:       m.StopReason,
		ElapsedMs:        m.Elapsed.Milliseconds(),
		OperatorSelects:  m.OperatorSelects,
		FinalWeights:     m.FinalWeights,
		CreatedAt:        time.Now().UTC(),
	}
}

// Snapshots converts the solver's weight history.
func Snapshots(in []opt.WeightSnapshot) []WeightSnapshot {
	out := make([]WeightSnapshot, 0, len(in))
	for _, s := range in {
		out = append(out, WeightSnapshot{Iteration: s.Iteration, Weights: s.Weights})
	}
	return out
}

// Store is the persistence interface used by the API server.
type Store interface {
	// Plan metrics, one row per scenario and algorithm (latest run wins)
	SavePlanMetrics(ctx context.Context, m PlanMetrics) error
	ListPlanMetrics(ctx context.Context, scenarioID, algo string) ([]PlanMetrics, error)
	SavePlanMetricsWeights(ctx context.Context, scenarioID, algo string, snaps []WeightSnapshot) error
	ListPlanMetricsWeights(ctx context.Context, scenarioID, algo string) ([]WeightSnapshot, error)

	// Optimizer config per scenario; nil when none was saved
	GetOptimizerConfig(ctx context.Context, scenarioID string) (map[string]any, error)
	SaveOptimizerConfig(ctx context.Context, scenarioID string, cfg map[string]any) error

	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("not found")
