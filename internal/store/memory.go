package store

import (
	"context"
	"sort"
	"sync"
)

type metricsKey struct{ scenario, algo string }

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu      sync.Mutex
	planMx  map[metricsKey]PlanMetrics
	weights map[metricsKey][]WeightSnapshot
	optCfg  map[string]map[string]any // scenario -> config
}

func NewMemory() *Memory {
	return &Memory{
		planMx:  map[metricsKey]PlanMetrics{},
		weights: map[metricsKey][]WeightSnapshot{},
		optCfg:  map[string]map[string]any{},
	}
}

func (m *Memory) SavePlanMetrics(ctx context.Context, pm PlanMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planMx[metricsKey{pm.ScenarioID, pm.Algo}] = pm
	return nil
}

func (m *Memory) ListPlanMetrics(ctx context.Context, scenarioID, algo string) ([]PlanMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PlanMetrics{}
	for k, v := range m.planMx {
		if k.scenario == scenarioID && (algo == "" || k.algo == algo) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Algo < out[j].Algo })
	return out, nil
}

// SavePlanMetricsWeights replaces the snapshot history of the key.
func (m *Memory) SavePlanMetricsWeights(ctx context.Context, scenarioID, algo string, snaps []WeightSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights[metricsKey{scenarioID, algo}] = append([]WeightSnapshot(nil), snaps...)
	return nil
}

func (m *Memory) ListPlanMetricsWeights(ctx context.Context, scenarioID, algo string) ([]WeightSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WeightSnapshot{}, m.weights[metricsKey{scenarioID, algo}]...), nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, scenarioID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.optCfg[scenarioID]; ok {
		return cfg, nil
	}
	return nil, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, scenarioID string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optCfg[scenarioID] = cfg
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
