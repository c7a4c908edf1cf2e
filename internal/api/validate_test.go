package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fleetplan/internal/model"
	"fleetplan/internal/opt"
)

func TestValidateOverrides(t *testing.T) {
	cases := []struct {
		name string
		in   solverOverrides
		ok   bool
	}{
		{"empty", solverOverrides{}, true},
		{"alns", solverOverrides{Algorithm: "alns", Cooling: 0.99, OperatorWeights: map[string]float64{"worst": 2}}, true},
		{"bad algorithm", solverOverrides{Algorithm: "tabu"}, false},
		{"negative budget", solverOverrides{TimeBudgetMs: -1}, false},
		{"negative iterations", solverOverrides{MaxIterations: -5}, false},
		{"negative stagnation", solverOverrides{StagnationLimit: -5}, false},
		{"negative node budget", solverOverrides{NodeBudget: -1}, false},
		{"cooling at one", solverOverrides{Cooling: 1}, false},
		{"negative temp", solverOverrides{InitTemp: -1}, false},
		{"unknown operator", solverOverrides{OperatorWeights: map[string]float64{"shaw": 1}}, false},
		{"zero weight", solverOverrides{OperatorWeights: map[string]float64{"random": 0}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateOverrides(tc.in)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValidateOptimizeRequest(t *testing.T) {
	req := model.OptimizeRequest{Problem: testProblem()}
	require.ErrorContains(t, validateOptimizeRequest(&req), "scenarioId")

	req.ScenarioID = "sc"
	require.NoError(t, validateOptimizeRequest(&req))

	req.Problem.Vehicles[0].HomeWarehouseID = "nowhere"
	require.ErrorContains(t, validateOptimizeRequest(&req), "unknown home warehouse")

	req.Problem = testProblem()
	req.Problem.Vehicles[0].MaxDistance = -10
	require.ErrorContains(t, validateOptimizeRequest(&req), "negative capacity, range or cost")
}

func TestDecodeOverrides(t *testing.T) {
	o, err := decodeOverrides(map[string]any{"algorithm": "greedy", "timeBudgetMs": 250.0, "operatorWeights": map[string]any{"worst": 3.0}})
	require.NoError(t, err)
	require.Equal(t, "greedy", o.Algorithm)
	require.Equal(t, 250, o.TimeBudgetMs)

	_, err = decodeOverrides(map[string]any{"removalWeights": []any{1, 2}})
	require.Error(t, err)

	o, err = decodeOverrides(nil)
	require.NoError(t, err)
	require.Equal(t, solverOverrides{}, o)
}

func TestOverridesApply(t *testing.T) {
	base := opt.DefaultParams()
	base.OperatorWeights = map[string]float64{"random": 2}
	p := solverOverrides{
		Algorithm:       "greedy",
		TimeBudgetMs:    1500,
		Seed:            9,
		OperatorWeights: map[string]float64{"worst": 3},
		FixedWeights:    true,
	}.apply(base)

	require.Equal(t, "greedy", p.Algorithm)
	require.Equal(t, 1500*time.Millisecond, p.TimeBudget)
	require.Equal(t, int64(9), p.Seed)
	require.Equal(t, map[string]float64{"random": 2, "worst": 3}, p.OperatorWeights)
	require.True(t, p.FixedWeights)
	require.Equal(t, base.MaxIterations, p.MaxIterations)
	// the base map is not mutated
	require.Equal(t, map[string]float64{"random": 2}, base.OperatorWeights)
}
