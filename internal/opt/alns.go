package opt

import (
	"context"
	"fmt"
	"time"

	"fleetplan/internal/graph"
	"fleetplan/internal/model"
)

// Solve plans a problem end to end: build, improve (unless the greedy
// algorithm is requested), finalize. Only a malformed road graph is an
// error; empty inputs give an empty plan.
func Solve(ctx context.Context, p model.Problem, params Params) (model.Plan, Metrics, error) {
	params = params.withDefaults()
	g, err := graph.FromProblem(p)
	if err != nil {
		return model.Plan{}, Metrics{}, fmt.Errorf("road graph: %w", err)
	}
	router := graph.NewRouter(g, params.NodeBudget)
	inst := NewInstance(p, router)

	start := time.Now()
	initial := Construct(inst, params.Build)
	var (
		sol *Solution
		m   Metrics
	)
	if params.Algorithm == "greedy" {
		sol = initial.Clone()
		m = Metrics{
			InitialFulfilled: initial.Fulfilled(),
			InitialCost:      initial.TotalCost(),
			Recovered:        sol.greedyRecover(),
			StopReason:       StopGreedyOnly,
		}
		m.BestFulfilled, m.BestCost = sol.Fulfilled(), sol.TotalCost()
	} else {
		sol, m = Improve(ctx, inst, initial, params)
	}

	plan := Finalize(inst, sol)
	m.Dropped = sol.nonEmpty() - len(plan.Routes)
	m.Elapsed = time.Since(start)
	m.CacheHits, m.CacheMisses = router.Stats()
	return plan, m, nil
}

func (s *Solution) nonEmpty() int {
	n := 0
	for _, r := range s.Routes {
		if !r.Empty() {
			n++
		}
	}
	return n
}
