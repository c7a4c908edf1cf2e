package api

import (
	"errors"
	"fmt"

	"fleetplan/internal/model"
	"fleetplan/internal/opt"
	"fleetplan/internal/scenario"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.ScenarioID == "" {
		return fmt.Errorf("scenarioId is required")
	}
	if err := validateOverrides(overridesOf(req)); err != nil {
		return err
	}
	if err := scenario.Check(req.Problem); err != nil {
		return fmt.Errorf("problem: %w", err)
	}
	return nil
}

func validateOverrides(o solverOverrides) error {
	if o.Algorithm != "" && o.Algorithm != "greedy" && o.Algorithm != "alns" {
		return fmt.Errorf("invalid algorithm: %s", o.Algorithm)
	}
	if o.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if o.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must be >= 0")
	}
	if o.StagnationLimit < 0 {
		return fmt.Errorf("stagnationLimit must be >= 0")
	}
	if o.NodeBudget < 0 {
		return fmt.Errorf("nodeBudget must be >= 0")
	}
	if o.InitTemp < 0 {
		return fmt.Errorf("initTemp must be >= 0")
	}
	if o.Cooling != 0 && (o.Cooling <= 0 || o.Cooling >= 1) {
		return fmt.Errorf("cooling must be in (0,1)")
	}
	var errs []error
	for name, w := range o.OperatorWeights {
		if _, ok := opt.ParseOperator(name); !ok {
			errs = append(errs, fmt.Errorf("unknown operator: %s", name))
		} else if w <= 0 {
			errs = append(errs, fmt.Errorf("operator weight %s must be > 0", name))
		}
	}
	return errors.Join(errs...)
}
