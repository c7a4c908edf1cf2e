package api

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"fleetplan/internal/model"
	"fleetplan/internal/opt"
)

// solverOverrides is the tunable subset of an optimize request. Stored
// per-scenario config uses the same keys.
type solverOverrides struct {
	Algorithm       string             `json:"algorithm,omitempty"`
	TimeBudgetMs    int                `json:"timeBudgetMs,omitempty"`
	MaxIterations   int                `json:"maxIterations,omitempty"`
	StagnationLimit int                `json:"stagnationLimit,omitempty"`
	InitTemp        float64            `json:"initTemp,omitempty"`
	Cooling         float64            `json:"cooling,omitempty"`
	Seed            int64              `json:"seed,omitempty"`
	NodeBudget      int                `json:"nodeBudget,omitempty"`
	OperatorWeights map[string]float64 `json:"operatorWeights,omitempty"`
	FixedWeights    bool               `json:"fixedWeights,omitempty"`
}

func overridesOf(req *model.OptimizeRequest) solverOverrides {
	return solverOverrides{
		Algorithm:       req.Algorithm,
		TimeBudgetMs:    req.TimeBudgetMs,
		MaxIterations:   req.MaxIterations,
		StagnationLimit: req.StagnationLimit,
		InitTemp:        req.InitTemp,
		Cooling:         req.Cooling,
		Seed:            req.Seed,
		NodeBudget:      req.NodeBudget,
		OperatorWeights: req.OperatorWeights,
		FixedWeights:    req.FixedWeights,
	}
}

// decodeOverrides reads a stored config map, rejecting unknown keys.
func decodeOverrides(cfg map[string]any) (solverOverrides, error) {
	var o solverOverrides
	if len(cfg) == 0 {
		return o, nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return o, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	err = dec.Decode(&o)
	return o, err
}

// apply overlays every set field onto p.
func (o solverOverrides) apply(p opt.Params) opt.Params {
	if o.Algorithm != "" {
		p.Algorithm = o.Algorithm
	}
	if o.TimeBudgetMs > 0 {
		p.TimeBudget = time.Duration(o.TimeBudgetMs) * time.Millisecond
	}
	if o.MaxIterations > 0 {
		p.MaxIterations = o.MaxIterations
	}
	if o.StagnationLimit > 0 {
		p.StagnationLimit = o.StagnationLimit
	}
	if o.InitTemp > 0 {
		p.InitialTemp = o.InitTemp
	}
	if o.Cooling > 0 {
		p.Cooling = o.Cooling
	}
	if o.Seed != 0 {
		p.Seed = o.Seed
	}
	if o.NodeBudget > 0 {
		p.NodeBudget = o.NodeBudget
	}
	if len(o.OperatorWeights) > 0 {
		w := make(map[string]float64, len(p.OperatorWeights)+len(o.OperatorWeights))
		for k, v := range p.OperatorWeights {
			w[k] = v
		}
		for k, v := range o.OperatorWeights {
			w[k] = v
		}
		p.OperatorWeights = w
	}
	if o.FixedWeights {
		p.FixedWeights = true
	}
	return p
}

// paramsFor layers service defaults, the stored scenario config and the
// request, later layers winning. A stored config that no longer decodes is
// skipped with a warning.
func (s *Server) paramsFor(ctx context.Context, scenarioID string, req *solverOverrides) opt.Params {
	p := s.Defaults
	cfg, err := s.Store.GetOptimizerConfig(ctx, scenarioID)
	if err == nil && cfg != nil {
		stored, derr := decodeOverrides(cfg)
		if derr == nil {
			p = stored.apply(p)
		} else {
			err = derr
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("scenario_id", scenarioID).Msg("ignoring stored optimizer config")
	}
	if req != nil {
		p = req.apply(p)
	}
	return p
}

// configView renders params with the request's key names.
func configView(p opt.Params) map[string]any {
	weights := opt.NewScoreTable(p.OperatorWeights, p.Reaction, p.FixedWeights).Weights()
	return map[string]any{
		"algorithm":       p.Algorithm,
		"timeBudgetMs":    p.TimeBudget.Milliseconds(),
		"maxIterations":   p.MaxIterations,
		"stagnationLimit": p.StagnationLimit,
		"initTemp":        p.InitialTemp,
		"cooling":         p.Cooling,
		"seed":            p.Seed,
		"nodeBudget":      p.NodeBudget,
		"operatorWeights": weights,
		"fixedWeights":    p.FixedWeights,
		"maxOrdersByType": p.Build.MaxOrdersByType,
	}
}
