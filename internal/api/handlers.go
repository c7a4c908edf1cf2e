package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fleetplan/internal/graph"
	"fleetplan/internal/metrics"
	"fleetplan/internal/model"
	"fleetplan/internal/opt"
	"fleetplan/internal/store"
)

// OptimizeHandler handles POST /v1/optimize. The solve runs on the request
// goroutine and is cancelled when the client goes away; progress is
// published as run events on the scenario's channel.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if s.Config.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.Config.MaxBodyBytes)
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeProblem(w, r, http.StatusRequestEntityTooLarge, "Request too large", err.Error())
			return
		}
		writeProblem(w, r, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Invalid optimize request", err.Error())
		return
	}

	ov := overridesOf(&req)
	params := s.paramsFor(r.Context(), req.ScenarioID, &ov)
	runID := uuid.New().String()
	logger := logFor(r).With().Str("run_id", runID).Str("scenario_id", req.ScenarioID).Logger()

	s.Broker.Publish(req.ScenarioID, RunEvent{Type: EventRunStarted, Data: map[string]any{
		"runId": runID, "algorithm": params.Algorithm, "orders": len(req.Problem.Orders), "vehicles": len(req.Problem.Vehicles),
	}})

	// OnImprove must not block the search, so improvements go through a
	// buffered channel and are published from here.
	progress := make(chan opt.Progress, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range progress {
			s.Broker.Publish(req.ScenarioID, RunEvent{Type: EventRunImproved, Data: map[string]any{
				"runId": runID, "iteration": p.Iteration, "fulfilled": p.Fulfilled, "cost": p.Cost, "elapsedMs": p.Elapsed.Milliseconds(),
			}})
		}
	}()
	params.OnImprove = func(p opt.Progress) {
		select {
		case progress <- p:
		default:
		}
	}

	plan, m, err := opt.Solve(r.Context(), req.Problem, params)
	close(progress)
	wg.Wait()
	if err != nil {
		s.Broker.Publish(req.ScenarioID, RunEvent{Type: EventRunFailed, Data: map[string]any{"runId": runID, "error": err.Error()}})
		if errors.Is(err, graph.ErrNegativeWeight) {
			writeProblem(w, r, http.StatusBadRequest, "Invalid road graph", err.Error())
			return
		}
		logger.Error().Err(err).Msg("solve failed")
		writeProblem(w, r, http.StatusInternalServerError, "Solve failed", err.Error())
		return
	}

	opt.RecordMetrics(req.ScenarioID, params.Algorithm, m)
	metrics.ObserveSolve(params.Algorithm, m, plan.Fulfilled, len(req.Problem.Orders))
	s.persistMetrics(r.Context(), req.ScenarioID, params.Algorithm, runID, m)

	logger.Info().
		Str("algo", params.Algorithm).
		Int("fulfilled", plan.Fulfilled).
		Int("orders", len(req.Problem.Orders)).
		Float64("total_cost", plan.TotalCost).
		Str("stop_reason", m.StopReason).
		Msg("optimize finished")
	s.Broker.Publish(req.ScenarioID, RunEvent{Type: EventRunFinished, Data: map[string]any{
		"runId": runID, "fulfilled": plan.Fulfilled, "unassigned": len(plan.Unassigned), "totalCost": plan.TotalCost, "stopReason": m.StopReason,
	}})
	writeJSON(w, http.StatusOK, model.OptimizeResponse{RunID: runID, Plan: plan, Metrics: metricsView(m)})
}

// persistMetrics stores the run summary. A store failure does not fail the
// request; the plan is already computed.
func (s *Server) persistMetrics(ctx context.Context, scenarioID, algo, runID string, m opt.Metrics) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	pm := store.NewPlanMetrics(scenarioID, algo, runID, m)
	if err := s.Store.SavePlanMetrics(ctx, pm); err != nil {
		log.Warn().Err(err).Str("scenario_id", scenarioID).Msg("save plan metrics failed")
		return
	}
	if len(m.Snapshots) > 0 {
		if err := s.Store.SavePlanMetricsWeights(ctx, scenarioID, algo, store.Snapshots(m.Snapshots)); err != nil {
			log.Warn().Err(err).Str("scenario_id", scenarioID).Msg("save weight snapshots failed")
		}
	}
}

func metricsView(m opt.Metrics) map[string]any {
	return map[string]any{
		"seed":             m.Seed,
		"iterations":       m.Iterations,
		"improvements":     m.Improvements,
		"acceptedWorse":    m.AcceptedWorse,
		"recovered":        m.Recovered,
		"balanceMoves":     m.BalanceMoves,
		"initialFulfilled": m.InitialFulfilled,
		"initialCost":      m.InitialCost,
		"bestFulfilled":    m.BestFulfilled,
		"bestCost":         m.BestCost,
		"droppedRoutes":    m.Dropped,
		"stopReason":       m.StopReason,
		"elapsedMs":        m.Elapsed.Milliseconds(),
		"operatorSelects":  m.OperatorSelects,
		"finalWeights":     m.FinalWeights,
		"pathCacheHits":    m.CacheHits,
		"pathCacheMisses":  m.CacheMisses,
	}
}

// OptimizerConfigHandler returns the effective optimizer configuration,
// with the stored config of ?scenarioId= overlaid when present.
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	p := s.paramsFor(r.Context(), r.URL.Query().Get("scenarioId"), nil)
	writeJSON(w, http.StatusOK, map[string]any{"defaults": configView(p)})
}

// AdminOptimizerConfigHandler gets or replaces the stored config of one scenario.
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.URL.Query().Get("scenarioId")
	if scenarioID == "" {
		writeProblem(w, r, http.StatusBadRequest, "Missing scenarioId", "")
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetOptimizerConfig(r.Context(), scenarioID)
		if err != nil {
			writeProblem(w, r, http.StatusInternalServerError, "Load failed", err.Error())
			return
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "Invalid JSON", err.Error())
			return
		}
		if body.Config == nil {
			writeProblem(w, r, http.StatusBadRequest, "Missing config", "")
			return
		}
		o, err := decodeOverrides(body.Config)
		if err == nil {
			err = validateOverrides(o)
		}
		if err != nil {
			writeProblem(w, r, http.StatusBadRequest, "Invalid config", err.Error())
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), scenarioID, body.Config); err != nil {
			writeProblem(w, r, http.StatusInternalServerError, "Save failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type planMetricsItem struct {
	store.PlanMetrics
	Weights []store.WeightSnapshot `json:"weights,omitempty"`
}

// PlanMetricsHandler lists the latest run metrics of a scenario, per
// algorithm. Runs the store has not seen fall back to the in-process record.
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scenarioID := q.Get("scenarioId")
	if scenarioID == "" {
		writeProblem(w, r, http.StatusBadRequest, "Missing scenarioId", "")
		return
	}
	algo := q.Get("algo")
	includeWeights := strings.EqualFold(q.Get("includeWeights"), "true") || q.Get("includeWeights") == "1"

	rows, err := s.Store.ListPlanMetrics(r.Context(), scenarioID, algo)
	if err != nil {
		logFor(r).Warn().Err(err).Msg("list plan metrics failed, using in-process record")
	}
	if err != nil || len(rows) == 0 {
		rows = rows[:0]
		for a, m := range opt.GetMetrics(scenarioID) {
			if algo != "" && a != algo {
				continue
			}
			rows = append(rows, store.NewPlanMetrics(scenarioID, a, "", m))
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Algo < rows[j].Algo })
	}
	items := make([]planMetricsItem, 0, len(rows))
	for _, pm := range rows {
		it := planMetricsItem{PlanMetrics: pm}
		if includeWeights {
			snaps, err := s.Store.ListPlanMetricsWeights(r.Context(), scenarioID, pm.Algo)
			if err == nil {
				it.Weights = snaps
			}
		}
		items = append(items, it)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// PlanMetricsWeightsHandler lists weight snapshots of one scenario and algorithm.
func (s *Server) PlanMetricsWeightsHandler(w http.ResponseWriter, r *http.Request) {
	scenarioID := r.URL.Query().Get("scenarioId")
	algo := r.URL.Query().Get("algo")
	if scenarioID == "" || algo == "" {
		writeProblem(w, r, http.StatusBadRequest, "Missing parameters", "scenarioId and algo required")
		return
	}
	items, err := s.Store.ListPlanMetricsWeights(r.Context(), scenarioID, algo)
	if err != nil {
		writeProblem(w, r, http.StatusInternalServerError, "Metrics weights failed", err.Error())
		return
	}
	if items == nil {
		items = []store.WeightSnapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "Not Ready", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
