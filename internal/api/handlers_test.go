package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fleetplan/internal/config"
	"fleetplan/internal/model"
	"fleetplan/internal/opt"
	"fleetplan/internal/store"
)

// testProblem is a three-node line with one depot and two orders that one
// van can serve together.
func testProblem() model.Problem {
	return model.Problem{
		Nodes: []model.Node{{ID: 1}, {ID: 2}, {ID: 3}},
		Edges: []model.Edge{
			{From: 1, To: 2, Distance: 2}, {From: 2, To: 1, Distance: 2},
			{From: 2, To: 3, Distance: 3}, {From: 3, To: 2, Distance: 3},
		},
		SKUs: []model.SKU{{ID: "A", Weight: 1, Volume: 1}},
		Orders: []model.Order{
			{ID: "O1", Node: 2, Items: map[string]int{"A": 1}},
			{ID: "O2", Node: 3, Items: map[string]int{"A": 2}},
		},
		Vehicles: []model.Vehicle{
			{ID: "V1", Type: "LightVan", HomeWarehouseID: "W1", CapWeight: 10, CapVolume: 10, MaxDistance: 100, CostPerDistance: 1, FixedCost: 5},
		},
		Warehouses: []model.Warehouse{{ID: "W1", Node: 1, Inventory: map[string]int{"A": 10}}},
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *Broker) {
	t.Helper()
	b := NewBroker()
	s := newServer(cfg, store.NewMemory(), b)
	t.Cleanup(func() { _ = s.Close() })
	return s, b
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch v := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(v))
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func optimizeRequest(scenarioID string) model.OptimizeRequest {
	return model.OptimizeRequest{
		ScenarioID:      scenarioID,
		MaxIterations:   200,
		StagnationLimit: 100,
		Seed:            42,
		Problem:         testProblem(),
	}
}

func TestHealthReady(t *testing.T) {
	s, _ := newTestServer(t, config.Config{})
	h := s.Routes()
	rr := do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	rr = do(t, h, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestOptimize(t *testing.T) {
	s, _ := newTestServer(t, config.Config{})
	h := s.Routes()

	rr := do(t, h, http.MethodPost, "/v1/optimize", optimizeRequest("sc_opt"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp model.OptimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)
	require.Equal(t, 2, resp.Plan.Fulfilled)
	require.Empty(t, resp.Plan.Unassigned)
	require.NoError(t, opt.Validate(testProblem(), resp.Plan))
	require.Equal(t, float64(42), resp.Metrics["seed"])

	rr = do(t, h, http.MethodGet, "/v1/admin/plan-metrics?scenarioId=sc_opt&includeWeights=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []planMetricsItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	require.Equal(t, "alns", list.Items[0].Algo)
	require.Equal(t, resp.RunID, list.Items[0].RunID)
	require.Equal(t, 2, list.Items[0].BestFulfilled)
	require.NotEmpty(t, list.Items[0].Weights)

	rr = do(t, h, http.MethodGet, "/v1/admin/plan-metrics/weights?scenarioId=sc_opt&algo=alns", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodGet, "/v1/admin/plan-metrics/weights?scenarioId=sc_opt", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOptimizeGreedy(t *testing.T) {
	s, _ := newTestServer(t, config.Config{})
	req := optimizeRequest("sc_greedy")
	req.Algorithm = "greedy"
	rr := do(t, s.Routes(), http.MethodPost, "/v1/optimize", req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp model.OptimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, opt.StopGreedyOnly, resp.Metrics["stopReason"])
	require.Equal(t, 2, resp.Plan.Fulfilled)
}

func TestOptimizeRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, config.Config{MaxBodyBytes: 4096})
	h := s.Routes()

	cases := map[string]any{
		"invalid json":     "{",
		"missing scenario": model.OptimizeRequest{Problem: testProblem()},
		"bad algorithm": func() model.OptimizeRequest {
			r := optimizeRequest("sc")
			r.Algorithm = "tabu"
			return r
		}(),
		"unknown operator": func() model.OptimizeRequest {
			r := optimizeRequest("sc")
			r.OperatorWeights = map[string]float64{"shaw": 1}
			return r
		}(),
		"negative edge": func() model.OptimizeRequest {
			r := optimizeRequest("sc")
			r.Problem.Edges[0].Distance = -1
			return r
		}(),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/optimize", body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
			var p Problem
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
			require.Equal(t, http.StatusBadRequest, p.Status)
			require.Equal(t, "/v1/optimize", p.Instance)
			require.NotEmpty(t, p.RequestID)
			require.Equal(t, rr.Header().Get("X-Request-ID"), p.RequestID)
		})
	}

	big := `{"scenarioId":"sc","problem":{"nodes":[` + strings.Repeat(`{"id":1},`, 1000) + `{"id":2}]}}`
	rr := do(t, h, http.MethodPost, "/v1/optimize", big)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/optimize", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestOptimizerConfig(t *testing.T) {
	s, _ := newTestServer(t, config.Config{})
	h := s.Routes()

	rr := do(t, h, http.MethodGet, "/v1/admin/optimizer/config?scenarioId=sc_cfg", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"config":{}}`, rr.Body.String())

	rr = do(t, h, http.MethodPut, "/v1/admin/optimizer/config?scenarioId=sc_cfg", map[string]any{
		"config": map[string]any{"algorithm": "greedy", "maxIterations": 50},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, h, http.MethodPut, "/v1/admin/optimizer/config?scenarioId=sc_cfg", map[string]any{
		"config": map[string]any{"objectives": map[string]any{"lateness": 4}},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, h, http.MethodPut, "/v1/admin/optimizer/config?scenarioId=sc_cfg", map[string]any{
		"config": map[string]any{"cooling": 2},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, h, http.MethodPut, "/v1/admin/optimizer/config", map[string]any{"config": map[string]any{}})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodGet, "/v1/optimizer/config?scenarioId=sc_cfg", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var view struct {
		Defaults map[string]any `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, "greedy", view.Defaults["algorithm"])
	require.Equal(t, float64(50), view.Defaults["maxIterations"])
	require.Len(t, view.Defaults["operatorWeights"], 5)

	// a scenario without stored config sees the service defaults
	rr = do(t, h, http.MethodGet, "/v1/optimizer/config", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, "alns", view.Defaults["algorithm"])

	// the stored algorithm applies when the request leaves it unset
	req := optimizeRequest("sc_cfg")
	rr = do(t, h, http.MethodPost, "/v1/optimize", req)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp model.OptimizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, opt.StopGreedyOnly, resp.Metrics["stopReason"])
}

func TestOptimizePublishesRunEvents(t *testing.T) {
	s, b := newTestServer(t, config.Config{})
	ch := b.Subscribe("sc_events")

	var types []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range ch {
			types = append(types, evt.Type)
			if evt.Type == EventRunFinished {
				return
			}
		}
	}()

	rr := do(t, s.Routes(), http.MethodPost, "/v1/optimize", optimizeRequest("sc_events"))
	require.Equal(t, http.StatusOK, rr.Code)
	<-done
	require.Equal(t, EventRunStarted, types[0])
	require.Equal(t, EventRunFinished, types[len(types)-1])
	for _, typ := range types[1 : len(types)-1] {
		require.Equal(t, EventRunImproved, typ)
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, config.Config{RateRPS: 0.001, RateBurst: 1})
	h := s.Routes()

	rr := do(t, h, http.MethodPost, "/v1/optimize", "{}")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(t, h, http.MethodPost, "/v1/optimize", "{}")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "1", rr.Header().Get("Retry-After"))

	// other endpoints are not limited
	rr = do(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestDebugAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, config.Config{Environment: "development"})
	h := s.Routes()

	rr := do(t, h, http.MethodGet, "/debug/info", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var info map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	require.Contains(t, info, "build")
	require.Equal(t, "memory", info["config"].(map[string]any)["STORE"])

	rr = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `http_requests_total{method="GET",path="/debug/info",status="200"}`)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, config.Config{AllowOrigins: "https://ops.example.com"})
	h := s.Routes()

	req := httptest.NewRequest(http.MethodOptions, "/v1/optimize", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "https://ops.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
