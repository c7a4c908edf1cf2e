package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"fleetplan/internal/opt"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the optimize limiter
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected by the rate limiter."},
	)

	// SolverRuns counts finished solves by algorithm and stop reason
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_runs_total", Help: "Finished solves by algorithm and stop reason."},
		[]string{"algo", "stop_reason"},
	)
	// SolverDuration records wall-clock solve time in seconds
	SolverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_duration_seconds", Help: "Solve duration in seconds.", Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}},
		[]string{"algo"},
	)
	// SolverIterations records search iterations per solve
	SolverIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_iterations", Help: "Search iterations per solve.", Buckets: prometheus.ExponentialBuckets(10, 4, 7)},
		[]string{"algo"},
	)
	// SolverFulfillment records the fraction of orders delivered per solve
	SolverFulfillment = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_fulfillment_ratio", Help: "Fraction of orders fulfilled per solve.", Buckets: prometheus.LinearBuckets(0.1, 0.1, 10)},
		[]string{"algo"},
	)
	// RoutesDropped counts routes removed by final validation
	RoutesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_routes_dropped_total", Help: "Routes dropped by final validation."},
	)
	// PathQueries counts shortest-path lookups by cache outcome
	PathQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_path_queries_total", Help: "Shortest-path lookups by cache result."},
		[]string{"result"},
	)
	// RunEvents counts run events published by type
	RunEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "run_events_published_total", Help: "Run events published by type."},
		[]string{"type"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RateLimited)
		Registry.MustRegister(SolverRuns)
		Registry.MustRegister(SolverDuration)
		Registry.MustRegister(SolverIterations)
		Registry.MustRegister(SolverFulfillment)
		Registry.MustRegister(RoutesDropped)
		Registry.MustRegister(PathQueries)
		Registry.MustRegister(RunEvents)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// ObserveSolve records one finished solve. fulfilled and orders come from
// the final plan; zero orders skips the ratio.
func ObserveSolve(algo string, m opt.Metrics, fulfilled, orders int) {
	SolverRuns.WithLabelValues(algo, m.StopReason).Inc()
	SolverDuration.WithLabelValues(algo).Observe(m.Elapsed.Seconds())
	SolverIterations.WithLabelValues(algo).Observe(float64(m.Iterations))
	if orders > 0 {
		SolverFulfillment.WithLabelValues(algo).Observe(float64(fulfilled) / float64(orders))
	}
	if m.Dropped > 0 {
		RoutesDropped.Add(float64(m.Dropped))
	}
	PathQueries.WithLabelValues("hit").Add(float64(m.CacheHits))
	PathQueries.WithLabelValues("miss").Add(float64(m.CacheMisses))
}
