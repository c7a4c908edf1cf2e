package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"fleetplan/internal/config"
	"fleetplan/internal/metrics"
	"fleetplan/internal/opt"
	"fleetplan/internal/store"
)

type Server struct {
	Config   config.Config
	Store    store.Store
	Broker   EventBroker
	Defaults opt.Params

	limiter *RateLimiter
}

// NewServer wires the store and broker named by cfg. Without DATABASE_URL
// the in-memory store is used; without REDIS_URL, or when Redis cannot be
// reached, the in-process broker.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	var st store.Store
	if cfg.DatabaseURL == "" {
		st = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := pg.Migrate(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		st = pg
	}

	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-process event broker")
		} else {
			broker = rb
		}
	}
	return newServer(cfg, st, broker), nil
}

func newServer(cfg config.Config, st store.Store, broker EventBroker) *Server {
	metrics.RegisterDefault()
	s := &Server{Config: cfg, Store: st, Broker: broker, Defaults: cfg.SolverParams()}
	if cfg.RateRPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	}
	return s
}

// Routes builds the HTTP handler with all endpoints and middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Optimization
	optimize := http.Handler(http.HandlerFunc(s.OptimizeHandler))
	if s.limiter != nil {
		optimize = s.limiter.Middleware(optimize)
	}
	mux.Handle("POST /v1/optimize", optimize)
	mux.HandleFunc("GET /v1/optimizer/config", s.OptimizerConfigHandler)

	// Run events
	mux.HandleFunc("GET /v1/runs/{scenarioId}/events/stream", s.RunEventsStreamHandler)
	mux.HandleFunc("GET /v1/runs/ws", s.RunEventsWSHandler)

	// Admin
	mux.HandleFunc("GET /v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("PUT /v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("GET /v1/admin/plan-metrics", s.PlanMetricsHandler)
	mux.HandleFunc("GET /v1/admin/plan-metrics/weights", s.PlanMetricsWeightsHandler)

	// Health and debug
	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.HandleFunc("GET /readyz", s.ReadyHandler)
	mux.HandleFunc("GET /debug/info", s.DebugJSON)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return RequestTracing(RequestLogging(s.cors(Instrument(mux))))
}

// Close releases the broker and the store.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return errors.Join(s.Broker.Close(), s.Store.Close())
}
