package api

import (
	"net/http"
	"time"

	"fleetplan/internal/buildinfo"
	"fleetplan/internal/store"
)

// DebugJSON reports build info and the non-secret part of the config.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"ENVIRONMENT":         c.Environment,
			"HTTP_SERVER_ADDRESS": c.HTTPServerAddress,
			"ALLOW_ORIGINS":       c.AllowOrigins,
			"RATE_RPS":            c.RateRPS,
			"RATE_BURST":          c.RateBurst,
			"MAX_BODY_BYTES":      c.MaxBodyBytes,
			"HAS_DATABASE_URL":    c.DatabaseURL != "",
			"HAS_REDIS_URL":       c.RedisURL != "",
			"STORE":               storeKind(s),
		},
		"solver": configView(s.Defaults),
	})
}

func storeKind(s *Server) string {
	switch s.Store.(type) {
	case *store.Postgres:
		return "postgres"
	case *store.Memory:
		return "memory"
	}
	return "custom"
}
