// Package http exposes the operational surface: service info, health,
// and metrics. Verification traffic never enters through HTTP; it
// arrives on the broker.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Info describes the running service.
type Info struct {
	Name    string `json:"service"`
	Version string `json:"version"`
	Mode    string `json:"providerMode"`
}

// NewRouter builds the operational router. Checks run on every health
// request with a short per-request budget.
func NewRouter(info Info, checks map[string]HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, info)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		status, overall := http.StatusOK, "ok"
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status, overall = http.StatusServiceUnavailable, "degraded"
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		writeJSON(w, status, map[string]any{
			"status": overall,
			"checks": results,
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
