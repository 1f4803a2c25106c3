package api

import (
	"net/http"
	"sla-attribution-service/internal/api/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(analyses *handlers.AnalysisHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware)

	health := &handlers.HealthHandler{Registry: analyses.Registry}
	r.Get("/health", health.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/analyses", func(r chi.Router) {
		r.Post("/", analyses.Create)
		r.Get("/", analyses.List)
		r.Get("/{id}", analyses.Get)
	})

	return r
}
