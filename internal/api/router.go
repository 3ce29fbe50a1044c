// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restockd/restockd/internal/config"
)

// NewRouter wires the middleware stack and all routes.
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order.
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg.API.CORSOrigins))
	r.Use(RequestLogger)

	// Health endpoints carry no rate limit so orchestrator probes are
	// never rejected.
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(cfg.API.RateLimitReqs, cfg.API.RateLimitWindow,
			cfg.API.RateLimitDisabled))

		r.Post("/predict", h.Predict)
		r.Get("/status", h.Status)
	})

	return r
}
