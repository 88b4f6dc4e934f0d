// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artbyoscar/streamsense-sub001/internal/config"
)

// NewRouter builds the full HTTP handler tree.
func NewRouter(cfg config.APIConfig, h *Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order to every route.
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		MaxAge:         300,
	}))

	// Operational endpoints stay outside the rate limit so monitoring
	// never competes with clients for budget.
	r.Get("/healthz", h.HealthLive)
	r.Get("/readyz", h.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}
		r.Use(Instrument)

		r.Get("/recommendations", h.Recommendations)
		r.Get("/recommendations/exclusions", h.Exclusions)
		r.Post("/recommendations/skip", h.Skip)
		r.Post("/recommendations/engaged", h.Engaged)
		r.Post("/recommendations/session/clear", h.ClearSession)
		r.Post("/interactions", h.Interaction)
		r.Get("/status", h.Status)
	})

	return r
}
