// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/artbyoscar/streamsense-sub001/internal/logging"
	"github.com/artbyoscar/streamsense-sub001/internal/metrics"
)

// requestIDHeader carries the request ID on responses and accepts a
// caller-provided one on requests.
const requestIDHeader = "X-Request-ID"

// RequestID assigns each request a UUID (or adopts the caller's),
// echoes it on the response, and seeds the context logger with it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := logging.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Instrument logs each request and records Prometheus metrics keyed by
// the route pattern, not the raw path, to keep label cardinality bounded.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordAPIRequest(r.Method, endpoint, rec.status, elapsed)

		log := logging.Ctx(r.Context())
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("request handled")
	})
}
