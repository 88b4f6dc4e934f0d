// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/artbyoscar/streamsense-sub001/internal/logging"
	"github.com/artbyoscar/streamsense-sub001/internal/rank"
	"github.com/artbyoscar/streamsense-sub001/internal/rank/signals"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// InteractionSink receives interaction records for durable storage.
// Implemented by the storage flusher.
type InteractionSink interface {
	PersistInteraction(rec rank.InteractionRecord)
}

// Pinger reports reachability of the external catalog, for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler implements the HTTP endpoints.
type Handler struct {
	engine   *rank.Engine
	affinity *signals.AffinityTracker
	sink     InteractionSink
	pinger   Pinger
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler creates the endpoint handler. sink and pinger may be nil
// in tests.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(engine *rank.Engine, affinity *signals.AffinityTracker, sink InteractionSink, pinger Pinger, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		affinity: affinity,
		sink:     sink,
		pinger:   pinger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Recommendations serves GET /api/v1/recommendations.
//
// Query parameters: user_id (required), limit, kind (movie|series),
// refresh (bypass the response cache).
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := rank.Request{
		UserID:    q.Get("user_id"),
		MediaKind: rank.MediaKind(q.Get("kind")),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		req.Limit = limit
	}
	if v := q.Get("refresh"); v == "true" || v == "1" {
		req.ForceRefresh = true
	}
	switch req.MediaKind {
	case rank.MediaAny, rank.MediaMovie, rank.MediaSeries:
	default:
		writeError(w, r, http.StatusBadRequest, "kind must be movie or series")
		return
	}

	resp, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		log := logging.Ctx(r.Context())
		log.Error().Err(err).Msg("recommend failed")
		writeError(w, r, http.StatusServiceUnavailable, "recommendation service unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// itemEventRequest is the body for skip and engagement events.
type itemEventRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	ItemID int    `json:"item_id" validate:"required,gt=0"`
}

// Skip serves POST /api/v1/recommendations/skip.
func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	var req itemEventRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.engine.Skip(req.UserID, req.ItemID); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// Engaged serves POST /api/v1/recommendations/engaged.
func (h *Handler) Engaged(w http.ResponseWriter, r *http.Request) {
	var req itemEventRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.engine.MarkEngaged(req.UserID, req.ItemID); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// sessionClearRequest is the body for session reset.
type sessionClearRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

// ClearSession serves POST /api/v1/recommendations/session/clear.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	var req sessionClearRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.engine.ClearSession(req.UserID); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "cleared"})
}

// Exclusions serves GET /api/v1/recommendations/exclusions.
func (h *Handler) Exclusions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	stats, err := h.engine.ExclusionStats(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// interactionRequest is the body for list-status interaction events.
type interactionRequest struct {
	UserID     string   `json:"user_id" validate:"required,max=128"`
	ItemID     int      `json:"item_id" validate:"required,gt=0"`
	Status     string   `json:"status" validate:"required,oneof=planned in_progress consumed dismissed"`
	Categories []string `json:"categories" validate:"max=32"`

	// Rating is an optional explicit user rating on the 1-5 scale. When
	// absent the rating implied by the status is used.
	Rating float64 `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
}

// Interaction serves POST /api/v1/interactions. One event updates the
// category affinity profile, appends to the interaction log feeding the
// latent model, and marks engagement for started or finished content.
func (h *Handler) Interaction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	status, ok := parseListStatus(req.Status)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown status")
		return
	}

	delta := affinityDelta(status, req.Rating)
	h.affinity.RecordInteraction(req.UserID, req.Categories, delta)

	rating := status.Rating()
	if req.Rating > 0 {
		rating = req.Rating
	}
	if h.sink != nil {
		h.sink.PersistInteraction(rank.InteractionRecord{
			UserID:    req.UserID,
			ItemID:    req.ItemID,
			Rating:    rating,
			Timestamp: timeNow(),
		})
	}

	// Starting or finishing content is engagement: freeze the item's
	// impression count so it can't mature into a strong rejection.
	if status == rank.StatusInProgress || status == rank.StatusConsumed {
		if err := h.engine.MarkEngaged(req.UserID, req.ItemID); err != nil {
			log := logging.Ctx(r.Context())
			log.Warn().Err(err).Msg("mark engaged from interaction failed")
		}
	}

	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// Status serves GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	requests, fallbacks, errs := h.engine.Counters()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"training":  h.engine.Status(),
		"requests":  requests,
		"fallbacks": fallbacks,
		"errors":    errs,
	})
}

// HealthLive serves GET /healthz.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady serves GET /readyz. Readiness degrades when the catalog
// is unreachable; the service still answers (fallback may be empty) but
// orchestration should route traffic elsewhere if possible.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"reason": "catalog unreachable",
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "validation failed: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, rank.ErrInvalidUserID) || errors.Is(err, rank.ErrInvalidItemID) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	log := logging.Ctx(r.Context())
	log.Error().Err(err).Msg("engine operation failed")
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func parseListStatus(s string) (rank.ListStatus, bool) {
	switch s {
	case "planned":
		return rank.StatusPlanned, true
	case "in_progress":
		return rank.StatusInProgress, true
	case "consumed":
		return rank.StatusConsumed, true
	case "dismissed":
		return rank.StatusDismissed, true
	default:
		return 0, false
	}
}

// affinityDelta maps a list-status change (and optional explicit
// rating) to the affinity weight applied to the item's categories.
func affinityDelta(status rank.ListStatus, explicitRating float64) float64 {
	var delta float64
	switch status {
	case rank.StatusPlanned:
		delta = signals.WeightAddToList
	case rank.StatusInProgress:
		delta = signals.WeightStart
	case rank.StatusConsumed:
		delta = signals.WeightComplete
	case rank.StatusDismissed:
		delta = signals.WeightRemove
	}

	switch {
	case explicitRating >= 4:
		delta += signals.WeightHighRating
	case explicitRating > 0 && explicitRating <= 2:
		delta += signals.WeightLowRating
	}
	return delta
}
