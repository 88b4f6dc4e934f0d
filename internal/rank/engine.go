// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Note: This package has no dependencies on other internal packages.
// All data access goes through the source interfaces in types.go, so the
// storage and catalog layers can be wired in without circular imports.

// Sentinel errors returned by the write-side operations. The read path
// (Recommend) degrades instead of failing: a malformed user ID yields an
// empty list, not an error.
var (
	// ErrInvalidUserID indicates a missing or malformed user identifier.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidItemID indicates a non-positive item identifier.
	ErrInvalidItemID = errors.New("invalid item id")
)

const maxUserIDLen = 128

// Observer receives pipeline telemetry. Implementations must be cheap
// and non-blocking; the metrics package provides the production one.
type Observer interface {
	// ObserveRequest is called once per completed request.
	ObserveRequest(meta ResponseMetadata, elapsed time.Duration)

	// ObserveStage is called after each pipeline stage.
	ObserveStage(stage Stage, elapsed time.Duration)

	// ObserveCacheLookup is called for each response-cache lookup.
	ObserveCacheLookup(hit bool)
}

// Deps bundles the data sources the engine orchestrates. Catalog, Lists,
// Affinity, Latent, Negative and Exclusion are required; Reranker,
// Enricher and Observer are optional.
type Deps struct {
	Catalog   CandidateSource
	Lists     ListSource
	Affinity  AffinitySource
	Latent    LatentSource
	Negative  NegativeSource
	Exclusion ExclusionSource
	Reranker  Reranker
	Enricher  Enricher
	Observer  Observer
}

// Engine runs the ranking pipeline. It is safe for concurrent use;
// requests for the same user are serialized across the span that reads
// exclusion state and writes impressions.
type Engine struct {
	config *Config
	logger zerolog.Logger
	deps   Deps
	rules  []ScoringRule

	locks *userLocks
	cache *responseCache

	requestCount  atomic.Int64
	fallbackCount atomic.Int64
	errorCount    atomic.Int64
}

// NewEngine creates a ranking engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, deps Deps, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if deps.Catalog == nil {
		return nil, errors.New("rank: candidate source is required")
	}
	if deps.Lists == nil {
		return nil, errors.New("rank: list source is required")
	}
	if deps.Affinity == nil {
		return nil, errors.New("rank: affinity source is required")
	}
	if deps.Latent == nil {
		return nil, errors.New("rank: latent source is required")
	}
	if deps.Negative == nil {
		return nil, errors.New("rank: negative source is required")
	}
	if deps.Exclusion == nil {
		return nil, errors.New("rank: exclusion source is required")
	}

	e := &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "rank").Logger(),
		deps:   deps,
		rules:  defaultRules(cfg.Weights),
		locks:  newUserLocks(),
	}
	if cfg.Cache.Enabled {
		e.cache = newResponseCache(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	}
	return e, nil
}

// Recommend produces a ranked recommendation list for the user. It
// always returns a non-nil response with a (possibly empty) item list;
// the only error it surfaces is context cancellation.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	req = e.prepareRequest(req)
	logger := e.logger.With().
		Str("request_id", req.RequestID).
		Str("user_id", req.UserID).
		Logger()

	if err := validateUserID(req.UserID); err != nil {
		logger.Warn().Err(err).Msg("rejecting malformed user id")
		return e.emptyResponse(req, start), nil
	}

	if e.cache != nil && !req.ForceRefresh {
		if resp, ok := e.cache.get(req); ok {
			e.observeCacheLookup(true)
			cached := *resp
			cached.Metadata.CacheHit = true
			cached.Metadata.RequestID = req.RequestID
			cached.Metadata.LatencyMS = time.Since(start).Milliseconds()
			logger.Debug().Msg("served from response cache")
			return &cached, nil
		}
		e.observeCacheLookup(false)
	}

	resp, err := e.runPipeline(ctx, req, logger)
	if err != nil {
		e.errorCount.Add(1)
		return nil, err
	}

	resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
	if resp.Metadata.Fallback {
		e.fallbackCount.Add(1)
	}

	if e.cache != nil && len(resp.Items) > 0 {
		e.cache.put(req, resp)
	}

	if e.deps.Observer != nil {
		e.deps.Observer.ObserveRequest(resp.Metadata, time.Since(start))
	}
	logger.Debug().
		Int("items", len(resp.Items)).
		Bool("fallback", resp.Metadata.Fallback).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("recommendation request complete")
	return resp, nil
}

// Skip records a session-scoped skip for the item and drops the user's
// cached responses. The item disappears from subsequent results until
// the session is reset, and its impression count keeps it suppressed
// through the trailing exclusion window after that.
func (e *Engine) Skip(userID string, itemID int) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if itemID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidItemID, itemID)
	}

	e.deps.Exclusion.AddSkip(userID, itemID)
	if e.cache != nil {
		e.cache.invalidateUser(userID)
	}
	e.logger.Debug().Str("user_id", userID).Int("item_id", itemID).Msg("recorded skip")
	return nil
}

// MarkEngaged freezes impression counting for the item so repeated
// display of engaged content never matures into a strong rejection.
// Marking an item with no impression history is a valid no-op.
func (e *Engine) MarkEngaged(userID string, itemID int) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if itemID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidItemID, itemID)
	}

	if err := e.deps.Negative.MarkEngaged(userID, itemID); err != nil {
		return fmt.Errorf("mark engaged: %w", err)
	}
	if e.cache != nil {
		e.cache.invalidateUser(userID)
	}
	return nil
}

// ClearSession resets the user's session skips.
func (e *Engine) ClearSession(userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	e.deps.Exclusion.ClearSession(userID)
	if e.cache != nil {
		e.cache.invalidateUser(userID)
	}
	return nil
}

// ExclusionStats reports the user's current exclusion-set composition.
// The catalog-list baseline is refreshed first so counts reflect the
// state a new request would see.
func (e *Engine) ExclusionStats(ctx context.Context, userID string) (ExclusionStats, error) {
	if err := validateUserID(userID); err != nil {
		return ExclusionStats{}, err
	}

	if listIDs, err := e.deps.Lists.ListedItemIDs(ctx, userID); err == nil {
		e.deps.Exclusion.Prime(userID, listIDs)
	} else {
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("list source unavailable for stats")
	}
	return e.deps.Exclusion.Stats(userID), nil
}

// Status reports the latent model lifecycle, if the wired latent source
// exposes one.
func (e *Engine) Status() TrainingStatus {
	if s, ok := e.deps.Latent.(interface{ Status() TrainingStatus }); ok {
		return s.Status()
	}
	return TrainingStatus{Generation: e.deps.Latent.Generation()}
}

// Counters returns cumulative request, fallback and error counts.
func (e *Engine) Counters() (requests, fallbacks, errs int64) {
	return e.requestCount.Load(), e.fallbackCount.Load(), e.errorCount.Load()
}

func (e *Engine) prepareRequest(req Request) Request {
	if req.Limit <= 0 {
		req.Limit = e.config.Limits.DefaultLimit
	}
	if req.Limit > e.config.Limits.MaxLimit {
		req.Limit = e.config.Limits.MaxLimit
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	return req
}

func (e *Engine) emptyResponse(req Request, start time.Time) *Response {
	return &Response{
		Items: []ScoredItem{},
		Metadata: ResponseMetadata{
			RequestID:       req.RequestID,
			UserID:          req.UserID,
			StagesRun:       []string{},
			LatencyMS:       time.Since(start).Milliseconds(),
			ModelGeneration: e.deps.Latent.Generation(),
			Timestamp:       time.Now().UTC(),
		},
	}
}

func (e *Engine) observeCacheLookup(hit bool) {
	if e.deps.Observer != nil {
		e.deps.Observer.ObserveCacheLookup(hit)
	}
}

func validateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(id) > maxUserIDLen {
		return fmt.Errorf("%w: exceeds %d bytes", ErrInvalidUserID, maxUserIDLen)
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: contains control characters", ErrInvalidUserID)
		}
	}
	return nil
}
