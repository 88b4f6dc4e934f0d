// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package latent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// Snapshot is the durable form of a completed model generation.
type Snapshot struct {
	Model      *Model           `json:"model"`
	Observed   map[string][]int `json:"observed"`
	Generation int              `json:"generation"`
	TrainedAt  time.Time        `json:"trained_at"`
}

// SnapshotStore persists model generations. Persistence is best-effort;
// a failed write degrades restart warmup, not request-time ranking.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// Recommender owns the latent factor model lifecycle: periodic refits,
// the per-user top-N cache with a freshness window, and request-time
// prediction against the most recently completed generation.
type Recommender struct {
	cfg    rank.LatentConfig
	store  SnapshotStore
	logger zerolog.Logger

	mu         sync.RWMutex
	model      *Model
	generation int
	trainedAt  time.Time
	status     rank.TrainingStatus

	cacheMu   sync.Mutex
	userCache map[string]cachedRecs
}

type cachedRecs struct {
	ids        []rank.ScoredID
	generation int
	at         time.Time
}

// NewRecommender creates a recommender. store may be nil for tests.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommender(cfg rank.LatentConfig, store SnapshotStore, logger zerolog.Logger) *Recommender {
	if cfg.Factors <= 0 {
		cfg.Factors = 50
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 50
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = 24 * time.Hour
	}
	return &Recommender{
		cfg:       cfg,
		store:     store,
		logger:    logger.With().Str("component", "latent").Logger(),
		userCache: make(map[string]cachedRecs),
	}
}

// Restore loads the last persisted generation if one exists.
func (r *Recommender) Restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	snap, err := r.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load model snapshot: %w", err)
	}
	if snap == nil || snap.Model == nil {
		return nil
	}

	snap.Model.setObserved(snap.Observed)

	r.mu.Lock()
	r.model = snap.Model
	r.generation = snap.Generation
	r.trainedAt = snap.TrainedAt
	r.status.Generation = snap.Generation
	r.status.TrainedAt = snap.TrainedAt
	r.status.Rank = snap.Model.Rank
	r.status.UserCount = len(snap.Model.UserIndex)
	r.status.ItemCount = len(snap.Model.ItemIndex)
	r.mu.Unlock()

	r.logger.Info().
		Int("generation", snap.Generation).
		Time("trained_at", snap.TrainedAt).
		Msg("restored latent model")
	return nil
}

// Refit rebuilds the matrix from the interaction log, factorizes it and
// swaps in the new generation. With too little data the factorization
// is skipped and the previous generation keeps serving.
func (r *Recommender) Refit(ctx context.Context, interactions []rank.InteractionRecord) error {
	start := time.Now()

	matrix := BuildMatrix(interactions)
	model := Factorize(matrix, r.cfg.Factors)

	if model == nil {
		r.logger.Info().
			Int("users", matrix.NumUsers()).
			Int("items", matrix.NumItems()).
			Msg("too few users or items, skipping factorization")
		r.mu.Lock()
		r.status.LastError = ""
		r.status.LastDurationM = time.Since(start).Milliseconds()
		r.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	r.model = model
	r.generation++
	r.trainedAt = time.Now()
	gen := r.generation
	r.status = rank.TrainingStatus{
		Generation:    gen,
		TrainedAt:     r.trainedAt,
		UserCount:     len(model.UserIndex),
		ItemCount:     len(model.ItemIndex),
		Rank:          model.Rank,
		LastDurationM: time.Since(start).Milliseconds(),
	}
	r.mu.Unlock()

	r.cacheMu.Lock()
	r.userCache = make(map[string]cachedRecs)
	r.cacheMu.Unlock()

	r.logger.Info().
		Int("generation", gen).
		Int("users", len(model.UserIndex)).
		Int("items", len(model.ItemIndex)).
		Int("rank", model.Rank).
		Dur("duration", time.Since(start)).
		Msg("factorization complete")

	r.persist(ctx, model, gen)
	return nil
}

// persist writes the generation snapshot; failures are logged, not returned.
func (r *Recommender) persist(ctx context.Context, model *Model, gen int) {
	if r.store == nil {
		return
	}
	snap := &Snapshot{
		Model:      model,
		Observed:   model.observedItems(),
		Generation: gen,
		TrainedAt:  r.trainedAt,
	}
	if err := r.store.SaveSnapshot(ctx, snap); err != nil {
		r.logger.Warn().Err(err).Msg("model snapshot persistence failed")
	}
}

// ComputeAll materializes top-N predictions for every user in the model.
// It runs inside the batch job, off the request path.
func (r *Recommender) ComputeAll(ctx context.Context) {
	r.mu.RLock()
	model := r.model
	gen := r.generation
	r.mu.RUnlock()
	if model == nil {
		return
	}

	now := time.Now()
	for _, userID := range model.Users() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ids := model.TopNForUser(userID, r.cfg.TopN)
		r.cacheMu.Lock()
		r.userCache[userID] = cachedRecs{ids: ids, generation: gen, at: now}
		r.cacheMu.Unlock()
	}

	r.logger.Debug().
		Int("generation", gen).
		Int("users", len(model.Users())).
		Msg("batch recommendations materialized")
}

// PredictRating implements rank.LatentSource.
func (r *Recommender) PredictRating(userID string, itemID int) (float64, bool) {
	r.mu.RLock()
	model := r.model
	r.mu.RUnlock()
	return model.Predict(userID, itemID)
}

// PredictionConfidence returns the model's representation confidence for
// the item, in [0, 1].
func (r *Recommender) PredictionConfidence(itemID int) float64 {
	r.mu.RLock()
	model := r.model
	r.mu.RUnlock()
	return model.PredictionConfidence(itemID)
}

// Recommendations implements rank.LatentSource. It serves the cached
// batch result while fresh and otherwise recomputes synchronously for
// this one user - it never waits on the full batch job.
func (r *Recommender) Recommendations(ctx context.Context, userID string) ([]rank.ScoredID, error) {
	r.mu.RLock()
	model := r.model
	gen := r.generation
	r.mu.RUnlock()
	if model == nil {
		return nil, nil
	}

	r.cacheMu.Lock()
	cached, ok := r.userCache[userID]
	r.cacheMu.Unlock()
	if ok && cached.generation == gen && time.Since(cached.at) < r.cfg.Freshness {
		return cached.ids, nil
	}

	ids := model.TopNForUser(userID, r.cfg.TopN)

	r.cacheMu.Lock()
	r.userCache[userID] = cachedRecs{ids: ids, generation: gen, at: time.Now()}
	r.cacheMu.Unlock()
	return ids, nil
}

// Generation implements rank.LatentSource.
func (r *Recommender) Generation() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Status returns the training status for diagnostics.
func (r *Recommender) Status() rank.TrainingStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Ensure interface compliance.
var _ rank.LatentSource = (*Recommender)(nil)
