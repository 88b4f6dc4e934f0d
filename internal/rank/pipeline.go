// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// defaultSeed feeds the interleave PRNG when no seed is configured.
const defaultSeed = 42

// stageTracker records which stages ran, in order, and reports their
// durations to the observer.
type stageTracker struct {
	obs Observer
	ran []string
}

func (t *stageTracker) do(s Stage, fn func()) {
	start := time.Now()
	fn()
	if t.obs != nil {
		t.obs.ObserveStage(s, time.Since(start))
	}
	t.ran = append(t.ran, s.String())
}

// runPipeline executes the staged ranking pipeline. Stages after
// FETCHING run under the per-user lock so concurrent requests for one
// user cannot interleave exclusion reads with impression writes.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) runPipeline(ctx context.Context, req Request, logger zerolog.Logger) (*Response, error) {
	tracker := &stageTracker{obs: e.deps.Observer}

	var (
		candidates []ContentItem
		topCats    []CategoryAffinity
	)
	tracker.do(StageFetching, func() {
		topCats = e.deps.Affinity.TopCategories(req.UserID, e.config.Affinity.TopCategories, true)
		if len(topCats) > 0 {
			candidates = e.fetchCandidates(ctx, req, topCats, logger)
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	release := e.locks.acquire(req.UserID)
	defer release()

	if len(topCats) == 0 || len(candidates) == 0 {
		logger.Debug().
			Int("top_categories", len(topCats)).
			Int("candidates", len(candidates)).
			Msg("no personalized signal, taking fallback path")
		return e.runFallback(ctx, req, logger, tracker)
	}
	totalCandidates := len(candidates)

	tracker.do(StageExcluding, func() {
		if listIDs, err := e.deps.Lists.ListedItemIDs(ctx, req.UserID); err == nil {
			e.deps.Exclusion.Prime(req.UserID, listIDs)
		} else {
			// Degrade to the last known baseline rather than failing
			// the request or leaking listed items.
			logger.Warn().Err(err).Msg("list source unavailable, using prior baseline")
		}
		candidates = e.deps.Exclusion.Filter(req.UserID, candidates)
	})

	tracker.do(StageNegativeFiltering, func() {
		candidates = e.deps.Negative.FilterCandidates(req.UserID, candidates)
	})

	if len(candidates) == 0 {
		logger.Debug().Msg("all candidates filtered, taking fallback path")
		return e.runFallback(ctx, req, logger, tracker)
	}

	var scored, collab []ScoredItem
	tracker.do(StageScoring, func() {
		sc := &ScoreContext{
			UserID:      req.UserID,
			Now:         time.Now(),
			TopAffinity: topCats,
			latent:      e.deps.Latent,
		}
		for _, c := range topCats {
			sc.affinityTotal += c.EffectiveScore
		}

		scored = make([]ScoredItem, 0, len(candidates))
		for _, item := range candidates {
			combined, breakdown := blend(e.rules, sc, item)
			scored = append(scored, ScoredItem{Item: item, Score: combined, Scores: breakdown})
		}

		injected := e.collaborativePicks(ctx, req, candidates, logger)
		for _, item := range injected {
			combined, breakdown := blend(e.rules, sc, item)
			collab = append(collab, ScoredItem{
				Item:          item,
				Score:         combined,
				Scores:        breakdown,
				Collaborative: true,
			})
		}
		totalCandidates += len(injected)
	})

	tracker.do(StageFatigueAdjusting, func() {
		scored = e.deps.Exclusion.ApplyFatigue(req.UserID, scored)
		collab = e.deps.Exclusion.ApplyFatigue(req.UserID, collab)
	})

	tracker.do(StageDiversifying, func() {
		if e.deps.Reranker != nil {
			scored = e.deps.Reranker.Rerank(ctx, scored, req.Limit)
		}
		if len(scored) > req.Limit {
			scored = scored[:req.Limit]
		}
		scored = e.interleave(scored, collab, req.Limit)
	})

	scored = e.enrich(ctx, req.UserID, scored, logger)

	tracker.do(StageRecording, func() {
		e.recordShown(req.UserID, scored)
	})
	tracker.ran = append(tracker.ran, StageDone.String())

	return &Response{
		Items: scored,
		Metadata: ResponseMetadata{
			RequestID:       req.RequestID,
			UserID:          req.UserID,
			StagesRun:       tracker.ran,
			TotalCandidates: totalCandidates,
			ModelGeneration: e.deps.Latent.Generation(),
			Timestamp:       time.Now().UTC(),
		},
	}, nil
}

// fetchCandidates pages through the catalog for the user's top
// categories until the candidate cap is reached. A failed page is
// logged and skipped; partial results are better than none.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) fetchCandidates(ctx context.Context, req Request, topCats []CategoryAffinity, logger zerolog.Logger) []ContentItem {
	fetchCtx, cancel := context.WithTimeout(ctx, e.config.Limits.FetchTimeout)
	defer cancel()

	categories := make([]string, 0, len(topCats))
	for _, c := range topCats {
		categories = append(categories, c.Category)
	}

	const pageSize = 100
	seen := make(map[int]struct{})
	candidates := make([]ContentItem, 0, e.config.Limits.MaxCandidates)

	for page := 1; len(candidates) < e.config.Limits.MaxCandidates; page++ {
		items, err := e.deps.Catalog.FetchCandidates(fetchCtx, CandidateQuery{
			MediaKind:  req.MediaKind,
			Categories: categories,
			Page:       page,
			Limit:      pageSize,
		})
		if err != nil {
			logger.Warn().Err(err).Int("page", page).Msg("candidate page fetch failed")
			break
		}
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			candidates = append(candidates, item)
			if len(candidates) == e.config.Limits.MaxCandidates {
				break
			}
		}
	}
	return candidates
}

// collaborativePicks materializes cross-user latent recommendations
// absent from the candidate pool, capped at the configured share of the
// final list. The picks are best-effort; any failure returns none.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) collaborativePicks(ctx context.Context, req Request, pool []ContentItem, logger zerolog.Logger) []ContentItem {
	want := int(math.Ceil(e.config.Collaborative.Ratio * float64(req.Limit)))
	if want == 0 {
		return nil
	}

	recs, err := e.deps.Latent.Recommendations(ctx, req.UserID)
	if err != nil {
		logger.Debug().Err(err).Msg("latent recommendations unavailable")
		return nil
	}

	have := make(map[int]struct{}, len(pool))
	for _, item := range pool {
		have[item.ID] = struct{}{}
	}

	ids := make([]int, 0, want)
	for _, rec := range recs {
		if len(ids) == want {
			break
		}
		if _, dup := have[rec.ItemID]; dup {
			continue
		}
		if e.deps.Exclusion.IsExcluded(req.UserID, rec.ItemID) {
			continue
		}
		ids = append(ids, rec.ItemID)
	}
	if len(ids) == 0 {
		return nil
	}

	items, err := e.deps.Catalog.ItemsByID(ctx, ids)
	if err != nil {
		logger.Debug().Err(err).Msg("collaborative pick lookup failed")
		return nil
	}

	if req.MediaKind == MediaAny {
		return e.deps.Negative.FilterCandidates(req.UserID, items)
	}
	kept := items[:0]
	for _, item := range items {
		if item.MediaKind == req.MediaKind {
			kept = append(kept, item)
		}
	}
	return e.deps.Negative.FilterCandidates(req.UserID, kept)
}

// interleave splices collaborative picks into the final window at
// positions drawn from a PRNG seeded with the configured seed, so the
// same inputs always produce the same placement. When the window is
// full, each pick displaces the organic tail.
func (e *Engine) interleave(organic, collab []ScoredItem, limit int) []ScoredItem {
	if len(collab) == 0 {
		return organic
	}

	seed := e.config.Seed
	if seed == 0 {
		seed = defaultSeed
	}
	rng := rand.New(rand.NewSource(seed))

	out := organic
	for _, pick := range collab {
		if limit > 0 && len(out) >= limit {
			out = dropOrganicTail(out)
		}
		pos := rng.Intn(len(out) + 1)
		out = append(out, ScoredItem{})
		copy(out[pos+1:], out[pos:])
		out[pos] = pick
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// dropOrganicTail removes the lowest-placed non-collaborative item, so
// a displaced slot never evicts an earlier pick.
func dropOrganicTail(items []ScoredItem) []ScoredItem {
	for i := len(items) - 1; i >= 0; i-- {
		if !items[i].Collaborative {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items[:len(items)-1]
}

// runFallback serves trending items filtered through the exclusion set.
// Negative filtering, scoring and diversification are skipped, but the
// shown items are still recorded so repeated fallback service cannot
// burn in the same list. Must be called with the per-user lock held.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) runFallback(ctx context.Context, req Request, logger zerolog.Logger, tracker *stageTracker) (*Response, error) {
	var items []ContentItem
	tracker.do(StageFallback, func() {
		fetchCtx, cancel := context.WithTimeout(ctx, e.config.Limits.FetchTimeout)
		defer cancel()

		fetchLimit := req.Limit * 3
		if fetchLimit > e.config.Limits.MaxCandidates {
			fetchLimit = e.config.Limits.MaxCandidates
		}

		trending, err := e.deps.Catalog.Trending(fetchCtx, req.MediaKind, fetchLimit)
		if err != nil {
			logger.Error().Err(err).Msg("trending fetch failed, returning empty list")
			return
		}

		if listIDs, lerr := e.deps.Lists.ListedItemIDs(ctx, req.UserID); lerr == nil {
			e.deps.Exclusion.Prime(req.UserID, listIDs)
		}
		items = e.deps.Exclusion.Filter(req.UserID, trending)
		if len(items) > req.Limit {
			items = items[:req.Limit]
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Trending order is preserved; scores carry the quality prior only.
	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		scored = append(scored, ScoredItem{
			Item:  item,
			Score: qualityScore(nil, item),
		})
	}

	tracker.do(StageRecording, func() {
		e.recordShown(req.UserID, scored)
	})
	tracker.ran = append(tracker.ran, StageDone.String())

	return &Response{
		Items: scored,
		Metadata: ResponseMetadata{
			RequestID:       req.RequestID,
			UserID:          req.UserID,
			StagesRun:       tracker.ran,
			Fallback:        true,
			TotalCandidates: len(items),
			ModelGeneration: e.deps.Latent.Generation(),
			Timestamp:       time.Now().UTC(),
		},
	}, nil
}

// enrich applies the optional enrichment hook under its own timeout.
// Failures are logged and swallowed; the unenriched list is served.
func (e *Engine) enrich(ctx context.Context, userID string, items []ScoredItem, logger zerolog.Logger) []ScoredItem {
	if e.deps.Enricher == nil || len(items) == 0 {
		return items
	}

	enrichCtx, cancel := context.WithTimeout(ctx, e.config.Limits.EnrichTimeout)
	defer cancel()

	enriched, err := e.deps.Enricher.Enrich(enrichCtx, userID, items)
	if err != nil || enriched == nil {
		logger.Debug().Err(err).Msg("enrichment skipped")
		return items
	}
	return enriched
}

// recordShown feeds the served list back into the impression log and
// invalidates the user's memoized exclusion set so the next request
// sees the fresh impressions immediately.
func (e *Engine) recordShown(userID string, items []ScoredItem) {
	if len(items) == 0 {
		return
	}
	shown := make([]ContentItem, 0, len(items))
	for _, it := range items {
		shown = append(shown, it.Item)
	}
	e.deps.Negative.RecordImpressions(userID, shown)

	if inv, ok := e.deps.Exclusion.(interface{ Invalidate(userID string) }); ok {
		inv.Invalidate(userID)
	}
}
