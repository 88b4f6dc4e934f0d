// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package signals

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// Interaction weight deltas applied to category affinity.
const (
	WeightAddToList  = 1.0
	WeightStart      = 2.0
	WeightComplete   = 3.0
	WeightHighRating = 2.0
	WeightLowRating  = -1.0
	WeightRemove     = -0.5
)

// AffinityTracker maintains per-user, per-category preference scores that
// grow with engagement and decay exponentially with inactivity.
//
// Raw scores are mutated additively and stored undecayed; decay is a pure
// function of elapsed time applied on every read, so no background decay
// job exists and two categories can swap rank purely through recency.
type AffinityTracker struct {
	cfg     rank.AffinityConfig
	mu      sync.RWMutex
	byUser  map[string]map[string]rank.AffinityRecord
	persist Persister
	now     func() time.Time
}

// NewAffinityTracker creates an empty tracker. persist may be nil.
func NewAffinityTracker(cfg rank.AffinityConfig, persist Persister) *AffinityTracker {
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = 30
	}
	if cfg.MinDecayFactor <= 0 {
		cfg.MinDecayFactor = 0.1
	}
	return &AffinityTracker{
		cfg:     cfg,
		byUser:  make(map[string]map[string]rank.AffinityRecord),
		persist: persist,
		now:     time.Now,
	}
}

// Seed loads records from durable storage.
func (t *AffinityTracker) Seed(records []rank.AffinityRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range records {
		user := t.byUser[rec.UserID]
		if user == nil {
			user = make(map[string]rank.AffinityRecord)
			t.byUser[rec.UserID] = user
		}
		user[rec.Category] = rec
	}
}

// RecordInteraction adds delta to each category's raw score and stamps
// the interaction time. Raw scores are never clamped at write time.
func (t *AffinityTracker) RecordInteraction(userID string, categories []string, delta float64) {
	if userID == "" || len(categories) == 0 || delta == 0 {
		return
	}
	now := t.now()

	t.mu.Lock()
	user := t.byUser[userID]
	if user == nil {
		user = make(map[string]rank.AffinityRecord)
		t.byUser[userID] = user
	}

	updated := make([]rank.AffinityRecord, 0, len(categories))
	for _, cat := range categories {
		if cat == "" {
			continue
		}
		rec, ok := user[cat]
		if !ok {
			rec = rank.AffinityRecord{UserID: userID, Category: cat}
		}
		rec.RawScore += delta
		rec.LastInteraction = now
		user[cat] = rec
		updated = append(updated, rec)
	}
	t.mu.Unlock()

	if t.persist != nil {
		for _, rec := range updated {
			t.persist.PersistAffinity(rec)
		}
	}
}

// decayFactor computes max(0.5^(days/halfLife), floor).
func (t *AffinityTracker) decayFactor(elapsed time.Duration) float64 {
	days := elapsed.Hours() / 24.0
	if days <= 0 {
		return 1.0
	}
	factor := math.Pow(0.5, days/t.cfg.HalfLifeDays)
	if factor < t.cfg.MinDecayFactor {
		return t.cfg.MinDecayFactor
	}
	return factor
}

// EffectiveScore implements rank.AffinitySource.
func (t *AffinityTracker) EffectiveScore(userID, category string, now time.Time) float64 {
	t.mu.RLock()
	rec, ok := t.byUser[userID][category]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	return rec.RawScore * t.decayFactor(now.Sub(rec.LastInteraction))
}

// TopCategories implements rank.AffinitySource. Effective scores are
// recomputed and re-sorted on every call; they are never cached decayed.
func (t *AffinityTracker) TopCategories(userID string, n int, applyDecay bool) []rank.CategoryAffinity {
	now := t.now()

	t.mu.RLock()
	user := t.byUser[userID]
	out := make([]rank.CategoryAffinity, 0, len(user))
	for cat, rec := range user {
		eff := rec.RawScore
		if applyDecay {
			eff = rec.RawScore * t.decayFactor(now.Sub(rec.LastInteraction))
		}
		out = append(out, rank.CategoryAffinity{
			Category:       cat,
			EffectiveScore: eff,
			RawScore:       rec.RawScore,
		})
	}
	t.mu.RUnlock()

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].EffectiveScore != out[b].EffectiveScore {
			return out[a].EffectiveScore > out[b].EffectiveScore
		}
		return out[a].Category < out[b].Category
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Ensure interface compliance.
var _ rank.AffinitySource = (*AffinityTracker)(nil)
