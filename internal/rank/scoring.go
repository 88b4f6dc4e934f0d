// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import (
	"time"
)

// ScoreContext carries per-request inputs shared by all scoring rules.
// It is built once per SCORING stage and read-only afterwards.
type ScoreContext struct {
	UserID        string
	Now           time.Time
	TopAffinity   []CategoryAffinity
	affinityTotal float64
	latent        LatentSource
}

// ScoringRule is one pluggable entry of the scoring-rule table. Rules
// return a score in [0, 1]; the engine blends them by normalized weight.
type ScoringRule struct {
	// Name identifies the rule in the per-item score breakdown.
	Name string

	// Weight is the rule's relative contribution before normalization.
	Weight float64

	// Score computes the rule's score for one item.
	Score func(sc *ScoreContext, item ContentItem) float64
}

// defaultRules builds the standard rule table from the configured weights.
func defaultRules(w ScoreWeights) []ScoringRule {
	norm := w.Normalize()
	return []ScoringRule{
		{Name: "affinity", Weight: norm.Affinity, Score: affinityScore},
		{Name: "latent", Weight: norm.Latent, Score: latentScore},
		{Name: "quality", Weight: norm.Quality, Score: qualityScore},
	}
}

// affinityScore matches the item's categories against the user's decayed
// top categories. The score is the matched share of the user's total
// top-category mass; a user with no affinity history scores everything 0.
func affinityScore(sc *ScoreContext, item ContentItem) float64 {
	if sc.affinityTotal <= 0 || len(item.Categories) == 0 {
		return 0
	}

	var matched float64
	for _, top := range sc.TopAffinity {
		for _, cat := range item.Categories {
			if cat == top.Category {
				matched += top.EffectiveScore
				break
			}
		}
	}
	if matched < 0 {
		return 0
	}
	score := matched / sc.affinityTotal
	if score > 1 {
		score = 1
	}
	return score
}

// latentScore maps the predicted rating from [1,5] onto [0,1], weighted
// toward neutral by the model's representation confidence. An unseen
// (user, item) pair has zero confidence and scores exactly neutral, so
// absent collaborative signal neither promotes nor punishes an item.
func latentScore(sc *ScoreContext, item ContentItem) float64 {
	const neutral = 0.5
	if sc.latent == nil {
		return neutral
	}

	pred, ok := sc.latent.PredictRating(sc.UserID, item.ID)
	if !ok {
		return neutral
	}

	confidence := 1.0
	if cp, hasConf := sc.latent.(interface{ PredictionConfidence(int) float64 }); hasConf {
		confidence = cp.PredictionConfidence(item.ID)
	}

	scaled := (pred - 1.0) / 4.0
	return scaled*confidence + neutral*(1.0-confidence)
}

// qualityScore is a personalization-free prior from catalog metadata.
func qualityScore(_ *ScoreContext, item ContentItem) float64 {
	rating := item.Rating / 10.0
	if rating > 1 {
		rating = 1
	}
	if rating < 0 {
		rating = 0
	}

	pop := item.Popularity / 100.0
	if pop > 1 {
		pop = 1
	}
	if pop < 0 {
		pop = 0
	}

	return 0.7*rating + 0.3*pop
}

// blend applies the rule table to one item and returns the combined
// score with its per-rule breakdown.
func blend(rules []ScoringRule, sc *ScoreContext, item ContentItem) (float64, map[string]float64) {
	breakdown := make(map[string]float64, len(rules))
	var combined float64
	for i := range rules {
		s := rules[i].Score(sc, item)
		breakdown[rules[i].Name] = s
		combined += rules[i].Weight * s
	}
	return combined, breakdown
}
