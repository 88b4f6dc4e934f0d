// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import (
	"context"
	"math"
	"testing"
)

// predictStub is a LatentSource with canned predictions and confidence.
type predictStub struct {
	preds      map[int]float64
	confidence float64
	gen        int
}

func (s *predictStub) PredictRating(_ string, itemID int) (float64, bool) {
	p, ok := s.preds[itemID]
	return p, ok
}

func (s *predictStub) PredictionConfidence(int) float64 { return s.confidence }

func (s *predictStub) Recommendations(context.Context, string) ([]ScoredID, error) {
	return nil, nil
}

func (s *predictStub) Generation() int { return s.gen }

func affinityContext(cats ...CategoryAffinity) *ScoreContext {
	sc := &ScoreContext{UserID: "u1", TopAffinity: cats}
	for _, c := range cats {
		sc.affinityTotal += c.EffectiveScore
	}
	return sc
}

func TestAffinityScore(t *testing.T) {
	sc := affinityContext(
		CategoryAffinity{Category: "drama", EffectiveScore: 6},
		CategoryAffinity{Category: "crime", EffectiveScore: 3},
		CategoryAffinity{Category: "comedy", EffectiveScore: 1},
	)

	tests := []struct {
		name string
		item ContentItem
		want float64
	}{
		{"full match", ContentItem{Categories: []string{"drama", "crime", "comedy"}}, 1.0},
		{"dominant category", ContentItem{Categories: []string{"drama"}}, 0.6},
		{"partial match", ContentItem{Categories: []string{"crime", "comedy"}}, 0.4},
		{"no match", ContentItem{Categories: []string{"horror"}}, 0},
		{"untagged item", ContentItem{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := affinityScore(sc, tt.item)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("affinityScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAffinityScoreNoHistory(t *testing.T) {
	sc := affinityContext()
	if got := affinityScore(sc, ContentItem{Categories: []string{"drama"}}); got != 0 {
		t.Errorf("score with no affinity history = %v, want 0", got)
	}
}

func TestLatentScore(t *testing.T) {
	tests := []struct {
		name   string
		latent LatentSource
		item   ContentItem
		want   float64
	}{
		{"nil source is neutral", nil, ContentItem{ID: 1}, 0.5},
		{"unseen pair is neutral", &predictStub{preds: map[int]float64{}}, ContentItem{ID: 1}, 0.5},
		{
			"full confidence maps rating onto unit range",
			&predictStub{preds: map[int]float64{1: 5}, confidence: 1},
			ContentItem{ID: 1},
			1.0,
		},
		{
			"low rating at full confidence",
			&predictStub{preds: map[int]float64{1: 1}, confidence: 1},
			ContentItem{ID: 1},
			0.0,
		},
		{
			"zero confidence pins neutral",
			&predictStub{preds: map[int]float64{1: 5}, confidence: 0},
			ContentItem{ID: 1},
			0.5,
		},
		{
			"half confidence splits the difference",
			&predictStub{preds: map[int]float64{1: 5}, confidence: 0.5},
			ContentItem{ID: 1},
			0.75,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &ScoreContext{UserID: "u1", latent: tt.latent}
			got := latentScore(sc, tt.item)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("latentScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name string
		item ContentItem
		want float64
	}{
		{"top shelf", ContentItem{Rating: 10, Popularity: 100}, 1.0},
		{"rating only", ContentItem{Rating: 8}, 0.56},
		{"popularity clamped", ContentItem{Rating: 5, Popularity: 500}, 0.65},
		{"zero metadata", ContentItem{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := qualityScore(nil, tt.item)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("qualityScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlendBreakdown(t *testing.T) {
	rules := defaultRules(ScoreWeights{Affinity: 0.4, Latent: 0.4, Quality: 0.2})
	sc := affinityContext(CategoryAffinity{Category: "drama", EffectiveScore: 5})

	item := ContentItem{ID: 1, Categories: []string{"drama"}, Rating: 10, Popularity: 100}
	combined, breakdown := blend(rules, sc, item)

	want := 0.4*1.0 + 0.4*0.5 + 0.2*1.0
	if math.Abs(combined-want) > 1e-9 {
		t.Errorf("combined = %v, want %v", combined, want)
	}
	for _, rule := range []string{"affinity", "latent", "quality"} {
		if _, ok := breakdown[rule]; !ok {
			t.Errorf("breakdown missing %q", rule)
		}
	}
}

func TestScoreWeightsNormalize(t *testing.T) {
	w := ScoreWeights{Affinity: 2, Latent: 2, Quality: 1}.Normalize()
	if sum := w.Affinity + w.Latent + w.Quality; math.Abs(sum-1) > 1e-9 {
		t.Errorf("normalized sum = %v, want 1", sum)
	}
	if math.Abs(w.Affinity-0.4) > 1e-9 {
		t.Errorf("Affinity = %v, want 0.4", w.Affinity)
	}

	zero := ScoreWeights{}.Normalize()
	if math.Abs(zero.Affinity-1.0/3.0) > 1e-9 {
		t.Errorf("zero weights Affinity = %v, want 1/3", zero.Affinity)
	}
}
