// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import (
	"fmt"
	"time"
)

// Config contains all tuning parameters for the ranking engine.
type Config struct {
	// Weights defines the relative contribution of each scoring rule.
	// Weights are normalized at runtime, so they don't need to sum to 1.0.
	Weights ScoreWeights `json:"weights"`

	// Affinity contains temporal-decay parameters.
	Affinity AffinityConfig `json:"affinity"`

	// Negative contains rejection-mining parameters.
	Negative NegativeConfig `json:"negative"`

	// Fatigue contains impression-fatigue parameters.
	Fatigue FatigueConfig `json:"fatigue"`

	// Diversity contains diversification caps.
	Diversity DiversityConfig `json:"diversity"`

	// Collaborative contains cross-user injection parameters.
	Collaborative CollaborativeConfig `json:"collaborative"`

	// Latent contains latent-factor model parameters.
	Latent LatentConfig `json:"latent"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Cache contains response-cache parameters.
	Cache CacheConfig `json:"cache"`

	// Seed is the random seed for deterministic interleaving.
	// If zero, a fixed default seed is used.
	Seed int64 `json:"seed"`
}

// ScoreWeights defines the relative contribution of each scoring rule.
type ScoreWeights struct {
	// Affinity is the weight of the category-affinity match.
	Affinity float64 `json:"affinity"`

	// Latent is the weight of the latent-factor predicted rating.
	Latent float64 `json:"latent"`

	// Quality is the weight of the catalog rating/popularity prior.
	Quality float64 `json:"quality"`
}

// Normalize returns a copy with weights normalized to sum to 1.0.
func (w ScoreWeights) Normalize() ScoreWeights {
	sum := w.Affinity + w.Latent + w.Quality
	if sum == 0 {
		const equal = 1.0 / 3.0
		return ScoreWeights{Affinity: equal, Latent: equal, Quality: equal}
	}
	return ScoreWeights{
		Affinity: w.Affinity / sum,
		Latent:   w.Latent / sum,
		Quality:  w.Quality / sum,
	}
}

// AffinityConfig contains temporal-decay parameters.
type AffinityConfig struct {
	// HalfLifeDays is the decay half-life in days.
	// Default: 30.
	HalfLifeDays float64 `json:"half_life_days"`

	// MinDecayFactor is the decay floor; a category once strongly liked
	// remains faintly present.
	// Default: 0.1.
	MinDecayFactor float64 `json:"min_decay_factor"`

	// TopCategories is how many decayed categories feed the SCORING stage.
	// Default: 5.
	TopCategories int `json:"top_categories"`
}

// NegativeConfig contains rejection-mining parameters.
type NegativeConfig struct {
	// RejectionThreshold is the unengaged impression count at which an
	// item becomes a strong rejection.
	// Default: 10.
	RejectionThreshold int `json:"rejection_threshold"`

	// MinPatternSupport is the minimum number of strong rejections
	// required before any pattern is mined.
	// Default: 3.
	MinPatternSupport int `json:"min_pattern_support"`

	// CategoryShare is the fraction of rejections a category must appear
	// in to be flagged "avoid".
	// Default: 0.5.
	CategoryShare float64 `json:"category_share"`

	// KindSkewRatio flags a media-kind skew when one kind outnumbers the
	// other beyond this ratio.
	// Default: 2.0.
	KindSkewRatio float64 `json:"kind_skew_ratio"`
}

// FatigueConfig contains impression-fatigue parameters.
type FatigueConfig struct {
	// DecayPerImpression is the per-impression score penalty below the
	// rejection threshold.
	// Default: 0.15.
	DecayPerImpression float64 `json:"decay_per_impression"`

	// MinScore is the floor for the soft declining priority.
	// Default: 0.3.
	MinScore float64 `json:"min_score"`

	// Cooldown is how long an over-threshold item stays excluded.
	// Default: 168h (7 days).
	Cooldown time.Duration `json:"cooldown"`

	// ReinstatedScore is the multiplier after the cooldown elapses.
	// Default: 0.5.
	ReinstatedScore float64 `json:"reinstated_score"`
}

// DiversityConfig contains diversification caps.
type DiversityConfig struct {
	// MaxConsecutive is the longest allowed run of items sharing a
	// primary category.
	// Default: 2.
	MaxConsecutive int `json:"max_consecutive"`

	// MaxShare is the maximum fraction of the final list any single
	// category may occupy.
	// Default: 0.3.
	MaxShare float64 `json:"max_share"`
}

// CollaborativeConfig contains cross-user injection parameters.
type CollaborativeConfig struct {
	// Ratio is the fraction of final slots filled by interleaved
	// cross-user recommendations.
	// Default: 0.2.
	Ratio float64 `json:"ratio"`
}

// LatentConfig contains latent-factor model parameters.
type LatentConfig struct {
	// Factors is the truncation rank k, clipped to min(k, rank(matrix)).
	// Default: 50.
	Factors int `json:"factors"`

	// TopN is how many predictions the batch job materializes per user.
	// Default: 50.
	TopN int `json:"top_n"`

	// Freshness is the cached-generation validity window.
	// Default: 24h.
	Freshness time.Duration `json:"freshness"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultLimit is the default number of items to return.
	// Default: 20.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit caps the requested limit.
	// Default: 100.
	MaxLimit int `json:"max_limit"`

	// MaxCandidates caps the candidate pool entering the pipeline.
	// Default: 500.
	MaxCandidates int `json:"max_candidates"`

	// FetchTimeout bounds the external candidate fetch.
	// Default: 5s.
	FetchTimeout time.Duration `json:"fetch_timeout"`

	// EnrichTimeout bounds the optional enrichment call.
	// Default: 2s.
	EnrichTimeout time.Duration `json:"enrich_timeout"`
}

// CacheConfig contains response-cache parameters.
type CacheConfig struct {
	// Enabled controls whether the response cache is active.
	// Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl"`

	// MaxEntries is the maximum number of cached responses.
	// Default: 4096.
	MaxEntries int `json:"max_entries"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: ScoreWeights{
			Affinity: 0.4,
			Latent:   0.4,
			Quality:  0.2,
		},
		Affinity: AffinityConfig{
			HalfLifeDays:   30,
			MinDecayFactor: 0.1,
			TopCategories:  5,
		},
		Negative: NegativeConfig{
			RejectionThreshold: 10,
			MinPatternSupport:  3,
			CategoryShare:      0.5,
			KindSkewRatio:      2.0,
		},
		Fatigue: FatigueConfig{
			DecayPerImpression: 0.15,
			MinScore:           0.3,
			Cooldown:           7 * 24 * time.Hour,
			ReinstatedScore:    0.5,
		},
		Diversity: DiversityConfig{
			MaxConsecutive: 2,
			MaxShare:       0.3,
		},
		Collaborative: CollaborativeConfig{
			Ratio: 0.2,
		},
		Latent: LatentConfig{
			Factors:   50,
			TopN:      50,
			Freshness: 24 * time.Hour,
		},
		Limits: LimitsConfig{
			DefaultLimit:  20,
			MaxLimit:      100,
			MaxCandidates: 500,
			FetchTimeout:  5 * time.Second,
			EnrichTimeout: 2 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 4096,
		},
		Seed: 42,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Affinity.HalfLifeDays <= 0 {
		return fmt.Errorf("affinity.half_life_days must be positive, got %f", c.Affinity.HalfLifeDays)
	}
	if c.Affinity.MinDecayFactor < 0 || c.Affinity.MinDecayFactor > 1 {
		return fmt.Errorf("affinity.min_decay_factor must be in [0, 1], got %f", c.Affinity.MinDecayFactor)
	}
	if c.Negative.RejectionThreshold < 1 {
		return fmt.Errorf("negative.rejection_threshold must be positive, got %d", c.Negative.RejectionThreshold)
	}
	if c.Negative.CategoryShare <= 0 || c.Negative.CategoryShare > 1 {
		return fmt.Errorf("negative.category_share must be in (0, 1], got %f", c.Negative.CategoryShare)
	}
	if c.Fatigue.DecayPerImpression < 0 || c.Fatigue.DecayPerImpression > 1 {
		return fmt.Errorf("fatigue.decay_per_impression must be in [0, 1], got %f", c.Fatigue.DecayPerImpression)
	}
	if c.Fatigue.Cooldown <= 0 {
		return fmt.Errorf("fatigue.cooldown must be positive, got %v", c.Fatigue.Cooldown)
	}
	if c.Diversity.MaxConsecutive < 1 {
		return fmt.Errorf("diversity.max_consecutive must be positive, got %d", c.Diversity.MaxConsecutive)
	}
	if c.Diversity.MaxShare <= 0 || c.Diversity.MaxShare > 1 {
		return fmt.Errorf("diversity.max_share must be in (0, 1], got %f", c.Diversity.MaxShare)
	}
	if c.Collaborative.Ratio < 0 || c.Collaborative.Ratio > 1 {
		return fmt.Errorf("collaborative.ratio must be in [0, 1], got %f", c.Collaborative.Ratio)
	}
	if c.Latent.Factors < 1 {
		return fmt.Errorf("latent.factors must be positive, got %d", c.Latent.Factors)
	}
	if c.Latent.Freshness <= 0 {
		return fmt.Errorf("latent.freshness must be positive, got %v", c.Latent.Freshness)
	}
	if c.Limits.DefaultLimit < 1 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit must be >= limits.default_limit, got %d < %d",
			c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("limits.max_candidates must be positive, got %d", c.Limits.MaxCandidates)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// Direct field copy - all nested structs contain only value types
	cp := *c
	return &cp
}
