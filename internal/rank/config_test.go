// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-positive half life", func(c *Config) { c.Affinity.HalfLifeDays = 0 }},
		{"decay factor above one", func(c *Config) { c.Affinity.MinDecayFactor = 1.5 }},
		{"zero rejection threshold", func(c *Config) { c.Negative.RejectionThreshold = 0 }},
		{"category share above one", func(c *Config) { c.Negative.CategoryShare = 1.1 }},
		{"negative fatigue decay", func(c *Config) { c.Fatigue.DecayPerImpression = -0.1 }},
		{"zero cooldown", func(c *Config) { c.Fatigue.Cooldown = 0 }},
		{"zero max consecutive", func(c *Config) { c.Diversity.MaxConsecutive = 0 }},
		{"zero max share", func(c *Config) { c.Diversity.MaxShare = 0 }},
		{"collaborative ratio above one", func(c *Config) { c.Collaborative.Ratio = 1.5 }},
		{"zero factors", func(c *Config) { c.Latent.Factors = 0 }},
		{"zero freshness", func(c *Config) { c.Latent.Freshness = 0 }},
		{"zero default limit", func(c *Config) { c.Limits.DefaultLimit = 0 }},
		{"max below default", func(c *Config) { c.Limits.MaxLimit = c.Limits.DefaultLimit - 1 }},
		{"zero max candidates", func(c *Config) { c.Limits.MaxCandidates = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Affinity.HalfLifeDays != 30 {
		t.Errorf("HalfLifeDays = %v, want 30", cfg.Affinity.HalfLifeDays)
	}
	if cfg.Negative.RejectionThreshold != 10 {
		t.Errorf("RejectionThreshold = %d, want 10", cfg.Negative.RejectionThreshold)
	}
	if cfg.Fatigue.Cooldown != 7*24*time.Hour {
		t.Errorf("Cooldown = %v, want 168h", cfg.Fatigue.Cooldown)
	}
	if cfg.Latent.Factors != 50 {
		t.Errorf("Factors = %d, want 50", cfg.Latent.Factors)
	}
	if cfg.Collaborative.Ratio != 0.2 {
		t.Errorf("Collaborative.Ratio = %v, want 0.2", cfg.Collaborative.Ratio)
	}
	if cfg.Diversity.MaxConsecutive != 2 || cfg.Diversity.MaxShare != 0.3 {
		t.Errorf("Diversity = %+v, want maxConsecutive 2, maxShare 0.3", cfg.Diversity)
	}
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Limits.DefaultLimit = 99
	if cfg.Limits.DefaultLimit == 99 {
		t.Error("mutating the clone changed the original")
	}
}
