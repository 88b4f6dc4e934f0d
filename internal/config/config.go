// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package config defines the application configuration and its layered
// loader. Precedence is environment variables over the YAML config file
// over built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" json:"server"`
	Catalog  CatalogConfig  `koanf:"catalog" json:"catalog"`
	Database DatabaseConfig `koanf:"database" json:"database"`
	Rank     RankConfig     `koanf:"rank" json:"rank"`
	API      APIConfig      `koanf:"api" json:"api"`
	Logging  LoggingConfig  `koanf:"logging" json:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host" json:"host"`

	// Port is the listen port.
	Port int `koanf:"port" json:"port"`

	// Timeout bounds request read and write.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`

	// Environment is "development" or "production".
	Environment string `koanf:"environment" json:"environment"`
}

// CatalogConfig contains external catalog client settings.
type CatalogConfig struct {
	// URL is the catalog service base URL.
	URL string `koanf:"url" json:"url"`

	// APIKey authenticates catalog requests.
	APIKey string `koanf:"api_key" json:"-"`

	// Timeout bounds each catalog HTTP request.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// RateLimit is the client-side requests-per-second budget.
	RateLimit float64 `koanf:"rate_limit" json:"rate_limit"`

	// Burst is the rate limiter burst size.
	Burst int `koanf:"burst" json:"burst"`

	// BreakerEnabled wraps the client with a circuit breaker.
	BreakerEnabled bool `koanf:"breaker_enabled" json:"breaker_enabled"`
}

// DatabaseConfig contains BadgerDB settings.
type DatabaseConfig struct {
	// Path is the BadgerDB directory.
	Path string `koanf:"path" json:"path"`

	// InMemory runs BadgerDB without disk persistence. Intended for
	// tests and local development only.
	InMemory bool `koanf:"in_memory" json:"in_memory"`
}

// RankConfig contains the operational knobs of the ranking engine.
// Algorithm parameters not listed here keep their package defaults.
type RankConfig struct {
	// TrainInterval is the period between model refits.
	TrainInterval time.Duration `koanf:"train_interval" json:"train_interval"`

	// TrainOnStartup refits immediately at boot instead of waiting for
	// the first interval.
	TrainOnStartup bool `koanf:"train_on_startup" json:"train_on_startup"`

	// Factors is the latent model truncation rank.
	Factors int `koanf:"factors" json:"factors"`

	// TopN is how many predictions are materialized per user per refit.
	TopN int `koanf:"top_n" json:"top_n"`

	// Freshness is the latent prediction cache validity window.
	Freshness time.Duration `koanf:"freshness" json:"freshness"`

	// CollaborativeRatio is the cross-user share of the final list.
	CollaborativeRatio float64 `koanf:"collaborative_ratio" json:"collaborative_ratio"`

	// DefaultLimit is the default response size.
	DefaultLimit int `koanf:"default_limit" json:"default_limit"`

	// MaxLimit caps the requested response size.
	MaxLimit int `koanf:"max_limit" json:"max_limit"`

	// MaxCandidates caps the candidate pool per request.
	MaxCandidates int `koanf:"max_candidates" json:"max_candidates"`

	// CacheTTL is the response cache entry lifetime. Zero disables the
	// response cache.
	CacheTTL time.Duration `koanf:"cache_ttl" json:"cache_ttl"`

	// FlushQueueSize bounds the write-behind persistence queue.
	FlushQueueSize int `koanf:"flush_queue_size" json:"flush_queue_size"`
}

// APIConfig contains HTTP API settings.
type APIConfig struct {
	// RateLimitRequests is the per-client request budget per window.
	// Zero disables rate limiting.
	RateLimitRequests int `koanf:"rate_limit_requests" json:"rate_limit_requests"`

	// RateLimitWindow is the rate limit measurement window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window" json:"rate_limit_window"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `koanf:"level" json:"level"`

	// Format is json or console.
	Format string `koanf:"format" json:"format"`

	// Caller includes file and line in log output.
	Caller bool `koanf:"caller" json:"caller"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Catalog.URL == "" {
		return fmt.Errorf("catalog.url is required")
	}
	if c.Catalog.RateLimit <= 0 {
		return fmt.Errorf("catalog.rate_limit must be positive, got %f", c.Catalog.RateLimit)
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database.path is required unless database.in_memory is set")
	}
	if c.Rank.TrainInterval <= 0 {
		return fmt.Errorf("rank.train_interval must be positive, got %v", c.Rank.TrainInterval)
	}
	if c.Rank.Factors < 1 {
		return fmt.Errorf("rank.factors must be positive, got %d", c.Rank.Factors)
	}
	if c.Rank.CollaborativeRatio < 0 || c.Rank.CollaborativeRatio > 1 {
		return fmt.Errorf("rank.collaborative_ratio must be in [0, 1], got %f", c.Rank.CollaborativeRatio)
	}
	if c.Rank.DefaultLimit < 1 || c.Rank.MaxLimit < c.Rank.DefaultLimit {
		return fmt.Errorf("rank limits invalid: default %d, max %d", c.Rank.DefaultLimit, c.Rank.MaxLimit)
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
