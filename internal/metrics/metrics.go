// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package metrics provides Prometheus instrumentation for the ranking
// service: pipeline stage latency, fallback rate, cache efficiency, API
// throughput and write-behind persistence health.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

var (
	// Ranking pipeline metrics
	RankRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_requests_total",
			Help: "Total number of ranking requests",
		},
		[]string{"fallback", "cache_hit"},
	)

	RankRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rank_request_duration_seconds",
			Help:    "End-to-end ranking request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	RankStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rank_stage_duration_seconds",
			Help:    "Per-stage pipeline duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"stage"},
	)

	RankCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rank_candidates",
			Help:    "Candidate pool size per ranking request",
			Buckets: []float64{0, 10, 50, 100, 250, 500},
		},
	)

	RankCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_cache_lookups_total",
			Help: "Response cache lookups by outcome",
		},
		[]string{"result"},
	)

	// Latent model metrics
	ModelGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rank_model_generation",
			Help: "Current latent model generation",
		},
	)

	ModelTrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rank_model_train_duration_seconds",
			Help:    "Latent model refit duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	ModelTrainErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rank_model_train_errors_total",
			Help: "Total number of failed model refits",
		},
	)

	// Write-behind persistence metrics
	FlusherQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rank_flusher_queue_depth",
			Help: "Current write-behind queue depth",
		},
	)

	FlusherDroppedWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rank_flusher_dropped_writes_total",
			Help: "Writes dropped because the write-behind queue was full",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RankObserver adapts the Prometheus collectors to the ranking engine's
// observer interface.
type RankObserver struct{}

var _ rank.Observer = RankObserver{}

// ObserveRequest records one completed ranking request.
func (RankObserver) ObserveRequest(meta rank.ResponseMetadata, elapsed time.Duration) {
	RankRequestsTotal.WithLabelValues(
		strconv.FormatBool(meta.Fallback),
		strconv.FormatBool(meta.CacheHit),
	).Inc()
	RankRequestDuration.Observe(elapsed.Seconds())
	RankCandidates.Observe(float64(meta.TotalCandidates))
	ModelGeneration.Set(float64(meta.ModelGeneration))
}

// ObserveStage records one pipeline stage duration.
func (RankObserver) ObserveStage(stage rank.Stage, elapsed time.Duration) {
	RankStageDuration.WithLabelValues(stage.String()).Observe(elapsed.Seconds())
}

// ObserveCacheLookup records a response cache lookup.
func (RankObserver) ObserveCacheLookup(hit bool) {
	if hit {
		RankCacheLookups.WithLabelValues("hit").Inc()
	} else {
		RankCacheLookups.WithLabelValues("miss").Inc()
	}
}
