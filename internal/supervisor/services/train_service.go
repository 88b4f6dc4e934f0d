// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/artbyoscar/streamsense-sub001/internal/metrics"
	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// ModelTrainer is the latent recommender's training surface.
type ModelTrainer interface {
	// Refit rebuilds the model from the interaction log.
	Refit(ctx context.Context, interactions []rank.InteractionRecord) error

	// ComputeAll materializes per-user top-N predictions for the new
	// generation.
	ComputeAll(ctx context.Context)
}

// InteractionLoader supplies the full interaction log for training.
// Implemented by the storage layer.
type InteractionLoader interface {
	LoadInteractions(ctx context.Context) ([]rank.InteractionRecord, error)
}

// TrainConfig holds the training loop schedule.
type TrainConfig struct {
	// TrainOnStartup refits immediately when the service starts.
	TrainOnStartup bool

	// TrainInterval is the period between refits. Default: 24h.
	TrainInterval time.Duration

	// TrainTimeout bounds one refit cycle. Default: 30m.
	TrainTimeout time.Duration
}

// TrainService runs the periodic model refit loop under supervision.
// A failed cycle is logged and retried on the next tick; request-time
// prediction keeps serving the previous generation throughout.
type TrainService struct {
	trainer ModelTrainer
	loader  InteractionLoader
	cfg     TrainConfig
	logger  zerolog.Logger
}

// NewTrainService creates the training loop service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainService(trainer ModelTrainer, loader InteractionLoader, cfg TrainConfig, logger zerolog.Logger) *TrainService {
	if cfg.TrainInterval <= 0 {
		cfg.TrainInterval = 24 * time.Hour
	}
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = 30 * time.Minute
	}
	return &TrainService{
		trainer: trainer,
		loader:  loader,
		cfg:     cfg,
		logger:  logger.With().Str("service", "train").Logger(),
	}
}

// Serve implements suture.Service.
func (s *TrainService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.cfg.TrainOnStartup).
		Dur("train_interval", s.cfg.TrainInterval).
		Msg("training service starting")

	if s.cfg.TrainOnStartup {
		if err := s.train(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("startup training failed, will retry on schedule")
		}
	}

	ticker := time.NewTicker(s.cfg.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training service shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := s.train(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled training failed")
			}
		}
	}
}

// train runs one refit cycle: load the interaction log, refit, then
// materialize the per-user prediction cache.
func (s *TrainService) train(ctx context.Context) error {
	trainCtx, cancel := context.WithTimeout(ctx, s.cfg.TrainTimeout)
	defer cancel()

	start := time.Now()

	interactions, err := s.loader.LoadInteractions(trainCtx)
	if err != nil {
		metrics.ModelTrainErrors.Inc()
		return err
	}

	if err := s.trainer.Refit(trainCtx, interactions); err != nil {
		metrics.ModelTrainErrors.Inc()
		return err
	}
	s.trainer.ComputeAll(trainCtx)

	metrics.ModelTrainDuration.Observe(time.Since(start).Seconds())
	s.logger.Info().
		Int("interactions", len(interactions)).
		Dur("duration", time.Since(start)).
		Msg("model training complete")
	return nil
}

// String identifies the service in supervisor logs.
func (s *TrainService) String() string {
	return "model-trainer"
}
