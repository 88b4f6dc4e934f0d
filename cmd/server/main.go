// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Command server runs the StreamSense recommendation service: the
// ranking engine and its HTTP API, the latent model training loop and
// the write-behind persistence flusher, all under one supervision tree.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"

	"github.com/artbyoscar/streamsense-sub001/internal/api"
	"github.com/artbyoscar/streamsense-sub001/internal/catalog"
	"github.com/artbyoscar/streamsense-sub001/internal/config"
	"github.com/artbyoscar/streamsense-sub001/internal/logging"
	"github.com/artbyoscar/streamsense-sub001/internal/metrics"
	"github.com/artbyoscar/streamsense-sub001/internal/rank"
	"github.com/artbyoscar/streamsense-sub001/internal/rank/latent"
	"github.com/artbyoscar/streamsense-sub001/internal/rank/reranking"
	"github.com/artbyoscar/streamsense-sub001/internal/rank/signals"
	"github.com/artbyoscar/streamsense-sub001/internal/rank/storage"
	"github.com/artbyoscar/streamsense-sub001/internal/supervisor"
	"github.com/artbyoscar/streamsense-sub001/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration load failed")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	log := logging.Logger()
	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("streamsense starting")

	db, err := openBadger(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("open database failed")
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("database close failed")
		}
	}()

	store := storage.NewStore(db)
	flusher := storage.NewFlusher(store, cfg.Rank.FlushQueueSize, log)

	client := catalog.NewClient(catalog.Options{
		BaseURL:           cfg.Catalog.URL,
		APIKey:            cfg.Catalog.APIKey,
		Timeout:           cfg.Catalog.Timeout,
		RequestsPerSecond: cfg.Catalog.RateLimit,
		Burst:             cfg.Catalog.Burst,
	})
	var (
		candidates rank.CandidateSource = client
		lists      rank.ListSource      = client
		pinger     api.Pinger           = client
	)
	if cfg.Catalog.BreakerEnabled {
		breaker := catalog.NewBreakerClient(client, log)
		candidates = breaker
		lists = breaker
		pinger = breaker
	}

	rcfg := rankConfig(cfg.Rank)

	impressions := signals.NewImpressionLog(flusher)
	affinity := signals.NewAffinityTracker(rcfg.Affinity, flusher)
	negative := signals.NewNegativeTracker(rcfg.Negative, impressions)
	exclusion := signals.NewExclusionState(rcfg.Fatigue, rcfg.Negative.RejectionThreshold, impressions, flusher)

	seedCtx := context.Background()
	if recs, serr := store.LoadImpressions(seedCtx); serr == nil {
		impressions.Seed(recs)
		log.Info().Int("impressions", len(recs)).Msg("seeded impression log")
	} else {
		log.Warn().Err(serr).Msg("impression seed failed, starting empty")
	}
	if recs, serr := store.LoadAffinities(seedCtx); serr == nil {
		affinity.Seed(recs)
		log.Info().Int("affinities", len(recs)).Msg("seeded affinity tracker")
	} else {
		log.Warn().Err(serr).Msg("affinity seed failed, starting empty")
	}

	recommender := latent.NewRecommender(rcfg.Latent, store, log)
	if rerr := recommender.Restore(seedCtx); rerr != nil {
		log.Warn().Err(rerr).Msg("model restore failed, waiting for first refit")
	}

	engine, err := rank.NewEngine(rcfg, rank.Deps{
		Catalog:   candidates,
		Lists:     lists,
		Affinity:  affinity,
		Latent:    recommender,
		Negative:  negative,
		Exclusion: exclusion,
		Reranker:  reranking.NewDiversifier(rcfg.Diversity.MaxConsecutive, rcfg.Diversity.MaxShare),
		Observer:  metrics.RankObserver{},
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}

	handler := api.NewHandler(engine, affinity, flusher, pinger, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg.API, handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// suture's event hook wants slog.
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	tree := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	tree.AddStorageService(services.NewFlusherService(flusher))
	tree.AddModelService(services.NewTrainService(recommender, store, services.TrainConfig{
		TrainOnStartup: cfg.Rank.TrainOnStartup,
		TrainInterval:  cfg.Rank.TrainInterval,
	}, log))
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", server.Addr).Msg("supervision tree starting")
	if err := tree.Serve(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("supervision tree exited")
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, us := range report {
			log.Warn().Str("service", us.Name).Msg("service did not stop in time")
		}
	}
	log.Info().Msg("streamsense stopped")
}

// openBadger opens the signal store. The Badger default logger is
// replaced so its output flows through zerolog levels consistently.
func openBadger(cfg config.DatabaseConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)
	return badger.Open(opts)
}

// rankConfig overlays the operational knobs from the app configuration
// onto the engine's defaults.
func rankConfig(rc config.RankConfig) *rank.Config {
	cfg := rank.DefaultConfig()
	cfg.Latent.Factors = rc.Factors
	cfg.Latent.TopN = rc.TopN
	cfg.Latent.Freshness = rc.Freshness
	cfg.Collaborative.Ratio = rc.CollaborativeRatio
	cfg.Limits.DefaultLimit = rc.DefaultLimit
	cfg.Limits.MaxLimit = rc.MaxLimit
	cfg.Limits.MaxCandidates = rc.MaxCandidates
	if rc.CacheTTL > 0 {
		cfg.Cache.TTL = rc.CacheTTL
	} else {
		cfg.Cache.Enabled = false
	}
	return cfg
}
