// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package rank implements the personalized recommendation ranking engine.
//
// # Architecture
//
// The engine turns a user's historical interactions into a deduplicated,
// diversified, freshness-aware ordered list of candidate content items.
// It combines several independently evolving signal sources:
//
//   - Latent Factors: truncated-SVD predictions over the user-item matrix
//   - Affinity: per-category preference with exponential time decay
//   - Negative Signals: rejection patterns mined from unengaged impressions
//   - Fatigue: impression-count penalties with a cooldown window
//   - Diversity: category run-length and share caps on the final list
//
// # Pipeline
//
// A ranking request moves through a fixed sequence of stages:
//
//	FETCHING_CANDIDATES -> EXCLUDING -> NEGATIVE_FILTERING -> SCORING ->
//	FATIGUE_ADJUSTING -> DIVERSIFYING -> RECORDING -> DONE
//
// Any failure before SCORING escapes to FALLBACK, which serves a
// trending/popularity-only list with exclusion filtering still applied.
// The caller always receives a list; upstream failures degrade quality,
// never availability.
//
// # Thread Safety
//
// The engine is safe for concurrent use. Per-user state mutations between
// EXCLUDING and RECORDING are serialized with a per-user lock so that
// overlapping requests for the same user cannot double-count impressions
// or race on the skip set. Affinity and latent-factor reads are pure
// functions over immutable snapshots and run without user locks.
//
// # Usage
//
//	cfg := rank.DefaultConfig()
//	engine, err := rank.NewEngine(cfg, deps, logger)
//
//	resp, err := engine.Recommend(ctx, rank.Request{
//	    UserID: userID,
//	    Limit:  20,
//	})
package rank
