// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package latent implements the interaction matrix and the truncated-SVD
// latent factor model behind collaborative predictions.
//
// The user-item rating matrix is factorized into low-rank user and item
// embeddings via singular value decomposition, truncated to the k largest
// singular values. A predicted rating reconstructs the weighted dot product
//
//	sum_f userFactor[f] * singularValue[f] * itemFactor[f]
//
// clamped into [1, 5].
//
// Factorization is a periodic batch job, never a request-time concern.
// Request-time reads always see the most recently completed model
// generation; an in-progress refit swaps the model atomically when done.
//
// With fewer than two users or two items factorization is skipped and the
// recommender reports "no collaborative signal available" - callers must
// treat the empty result as signal absence, not an error.
package latent
