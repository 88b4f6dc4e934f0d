// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package catalog implements the REST client for the external content
// catalog service, the source of candidate items, trending lists and
// per-user catalog lists.
//
// The catalog is the only external dependency on the recommendation
// read path, so the client is defensive: every request passes a local
// rate limiter, transient failures are retried once, and the breaker
// wrapper (BreakerClient) sheds load entirely when the catalog is
// down so request latency stays bounded while the ranking engine falls
// back to whatever it can serve without candidates.
package catalog
