// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package api provides the HTTP surface of the recommendation service
// using the Chi router.
//
// Read path:
//
//	GET  /api/v1/recommendations          ranked list for a user
//	GET  /api/v1/recommendations/exclusions   exclusion-set diagnostics
//	GET  /api/v1/status                   model and engine status
//
// Write path:
//
//	POST /api/v1/recommendations/skip     session skip for an item
//	POST /api/v1/recommendations/engaged  engagement mark for an item
//	POST /api/v1/recommendations/session/clear   reset session skips
//	POST /api/v1/interactions             list-status interaction event
//
// Operational:
//
//	GET  /healthz   liveness
//	GET  /readyz    readiness (catalog reachability)
//	GET  /metrics   Prometheus exposition
//
// Read-path failures degrade to empty lists; only malformed write
// requests produce 4xx responses.
package api
