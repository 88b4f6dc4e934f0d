// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package storage persists ranking signal state in BadgerDB.
//
// The ranking engine serves every request from in-memory state; this
// package exists so that state survives restarts. Writes arrive through
// the Flusher, a write-behind queue that decouples request latency from
// disk latency: signal trackers hand records to the Flusher and return
// immediately, and the Flusher applies them to the Store on its own
// goroutine. On startup the Store's Load methods seed the trackers.
//
// Durability is deliberately bounded-staleness. A crash loses at most
// the queued tail of writes, which for impression counts and affinity
// scores is an acceptable trade against adding a disk write to every
// recommendation request.
package storage
