// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package signals maintains the per-user behavioral state feeding the
// ranking pipeline: the impression log, temporal-decay category affinity,
// mined negative signals, and the exclusion/fatigue view.
//
// All trackers are explicit state objects injected into the engine rather
// than process-wide globals, so the pipeline is testable with multiple
// concurrent simulated users.
//
// Mutations are local-first: trackers update in-memory state and hand the
// record to a Persister for asynchronous, best-effort durability. A crash
// between the local mutation and the persisted write loses at most the
// most recent skip or impression; the next restart re-derives state from
// the durable store.
package signals
