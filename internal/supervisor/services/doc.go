// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package services provides suture service wrappers for the
// long-running components: the HTTP server, the latent model training
// loop and the write-behind persistence flusher.
package services
