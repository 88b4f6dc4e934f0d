// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package services

import (
	"context"
)

// Runner is a context-bound run loop, satisfied by the storage flusher.
type Runner interface {
	Run(ctx context.Context) error
}

// FlusherService supervises the write-behind persistence queue.
type FlusherService struct {
	runner Runner
}

// NewFlusherService wraps the flusher run loop for supervision.
func NewFlusherService(runner Runner) *FlusherService {
	return &FlusherService{runner: runner}
}

// Serve implements suture.Service.
func (s *FlusherService) Serve(ctx context.Context) error {
	return s.runner.Run(ctx)
}

// String identifies the service in supervisor logs.
func (s *FlusherService) String() string {
	return "write-behind-flusher"
}
