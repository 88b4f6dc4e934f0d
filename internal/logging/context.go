// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithRequestID returns a context carrying a child logger tagged with
// the request ID. Handlers attach it once; downstream code retrieves it
// with Ctx and every line carries the ID automatically.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := Logger().With().Str("request_id", requestID).Logger()
	return context.WithValue(ctx, ctxKey{}, l)
}

// Ctx returns the logger stored in the context, or the global logger
// if none was attached.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return Logger()
}
