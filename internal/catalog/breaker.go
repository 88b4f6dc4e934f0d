// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// BreakerClient wraps Client with a circuit breaker so a down or slow
// catalog sheds load fast instead of holding every ranking request for
// the full HTTP timeout. While the circuit is open the engine's
// fallback path handles the degraded service.
//
// Breaker timing uses real time; tests should exercise the wrapped
// Client directly.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[any]
	logger zerolog.Logger
}

var (
	_ rank.CandidateSource = (*BreakerClient)(nil)
	_ rank.ListSource      = (*BreakerClient)(nil)
)

// NewBreakerClient wraps a catalog client with circuit breaker
// protection. The circuit opens after a 60% failure rate over at least
// 10 requests and probes recovery after 30 seconds.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreakerClient(client *Client, logger zerolog.Logger) *BreakerClient {
	log := logger.With().Str("component", "catalog_breaker").Logger()

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "catalog-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &BreakerClient{client: client, cb: cb, logger: log}
}

// execute wraps a catalog call with circuit breaker protection.
func (b *BreakerClient) execute(fn func() (any, error)) (any, error) {
	return b.cb.Execute(fn)
}

// castResult type-casts the breaker result with error checking.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// FetchCandidates fetches a candidate page with breaker protection.
func (b *BreakerClient) FetchCandidates(ctx context.Context, q rank.CandidateQuery) ([]rank.ContentItem, error) {
	return castResult[[]rank.ContentItem](b.execute(func() (any, error) {
		return b.client.FetchCandidates(ctx, q)
	}))
}

// Trending fetches trending items with breaker protection.
func (b *BreakerClient) Trending(ctx context.Context, kind rank.MediaKind, limit int) ([]rank.ContentItem, error) {
	return castResult[[]rank.ContentItem](b.execute(func() (any, error) {
		return b.client.Trending(ctx, kind, limit)
	}))
}

// ItemsByID resolves item metadata with breaker protection.
func (b *BreakerClient) ItemsByID(ctx context.Context, ids []int) ([]rank.ContentItem, error) {
	return castResult[[]rank.ContentItem](b.execute(func() (any, error) {
		return b.client.ItemsByID(ctx, ids)
	}))
}

// ListedItemIDs fetches the user's list IDs with breaker protection.
func (b *BreakerClient) ListedItemIDs(ctx context.Context, userID string) (map[int]struct{}, error) {
	return castResult[map[int]struct{}](b.execute(func() (any, error) {
		return b.client.ListedItemIDs(ctx, userID)
	}))
}

// UserList fetches the user's full list with breaker protection.
func (b *BreakerClient) UserList(ctx context.Context, userID string) ([]ListItem, error) {
	return castResult[[]ListItem](b.execute(func() (any, error) {
		return b.client.UserList(ctx, userID)
	}))
}

// Ping verifies connectivity with breaker protection.
func (b *BreakerClient) Ping(ctx context.Context) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.client.Ping(ctx)
	})
	return err
}
