// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package storage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/artbyoscar/streamsense-sub001/internal/metrics"
	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// defaultQueueSize bounds the write-behind queue. At typical request
// rates a full queue means the disk is badly behind; dropping the write
// is preferable to stalling the ranking path.
const defaultQueueSize = 4096

// writeOp is one queued persistence operation.
type writeOp struct {
	impression  *rank.ImpressionRecord
	affinity    *rank.AffinityRecord
	interaction *rank.InteractionRecord
	skipUser    string
	skipItem    int
	skipAt      time.Time
}

// Flusher is the write-behind persistence queue. Signal trackers call
// the Persist methods from the request path; the Run goroutine drains
// the queue into the Store. Persist methods never block: when the queue
// is full the write is dropped and counted.
type Flusher struct {
	store  *Store
	logger zerolog.Logger
	queue  chan writeOp

	enqueued atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewFlusher creates a flusher over the store. queueSize <= 0 selects
// the default.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFlusher(store *Store, queueSize int, logger zerolog.Logger) *Flusher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Flusher{
		store:  store,
		logger: logger.With().Str("component", "rank_flusher").Logger(),
		queue:  make(chan writeOp, queueSize),
	}
}

// PersistImpression queues an impression upsert.
func (f *Flusher) PersistImpression(rec rank.ImpressionRecord) {
	f.enqueue(writeOp{impression: &rec})
}

// PersistAffinity queues an affinity upsert.
func (f *Flusher) PersistAffinity(rec rank.AffinityRecord) {
	f.enqueue(writeOp{affinity: &rec})
}

// PersistInteraction queues an interaction append.
func (f *Flusher) PersistInteraction(rec rank.InteractionRecord) {
	f.enqueue(writeOp{interaction: &rec})
}

// PersistSkip queues a skip audit row.
func (f *Flusher) PersistSkip(userID string, itemID int, at time.Time) {
	f.enqueue(writeOp{skipUser: userID, skipItem: itemID, skipAt: at})
}

func (f *Flusher) enqueue(op writeOp) {
	select {
	case f.queue <- op:
		f.enqueued.Add(1)
		metrics.FlusherQueueDepth.Set(float64(len(f.queue)))
	default:
		metrics.FlusherDroppedWrites.Inc()
		if f.dropped.Add(1)%100 == 1 {
			f.logger.Warn().
				Int64("dropped", f.dropped.Load()).
				Msg("write-behind queue full, dropping writes")
		}
	}
}

// Run drains the queue until the context is cancelled, then flushes
// whatever is still queued before returning. It satisfies the suture
// service contract.
func (f *Flusher) Run(ctx context.Context) error {
	f.logger.Info().Int("queue_size", cap(f.queue)).Msg("write-behind flusher started")

	for {
		select {
		case <-ctx.Done():
			f.drain()
			f.logger.Info().
				Int64("enqueued", f.enqueued.Load()).
				Int64("dropped", f.dropped.Load()).
				Int64("failed", f.failed.Load()).
				Msg("write-behind flusher stopped")
			return ctx.Err()
		case op := <-f.queue:
			f.apply(op)
		}
	}
}

// drain applies everything still queued. Called during shutdown, after
// the request path has stopped producing.
func (f *Flusher) drain() {
	for {
		select {
		case op := <-f.queue:
			f.apply(op)
		default:
			return
		}
	}
}

func (f *Flusher) apply(op writeOp) {
	ctx := context.Background()
	metrics.FlusherQueueDepth.Set(float64(len(f.queue)))

	var err error
	switch {
	case op.impression != nil:
		err = f.store.SaveImpression(ctx, *op.impression)
	case op.affinity != nil:
		err = f.store.SaveAffinity(ctx, *op.affinity)
	case op.interaction != nil:
		err = f.store.AppendInteraction(ctx, *op.interaction)
	default:
		err = f.store.SaveSkip(ctx, op.skipUser, op.skipItem, op.skipAt)
	}
	if err != nil {
		f.failed.Add(1)
		f.logger.Error().Err(err).Msg("write-behind flush failed")
	}
}

// Stats returns cumulative enqueue, drop and failure counts.
func (f *Flusher) Stats() (enqueued, dropped, failed int64) {
	return f.enqueued.Load(), f.dropped.Load(), f.failed.Load()
}
