// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
	"github.com/artbyoscar/streamsense-sub001/internal/rank/latent"
)

// Key prefixes for BadgerDB storage
const (
	impressionKeyPrefix  = "impression:"
	affinityKeyPrefix    = "affinity:"
	interactionKeyPrefix = "interaction:"
	skipKeyPrefix        = "skip:"
	modelSnapshotKey     = "model:snapshot"
)

// skipTTL bounds how long audit skip rows are retained. Session skips
// are not restored after a restart; their display suppression survives
// through the impression log instead.
const skipTTL = 7 * 24 * time.Hour

// Store is a BadgerDB-backed persistence layer for ranking signals.
type Store struct {
	db *badger.DB
}

// NewStore creates a store over an already-opened BadgerDB handle.
// The caller owns the handle's lifecycle.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// SaveImpression upserts one impression record.
func (s *Store) SaveImpression(ctx context.Context, rec rank.ImpressionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal impression: %w", err)
	}

	key := []byte(impressionKeyPrefix + rec.UserID + ":" + strconv.Itoa(rec.ItemID))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// LoadImpressions returns every stored impression record, for seeding
// the in-memory impression log at startup.
func (s *Store) LoadImpressions(ctx context.Context) ([]rank.ImpressionRecord, error) {
	var records []rank.ImpressionRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(impressionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec rank.ImpressionRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				continue // Skip corrupt rows rather than failing the whole seed
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan impressions: %w", err)
	}
	return records, nil
}

// SaveAffinity upserts one per-(user, category) affinity accumulator.
func (s *Store) SaveAffinity(ctx context.Context, rec rank.AffinityRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal affinity: %w", err)
	}

	key := []byte(affinityKeyPrefix + rec.UserID + ":" + rec.Category)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// LoadAffinities returns every stored affinity record.
func (s *Store) LoadAffinities(ctx context.Context) ([]rank.AffinityRecord, error) {
	var records []rank.AffinityRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(affinityKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec rank.AffinityRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan affinities: %w", err)
	}
	return records, nil
}

// AppendInteraction stores one interaction observation. The log is
// append-only: the timestamp keys apart successive status changes for
// the same (user, item) pair and the matrix builder keeps the latest.
func (s *Store) AppendInteraction(ctx context.Context, rec rank.InteractionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}

	key := []byte(interactionKeyPrefix + rec.UserID + ":" +
		strconv.Itoa(rec.ItemID) + ":" +
		strconv.FormatInt(rec.Timestamp.UnixNano(), 10))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// LoadInteractions returns the full interaction log for model training.
func (s *Store) LoadInteractions(ctx context.Context) ([]rank.InteractionRecord, error) {
	var records []rank.InteractionRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(interactionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec rank.InteractionRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				continue
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan interactions: %w", err)
	}
	return records, nil
}

// SaveSkip records a skip event for auditing. Rows expire with the
// BadgerDB entry TTL.
func (s *Store) SaveSkip(ctx context.Context, userID string, itemID int, at time.Time) error {
	key := []byte(skipKeyPrefix + userID + ":" +
		strconv.Itoa(itemID) + ":" +
		strconv.FormatInt(at.UnixNano(), 10))
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, nil).WithTTL(skipTTL)
		return txn.SetEntry(entry)
	})
}

// SaveSnapshot persists a completed model generation, replacing the
// previous one.
func (s *Store) SaveSnapshot(ctx context.Context, snap *latent.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal model snapshot: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(modelSnapshotKey), data)
	})
}

// LoadSnapshot returns the persisted model generation, or (nil, nil) if
// none has been saved yet.
func (s *Store) LoadSnapshot(ctx context.Context) (*latent.Snapshot, error) {
	var snap *latent.Snapshot

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(modelSnapshotKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get model snapshot: %w", err)
		}

		return item.Value(func(val []byte) error {
			snap = &latent.Snapshot{}
			return json.Unmarshal(val, snap)
		})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

var _ latent.SnapshotStore = (*Store)(nil)
