// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package signals

import (
	"fmt"
	"sync"
	"time"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// Persister receives fire-and-forget write-behind mutations. Implementations
// must never block the caller; dropping a write under pressure is an
// acceptable, bounded inconsistency.
type Persister interface {
	PersistImpression(rec rank.ImpressionRecord)
	PersistAffinity(rec rank.AffinityRecord)
	PersistSkip(userID string, itemID int, at time.Time)
}

// ImpressionLog is the single authoritative impression table. A (user,
// item) pair has at most one record; Count accumulates and freezes once
// the item is engaged. Both the negative tracker and the exclusion state
// derive their views from this log.
type ImpressionLog struct {
	mu      sync.RWMutex
	byUser  map[string]map[int]rank.ImpressionRecord
	persist Persister
	now     func() time.Time
}

// NewImpressionLog creates an empty log. persist may be nil.
func NewImpressionLog(persist Persister) *ImpressionLog {
	return &ImpressionLog{
		byUser:  make(map[string]map[int]rank.ImpressionRecord),
		persist: persist,
		now:     time.Now,
	}
}

// Seed loads records from durable storage, replacing in-memory state for
// the users present in the batch.
func (l *ImpressionLog) Seed(records []rank.ImpressionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range records {
		user := l.byUser[rec.UserID]
		if user == nil {
			user = make(map[int]rank.ImpressionRecord)
			l.byUser[rec.UserID] = user
		}
		user[rec.ItemID] = rec
	}
}

// Record increments the impression count for each item. Engaged records
// are frozen: neither their count nor their last-shown time moves.
func (l *ImpressionLog) Record(userID string, itemIDs []int) {
	if userID == "" || len(itemIDs) == 0 {
		return
	}
	now := l.now()

	l.mu.Lock()
	user := l.byUser[userID]
	if user == nil {
		user = make(map[int]rank.ImpressionRecord)
		l.byUser[userID] = user
	}

	updated := make([]rank.ImpressionRecord, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		rec, ok := user[itemID]
		if ok && rec.Engaged {
			continue
		}
		if !ok {
			rec = rank.ImpressionRecord{UserID: userID, ItemID: itemID}
		}
		rec.Count++
		rec.LastShown = now
		user[itemID] = rec
		updated = append(updated, rec)
	}
	l.mu.Unlock()

	if l.persist != nil {
		for _, rec := range updated {
			l.persist.PersistImpression(rec)
		}
	}
}

// MarkEngaged freezes impression counting for the item. The call is
// idempotent; engaging an item never shown creates a frozen record so
// later impressions stay at zero count.
func (l *ImpressionLog) MarkEngaged(userID string, itemID int) error {
	if userID == "" {
		return fmt.Errorf("mark engaged: empty user id")
	}
	if itemID <= 0 {
		return fmt.Errorf("mark engaged: invalid item id %d", itemID)
	}

	l.mu.Lock()
	user := l.byUser[userID]
	if user == nil {
		user = make(map[int]rank.ImpressionRecord)
		l.byUser[userID] = user
	}
	rec, ok := user[itemID]
	if ok && rec.Engaged {
		l.mu.Unlock()
		return nil
	}
	if !ok {
		rec = rank.ImpressionRecord{UserID: userID, ItemID: itemID}
	}
	rec.Engaged = true
	user[itemID] = rec
	l.mu.Unlock()

	if l.persist != nil {
		l.persist.PersistImpression(rec)
	}
	return nil
}

// Get returns the record for a (user, item) pair.
func (l *ImpressionLog) Get(userID string, itemID int) (rank.ImpressionRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.byUser[userID][itemID]
	return rec, ok
}

// UserRecords returns all records for a user.
func (l *ImpressionLog) UserRecords(userID string) []rank.ImpressionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	user := l.byUser[userID]
	out := make([]rank.ImpressionRecord, 0, len(user))
	for _, rec := range user {
		out = append(out, rec)
	}
	return out
}

// RecentIDs returns item IDs shown within the trailing window.
func (l *ImpressionLog) RecentIDs(userID string, window time.Duration) map[int]struct{} {
	cutoff := l.now().Add(-window)

	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int]struct{})
	for itemID, rec := range l.byUser[userID] {
		if rec.LastShown.After(cutoff) {
			out[itemID] = struct{}{}
		}
	}
	return out
}
