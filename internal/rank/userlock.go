// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import "sync"

// userLocks serializes pipeline execution per user so two concurrent
// requests for the same user cannot interleave their exclusion reads
// and impression writes. Entries are refcounted and removed once the
// last holder releases, keeping the map bounded by in-flight users.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLockEntry
}

type userLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLockEntry)}
}

// acquire blocks until the per-user lock is held. The returned release
// function must be called exactly once.
func (l *userLocks) acquire(userID string) (release func()) {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLockEntry{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
