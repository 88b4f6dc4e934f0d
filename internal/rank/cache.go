// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import (
	"fmt"
	"sync"
	"time"
)

// responseCache memoizes completed responses per (user, limit, kind)
// for a short TTL. Any signal mutation for a user (skip, engagement)
// evicts that user's entries so stale rankings never outlive the event
// that should have changed them.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	byUser  map[string][]string
	ttl     time.Duration
	max     int
	now     func() time.Time
}

type cacheEntry struct {
	resp    *Response
	userID  string
	expires time.Time
}

func newResponseCache(ttl time.Duration, max int) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		byUser:  make(map[string][]string),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%s:%d:%s", req.UserID, req.Limit, req.MediaKind)
}

func (c *responseCache) get(req Request) (*Response, bool) {
	key := cacheKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.resp, true
}

func (c *responseCache) put(req Request, resp *Response) {
	key := cacheKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.max {
		c.evictExpiredLocked()
		if len(c.entries) >= c.max {
			// Still full of live entries; skip caching rather than
			// evicting entries that are doing useful work.
			return
		}
	}

	c.entries[key] = cacheEntry{resp: resp, userID: req.UserID, expires: c.now().Add(c.ttl)}
	c.byUser[req.UserID] = append(c.byUser[req.UserID], key)
}

// invalidateUser drops every cached response for one user.
func (c *responseCache) invalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.byUser[userID] {
		delete(c.entries, key)
	}
	delete(c.byUser, userID)
}

func (c *responseCache) evictExpiredLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
	for user, keys := range c.byUser {
		live := keys[:0]
		for _, key := range keys {
			if _, ok := c.entries[key]; ok {
				live = append(live, key)
			}
		}
		if len(live) == 0 {
			delete(c.byUser, user)
		} else {
			c.byUser[user] = live
		}
	}
}
