// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package signals

import (
	"sort"
	"sync"
	"time"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// derivedTTL bounds how long a memoized exclusion set may serve reads
// before the trailing impression window is re-derived.
const derivedTTL = time.Minute

// ExclusionState is the authoritative per-user set of items that must
// never (or not yet) be shown again, plus impression-fatigue scoring for
// items that passed the filter.
//
// The derived set is the union of three declared inputs - catalog-list
// IDs, session skips, and IDs impressioned within the trailing window -
// and is memoized until an input changes. It is always a superset of the
// catalog-list IDs.
type ExclusionState struct {
	cfg       rank.FatigueConfig
	threshold int
	log       *ImpressionLog
	persist   Persister

	mu    sync.Mutex
	users map[string]*userExclusion
	now   func() time.Time
}

type userExclusion struct {
	listIDs map[int]struct{}
	skips   map[int]struct{}

	derived map[int]struct{}
	recent  int
	builtAt time.Time
	dirty   bool
}

// NewExclusionState creates the exclusion view over the shared impression
// log. threshold is the fatigue/rejection impression threshold.
func NewExclusionState(cfg rank.FatigueConfig, threshold int, log *ImpressionLog, persist Persister) *ExclusionState {
	if cfg.DecayPerImpression <= 0 {
		cfg.DecayPerImpression = 0.15
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 0.3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 7 * 24 * time.Hour
	}
	if cfg.ReinstatedScore <= 0 {
		cfg.ReinstatedScore = 0.5
	}
	if threshold <= 0 {
		threshold = 10
	}
	return &ExclusionState{
		cfg:       cfg,
		threshold: threshold,
		log:       log,
		persist:   persist,
		users:     make(map[string]*userExclusion),
		now:       time.Now,
	}
}

// Prime implements rank.ExclusionSource. It installs the catalog-list
// baseline for the user and invalidates the memoized set.
func (s *ExclusionState) Prime(userID string, listIDs map[int]struct{}) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.listIDs = listIDs
	u.dirty = true
}

// Invalidate marks the user's derived set for rebuild. The engine calls
// this after the RECORDING stage mutates the impression log.
func (s *ExclusionState) Invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.dirty = true
	}
}

// AddSkip implements rank.ExclusionSource. The skip is additive for the
// session and also recorded as an impression so it keeps suppressing the
// item through the trailing window after a session reset.
func (s *ExclusionState) AddSkip(userID string, itemID int) {
	if userID == "" || itemID <= 0 {
		return
	}

	s.mu.Lock()
	u := s.user(userID)
	u.skips[itemID] = struct{}{}
	u.dirty = true
	s.mu.Unlock()

	s.log.Record(userID, []int{itemID})
	if s.persist != nil {
		s.persist.PersistSkip(userID, itemID, s.now())
	}
}

// ClearSession implements rank.ExclusionSource.
func (s *ExclusionState) ClearSession(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.skips = make(map[int]struct{})
		u.dirty = true
	}
}

// SeedSkips loads persisted session skips for a user.
func (s *ExclusionState) SeedSkips(userID string, itemIDs []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for _, id := range itemIDs {
		u.skips[id] = struct{}{}
	}
	u.dirty = true
}

// IsExcluded implements rank.ExclusionSource.
func (s *ExclusionState) IsExcluded(userID string, itemID int) bool {
	set := s.derivedSet(userID)
	_, excluded := set[itemID]
	return excluded
}

// Filter implements rank.ExclusionSource.
func (s *ExclusionState) Filter(userID string, items []rank.ContentItem) []rank.ContentItem {
	set := s.derivedSet(userID)
	out := make([]rank.ContentItem, 0, len(items))
	for i := range items {
		if _, excluded := set[items[i].ID]; !excluded {
			out = append(out, items[i])
		}
	}
	return out
}

// ApplyFatigue implements rank.ExclusionSource. For each surviving item:
//
//   - never shown or engaged: full score 1.0 (engagement forgives fatigue)
//   - unengaged, count below threshold: max(1 - decay*count, floor)
//   - count at/over threshold, within cooldown: dropped outright
//   - count at/over threshold, cooldown elapsed: reinstated multiplier
//
// The result is sorted descending by score * fatigue.
func (s *ExclusionState) ApplyFatigue(userID string, items []rank.ScoredItem) []rank.ScoredItem {
	now := s.now()
	out := make([]rank.ScoredItem, 0, len(items))

	for i := range items {
		item := items[i]
		item.FatigueScore = s.fatigueScore(userID, item.Item.ID, now)
		if item.FatigueScore == 0 {
			continue
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score*out[a].FatigueScore > out[b].Score*out[b].FatigueScore
	})
	return out
}

// fatigueScore computes the impression-fatigue multiplier for one item.
func (s *ExclusionState) fatigueScore(userID string, itemID int, now time.Time) float64 {
	rec, ok := s.log.Get(userID, itemID)
	if !ok || rec.Engaged {
		return 1.0
	}
	if rec.Count < s.threshold {
		score := 1.0 - s.cfg.DecayPerImpression*float64(rec.Count)
		if score < s.cfg.MinScore {
			score = s.cfg.MinScore
		}
		return score
	}
	if now.Sub(rec.LastShown) < s.cfg.Cooldown {
		return 0
	}
	return s.cfg.ReinstatedScore
}

// Stats implements rank.ExclusionSource.
func (s *ExclusionState) Stats(userID string) rank.ExclusionStats {
	set := s.derivedSet(userID)

	s.mu.Lock()
	u := s.user(userID)
	stats := rank.ExclusionStats{
		ListedItems:       len(u.listIDs),
		SessionSkips:      len(u.skips),
		RecentImpressions: u.recent,
		Total:             len(set),
	}
	s.mu.Unlock()
	return stats
}

// derivedSet returns the memoized exclusion set, rebuilding it when an
// input changed or the trailing window aged past the rebuild TTL.
func (s *ExclusionState) derivedSet(userID string) map[int]struct{} {
	s.mu.Lock()
	u := s.user(userID)
	if !u.dirty && u.derived != nil && s.now().Sub(u.builtAt) < derivedTTL {
		set := u.derived
		s.mu.Unlock()
		return set
	}
	listIDs := u.listIDs
	skips := make(map[int]struct{}, len(u.skips))
	for id := range u.skips {
		skips[id] = struct{}{}
	}
	s.mu.Unlock()

	recent := s.log.RecentIDs(userID, s.cfg.Cooldown)

	derived := make(map[int]struct{}, len(listIDs)+len(skips)+len(recent))
	for id := range listIDs {
		derived[id] = struct{}{}
	}
	for id := range skips {
		derived[id] = struct{}{}
	}
	for id := range recent {
		derived[id] = struct{}{}
	}

	s.mu.Lock()
	u = s.user(userID)
	u.derived = derived
	u.recent = len(recent)
	u.builtAt = s.now()
	u.dirty = false
	s.mu.Unlock()

	return derived
}

// user returns (creating if needed) the state for a user.
// Must be called with mu held.
func (s *ExclusionState) user(userID string) *userExclusion {
	u, ok := s.users[userID]
	if !ok {
		u = &userExclusion{
			listIDs: make(map[int]struct{}),
			skips:   make(map[int]struct{}),
			dirty:   true,
		}
		s.users[userID] = u
	}
	return u
}

// Ensure interface compliance.
var _ rank.ExclusionSource = (*ExclusionState)(nil)
