// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package latent

import (
	"sort"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// Rating bounds for reconstructed predictions.
const (
	minRating = 1.0
	maxRating = 5.0
)

// Model is a truncated latent factor decomposition of a rating matrix.
// Models are immutable after factorization; prediction is a pure function
// and safe to call from any goroutine.
type Model struct {
	// UserFactors is the U matrix (numUsers x Rank).
	UserFactors [][]float64 `json:"user_factors"`

	// SingularValues holds the Rank largest singular values, descending.
	SingularValues []float64 `json:"singular_values"`

	// ItemFactors is the V matrix (numItems x Rank).
	ItemFactors [][]float64 `json:"item_factors"`

	// Rank is the truncation rank k actually used.
	Rank int `json:"rank"`

	// UserIndex maps user ID to U row.
	UserIndex map[string]int `json:"user_index"`

	// ItemIndex maps item ID to V row.
	ItemIndex map[int]int `json:"item_index"`

	// IndexToItem maps V row back to item ID.
	IndexToItem []int `json:"index_to_item"`

	// Confidence is the per-item fraction of factor-loading mass captured
	// by the kept factors. Higher means the dominant factors represent
	// the item well and its predictions are more trustworthy.
	Confidence []float64 `json:"confidence"`

	// observed holds each training user's rated item set, used to exclude
	// already-rated items from batch recommendations.
	observed map[string]map[int]struct{}
}

// Predict reconstructs the rating for a (user, item) pair, clamped into
// [1, 5]. ok is false when either ID was unseen at training time.
func (m *Model) Predict(userID string, itemID int) (float64, bool) {
	if m == nil {
		return 0, false
	}
	ui, ok := m.UserIndex[userID]
	if !ok {
		return 0, false
	}
	ii, ok := m.ItemIndex[itemID]
	if !ok {
		return 0, false
	}

	var sum float64
	for f := 0; f < m.Rank; f++ {
		sum += m.UserFactors[ui][f] * m.SingularValues[f] * m.ItemFactors[ii][f]
	}

	if sum < minRating {
		sum = minRating
	}
	if sum > maxRating {
		sum = maxRating
	}
	return sum, true
}

// PredictionConfidence returns the item's factor-representation confidence
// in [0, 1], or 0 for unseen items.
func (m *Model) PredictionConfidence(itemID int) float64 {
	if m == nil {
		return 0
	}
	ii, ok := m.ItemIndex[itemID]
	if !ok {
		return 0
	}
	return m.Confidence[ii]
}

// TopNForUser ranks every trained item the user has not already rated by
// predicted rating and returns the best n.
func (m *Model) TopNForUser(userID string, n int) []rank.ScoredID {
	if m == nil || n <= 0 {
		return nil
	}
	if _, ok := m.UserIndex[userID]; !ok {
		return nil
	}

	seen := m.observed[userID]
	preds := make([]rank.ScoredID, 0, len(m.IndexToItem))
	for _, itemID := range m.IndexToItem {
		if _, rated := seen[itemID]; rated {
			continue
		}
		score, ok := m.Predict(userID, itemID)
		if !ok {
			continue
		}
		preds = append(preds, rank.ScoredID{ItemID: itemID, Score: score})
	}

	sort.SliceStable(preds, func(a, b int) bool {
		return preds[a].Score > preds[b].Score
	})
	if len(preds) > n {
		preds = preds[:n]
	}
	return preds
}

// observedItems exports the per-user rated item sets for serialization.
func (m *Model) observedItems() map[string][]int {
	out := make(map[string][]int, len(m.observed))
	for user, set := range m.observed {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out[user] = ids
	}
	return out
}

// setObserved rebuilds the rated item sets after deserialization.
func (m *Model) setObserved(in map[string][]int) {
	m.observed = make(map[string]map[int]struct{}, len(in))
	for user, ids := range in {
		set := make(map[int]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		m.observed[user] = set
	}
}

// Users returns the user IDs present in the training window.
func (m *Model) Users() []string {
	if m == nil {
		return nil
	}
	users := make([]string, 0, len(m.UserIndex))
	for u := range m.UserIndex {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}
