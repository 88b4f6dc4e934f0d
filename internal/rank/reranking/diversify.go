// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

// Package reranking implements post-processing over the scored list,
// bounding how much any single category dominates the final window.
package reranking

import (
	"context"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// Diversifier reorders a scored list so that no run of items shares a
// primary category beyond maxConsecutive and no category exceeds
// floor(N * maxShare) of the final window.
//
// The algorithm is a greedy single pass: at each step it scans the
// remaining candidates in existing order and selects the first whose
// primary category is under both caps. When nothing qualifies, the
// share cap is relaxed for the head of the remaining list so that
// constrained supply still fills the window; the run cap is never
// relaxed, and a head that would extend a run past it is dropped. The
// pass terminates in O(N^2) worst case, and the output shrinks below
// the available supply only when the run cap is structurally
// infeasible for the input distribution (a single category dominating
// most of the pool).
type Diversifier struct {
	maxConsecutive int
	maxShare       float64
}

// NewDiversifier creates a diversifier with the given caps.
func NewDiversifier(maxConsecutive int, maxShare float64) *Diversifier {
	if maxConsecutive < 1 {
		maxConsecutive = 2
	}
	if maxShare <= 0 || maxShare > 1 {
		maxShare = 0.3
	}
	return &Diversifier{
		maxConsecutive: maxConsecutive,
		maxShare:       maxShare,
	}
}

// Name returns the reranker identifier.
func (d *Diversifier) Name() string {
	return "diversify"
}

// Rerank implements rank.Reranker.
func (d *Diversifier) Rerank(_ context.Context, items []rank.ScoredItem, limit int) []rank.ScoredItem {
	if len(items) == 0 {
		return items
	}

	n := limit
	if n <= 0 || n > len(items) {
		n = len(items)
	}

	shareCap := int(float64(n) * d.maxShare)
	if shareCap < 1 {
		shareCap = 1
	}

	remaining := make([]rank.ScoredItem, len(items))
	copy(remaining, items)

	selected := make([]rank.ScoredItem, 0, n)
	counts := make(map[string]int)

	for len(selected) < n && len(remaining) > 0 {
		pick := -1
		for idx := range remaining {
			cat := remaining[idx].Item.PrimaryCategory()
			if counts[cat] >= shareCap {
				continue
			}
			if tailRun(selected, cat) >= d.maxConsecutive {
				continue
			}
			pick = idx
			break
		}

		if pick < 0 {
			// Everything left is share-capped. Take the head anyway so
			// constrained supply fills the window, unless it would extend
			// the tail run past the cap; that head is unplaceable and is
			// dropped.
			cat := remaining[0].Item.PrimaryCategory()
			if tailRun(selected, cat) >= d.maxConsecutive {
				remaining = remaining[1:]
				continue
			}
			pick = 0
		}

		selected = append(selected, remaining[pick])
		counts[remaining[pick].Item.PrimaryCategory()]++
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}

	return selected
}

// tailRun counts how many items at the tail of selected share cat.
func tailRun(selected []rank.ScoredItem, cat string) int {
	run := 0
	for i := len(selected) - 1; i >= 0; i-- {
		if selected[i].Item.PrimaryCategory() != cat {
			break
		}
		run++
	}
	return run
}

// Ensure interface compliance.
var _ rank.Reranker = (*Diversifier)(nil)
