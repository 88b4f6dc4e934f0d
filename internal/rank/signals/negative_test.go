// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package signals

import (
	"testing"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

func item(id int, kind rank.MediaKind, rating float64, categories ...string) rank.ContentItem {
	return rank.ContentItem{ID: id, MediaKind: kind, Rating: rating, Categories: categories}
}

// showTimes records the item for a user n times through the tracker.
func showTimes(t *NegativeTracker, userID string, it rank.ContentItem, n int) {
	for i := 0; i < n; i++ {
		t.RecordImpressions(userID, []rank.ContentItem{it})
	}
}

func TestNegativeRejectionThreshold(t *testing.T) {
	tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))

	showTimes(tr, "u1", item(10, rank.MediaMovie, 8, "drama"), 9)
	if sig := tr.Signals("u1"); len(sig.StrongRejections) != 0 {
		t.Fatalf("rejections below threshold = %d, want 0", len(sig.StrongRejections))
	}

	showTimes(tr, "u1", item(10, rank.MediaMovie, 8, "drama"), 1)
	if sig := tr.Signals("u1"); len(sig.StrongRejections) != 1 {
		t.Fatalf("rejections at threshold = %d, want 1", len(sig.StrongRejections))
	}
}

func TestNegativeEngagementClearsRejection(t *testing.T) {
	tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))
	showTimes(tr, "u1", item(10, rank.MediaMovie, 8, "drama"), 12)
	if err := tr.MarkEngaged("u1", 10); err != nil {
		t.Fatalf("MarkEngaged: %v", err)
	}
	if sig := tr.Signals("u1"); len(sig.StrongRejections) != 0 {
		t.Fatalf("engaged item still rejected: %d", len(sig.StrongRejections))
	}
}

func TestNegativePatternSupport(t *testing.T) {
	tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))

	// Two strong rejections: below the minimum support, no patterns.
	showTimes(tr, "u1", item(10, rank.MediaMovie, 8, "horror"), 10)
	showTimes(tr, "u1", item(11, rank.MediaMovie, 8, "horror"), 10)
	sig := tr.Signals("u1")
	if len(sig.Patterns) != 0 || len(sig.AvoidCategories) != 0 {
		t.Fatalf("patterns with support 2 = %+v, want none", sig.Patterns)
	}

	// Third rejection crosses the support bar.
	showTimes(tr, "u1", item(12, rank.MediaMovie, 8, "horror"), 10)
	sig = tr.Signals("u1")
	if conf, ok := sig.AvoidCategories["horror"]; !ok || conf != 1.0 {
		t.Fatalf("AvoidCategories = %v, want horror at confidence 1.0", sig.AvoidCategories)
	}
}

func TestNegativeCategoryShare(t *testing.T) {
	tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))

	// horror appears in 3 of 6 rejections (50%), thriller in 2 (33%).
	showTimes(tr, "u1", item(10, rank.MediaMovie, 8, "horror"), 10)
	showTimes(tr, "u1", item(11, rank.MediaMovie, 8, "horror"), 10)
	showTimes(tr, "u1", item(12, rank.MediaMovie, 8, "horror"), 10)
	showTimes(tr, "u1", item(13, rank.MediaMovie, 8, "thriller"), 10)
	showTimes(tr, "u1", item(14, rank.MediaMovie, 8, "thriller"), 10)
	showTimes(tr, "u1", item(15, rank.MediaMovie, 8, "comedy"), 10)

	sig := tr.Signals("u1")
	if _, ok := sig.AvoidCategories["horror"]; !ok {
		t.Error("horror at exactly 50% share not avoided")
	}
	if _, ok := sig.AvoidCategories["thriller"]; ok {
		t.Error("thriller at 33% share avoided")
	}
}

func TestNegativeTraitSupport(t *testing.T) {
	tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))

	// Four strong rejections, but only two share "action": half the set
	// by share, yet below the minimum trait support of three.
	showTimes(tr, "u1", item(10, rank.MediaMovie, 8, "action"), 10)
	showTimes(tr, "u1", item(11, rank.MediaMovie, 8, "action"), 10)
	showTimes(tr, "u1", item(12, rank.MediaMovie, 8, "drama"), 10)
	showTimes(tr, "u1", item(13, rank.MediaMovie, 8, "comedy"), 10)

	sig := tr.Signals("u1")
	if len(sig.StrongRejections) != 4 {
		t.Fatalf("strong rejections = %d, want 4", len(sig.StrongRejections))
	}
	if _, ok := sig.AvoidCategories["action"]; ok {
		t.Error("category avoided with only 2 supporting rejections")
	}
}

func TestNegativeKindSkew(t *testing.T) {
	tests := []struct {
		name   string
		movies int
		series int
		want   rank.MediaKind
	}{
		{"strong movie skew", 5, 1, rank.MediaMovie},
		{"strong series skew", 1, 5, rank.MediaSeries},
		{"exactly 2:1 is not a skew", 4, 2, rank.MediaAny},
		{"balanced", 3, 3, rank.MediaAny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))
			id := 100
			for i := 0; i < tt.movies; i++ {
				showTimes(tr, "u1", item(id, rank.MediaMovie, 8, "drama"), 10)
				id++
			}
			for i := 0; i < tt.series; i++ {
				showTimes(tr, "u1", item(id, rank.MediaSeries, 8, "drama"), 10)
				id++
			}
			if got := tr.Signals("u1").AvoidMediaKind; got != tt.want {
				t.Errorf("AvoidMediaKind = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNegativeRatingBandPattern(t *testing.T) {
	tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))
	showTimes(tr, "u1", item(10, rank.MediaMovie, 4.5, "drama"), 10)
	showTimes(tr, "u1", item(11, rank.MediaMovie, 5.0, "comedy"), 10)
	showTimes(tr, "u1", item(12, rank.MediaMovie, 3.0, "action"), 10)

	if got := tr.Signals("u1").AvoidRatingBand; got != rank.BandLow {
		t.Errorf("AvoidRatingBand = %q, want %q", got, rank.BandLow)
	}
}

func TestNegativeFilterCandidates(t *testing.T) {
	tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))
	// Establish horror and slasher as avoided categories.
	showTimes(tr, "u1", item(10, rank.MediaMovie, 8, "horror", "slasher"), 10)
	showTimes(tr, "u1", item(11, rank.MediaMovie, 8, "horror", "slasher"), 10)
	showTimes(tr, "u1", item(12, rank.MediaMovie, 8, "horror", "slasher"), 10)

	candidates := []rank.ContentItem{
		item(20, rank.MediaMovie, 7, "horror", "slasher"), // fully avoided
		item(21, rank.MediaMovie, 7, "horror", "comedy"),  // partial overlap survives
		item(22, rank.MediaMovie, 7, "drama"),             // untouched
		item(23, rank.MediaMovie, 7),                      // no categories survives
	}
	got := tr.FilterCandidates("u1", candidates)
	ids := make(map[int]bool, len(got))
	for _, it := range got {
		ids[it.ID] = true
	}
	if ids[20] {
		t.Error("item with every category avoided survived")
	}
	for _, want := range []int{21, 22, 23} {
		if !ids[want] {
			t.Errorf("item %d filtered, want kept", want)
		}
	}
}

func TestNegativeFilterNoProfilePassthrough(t *testing.T) {
	tr := NewNegativeTracker(rank.NegativeConfig{}, NewImpressionLog(nil))
	candidates := []rank.ContentItem{item(20, rank.MediaMovie, 7, "horror")}
	if got := tr.FilterCandidates("u1", candidates); len(got) != 1 {
		t.Fatalf("filtered %d items with no rejection profile, want passthrough", len(candidates)-len(got))
	}
}
