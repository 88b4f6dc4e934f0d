// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package signals

import (
	"sync"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// NegativeTracker derives rejection profiles from the impression log.
// An item shown at or beyond the threshold without engagement becomes a
// strong rejection; patterns are mined over the strong-rejection set.
//
// The profile is computed on demand from the log and item trait
// snapshots; nothing derived is stored.
type NegativeTracker struct {
	cfg rank.NegativeConfig
	log *ImpressionLog

	// traits snapshots item metadata at impression time so patterns can
	// be mined after the catalog item is no longer in hand.
	traitsMu sync.RWMutex
	traits   map[int]itemTraits
}

type itemTraits struct {
	categories []string
	rating     float64
	kind       rank.MediaKind
}

// NewNegativeTracker creates a tracker over the shared impression log.
func NewNegativeTracker(cfg rank.NegativeConfig, log *ImpressionLog) *NegativeTracker {
	if cfg.RejectionThreshold <= 0 {
		cfg.RejectionThreshold = 10
	}
	if cfg.MinPatternSupport <= 0 {
		cfg.MinPatternSupport = 3
	}
	if cfg.CategoryShare <= 0 {
		cfg.CategoryShare = 0.5
	}
	if cfg.KindSkewRatio <= 0 {
		cfg.KindSkewRatio = 2.0
	}
	return &NegativeTracker{
		cfg:    cfg,
		log:    log,
		traits: make(map[int]itemTraits),
	}
}

// RecordImpressions implements rank.NegativeSource.
func (t *NegativeTracker) RecordImpressions(userID string, items []rank.ContentItem) {
	if userID == "" || len(items) == 0 {
		return
	}

	ids := make([]int, 0, len(items))
	t.traitsMu.Lock()
	for i := range items {
		item := &items[i]
		ids = append(ids, item.ID)
		t.traits[item.ID] = itemTraits{
			categories: append([]string(nil), item.Categories...),
			rating:     item.Rating,
			kind:       item.MediaKind,
		}
	}
	t.traitsMu.Unlock()

	t.log.Record(userID, ids)
}

// MarkEngaged implements rank.NegativeSource.
func (t *NegativeTracker) MarkEngaged(userID string, itemID int) error {
	return t.log.MarkEngaged(userID, itemID)
}

// Signals implements rank.NegativeSource.
func (t *NegativeTracker) Signals(userID string) rank.NegativeSignals {
	sig := rank.NegativeSignals{
		AvoidCategories: make(map[string]float64),
	}

	for _, rec := range t.log.UserRecords(userID) {
		if rec.Engaged || rec.Count < t.cfg.RejectionThreshold {
			continue
		}
		sig.StrongRejections = append(sig.StrongRejections, rec)
	}

	if len(sig.StrongRejections) < t.cfg.MinPatternSupport {
		return sig
	}

	t.minePatterns(&sig)
	return sig
}

// minePatterns extracts category, rating-band and media-kind traits from
// the strong-rejection set. A trait is flagged only when at least
// MinPatternSupport rejections share it; share thresholds apply on top.
func (t *NegativeTracker) minePatterns(sig *rank.NegativeSignals) {
	total := float64(len(sig.StrongRejections))
	catCounts := make(map[string]int)
	bandCounts := make(map[rank.RatingBand]int)
	kindCounts := make(map[rank.MediaKind]int)

	t.traitsMu.RLock()
	for _, rec := range sig.StrongRejections {
		tr, ok := t.traits[rec.ItemID]
		if !ok {
			continue
		}
		seen := make(map[string]struct{}, len(tr.categories))
		for _, cat := range tr.categories {
			if _, dup := seen[cat]; dup {
				continue
			}
			seen[cat] = struct{}{}
			catCounts[cat]++
		}
		bandCounts[rank.BandForRating(tr.rating)]++
		kindCounts[tr.kind]++
	}
	t.traitsMu.RUnlock()

	for cat, count := range catCounts {
		if count < t.cfg.MinPatternSupport {
			continue
		}
		confidence := float64(count) / total
		if confidence >= t.cfg.CategoryShare {
			sig.AvoidCategories[cat] = confidence
			sig.Patterns = append(sig.Patterns, rank.RejectionPattern{
				Trait:      "category",
				Value:      cat,
				Confidence: confidence,
			})
		}
	}

	for _, band := range []rank.RatingBand{rank.BandLow, rank.BandMid} {
		if bandCounts[band] < t.cfg.MinPatternSupport {
			continue
		}
		confidence := float64(bandCounts[band]) / total
		if confidence >= t.cfg.CategoryShare {
			sig.AvoidRatingBand = band
			sig.Patterns = append(sig.Patterns, rank.RejectionPattern{
				Trait:      "rating_band",
				Value:      string(band),
				Confidence: confidence,
			})
			break
		}
	}

	movies := float64(kindCounts[rank.MediaMovie])
	series := float64(kindCounts[rank.MediaSeries])
	support := float64(t.cfg.MinPatternSupport)
	switch {
	case movies >= support && movies > series*t.cfg.KindSkewRatio:
		sig.AvoidMediaKind = rank.MediaMovie
	case series >= support && series > movies*t.cfg.KindSkewRatio:
		sig.AvoidMediaKind = rank.MediaSeries
	}
	if sig.AvoidMediaKind != rank.MediaAny {
		dominant := movies
		if series > movies {
			dominant = series
		}
		sig.Patterns = append(sig.Patterns, rank.RejectionPattern{
			Trait:      "media_kind",
			Value:      string(sig.AvoidMediaKind),
			Confidence: dominant / total,
		})
	}
}

// FilterCandidates implements rank.NegativeSource. An item is removed
// only when every one of its categories is on the avoid list; a single
// overlapping category is not enough to suppress multi-genre items.
func (t *NegativeTracker) FilterCandidates(userID string, items []rank.ContentItem) []rank.ContentItem {
	sig := t.Signals(userID)
	if len(sig.AvoidCategories) == 0 {
		return items
	}

	out := make([]rank.ContentItem, 0, len(items))
	for i := range items {
		item := &items[i]
		if len(item.Categories) == 0 {
			out = append(out, *item)
			continue
		}
		allAvoided := true
		for _, cat := range item.Categories {
			if _, avoided := sig.AvoidCategories[cat]; !avoided {
				allAvoided = false
				break
			}
		}
		if !allAvoided {
			out = append(out, *item)
		}
	}
	return out
}

// Ensure interface compliance.
var _ rank.NegativeSource = (*NegativeTracker)(nil)
