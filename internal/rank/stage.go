// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

// Stage identifies one step of the ranking pipeline state machine.
// Transitions are strictly sequential and non-branching except for the
// StageFallback escape, reachable from any failure point before scoring.
type Stage int

const (
	// StageFetching pulls raw candidates from the external catalog.
	StageFetching Stage = iota
	// StageExcluding applies the exclusion-set filter.
	StageExcluding
	// StageNegativeFiltering applies mined rejection patterns.
	StageNegativeFiltering
	// StageScoring blends affinity, latent and collaborative signals.
	StageScoring
	// StageFatigueAdjusting applies impression-fatigue multipliers.
	StageFatigueAdjusting
	// StageDiversifying bounds category runs and share.
	StageDiversifying
	// StageRecording marks returned items as impressioned.
	StageRecording
	// StageDone is the terminal state.
	StageDone
	// StageFallback serves trending content with exclusion filtering only.
	StageFallback
)

// String returns the stage identifier used in logs and metrics.
func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching_candidates"
	case StageExcluding:
		return "excluding"
	case StageNegativeFiltering:
		return "negative_filtering"
	case StageScoring:
		return "scoring"
	case StageFatigueAdjusting:
		return "fatigue_adjusting"
	case StageDiversifying:
		return "diversifying"
	case StageRecording:
		return "recording"
	case StageDone:
		return "done"
	case StageFallback:
		return "fallback"
	default:
		return "unknown"
	}
}
