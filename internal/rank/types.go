// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package rank

import (
	"context"
	"time"
)

// MediaKind classifies catalog content.
type MediaKind string

const (
	// MediaMovie is standalone film content.
	MediaMovie MediaKind = "movie"
	// MediaSeries is episodic content.
	MediaSeries MediaKind = "series"
	// MediaAny matches either kind in filters.
	MediaAny MediaKind = ""
)

// ListStatus is a user's catalog-list state for an item.
// Interaction ratings are derived deterministically from it.
type ListStatus int

const (
	// StatusConsumed means the user finished the content.
	StatusConsumed ListStatus = iota
	// StatusInProgress means the user is partway through.
	StatusInProgress
	// StatusPlanned means the user queued the content.
	StatusPlanned
	// StatusDismissed means the user explicitly removed the content.
	StatusDismissed
)

// String returns a human-readable name for the list status.
func (s ListStatus) String() string {
	switch s {
	case StatusConsumed:
		return "consumed"
	case StatusInProgress:
		return "in_progress"
	case StatusPlanned:
		return "planned"
	case StatusDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// Rating returns the implicit rating derived from the list status.
func (s ListStatus) Rating() float64 {
	switch s {
	case StatusConsumed:
		return 5.0
	case StatusInProgress:
		return 4.0
	case StatusPlanned:
		return 3.0
	case StatusDismissed:
		return 1.0
	default:
		return 0.0
	}
}

// ContentItem is an immutable snapshot of a catalog item.
// It is fetched per request and never owned by this subsystem.
type ContentItem struct {
	// ID is the external catalog identifier.
	ID int `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// MediaKind is movie or series.
	MediaKind MediaKind `json:"media_kind"`

	// Categories is the set of category/genre tags.
	Categories []string `json:"categories"`

	// Rating is the catalog quality rating (0-10).
	Rating float64 `json:"rating"`

	// VoteCount is the number of catalog votes behind Rating.
	VoteCount int `json:"vote_count"`

	// Popularity is the catalog popularity metric.
	Popularity float64 `json:"popularity"`
}

// PrimaryCategory returns the item's dominant category tag, or "" if untagged.
func (c ContentItem) PrimaryCategory() string {
	if len(c.Categories) == 0 {
		return ""
	}
	return c.Categories[0]
}

// InteractionRecord is one (user, item, rating) observation.
// The log is append-only per user; a status change appends a new record
// and the matrix builder keeps the most recent per (user, item).
type InteractionRecord struct {
	UserID    string    `json:"user_id"`
	ItemID    int       `json:"item_id"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// ImpressionRecord tracks how often an item was shown to a user.
// A (user, item) pair appears at most once; Count accumulates.
// Once Engaged is true the count is frozen.
type ImpressionRecord struct {
	UserID    string    `json:"user_id"`
	ItemID    int       `json:"item_id"`
	Count     int       `json:"count"`
	LastShown time.Time `json:"last_shown"`
	Engaged   bool      `json:"engaged"`
}

// AffinityRecord is a per-(user, category) preference accumulator.
// RawScore is mutated additively; decay is applied only at read time.
type AffinityRecord struct {
	UserID          string    `json:"user_id"`
	Category        string    `json:"category"`
	RawScore        float64   `json:"raw_score"`
	LastInteraction time.Time `json:"last_interaction"`
}

// CategoryAffinity is a read-time view of an affinity record with decay applied.
type CategoryAffinity struct {
	Category       string  `json:"category"`
	EffectiveScore float64 `json:"effective_score"`
	RawScore       float64 `json:"raw_score"`
}

// RatingBand labels a catalog-rating range for rejection mining.
type RatingBand string

const (
	// BandLow covers catalog ratings below 6.0.
	BandLow RatingBand = "low"
	// BandMid covers catalog ratings in [6.0, 7.5).
	BandMid RatingBand = "mid"
	// BandHigh covers catalog ratings of 7.5 and above.
	BandHigh RatingBand = "high"
)

// BandForRating maps a catalog rating to its band.
func BandForRating(rating float64) RatingBand {
	switch {
	case rating < 6.0:
		return BandLow
	case rating < 7.5:
		return BandMid
	default:
		return BandHigh
	}
}

// RejectionPattern summarizes a trait shared by strong rejections.
type RejectionPattern struct {
	// Trait is the pattern kind: "category", "rating_band", or "media_kind".
	Trait string `json:"trait"`

	// Value is the shared trait value (category name, band, or kind).
	Value string `json:"value"`

	// Confidence is the fraction of strong rejections sharing the trait, in [0,1].
	Confidence float64 `json:"confidence"`
}

// NegativeSignals is the derived rejection profile for a user.
// It is computed on demand and never stored.
type NegativeSignals struct {
	// StrongRejections are items shown at or beyond the impression
	// threshold without engagement.
	StrongRejections []ImpressionRecord `json:"strong_rejections"`

	// Patterns are traits mined from the strong-rejection set.
	Patterns []RejectionPattern `json:"patterns"`

	// AvoidCategories maps flagged categories to their confidence.
	AvoidCategories map[string]float64 `json:"avoid_categories"`

	// AvoidRatingBand is the flagged rating band, or "" if none.
	AvoidRatingBand RatingBand `json:"avoid_rating_band,omitempty"`

	// AvoidMediaKind is the flagged media kind, or "" if no skew.
	AvoidMediaKind MediaKind `json:"avoid_media_kind,omitempty"`
}

// ScoredItem is a candidate item with its blended ranking score.
type ScoredItem struct {
	// Item is the content item snapshot.
	Item ContentItem `json:"item"`

	// Score is the blended relevance score before fatigue adjustment.
	Score float64 `json:"score"`

	// Scores is a per-rule breakdown of the blended score.
	Scores map[string]float64 `json:"scores,omitempty"`

	// FatigueScore is the impression-fatigue multiplier in [0,1].
	FatigueScore float64 `json:"fatigue_score,omitempty"`

	// Collaborative marks items injected from cross-user recommendations.
	Collaborative bool `json:"collaborative,omitempty"`
}

// Request is a ranking request.
type Request struct {
	// UserID identifies the user. Empty or malformed IDs are rejected
	// at the engine boundary with an empty result.
	UserID string `json:"user_id"`

	// Limit is the number of items to return.
	// Defaults to Config.Limits.DefaultLimit if zero.
	Limit int `json:"limit,omitempty"`

	// MediaKind restricts results to one kind; MediaAny returns both.
	MediaKind MediaKind `json:"media_kind,omitempty"`

	// ForceRefresh bypasses the engine response cache.
	ForceRefresh bool `json:"force_refresh,omitempty"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// Response is an ordered recommendation list with diagnostics.
type Response struct {
	Items    []ScoredItem     `json:"items"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata carries timing and pipeline diagnostics.
type ResponseMetadata struct {
	RequestID       string    `json:"request_id"`
	UserID          string    `json:"user_id"`
	StagesRun       []string  `json:"stages_run"`
	Fallback        bool      `json:"fallback"`
	CacheHit        bool      `json:"cache_hit"`
	TotalCandidates int       `json:"total_candidates"`
	LatencyMS       int64     `json:"latency_ms"`
	ModelGeneration int       `json:"model_generation"`
	Timestamp       time.Time `json:"timestamp"`
}

// ExclusionStats reports per-source exclusion counts for diagnostics.
type ExclusionStats struct {
	ListedItems       int `json:"listed_items"`
	SessionSkips      int `json:"session_skips"`
	RecentImpressions int `json:"recent_impressions"`
	Total             int `json:"total"`
}

// ScoredID pairs an item ID with a predicted score.
type ScoredID struct {
	ItemID int     `json:"item_id"`
	Score  float64 `json:"score"`
}

// CandidateQuery parameterizes a catalog candidate fetch.
type CandidateQuery struct {
	MediaKind  MediaKind
	Categories []string
	MinVotes   int
	MinRating  float64
	Page       int
	Limit      int
}

// CandidateSource supplies raw candidate items from the external catalog.
type CandidateSource interface {
	// FetchCandidates returns a page of candidate items. Implementations
	// must tolerate pagination and return partial results on transient
	// failure rather than failing the whole call.
	FetchCandidates(ctx context.Context, q CandidateQuery) ([]ContentItem, error)

	// Trending returns popularity-ranked items for the fallback path.
	Trending(ctx context.Context, kind MediaKind, limit int) ([]ContentItem, error)

	// ItemsByID resolves catalog metadata for specific items, used to
	// materialize collaborative picks absent from the candidate page.
	ItemsByID(ctx context.Context, ids []int) ([]ContentItem, error)
}

// ListSource supplies the user's catalog-list item IDs, the mandatory
// exclusion baseline.
type ListSource interface {
	ListedItemIDs(ctx context.Context, userID string) (map[int]struct{}, error)
}

// AffinitySource reads decayed category preferences.
type AffinitySource interface {
	// TopCategories returns up to n categories ordered by effective score.
	TopCategories(userID string, n int, applyDecay bool) []CategoryAffinity

	// EffectiveScore returns the decayed score for one category.
	EffectiveScore(userID, category string, now time.Time) float64
}

// LatentSource serves latent-factor predictions from the most recently
// completed model generation. It never blocks on in-progress factorization.
type LatentSource interface {
	// PredictRating predicts a rating in [1,5]; ok is false if either ID
	// was unseen at training time or no model is available.
	PredictRating(userID string, itemID int) (rating float64, ok bool)

	// Recommendations returns cached cross-user top-N predictions for the
	// user, recomputing synchronously for that user if the cache is stale.
	Recommendations(ctx context.Context, userID string) ([]ScoredID, error)

	// Generation returns the current model generation (0 if untrained).
	Generation() int
}

// NegativeSource filters candidates by mined rejection patterns and
// records impressions fed back from the RECORDING stage.
type NegativeSource interface {
	// Signals returns the derived rejection profile.
	Signals(userID string) NegativeSignals

	// FilterCandidates removes items whose categories are all on the
	// avoid list. Single-category overlap is insufficient.
	FilterCandidates(userID string, items []ContentItem) []ContentItem

	// RecordImpressions increments impression counts for shown items.
	RecordImpressions(userID string, items []ContentItem)

	// MarkEngaged freezes impression counting for the item.
	MarkEngaged(userID string, itemID int) error
}

// ExclusionSource is the authoritative set of items that must never
// (or not yet) be shown again, plus fatigue scoring for survivors.
type ExclusionSource interface {
	// Prime loads the user's exclusion inputs. listIDs is the catalog-list
	// baseline; the derived set is memoized until an input changes.
	Prime(userID string, listIDs map[int]struct{})

	// IsExcluded reports whether the item is in the exclusion set.
	IsExcluded(userID string, itemID int) bool

	// Filter removes excluded items, preserving order.
	Filter(userID string, items []ContentItem) []ContentItem

	// AddSkip records a session skip for the item.
	AddSkip(userID string, itemID int)

	// ClearSession clears session skips (skips remain folded into the
	// trailing-window exclusion via the impression log).
	ClearSession(userID string)

	// ApplyFatigue attaches fatigue multipliers, drops zero-score items
	// and sorts descending by score * fatigue.
	ApplyFatigue(userID string, items []ScoredItem) []ScoredItem

	// Stats returns per-source exclusion counts.
	Stats(userID string) ExclusionStats
}

// Reranker reorders a scored list for a secondary objective such as
// category diversity.
type Reranker interface {
	Name() string
	Rerank(ctx context.Context, items []ScoredItem, limit int) []ScoredItem
}

// Enricher is an optional best-effort augmentation hook (for example an
// LLM-backed annotator). Failures are swallowed; it must never block the
// core pipeline beyond its timeout.
type Enricher interface {
	Enrich(ctx context.Context, userID string, items []ScoredItem) ([]ScoredItem, error)
}

// TrainingStatus reports the latent model lifecycle for diagnostics.
type TrainingStatus struct {
	Generation    int       `json:"generation"`
	TrainedAt     time.Time `json:"trained_at"`
	UserCount     int       `json:"user_count"`
	ItemCount     int       `json:"item_count"`
	Rank          int       `json:"rank"`
	LastError     string    `json:"last_error,omitempty"`
	LastDurationM int64     `json:"last_duration_ms"`
}
