// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/artbyoscar/streamsense-sub001/internal/config"
	"github.com/artbyoscar/streamsense-sub001/internal/logging"
	"github.com/artbyoscar/streamsense-sub001/internal/rank"
	"github.com/artbyoscar/streamsense-sub001/internal/rank/latent"
	"github.com/artbyoscar/streamsense-sub001/internal/rank/signals"
)

type fakeCatalog struct{}

func (fakeCatalog) FetchCandidates(_ context.Context, q rank.CandidateQuery) ([]rank.ContentItem, error) {
	if q.Page > 1 {
		return nil, nil
	}
	return []rank.ContentItem{
		{ID: 1, Title: "One", MediaKind: rank.MediaMovie, Categories: []string{"drama"}, Rating: 8, Popularity: 50},
		{ID: 2, Title: "Two", MediaKind: rank.MediaMovie, Categories: []string{"drama"}, Rating: 7, Popularity: 40},
	}, nil
}

func (fakeCatalog) Trending(context.Context, rank.MediaKind, int) ([]rank.ContentItem, error) {
	return []rank.ContentItem{
		{ID: 3, Title: "Trend", MediaKind: rank.MediaMovie, Categories: []string{"action"}, Rating: 7, Popularity: 90},
	}, nil
}

func (fakeCatalog) ItemsByID(context.Context, []int) ([]rank.ContentItem, error) {
	return nil, nil
}

type fakeLists struct{}

func (fakeLists) ListedItemIDs(context.Context, string) (map[int]struct{}, error) {
	return map[int]struct{}{}, nil
}

type captureSink struct {
	records []rank.InteractionRecord
}

func (s *captureSink) PersistInteraction(rec rank.InteractionRecord) {
	s.records = append(s.records, rec)
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

type handlerFixture struct {
	handler  *Handler
	router   http.Handler
	affinity *signals.AffinityTracker
	sink     *captureSink
	pinger   *fakePinger
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	logger := logging.NewTestLogger(io.Discard)

	implog := signals.NewImpressionLog(nil)
	cfg := rank.DefaultConfig()
	affinity := signals.NewAffinityTracker(cfg.Affinity, nil)
	negative := signals.NewNegativeTracker(cfg.Negative, implog)
	exclusion := signals.NewExclusionState(cfg.Fatigue, cfg.Negative.RejectionThreshold, implog, nil)
	recommender := latent.NewRecommender(cfg.Latent, nil, logger)

	engine, err := rank.NewEngine(cfg, rank.Deps{
		Catalog:   fakeCatalog{},
		Lists:     fakeLists{},
		Affinity:  affinity,
		Latent:    recommender,
		Negative:  negative,
		Exclusion: exclusion,
	}, logger)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	sink := &captureSink{}
	pinger := &fakePinger{}
	h := NewHandler(engine, affinity, sink, pinger, logger)
	return &handlerFixture{
		handler:  h,
		router:   NewRouter(config.APIConfig{}, h),
		affinity: affinity,
		sink:     sink,
		pinger:   pinger,
	}
}

func (f *handlerFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRecommendationsEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/recommendations?user_id=u1&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got == "" {
		t.Error("X-Request-ID header missing")
	}

	var resp rank.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// A user with no history rides the trending fallback.
	if !resp.Metadata.Fallback {
		t.Error("Fallback = false for a cold user")
	}
	if len(resp.Items) == 0 {
		t.Error("empty item list from trending fallback")
	}
}

func TestRecommendationsEndpointEmptyForMissingUser(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/recommendations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (read path degrades)", rec.Code)
	}
	var resp rank.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(resp.Items))
	}
}

func TestRecommendationsEndpointValidation(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name   string
		target string
	}{
		{"non-numeric limit", "/api/v1/recommendations?user_id=u1&limit=abc"},
		{"negative limit", "/api/v1/recommendations?user_id=u1&limit=-5"},
		{"unknown kind", "/api/v1/recommendations?user_id=u1&kind=podcast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, http.MethodGet, tt.target, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSkipEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"user_id": "u1", "item_id": 42}`, http.StatusAccepted},
		{"malformed json", `{"user_id": `, http.StatusBadRequest},
		{"missing item", `{"user_id": "u1"}`, http.StatusBadRequest},
		{"negative item", `{"user_id": "u1", "item_id": -1}`, http.StatusBadRequest},
		{"missing user", `{"item_id": 42}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/recommendations/skip", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestEngagedEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/recommendations/engaged", `{"user_id": "u1", "item_id": 42}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestClearSessionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/recommendations/session/clear", `{"user_id": "u1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/v1/recommendations/session/clear", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing user", rec.Code)
	}
}

func TestExclusionsEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/recommendations/exclusions?user_id=u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats rank.ExclusionStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}

	if rec := f.do(t, http.MethodGet, "/api/v1/recommendations/exclusions", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing user", rec.Code)
	}
}

func TestInteractionEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = time.Now }()

	body := `{"user_id": "u1", "item_id": 42, "status": "consumed", "categories": ["drama", "crime"]}`
	rec := f.do(t, http.MethodPost, "/api/v1/interactions", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}

	// The interaction lands in the durable log with the status-implied rating.
	if len(f.sink.records) != 1 {
		t.Fatalf("sink records = %d, want 1", len(f.sink.records))
	}
	got := f.sink.records[0]
	if got.Rating != 5.0 || got.ItemID != 42 || !got.Timestamp.Equal(fixed) {
		t.Errorf("record = %+v, want rating 5 at fixed time", got)
	}

	// Affinity profile was updated for both categories.
	top := f.affinity.TopCategories("u1", 0, false)
	if len(top) != 2 {
		t.Fatalf("affinity categories = %d, want 2", len(top))
	}
}

func TestInteractionEndpointExplicitRating(t *testing.T) {
	f := newHandlerFixture(t)

	body := `{"user_id": "u1", "item_id": 42, "status": "in_progress", "categories": ["drama"], "rating": 2}`
	rec := f.do(t, http.MethodPost, "/api/v1/interactions", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if got := f.sink.records[0].Rating; got != 2.0 {
		t.Errorf("rating = %v, want explicit 2.0 over status-implied", got)
	}

	// start (+2) with low rating (-1) nets +1 on the category.
	top := f.affinity.TopCategories("u1", 0, false)
	if len(top) != 1 || top[0].RawScore != 1.0 {
		t.Errorf("affinity = %+v, want drama at raw score 1.0", top)
	}
}

func TestInteractionEndpointValidation(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"unknown status", `{"user_id": "u1", "item_id": 42, "status": "watching"}`},
		{"rating out of range", `{"user_id": "u1", "item_id": 42, "status": "consumed", "rating": 9}`},
		{"missing status", `{"user_id": "u1", "item_id": 42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/interactions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	for _, key := range []string{"training", "requests", "fallbacks", "errors"} {
		if _, ok := body[key]; !ok {
			t.Errorf("status body missing %q", key)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	f := newHandlerFixture(t)

	if rec := f.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, want 200", rec.Code)
	}

	f.pinger.err = errors.New("catalog down")
	if rec := f.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz status = %d, want 503 when catalog is unreachable", rec.Code)
	}
}

func TestRequestIDAdoptsCallerValue(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "caller-supplied" {
		t.Errorf("X-Request-ID = %q, want caller-supplied", got)
	}
}
