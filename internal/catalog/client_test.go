// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

const samplePage = `{
	"page": 1,
	"total_pages": 1,
	"results": [
		{"id": 101, "title": "First", "kind": "movie", "genres": ["drama", "crime"], "rating": 8.2, "vote_count": 1200, "popularity": 64.5},
		{"id": 102, "title": "Second", "kind": "series", "genres": ["comedy"], "rating": 7.1, "vote_count": 300, "popularity": 22.0}
	]
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		RequestsPerSecond: 1000,
		Burst:             1000,
	})
}

func TestFetchCandidates(t *testing.T) {
	var gotQuery, gotKey string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/content" {
			t.Errorf("path = %q, want /api/v1/content", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePage))
	})

	items, err := client.FetchCandidates(context.Background(), rank.CandidateQuery{
		MediaKind:  rank.MediaMovie,
		Categories: []string{"drama", "crime"},
		Page:       2,
		Limit:      50,
	})
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if gotKey != "test-key" {
		t.Errorf("X-Api-Key = %q, want test-key", gotKey)
	}

	first := items[0]
	if first.ID != 101 || first.MediaKind != rank.MediaMovie || first.Rating != 8.2 {
		t.Errorf("item = %+v, wire mapping broken", first)
	}
	if len(first.Categories) != 2 || first.Categories[0] != "drama" {
		t.Errorf("Categories = %v, want [drama crime]", first.Categories)
	}

	for _, fragment := range []string{"kind=movie", "genres=drama%2Ccrime", "page=2", "page_size=50"} {
		if !strings.Contains(gotQuery, fragment) {
			t.Errorf("query %q missing %q", gotQuery, fragment)
		}
	}
}

func TestTrending(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/content/trending" {
			t.Errorf("path = %q, want /api/v1/content/trending", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "15" {
			t.Errorf("limit = %q, want 15", got)
		}
		_, _ = w.Write([]byte(samplePage))
	})

	items, err := client.Trending(context.Background(), rank.MediaAny, 15)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
}

func TestItemsByID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "101,102" {
			t.Errorf("ids = %q, want 101,102", got)
		}
		_, _ = w.Write([]byte(samplePage))
	})

	items, err := client.ItemsByID(context.Background(), []int{101, 102})
	if err != nil {
		t.Fatalf("ItemsByID: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}

	// No IDs means no request at all.
	if items, err = client.ItemsByID(context.Background(), nil); err != nil || items != nil {
		t.Errorf("ItemsByID(nil) = (%v, %v), want (nil, nil)", items, err)
	}
}

func TestListedItemIDs(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users/u1/list" {
			t.Errorf("path = %q, want /api/v1/users/u1/list", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"item_id": 7, "status": "planned"},
			{"item_id": 8, "status": "consumed"},
			{"item_id": 7, "status": "planned"}
		]`))
	})

	ids, err := client.ListedItemIDs(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListedItemIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len = %d, want 2 deduplicated IDs", len(ids))
	}
	for _, want := range []int{7, 8} {
		if _, ok := ids[want]; !ok {
			t.Errorf("missing ID %d", want)
		}
	}
}

func TestGetJSONRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	})

	items, err := client.Trending(context.Background(), rank.MediaAny, 10)
	if err != nil {
		t.Fatalf("Trending after retry: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls.Load())
	}
}

func TestGetJSONNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := client.Trending(context.Background(), rank.MediaAny, 10); err == nil {
		t.Fatal("Trending = nil error on 404")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestPing(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ping" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	down := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if err := down.Ping(context.Background()); err == nil {
		t.Fatal("Ping = nil error against a failing service")
	}
}
