// StreamSense - Subscription Intelligence and Content Discovery
// Copyright 2026 Oscar A. (artbyoscar)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/artbyoscar/streamsense-sub001

package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/artbyoscar/streamsense-sub001/internal/rank"
)

// Options configures the catalog client.
type Options struct {
	// BaseURL is the catalog service root, e.g. http://localhost:9090.
	BaseURL string

	// APIKey authenticates requests via the X-Api-Key header.
	APIKey string

	// Timeout bounds each HTTP request. Defaults to 10s.
	Timeout time.Duration

	// RequestsPerSecond is the client-side rate limit. Defaults to 10.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size. Defaults to 20.
	Burst int
}

// Client provides access to the catalog REST API. It implements
// rank.CandidateSource and rank.ListSource.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var (
	_ rank.CandidateSource = (*Client)(nil)
	_ rank.ListSource      = (*Client)(nil)
)

// NewClient creates a catalog API client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 20
	}

	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
	}
}

// catalogItem is the wire form of a catalog content entry.
type catalogItem struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Kind       string   `json:"kind"`
	Genres     []string `json:"genres"`
	Rating     float64  `json:"rating"`
	VoteCount  int      `json:"vote_count"`
	Popularity float64  `json:"popularity"`
}

func (ci catalogItem) toContentItem() rank.ContentItem {
	return rank.ContentItem{
		ID:         ci.ID,
		Title:      ci.Title,
		MediaKind:  rank.MediaKind(ci.Kind),
		Categories: ci.Genres,
		Rating:     ci.Rating,
		VoteCount:  ci.VoteCount,
		Popularity: ci.Popularity,
	}
}

// pagedItems is the wire form of a paginated content response.
type pagedItems struct {
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Results    []catalogItem `json:"results"`
}

// listEntry is the wire form of one user catalog-list row.
type listEntry struct {
	ItemID int    `json:"item_id"`
	Status string `json:"status"`
}

// FetchCandidates returns one page of candidate items matching the query.
func (c *Client) FetchCandidates(ctx context.Context, q rank.CandidateQuery) ([]rank.ContentItem, error) {
	params := url.Values{}
	if q.MediaKind != rank.MediaAny {
		params.Set("kind", string(q.MediaKind))
	}
	if len(q.Categories) > 0 {
		params.Set("genres", strings.Join(q.Categories, ","))
	}
	if q.MinVotes > 0 {
		params.Set("min_votes", strconv.Itoa(q.MinVotes))
	}
	if q.MinRating > 0 {
		params.Set("min_rating", strconv.FormatFloat(q.MinRating, 'f', 1, 64))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("page_size", strconv.Itoa(q.Limit))
	}

	var page pagedItems
	if err := c.getJSON(ctx, "/api/v1/content", params, &page); err != nil {
		return nil, fmt.Errorf("catalog candidates: %w", err)
	}
	return toContentItems(page.Results), nil
}

// Trending returns popularity-ranked items.
func (c *Client) Trending(ctx context.Context, kind rank.MediaKind, limit int) ([]rank.ContentItem, error) {
	params := url.Values{}
	if kind != rank.MediaAny {
		params.Set("kind", string(kind))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var page pagedItems
	if err := c.getJSON(ctx, "/api/v1/content/trending", params, &page); err != nil {
		return nil, fmt.Errorf("catalog trending: %w", err)
	}
	return toContentItems(page.Results), nil
}

// ItemsByID resolves catalog metadata for specific item IDs. Unknown
// IDs are silently absent from the result.
func (c *Client) ItemsByID(ctx context.Context, ids []int) ([]rank.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	params := url.Values{}
	params.Set("ids", strings.Join(parts, ","))

	var page pagedItems
	if err := c.getJSON(ctx, "/api/v1/content/batch", params, &page); err != nil {
		return nil, fmt.Errorf("catalog batch lookup: %w", err)
	}
	return toContentItems(page.Results), nil
}

// ListedItemIDs returns the IDs on the user's catalog list, regardless
// of list status.
func (c *Client) ListedItemIDs(ctx context.Context, userID string) (map[int]struct{}, error) {
	entries, err := c.UserList(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		ids[e.ItemID] = struct{}{}
	}
	return ids, nil
}

// ListItem is one user catalog-list entry.
type ListItem struct {
	ItemID int
	Status string
}

// UserList returns the user's full catalog list with statuses.
func (c *Client) UserList(ctx context.Context, userID string) ([]ListItem, error) {
	endpoint := "/api/v1/users/" + url.PathEscape(userID) + "/list"

	var entries []listEntry
	if err := c.getJSON(ctx, endpoint, nil, &entries); err != nil {
		return nil, fmt.Errorf("catalog user list: %w", err)
	}

	items := make([]ListItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ListItem{ItemID: e.ItemID, Status: e.Status})
	}
	return items, nil
}

// Ping verifies connectivity to the catalog service.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "/api/v1/ping", nil)
	if err != nil {
		return fmt.Errorf("catalog ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog ping returned status %d", resp.StatusCode)
	}
	return nil
}

// getJSON performs a GET with one retry on transient failure and
// decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	resp, err := c.doRequest(ctx, endpoint, params)
	if err != nil || isRetryable(resp) {
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, err = c.doRequest(ctx, endpoint, params)
		if err != nil {
			return err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, 512))
		if rerr != nil {
			return fmt.Errorf("catalog returned status %d (failed to read body)", resp.StatusCode)
		}
		return fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	return c.httpClient.Do(req)
}

func isRetryable(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func toContentItems(items []catalogItem) []rank.ContentItem {
	out := make([]rank.ContentItem, 0, len(items))
	for _, ci := range items {
		out = append(out, ci.toContentItem())
	}
	return out
}
