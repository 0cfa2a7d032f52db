// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package foursquare is a places.Provider backed by the Foursquare Places
// API. Only free core fields are requested.
package foursquare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/honeycombio/beeline-go"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/chuangbahenbccs/TravelApp/recommend/metrics"
	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

const (
	DefaultBaseURL     = "https://places-api.foursquare.com"
	DefaultAPIVersion  = "2025-06-17"
	DefaultMinInterval = time.Second

	categoryRestaurant = "13000"
	categoryAttraction = "16000"

	placeFields   = "fsq_place_id,name,latitude,longitude,location,categories,distance"
	geocodeFields = "fsq_place_id,name,latitude,longitude,location"
)

// Client paces every request it sends, across all goroutines, so a process
// should construct exactly one and share it.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	acceptLang string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithMinInterval sets the minimum spacing between dispatched requests. Zero
// disables pacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLanguage sends Accept-Language on every request.
func WithLanguage(tag language.Tag) Option {
	return func(c *Client) {
		if tag.IsRoot() {
			c.acceptLang = ""
			return
		}
		c.acceptLang = tag.String()
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("foursquare api key is required")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ places.Provider = (*Client)(nil)

func (c *Client) SearchNearby(ctx context.Context, params places.NearbySearchParams) (*places.NearbySearchResult, error) {
	ctx, span := beeline.StartSpan(ctx, "foursquare.search")
	defer span.Send()

	q := url.Values{}
	q.Set("ll", formatLL(params.Center))
	q.Set("radius", strconv.Itoa(params.RadiusOrDefault()))
	q.Set("limit", strconv.Itoa(params.LimitOrDefault()))
	q.Set("fields", placeFields)
	q.Set("categories", categoriesFor(params.Types))
	if params.Cursor != "" {
		q.Set("cursor", params.Cursor)
	}
	span.AddField("radius", params.RadiusOrDefault())
	span.AddField("ll", q.Get("ll"))

	var response SearchResponse
	header, err := c.get(ctx, "search", "/places/search", q, &response)
	if err != nil {
		span.AddField("error", err)
		return nil, err
	}
	center := params.Center
	result := &places.NearbySearchResult{
		Places:     make([]places.PlaceSummary, 0, len(response.Results)),
		NextCursor: nextCursor(header.Get("Link")),
	}
	for _, p := range response.Results {
		result.Places = append(result.Places, toSummary(p, &center))
	}
	span.AddField("results", len(result.Places))
	return result, nil
}

func (c *Client) GetPlaceDetails(ctx context.Context, placeID string) (*places.PlaceDetails, error) {
	ctx, span := beeline.StartSpan(ctx, "foursquare.details")
	defer span.Send()
	if placeID == "" {
		return nil, fmt.Errorf("empty place id: %w", places.ErrNotFound)
	}
	span.AddField("place_id", placeID)

	q := url.Values{}
	q.Set("fields", placeFields)
	var p Place
	if _, err := c.get(ctx, "details", "/places/"+url.PathEscape(placeID), q, &p); err != nil {
		span.AddField("error", err)
		return nil, err
	}
	return toDetails(p), nil
}

func (c *Client) Geocode(ctx context.Context, params places.GeocodeParams) (*places.GeocodeResult, error) {
	ctx, span := beeline.StartSpan(ctx, "foursquare.geocode")
	defer span.Send()

	q := url.Values{}
	q.Set("query", params.Query)
	q.Set("limit", "1")
	q.Set("fields", geocodeFields)
	if params.Near != nil {
		q.Set("ll", formatLL(*params.Near))
	}
	span.AddField("query", params.Query)

	var response SearchResponse
	if _, err := c.get(ctx, "geocode", "/places/search", q, &response); err != nil {
		span.AddField("error", err)
		return nil, err
	}
	if len(response.Results) == 0 {
		span.AddField("found", false)
		return nil, nil
	}
	p := response.Results[0]
	span.AddField("found", true)
	return &places.GeocodeResult{
		Name:        p.Name,
		Address:     formatAddress(p.Location),
		Coordinates: places.Coordinates{Latitude: p.Latitude, Longitude: p.Longitude},
		PlaceID:     p.ID,
	}, nil
}

// get waits for the pacer, performs the request and decodes a 2xx body into
// out. The response headers are returned for pagination.
func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, out any) (http.Header, error) {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &places.NetworkError{Op: "wait for request slot", Err: err}
	}
	metrics.PacingWait(time.Since(start))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &places.NetworkError{Op: "build foursquare request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Places-Api-Version", c.apiVersion)
	if c.acceptLang != "" {
		req.Header.Set("Accept-Language", c.acceptLang)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequest(endpoint, 0)
		return nil, &places.NetworkError{Op: "foursquare " + endpoint, Err: err}
	}
	defer resp.Body.Close()
	beeline.AddField(ctx, "status", resp.StatusCode)
	metrics.UpstreamRequest(endpoint, resp.StatusCode)

	if err := classify(resp); err != nil {
		return nil, err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, &places.NetworkError{Op: "decode foursquare " + endpoint, Status: resp.StatusCode, Err: err}
	}
	return resp.Header, nil
}

func classify(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &places.RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())}
	case http.StatusNotFound:
		return places.ErrNotFound
	case http.StatusUnauthorized:
		return &places.NetworkError{Op: "foursquare authentication", Status: resp.StatusCode, Body: "invalid or missing api key"}
	case http.StatusGone:
		return &places.NetworkError{Op: "foursquare api", Status: resp.StatusCode, Body: "endpoint retired, check api version"}
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &places.NetworkError{Op: "foursquare api", Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return places.DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now).Round(time.Second); d > 0 {
			return d
		}
		return 0
	}
	return places.DefaultRetryAfter
}

// nextCursor pulls the cursor out of a `Link: <url>; rel="next"` header.
func nextCursor(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		isNext := false
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				isNext = true
			}
		}
		if !isNext {
			continue
		}
		raw := strings.Trim(strings.TrimSpace(segments[0]), "<>")
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		return u.Query().Get("cursor")
	}
	return ""
}

func categoriesFor(types []places.PlaceType) string {
	if len(types) == 0 {
		return categoryRestaurant + "," + categoryAttraction
	}
	ids := make([]string, 0, len(types))
	for _, t := range types {
		switch t {
		case places.Restaurant:
			ids = append(ids, categoryRestaurant)
		case places.Attraction:
			ids = append(ids, categoryAttraction)
		}
	}
	return strings.Join(ids, ",")
}

func formatLL(c places.Coordinates) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}
