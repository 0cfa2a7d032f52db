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

package recommend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/chuangbahenbccs/TravelApp/recommend/cache/sqlitecache"
	"github.com/chuangbahenbccs/TravelApp/recommend/connectivity"
	"github.com/chuangbahenbccs/TravelApp/recommend/nearby"
	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

type stubProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *stubProvider) SearchNearby(ctx context.Context, params places.NearbySearchParams) (*places.NearbySearchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	rating := 9.0
	price := places.PriceLevel(2)
	return &places.NearbySearchResult{Places: []places.PlaceSummary{
		{ID: "r1", Name: "Fuunji", Type: places.Restaurant, Latitude: 35.6876, Longitude: 139.6983, DistanceMeters: 1234, Rating: &rating, PriceLevel: &price, Categories: []places.Category{}},
		{ID: "a1", Name: "Shinjuku Gyoen", Type: places.Attraction, Latitude: 35.6852, Longitude: 139.7101, DistanceMeters: 640, Categories: []places.Category{}},
	}}, nil
}

func (p *stubProvider) GetPlaceDetails(ctx context.Context, placeID string) (*places.PlaceDetails, error) {
	return nil, &places.NetworkError{Op: "stub details", Status: http.StatusServiceUnavailable}
}

func (p *stubProvider) Geocode(ctx context.Context, params places.GeocodeParams) (*places.GeocodeResult, error) {
	if params.Query != "shinjuku" {
		return nil, nil
	}
	return &places.GeocodeResult{Name: "Shinjuku", Coordinates: places.Coordinates{Latitude: 35.6938, Longitude: 139.7034}}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *stubProvider) {
	t.Helper()
	store, err := sqlitecache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	provider := &stubProvider{}
	server := httptest.NewServer(NewService(provider, store, connectivity.Static(true)).Handler())
	t.Cleanup(server.Close)
	return server, provider
}

func do(t *testing.T, method, url, session string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHeartbeat(t *testing.T) {
	server, _ := newTestServer(t)
	resp := do(t, http.MethodGet, server.URL+"/heartbeat", "")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "nearby-recommendations" {
		t.Fatalf("heartbeat = %d %q", resp.StatusCode, body)
	}
}

func TestRecommendations(t *testing.T) {
	server, provider := newTestServer(t)

	resp := do(t, http.MethodGet, server.URL+"/recommendations?lat=35.6896&lon=139.7006&name=Shinjuku", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	session := resp.Header.Get(SessionHeader)
	if session == "" {
		t.Fatal("no session id minted")
	}
	state := decode[nearby.State](t, resp)
	if state.Status != nearby.Success || state.FromCache || len(state.Places) != 2 {
		t.Fatalf("state = %+v", state)
	}

	resp = do(t, http.MethodGet, server.URL+"/recommendations?lat=35.6896&lon=139.7006", session)
	if got := resp.Header.Get(SessionHeader); got != session {
		t.Fatalf("session = %q, want %q", got, session)
	}
	state = decode[nearby.State](t, resp)
	if !state.FromCache || provider.calls != 1 {
		t.Fatalf("fromCache = %v calls = %d, want cached with one upstream call", state.FromCache, provider.calls)
	}

	resp = do(t, http.MethodGet, server.URL+"/recommendations/filter?type=attraction", session)
	state = decode[nearby.State](t, resp)
	if state.Filter != "attraction" || len(state.Filtered) != 1 || state.Filtered[0].ID != "a1" {
		t.Fatalf("filtered state = %+v", state)
	}

	resp = do(t, http.MethodPost, server.URL+"/recommendations/refresh", session)
	state = decode[nearby.State](t, resp)
	if state.FromCache || provider.calls != 2 {
		t.Fatalf("refresh fromCache = %v calls = %d", state.FromCache, provider.calls)
	}
	if state.Center == nil || state.Center.Name != "Shinjuku" {
		t.Fatalf("refresh center = %+v", state.Center)
	}
}

func TestRecommendationsWithType(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, http.MethodGet, server.URL+"/recommendations?lat=35.6896&lon=139.7006&type=restaurant", "typed")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	state := decode[nearby.State](t, resp)
	if state.Filter != "restaurant" || len(state.Places) != 2 {
		t.Fatalf("state = %+v", state)
	}
	if len(state.Filtered) != 1 || state.Filtered[0].ID != "r1" {
		t.Fatalf("filtered = %+v, want only r1", state.Filtered)
	}

	resp = do(t, http.MethodGet, server.URL+"/recommendations?lat=35.6896&lon=139.7006&type=museum", "typed")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad type status = %d, want 400", resp.StatusCode)
	}
}

func TestRecommendationsBadRequest(t *testing.T) {
	server, _ := newTestServer(t)
	for _, q := range []string{"", "?lat=35", "?lat=abc&lon=1", "?lat=100&lon=1"} {
		resp := do(t, http.MethodGet, server.URL+"/recommendations"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET /recommendations%s = %d, want 400", q, resp.StatusCode)
		}
	}
	resp := do(t, http.MethodGet, server.URL+"/recommendations/filter?type=museum", "s")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad filter = %d, want 400", resp.StatusCode)
	}
}

type detailsBody struct {
	ID      string         `json:"id"`
	Photos  []places.Photo `json:"photos"`
	Display placeDisplay   `json:"display"`
}

func TestPlaceDetailsFallback(t *testing.T) {
	server, _ := newTestServer(t)
	do(t, http.MethodGet, server.URL+"/recommendations?lat=35.6896&lon=139.7006", "s1")

	resp := do(t, http.MethodGet, server.URL+"/places/r1", "s1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[detailsBody](t, resp)
	if got.ID != "r1" || got.Photos == nil || len(got.Photos) != 0 {
		t.Fatalf("details = %+v", got)
	}
	if got.Display.Distance != "1.2km" || got.Display.Price != "$$" || got.Display.Stars == nil || *got.Display.Stars != 4.5 {
		t.Fatalf("display = %+v", got.Display)
	}
	if !strings.HasPrefix(got.Display.NavigationURL, "https://www.google.com/maps/dir/?api=1&destination=35.6876%2C139.6983") {
		t.Fatalf("navigation = %q", got.Display.NavigationURL)
	}

	resp = do(t, http.MethodGet, server.URL+"/places/unknown", "s1")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown place = %d, want 404", resp.StatusCode)
	}
}

func TestGeocode(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, http.MethodGet, server.URL+"/geocode?q=shinjuku&lat=35.68&lon=139.76", "")
	result := decode[places.GeocodeResult](t, resp)
	if result.Name != "Shinjuku" {
		t.Fatalf("geocode = %+v", result)
	}
	if resp := do(t, http.MethodGet, server.URL+"/geocode?q=atlantis", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("miss = %d, want 404", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, server.URL+"/geocode", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing q = %d, want 400", resp.StatusCode)
	}
}

func TestCacheEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	do(t, http.MethodGet, server.URL+"/recommendations?lat=35.6896&lon=139.7006&name=Shinjuku", "s1")

	recent := decode[[]map[string]any](t, do(t, http.MethodGet, server.URL+"/recent?limit=5", ""))
	if len(recent) != 1 || recent[0]["name"] != "Shinjuku" {
		t.Fatalf("recent = %+v", recent)
	}

	cleared := decode[map[string]int](t, do(t, http.MethodPost, server.URL+"/cache/clear-expired", ""))
	if cleared["removed"] != 0 {
		t.Fatalf("removed = %d, want 0", cleared["removed"])
	}

	if resp := do(t, http.MethodDelete, server.URL+"/cache", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("clear all = %d, want 204", resp.StatusCode)
	}
	recent = decode[[]map[string]any](t, do(t, http.MethodGet, server.URL+"/recent", ""))
	if len(recent) != 0 {
		t.Fatalf("recent after clear = %+v", recent)
	}
	if resp := do(t, http.MethodGet, server.URL+"/recent?limit=many", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit = %d, want 400", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	server, _ := newTestServer(t)
	do(t, http.MethodGet, server.URL+"/recommendations?lat=1&lon=1", "")
	resp := do(t, http.MethodGet, server.URL+"/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "nearby_search_outcomes_total") {
		t.Fatal("metrics missing search outcomes")
	}
}

func TestStream(t *testing.T) {
	server, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http")+"/ws?session=stream", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() StreamMessage {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	}
	write := func(cmd string) {
		t.Helper()
		if err := conn.Write(ctx, websocket.MessageText, []byte(cmd)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if msg := read(); msg.Type != "state" || msg.State.Status != nearby.Idle {
		t.Fatalf("initial = %+v", msg)
	}

	write(`{"op":"search","lat":35.6896,"lon":139.7006,"name":"Shinjuku"}`)
	var final *nearby.State
	for final == nil {
		msg := read()
		if msg.Type == "state" && msg.State.Status == nearby.Success {
			final = msg.State
		}
	}
	if len(final.Places) != 2 {
		t.Fatalf("places = %d, want 2", len(final.Places))
	}

	write(`{"op":"teleport"}`)
	if msg := read(); msg.Type != "error" || !strings.Contains(msg.Message, "teleport") {
		t.Fatalf("unknown op reply = %+v", msg)
	}
}
