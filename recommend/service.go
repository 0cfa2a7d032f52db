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

// Package recommend serves nearby recommendations over HTTP and WebSocket.
// Every client session gets its own Recommender; the places provider and the
// cache store are shared.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/honeycombio/beeline-go"
	"github.com/honeycombio/beeline-go/wrappers/hnynethttp"

	"github.com/chuangbahenbccs/TravelApp/recommend/cache"
	"github.com/chuangbahenbccs/TravelApp/recommend/connectivity"
	"github.com/chuangbahenbccs/TravelApp/recommend/metrics"
	"github.com/chuangbahenbccs/TravelApp/recommend/nearby"
	"github.com/chuangbahenbccs/TravelApp/recommend/places"
	"github.com/chuangbahenbccs/TravelApp/recommend/query"
	"github.com/chuangbahenbccs/TravelApp/recommend/util/format"
)

const SessionHeader = "X-Session-Id"

// SessionIdleTimeout is how long an untouched session is kept.
const SessionIdleTimeout = time.Hour

type Service struct {
	mux      *http.ServeMux
	provider places.Provider
	store    cache.Store
	online   connectivity.Checker
	now      cache.Clock

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	recommender *nearby.Recommender
	lastUsed    time.Time
}

func NewService(provider places.Provider, store cache.Store, online connectivity.Checker) *Service {
	s := &Service{
		mux:      http.NewServeMux(),
		provider: provider,
		store:    store,
		online:   online,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	s.mux.HandleFunc("/heartbeat", s.handleHeartbeat)
	s.mux.HandleFunc("GET /recommendations", s.handleRecommendations)
	s.mux.HandleFunc("POST /recommendations/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /recommendations/filter", s.handleFilter)
	s.mux.HandleFunc("GET /places/{id}", s.handlePlace)
	s.mux.HandleFunc("GET /geocode", s.handleGeocode)
	s.mux.HandleFunc("GET /recent", s.handleRecent)
	s.mux.HandleFunc("POST /cache/clear-expired", s.handleClearExpired)
	s.mux.HandleFunc("DELETE /cache", s.handleClearAll)
	s.mux.HandleFunc("GET /ws", s.handleStream)
	s.mux.Handle("GET /metrics", metrics.Handler())
	return s
}

func (s *Service) Handler() http.Handler {
	return s.mux
}

func (s *Service) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, hnynethttp.WrapHandler(s.mux))
}

// recommenderFor returns the session's recommender, creating both when the
// id is new. Idle sessions are dropped on the way.
func (s *Service) recommenderFor(id string) *nearby.Recommender {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > SessionIdleTimeout {
			delete(s.sessions, k)
		}
	}
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{
			recommender: nearby.New(s.provider, s.store, nearby.WithConnectivity(s.online)),
		}
		s.sessions[id] = sess
	}
	sess.lastUsed = now
	return sess.recommender
}

// sessionID reads the session from the header or the query string and mints
// one when the client has none yet.
func sessionID(rw http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = r.URL.Query().Get("session")
	}
	if id == "" {
		id = uuid.NewString()
	}
	rw.Header().Set(SessionHeader, id)
	return id
}

func (s *Service) handleHeartbeat(rw http.ResponseWriter, r *http.Request) {
	_, _ = rw.Write([]byte("nearby-recommendations"))
}

func (s *Service) handleRecommendations(rw http.ResponseWriter, r *http.Request) {
	id := sessionID(rw, r)
	if _, err := query.ParseLocation(r.URL.Query()); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := query.ContextWith(r.Context(), id, r.URL.Query())
	beeline.AddField(ctx, "session_id", query.SessionIDFromContext(ctx))
	location := query.LocationFromContext(ctx)
	if location == nil {
		http.Error(rw, "lat and lon are required", http.StatusBadRequest)
		return
	}
	rec := s.recommenderFor(id)
	if filter := query.PlaceTypeFromContext(ctx); filter != "" {
		if err := rec.SetFilter(filter); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
	}
	writeJSON(rw, rec.Search(ctx, *location, query.NameFromContext(ctx)))
}

func (s *Service) handleRefresh(rw http.ResponseWriter, r *http.Request) {
	id := sessionID(rw, r)
	writeJSON(rw, s.recommenderFor(id).Refresh(r.Context()))
}

func (s *Service) handleFilter(rw http.ResponseWriter, r *http.Request) {
	id := sessionID(rw, r)
	rec := s.recommenderFor(id)
	filter := r.URL.Query().Get("type")
	if filter == "" {
		filter = nearby.FilterAll
	}
	if err := rec.SetFilter(filter); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(rw, rec.State())
}

type placeResponse struct {
	*places.PlaceDetails
	Display placeDisplay `json:"display"`
}

type placeDisplay struct {
	Distance      string   `json:"distance"`
	Price         string   `json:"price,omitempty"`
	Stars         *float64 `json:"stars,omitempty"`
	NavigationURL string   `json:"navigationUrl"`
}

func newPlaceResponse(d *places.PlaceDetails) placeResponse {
	display := placeDisplay{
		Distance: format.Distance(d.DistanceMeters),
		NavigationURL: format.NavigationURL(places.Coordinates{
			Latitude:  d.Latitude,
			Longitude: d.Longitude,
		}, d.Name),
	}
	if d.PriceLevel != nil {
		display.Price = format.PriceLevel(*d.PriceLevel)
	}
	if d.Rating != nil {
		stars := format.RatingTo5Stars(*d.Rating)
		display.Stars = &stars
	}
	return placeResponse{PlaceDetails: d, Display: display}
}

func (s *Service) handlePlace(rw http.ResponseWriter, r *http.Request) {
	id := sessionID(rw, r)
	details, err := s.recommenderFor(id).PlaceDetails(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, newPlaceResponse(details))
}

func (s *Service) handleGeocode(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(rw, "q is required", http.StatusBadRequest)
		return
	}
	near, err := query.ParseLocation(r.URL.Query())
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := s.provider.Geocode(r.Context(), places.GeocodeParams{Query: q, Near: near})
	if err != nil {
		writeError(rw, err)
		return
	}
	if result == nil {
		http.Error(rw, "no place matches that query", http.StatusNotFound)
		return
	}
	writeJSON(rw, result)
}

func (s *Service) handleRecent(rw http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			http.Error(rw, "limit must be a number", http.StatusBadRequest)
			return
		}
	}
	centers, err := s.store.RecentSearches(r.Context(), limit)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, centers)
}

func (s *Service) handleClearExpired(rw http.ResponseWriter, r *http.Request) {
	removed, err := s.store.ClearExpired(r.Context())
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, map[string]int{"removed": removed})
}

func (s *Service) handleClearAll(rw http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		writeError(rw, err)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleStream(rw http.ResponseWriter, r *http.Request) {
	id := sessionID(rw, r)
	stream, err := NewStreamSession(s.recommenderFor(id), rw, r)
	if err != nil {
		log.Printf("Creating stream session failed: %v", err)
		return
	}
	stream.Run(r.Context())
}

// ClearExpired sweeps the cache once, logging the outcome.
func (s *Service) ClearExpired(ctx context.Context) {
	removed, err := s.store.ClearExpired(ctx)
	if err != nil {
		log.Printf("Clearing expired cache entries failed: %v", err)
		return
	}
	log.Printf("Removed %d expired cache entries.", removed)
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		log.Printf("Writing response failed: %v", err)
	}
}

func writeError(rw http.ResponseWriter, err error) {
	var rl *places.RateLimitError
	switch {
	case errors.As(err, &rl):
		rw.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter/time.Second)))
		http.Error(rw, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, places.ErrNotFound):
		http.Error(rw, err.Error(), http.StatusNotFound)
	case errors.Is(err, places.ErrNotImplemented):
		http.Error(rw, err.Error(), http.StatusNotImplemented)
	case places.IsNetworkError(err):
		http.Error(rw, err.Error(), http.StatusBadGateway)
	default:
		log.Printf("Request failed: %v", err)
		http.Error(rw, err.Error(), http.StatusInternalServerError)
	}
}
