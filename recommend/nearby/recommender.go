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

// Package nearby runs recommendation searches: cache first, then the places
// provider, degrading to stale cache data whenever the network lets us down.
package nearby

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/honeycombio/beeline-go"
	"github.com/honeycombio/beeline-go/trace"
	"golang.org/x/exp/slices"

	"github.com/chuangbahenbccs/TravelApp/recommend/cache"
	"github.com/chuangbahenbccs/TravelApp/recommend/connectivity"
	"github.com/chuangbahenbccs/TravelApp/recommend/metrics"
	"github.com/chuangbahenbccs/TravelApp/recommend/places"
	"github.com/chuangbahenbccs/TravelApp/recommend/util/format"
)

type Status string

const (
	Idle    Status = "idle"
	Loading Status = "loading"
	Success Status = "success"
	Offline Status = "offline"
	Error   Status = "error"
)

// FilterAll disables type filtering.
const FilterAll = "all"

// User-facing error messages.
const (
	MessageNeedsNetwork   = "需要網路連線"
	MessageNetworkFailure = "網路連線失敗，請稍後再試"
	MessageLoadFailed     = "載入失敗，請稍後再試"
)

// State is a point-in-time copy of a Recommender. Callers may keep it.
type State struct {
	Status         Status                `json:"status"`
	Center         *cache.SearchCenter   `json:"center,omitempty"`
	Places         []places.PlaceSummary `json:"places"`
	Filtered       []places.PlaceSummary `json:"filtered"`
	Filter         string                `json:"filter"`
	Error          string                `json:"error,omitempty"`
	FromCache      bool                  `json:"fromCache"`
	CacheAge       string                `json:"cacheAge,omitempty"`
	Empty          bool                  `json:"empty"`
	Selected       *places.PlaceDetails  `json:"selected,omitempty"`
	LoadingDetails bool                  `json:"loadingDetails"`
}

// Recommender holds the result of one logical "last search". Overlapping
// searches are allowed; whichever finishes last wins.
type Recommender struct {
	provider places.Provider
	store    cache.Store
	online   connectivity.Checker
	now      cache.Clock
	radius   int

	mu             sync.Mutex
	status         Status
	center         *cache.SearchCenter
	results        []places.PlaceSummary
	filter         string
	errMsg         string
	fromCache      bool
	cacheAge       string
	selected       *places.PlaceDetails
	loadingDetails bool

	subscribers map[int]chan State
	nextSub     int
}

type Option func(*Recommender)

func WithClock(clock cache.Clock) Option {
	return func(r *Recommender) {
		r.now = clock
	}
}

// WithConnectivity replaces the default, always-online checker.
func WithConnectivity(c connectivity.Checker) Option {
	return func(r *Recommender) {
		r.online = c
	}
}

func WithRadius(meters int) Option {
	return func(r *Recommender) {
		if meters > 0 {
			r.radius = meters
		}
	}
}

func New(provider places.Provider, store cache.Store, opts ...Option) *Recommender {
	r := &Recommender{
		provider:    provider,
		store:       store,
		online:      connectivity.Static(true),
		now:         time.Now,
		radius:      places.DefaultRadius,
		status:      Idle,
		results:     []places.PlaceSummary{},
		filter:      FilterAll,
		subscribers: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search looks up recommendations around coords and returns the resulting
// state. name labels the search center. It never returns an error: every
// outcome ends in Success, Offline or Error.
func (r *Recommender) Search(ctx context.Context, coords places.Coordinates, name string) State {
	ctx, span := beeline.StartSpan(ctx, "nearby.search")
	defer span.Send()
	key := cache.Key(coords, r.radius)
	span.AddField("center_key", key)

	r.update(func() {
		r.status = Loading
		r.errMsg = ""
		r.fromCache = false
		r.cacheAge = ""
	})

	cached, err := r.store.Get(ctx, key)
	if err != nil {
		log.Printf("Reading cache entry %s failed: %v", key, err)
		span.AddField("cache_error", err)
	}
	if cached != nil {
		metrics.CacheLookup("fresh")
		return r.finish(span, func() { r.applyEntry(cached, Success) })
	}
	metrics.CacheLookup("miss")

	// The stale entry is looked up at most once per search, whichever path
	// ends up needing it.
	var stale *cache.Entry
	staleLooked := false
	lookupStale := func() *cache.Entry {
		if staleLooked {
			return stale
		}
		staleLooked = true
		entry, err := r.store.GetIncludingExpired(ctx, key)
		if err != nil {
			log.Printf("Reading stale cache entry %s failed: %v", key, err)
			entry = nil
		}
		stale = entry
		if stale != nil {
			metrics.CacheLookup("stale")
		}
		return stale
	}

	if !r.online.Online(ctx) {
		span.AddField("online", false)
		if entry := lookupStale(); entry != nil {
			return r.finish(span, func() { r.applyEntry(entry, Offline) })
		}
		return r.finish(span, func() { r.applyError(MessageNeedsNetwork) })
	}

	result, err := r.provider.SearchNearby(ctx, places.NearbySearchParams{
		Center: coords,
		Radius: r.radius,
	})
	if err != nil {
		span.AddField("error", err)
		log.Printf("Nearby search failed: %v", err)
		if entry := lookupStale(); entry != nil {
			return r.finish(span, func() { r.applyEntry(entry, Offline) })
		}
		msg := MessageLoadFailed
		if places.IsNetworkError(err) {
			msg = MessageNetworkFailure
		}
		return r.finish(span, func() { r.applyError(msg) })
	}

	center := cache.SearchCenter{
		Name:         name,
		Latitude:     coords.Latitude,
		Longitude:    coords.Longitude,
		RadiusMeters: r.radius,
		SearchedAt:   r.now().UTC(),
	}
	found := result.Places
	if found == nil {
		found = []places.PlaceSummary{}
	}
	state := r.finish(span, func() {
		r.status = Success
		r.center = &center
		r.results = found
	})
	if err := r.store.Set(ctx, cache.NewEntry(center, found, r.now())); err != nil {
		log.Printf("Caching nearby search %s failed: %v", key, err)
		span.AddField("cache_error", err)
	}
	return state
}

// Refresh discards the cached entry for the current center and searches
// again. It does nothing before the first search.
func (r *Recommender) Refresh(ctx context.Context) State {
	r.mu.Lock()
	var center *cache.SearchCenter
	if r.center != nil {
		c := *r.center
		center = &c
	}
	r.mu.Unlock()
	if center == nil {
		return r.State()
	}
	coords := places.Coordinates{Latitude: center.Latitude, Longitude: center.Longitude}
	key := cache.Key(coords, center.RadiusMeters)
	if err := r.store.Delete(ctx, key); err != nil {
		log.Printf("Deleting cache entry %s failed: %v", key, err)
	}
	return r.Search(ctx, coords, center.Name)
}

// PlaceDetails asks the provider for details. If that fails for any reason
// it falls back to the summary from the current results with no photos.
// The outcome is also kept as the selected place.
func (r *Recommender) PlaceDetails(ctx context.Context, placeID string) (*places.PlaceDetails, error) {
	ctx, span := beeline.StartSpan(ctx, "nearby.place_details")
	defer span.Send()
	r.update(func() {
		r.loadingDetails = true
		r.selected = nil
	})

	details, err := r.provider.GetPlaceDetails(ctx, placeID)
	if err == nil && details == nil {
		err = places.ErrNotFound
	}
	if err != nil {
		span.AddField("error", err)
		r.mu.Lock()
		idx := slices.IndexFunc(r.results, func(p places.PlaceSummary) bool { return p.ID == placeID })
		if idx >= 0 {
			details = places.DetailsFromSummary(r.results[idx])
		}
		r.mu.Unlock()
		span.AddField("fallback", details != nil)
	}
	r.update(func() {
		r.loadingDetails = false
		r.selected = details
	})
	if details == nil {
		if errors.Is(err, places.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", places.ErrNotFound, err)
	}
	return details, nil
}

func (r *Recommender) ClearSelectedPlace() {
	r.update(func() {
		r.selected = nil
	})
}

// SetFilter accepts FilterAll or a place type.
func (r *Recommender) SetFilter(filter string) error {
	if filter != FilterAll {
		if _, err := places.ParsePlaceType(filter); err != nil {
			return err
		}
	}
	r.update(func() {
		r.filter = filter
	})
	return nil
}

func (r *Recommender) Filtered() []places.PlaceSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filteredLocked()
}

func (r *Recommender) RecentSearches(ctx context.Context, limit int) ([]cache.SearchCenter, error) {
	return r.store.RecentSearches(ctx, limit)
}

func (r *Recommender) ClearAllCache(ctx context.Context) error {
	return r.store.ClearAll(ctx)
}

func (r *Recommender) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every state change.
// Sends never block, so a slow reader can miss intermediate states. Call the
// returned function to unsubscribe; it closes the channel.
func (r *Recommender) Subscribe() (<-chan State, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan State, 8)
	r.subscribers[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subscribers, id)
			close(ch)
		})
	}
}

func (r *Recommender) applyEntry(entry *cache.Entry, status Status) {
	c := entry.Center
	r.status = status
	r.center = &c
	r.results = entry.Places
	if r.results == nil {
		r.results = []places.PlaceSummary{}
	}
	r.fromCache = true
	r.cacheAge = format.CacheAge(entry.Age(r.now()))
}

func (r *Recommender) applyError(msg string) {
	r.status = Error
	r.errMsg = msg
}

// finish applies the final transition of a search and records its outcome.
func (r *Recommender) finish(span *trace.Span, apply func()) State {
	state := r.update(apply)
	span.AddField("status", string(state.Status))
	span.AddField("from_cache", state.FromCache)
	metrics.SearchOutcome(string(state.Status), state.FromCache)
	return state
}

func (r *Recommender) update(apply func()) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	apply()
	state := r.snapshotLocked()
	for _, ch := range r.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
	return state
}

func (r *Recommender) filteredLocked() []places.PlaceSummary {
	if r.filter == FilterAll {
		return slices.Clone(r.results)
	}
	filtered := []places.PlaceSummary{}
	for _, p := range r.results {
		if string(p.Type) == r.filter {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func (r *Recommender) snapshotLocked() State {
	s := State{
		Status:         r.status,
		Places:         slices.Clone(r.results),
		Filtered:       r.filteredLocked(),
		Filter:         r.filter,
		Error:          r.errMsg,
		FromCache:      r.fromCache,
		CacheAge:       r.cacheAge,
		Empty:          r.status == Success && len(r.results) == 0,
		LoadingDetails: r.loadingDetails,
	}
	if r.center != nil {
		c := *r.center
		s.Center = &c
	}
	if r.selected != nil {
		d := *r.selected
		s.Selected = &d
	}
	return s
}
