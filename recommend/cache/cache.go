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

// Package cache holds previously fetched nearby searches so they can be served
// again without a network round trip, or as stale data when the upstream is
// unreachable.
package cache

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

// TTL is fixed from the moment an entry is written; reads never extend it.
const TTL = 7 * 24 * time.Hour

const DefaultRecentSearches = 10

// Store persists cache entries. All operations are atomic per key.
type Store interface {
	// Get returns the entry for key if it is still fresh, or nil.
	Get(ctx context.Context, key string) (*Entry, error)
	// GetIncludingExpired returns the entry for key regardless of freshness, or nil.
	GetIncludingExpired(ctx context.Context, key string) (*Entry, error)
	// Set replaces any entry with the same key.
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) error
	// ClearExpired removes every entry with ExpiresAt at or before now and
	// reports how many were removed.
	ClearExpired(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) error
	// RecentSearches returns the centers of the newest entries, newest first.
	// A limit of zero or less means DefaultRecentSearches.
	RecentSearches(ctx context.Context, limit int) ([]SearchCenter, error)
}

// Clock returns the current time. Stores take one so tests can move time.
type Clock func() time.Time

type SearchCenter struct {
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters int       `json:"radius"`
	SearchedAt   time.Time `json:"searchedAt"`
}

type Entry struct {
	Key       string                `json:"centerKey"`
	Center    SearchCenter          `json:"center"`
	Places    []places.PlaceSummary `json:"places"`
	CachedAt  time.Time             `json:"cachedAt"`
	ExpiresAt time.Time             `json:"expiresAt"`
}

// Key identifies a search by its center rounded to four decimal places
// (about 11 m) and its radius, so repeated GPS fixes of the same spot share
// an entry.
func Key(c places.Coordinates, radiusMeters int) string {
	return formatCoordinate(c.Latitude) + "_" + formatCoordinate(c.Longitude) + "_" + strconv.Itoa(radiusMeters)
}

func formatCoordinate(v float64) string {
	// Half rounds up towards positive infinity.
	r := math.Floor(v*10000+0.5) / 10000
	if r == 0 {
		// avoid "-0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// NewEntry builds the entry for a successful search completed at now.
func NewEntry(center SearchCenter, results []places.PlaceSummary, now time.Time) *Entry {
	now = now.UTC()
	return &Entry{
		Key: Key(places.Coordinates{
			Latitude:  center.Latitude,
			Longitude: center.Longitude,
		}, center.RadiusMeters),
		Center:    center,
		Places:    results,
		CachedAt:  now,
		ExpiresAt: now.Add(TTL),
	}
}

// IsExpired reports whether now is strictly after ExpiresAt.
func (e *Entry) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

func (e *Entry) Fresh(now time.Time) bool {
	return !e.IsExpired(now)
}

// Age is how long ago the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CachedAt)
}

// Normalize converts every timestamp to UTC so entries read back from a store
// compare equal to the ones written.
func (e *Entry) Normalize() *Entry {
	e.CachedAt = e.CachedAt.UTC()
	e.ExpiresAt = e.ExpiresAt.UTC()
	e.Center.SearchedAt = e.Center.SearchedAt.UTC()
	if e.Places == nil {
		e.Places = []places.PlaceSummary{}
	}
	return e
}
