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

// Package cachetest is a behavioural test suite shared by every cache.Store
// backend.
package cachetest

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/chuangbahenbccs/TravelApp/recommend/cache"
	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

// FakeClock is a settable cache.Clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Factory opens an empty store reading time from clock.
type Factory func(t *testing.T, clock cache.Clock) cache.Store

var base = time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC)

// Run exercises the cache.Store contract against stores made by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore) })
	t.Run("SetThenGet", func(t *testing.T) { testSetThenGet(t, newStore) })
	t.Run("SetReplaces", func(t *testing.T) { testSetReplaces(t, newStore) })
	t.Run("ExpiredEntries", func(t *testing.T) { testExpiredEntries(t, newStore) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore) })
	t.Run("ClearExpired", func(t *testing.T) { testClearExpired(t, newStore) })
	t.Run("ClearExpiredKeepsRewrittenEntry", func(t *testing.T) { testClearExpiredKeepsRewrittenEntry(t, newStore) })
	t.Run("ClearAll", func(t *testing.T) { testClearAll(t, newStore) })
	t.Run("RecentSearches", func(t *testing.T) { testRecentSearches(t, newStore) })
}

func SampleEntry(name string, lat, lng float64, cachedAt time.Time) *cache.Entry {
	rating := 8.4
	price := places.PriceLevel(2)
	open := true
	center := cache.SearchCenter{
		Name:         name,
		Latitude:     lat,
		Longitude:    lng,
		RadiusMeters: places.DefaultRadius,
		SearchedAt:   cachedAt,
	}
	return cache.NewEntry(center, []places.PlaceSummary{
		{
			ID:             name + "-1",
			Name:           "Ichiran " + name,
			Type:           places.Restaurant,
			Latitude:       lat + 0.001,
			Longitude:      lng - 0.001,
			DistanceMeters: 132,
			Address:        "1-2-3 Jingumae, Shibuya, Tokyo",
			Rating:         &rating,
			PriceLevel:     &price,
			Categories: []places.Category{
				{ID: "13272", Name: "Ramen", IconURL: "https://ss3.4sqi.net/img/categories_v2/food/ramen_64.png"},
			},
			ThumbnailURL: "https://fastly.4sqi.net/img/general/200x200/abc.jpg",
			IsOpenNow:    &open,
		},
		{
			ID:             name + "-2",
			Name:           "Meiji Jingu",
			Type:           places.Attraction,
			Latitude:       lat - 0.002,
			Longitude:      lng + 0.002,
			DistanceMeters: 480.5,
			Address:        "Yoyogi, Shibuya",
			Categories:     []places.Category{{ID: "16020", Name: "Landmark"}},
		},
	}, cachedAt)
}

func assertEntryEqual(t *testing.T, got, want *cache.Entry) {
	t.Helper()
	if got == nil {
		t.Fatal("entry = nil, want entry")
	}
	if got.Key != want.Key {
		t.Fatalf("key = %q, want %q", got.Key, want.Key)
	}
	if !got.CachedAt.Equal(want.CachedAt) {
		t.Fatalf("cachedAt = %s, want %s", got.CachedAt, want.CachedAt)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expiresAt = %s, want %s", got.ExpiresAt, want.ExpiresAt)
	}
	if !got.Center.SearchedAt.Equal(want.Center.SearchedAt) {
		t.Fatalf("center.searchedAt = %s, want %s", got.Center.SearchedAt, want.Center.SearchedAt)
	}
	gotCenter, wantCenter := got.Center, want.Center
	gotCenter.SearchedAt, wantCenter.SearchedAt = time.Time{}, time.Time{}
	if gotCenter != wantCenter {
		t.Fatalf("center = %+v, want %+v", gotCenter, wantCenter)
	}
	if !reflect.DeepEqual(got.Places, want.Places) {
		t.Fatalf("places = %+v, want %+v", got.Places, want.Places)
	}
}

func testGetMissing(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()

	got, err := store.Get(ctx, "1_2_1000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("get = %+v, want nil", got)
	}
	got, err = store.GetIncludingExpired(ctx, "1_2_1000")
	if err != nil {
		t.Fatalf("get including expired: %v", err)
	}
	if got != nil {
		t.Fatalf("get including expired = %+v, want nil", got)
	}
}

func testSetThenGet(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()
	entry := SampleEntry("shibuya", 35.6595, 139.7005, clock.Now())

	if err := store.Set(ctx, entry); err != nil {
		t.Fatalf("set: %v", err)
	}
	if entry.IsExpired(clock.Now()) {
		t.Fatal("entry expired immediately after set")
	}
	got, err := store.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertEntryEqual(t, got, entry)
}

func testSetReplaces(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()

	first := SampleEntry("first", 35.6595, 139.7005, clock.Now())
	if err := store.Set(ctx, first); err != nil {
		t.Fatalf("set first: %v", err)
	}
	clock.Advance(time.Hour)
	second := SampleEntry("second", 35.6595, 139.7005, clock.Now())
	if second.Key != first.Key {
		t.Fatalf("keys differ: %q vs %q", first.Key, second.Key)
	}
	if err := store.Set(ctx, second); err != nil {
		t.Fatalf("set second: %v", err)
	}

	got, err := store.Get(ctx, first.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertEntryEqual(t, got, second)

	recent, err := store.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("recent searches: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("recent searches len = %d, want 1", len(recent))
	}
	if recent[0].Name != "second" {
		t.Fatalf("recent[0].name = %q, want %q", recent[0].Name, "second")
	}
}

func testExpiredEntries(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()
	entry := SampleEntry("asakusa", 35.7148, 139.7967, clock.Now())
	if err := store.Set(ctx, entry); err != nil {
		t.Fatalf("set: %v", err)
	}

	clock.Set(entry.ExpiresAt)
	got, err := store.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("get at expiry: %v", err)
	}
	if got == nil {
		t.Fatal("get at exactly expiresAt = nil, want fresh entry")
	}

	clock.Set(entry.CachedAt.Add(cache.TTL + time.Nanosecond))
	if !entry.IsExpired(clock.Now()) {
		t.Fatal("IsExpired = false after TTL elapsed")
	}
	got, err = store.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("get after ttl: %v", err)
	}
	if got != nil {
		t.Fatalf("get after ttl = %+v, want nil", got)
	}
	got, err = store.GetIncludingExpired(ctx, entry.Key)
	if err != nil {
		t.Fatalf("get including expired: %v", err)
	}
	assertEntryEqual(t, got, entry)
}

func testDelete(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()
	entry := SampleEntry("ueno", 35.7141, 139.7774, clock.Now())
	if err := store.Set(ctx, entry); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.Delete(ctx, entry.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := store.GetIncludingExpired(ctx, entry.Key)
	if err != nil {
		t.Fatalf("get including expired: %v", err)
	}
	if got != nil {
		t.Fatalf("entry still present after delete: %+v", got)
	}
	if err := store.Delete(ctx, entry.Key); err != nil {
		t.Fatalf("delete missing key: %v", err)
	}
}

func testClearExpired(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()

	old := SampleEntry("old", 35.1, 139.1, base)
	boundary := SampleEntry("boundary", 35.2, 139.2, base.Add(24*time.Hour))
	fresh := SampleEntry("fresh", 35.3, 139.3, base.Add(72*time.Hour))
	for _, e := range []*cache.Entry{old, boundary, fresh} {
		if err := store.Set(ctx, e); err != nil {
			t.Fatalf("set %s: %v", e.Key, err)
		}
	}

	clock.Set(boundary.ExpiresAt)
	removed, err := store.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("clear expired: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	for _, e := range []*cache.Entry{old, boundary} {
		got, err := store.GetIncludingExpired(ctx, e.Key)
		if err != nil {
			t.Fatalf("get %s: %v", e.Key, err)
		}
		if got != nil {
			t.Fatalf("entry %s survived clear expired", e.Key)
		}
	}
	got, err := store.Get(ctx, fresh.Key)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	assertEntryEqual(t, got, fresh)

	removed, err = store.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("clear expired again: %v", err)
	}
	if removed != 0 {
		t.Fatalf("second removed = %d, want 0", removed)
	}
}

func testClearExpiredKeepsRewrittenEntry(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()

	old := SampleEntry("gion", 35.0037, 135.7788, base)
	if err := store.Set(ctx, old); err != nil {
		t.Fatalf("set old: %v", err)
	}
	clock.Set(old.ExpiresAt.Add(time.Hour))
	rewritten := SampleEntry("gion", 35.0037, 135.7788, clock.Now())
	if err := store.Set(ctx, rewritten); err != nil {
		t.Fatalf("set rewritten: %v", err)
	}

	removed, err := store.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("clear expired: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	got, err := store.Get(ctx, rewritten.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	assertEntryEqual(t, got, rewritten)
}

func testClearAll(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()
	a := SampleEntry("a", 1, 1, base)
	b := SampleEntry("b", 2, 2, base)
	for _, e := range []*cache.Entry{a, b} {
		if err := store.Set(ctx, e); err != nil {
			t.Fatalf("set %s: %v", e.Key, err)
		}
	}

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	recent, err := store.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("recent searches: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("recent searches len = %d, want 0", len(recent))
	}
}

func testRecentSearches(t *testing.T, newStore Factory) {
	clock := NewFakeClock(base)
	store := newStore(t, clock.Now)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		e := SampleEntry(string(rune('a'+i)), 30+float64(i), 130+float64(i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Set(ctx, e); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}

	recent, err := store.RecentSearches(ctx, 0)
	if err != nil {
		t.Fatalf("recent searches: %v", err)
	}
	if len(recent) != cache.DefaultRecentSearches {
		t.Fatalf("recent searches len = %d, want %d", len(recent), cache.DefaultRecentSearches)
	}
	if recent[0].Name != "l" {
		t.Fatalf("recent[0].name = %q, want %q", recent[0].Name, "l")
	}
	if recent[9].Name != "c" {
		t.Fatalf("recent[9].name = %q, want %q", recent[9].Name, "c")
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].SearchedAt.After(recent[i-1].SearchedAt) {
			t.Fatalf("recent searches not newest first at %d", i)
		}
	}

	recent, err = store.RecentSearches(ctx, 3)
	if err != nil {
		t.Fatalf("recent searches limit 3: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent searches len = %d, want 3", len(recent))
	}
}
