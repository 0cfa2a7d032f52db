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

package cache

import (
	"testing"
	"time"

	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

func TestKey(t *testing.T) {
	tests := []struct {
		lat, lng float64
		radius   int
		want     string
	}{
		{25.03335, 121.56551, 1000, "25.0334_121.5655_1000"},
		{25.03339, 121.56549, 1000, "25.0334_121.5655_1000"},
		{25.0333, 121.5655, 500, "25.0333_121.5655_500"},
		{35, 139, 1000, "35_139_1000"},
		{-33.86785, 151.20732, 1000, "-33.8678_151.2073_1000"},
		{-0.00004, 0.00004, 1000, "0_0_1000"},
	}
	for _, tt := range tests {
		got := Key(places.Coordinates{Latitude: tt.lat, Longitude: tt.lng}, tt.radius)
		if got != tt.want {
			t.Errorf("Key(%v, %v, %d) = %q, want %q", tt.lat, tt.lng, tt.radius, got, tt.want)
		}
	}
}

func TestNewEntry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 6, time.FixedZone("JST", 9*60*60))
	center := SearchCenter{
		Name:         "Taipei 101",
		Latitude:     25.03339,
		Longitude:    121.56549,
		RadiusMeters: 1000,
		SearchedAt:   now,
	}

	e := NewEntry(center, nil, now)
	if e.Key != "25.0334_121.5655_1000" {
		t.Fatalf("key = %q", e.Key)
	}
	if !e.CachedAt.Equal(now) {
		t.Fatalf("cachedAt = %s, want %s", e.CachedAt, now)
	}
	if e.CachedAt.Location() != time.UTC {
		t.Fatalf("cachedAt location = %s, want UTC", e.CachedAt.Location())
	}
	if got := e.ExpiresAt.Sub(e.CachedAt); got != TTL {
		t.Fatalf("expiresAt - cachedAt = %s, want %s", got, TTL)
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	e := NewEntry(SearchCenter{Latitude: 1, Longitude: 2, RadiusMeters: 1000}, nil, now)

	checks := []struct {
		at   time.Time
		want bool
	}{
		{now, false},
		{now.Add(TTL - time.Second), false},
		{now.Add(TTL), false},
		{now.Add(TTL + time.Nanosecond), true},
		{now.Add(30 * 24 * time.Hour), true},
	}
	for _, c := range checks {
		if got := e.IsExpired(c.at); got != c.want {
			t.Errorf("IsExpired(%s) = %v, want %v", c.at, got, c.want)
		}
		if got := e.Fresh(c.at); got == c.want {
			t.Errorf("Fresh(%s) = %v, want %v", c.at, got, !c.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, jst)
	e := (&Entry{CachedAt: at, ExpiresAt: at.Add(TTL), Center: SearchCenter{SearchedAt: at}}).Normalize()

	if e.CachedAt.Location() != time.UTC || e.ExpiresAt.Location() != time.UTC || e.Center.SearchedAt.Location() != time.UTC {
		t.Fatal("normalize left a non-UTC timestamp")
	}
	if e.Places == nil {
		t.Fatal("normalize left places nil")
	}
}
