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

package googleplaces

import (
	"context"
	"errors"
	"testing"

	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), " "); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestOperationsNotImplemented(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, "test-key")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := p.SearchNearby(ctx, places.NearbySearchParams{}); !errors.Is(err, places.ErrNotImplemented) {
		t.Errorf("SearchNearby err = %v, want ErrNotImplemented", err)
	}
	if _, err := p.GetPlaceDetails(ctx, "x"); !errors.Is(err, places.ErrNotImplemented) {
		t.Errorf("GetPlaceDetails err = %v, want ErrNotImplemented", err)
	}
	if _, err := p.Geocode(ctx, places.GeocodeParams{Query: "x"}); !errors.Is(err, places.ErrNotImplemented) {
		t.Errorf("Geocode err = %v, want ErrNotImplemented", err)
	}
}
