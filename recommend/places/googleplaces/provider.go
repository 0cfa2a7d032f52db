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

// Package googleplaces holds the Google Places provider. Only construction
// is wired up so far; every lookup reports places.ErrNotImplemented.
package googleplaces

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	placesapi "google.golang.org/api/places/v1"

	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

type Provider struct {
	service *placesapi.Service
}

var _ places.Provider = (*Provider)(nil)

func New(ctx context.Context, apiKey string) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("google places api key is required")
	}
	service, err := placesapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create places service: %w", err)
	}
	return &Provider{service: service}, nil
}

func (p *Provider) SearchNearby(ctx context.Context, params places.NearbySearchParams) (*places.NearbySearchResult, error) {
	return nil, fmt.Errorf("google places nearby search: %w", places.ErrNotImplemented)
}

func (p *Provider) GetPlaceDetails(ctx context.Context, placeID string) (*places.PlaceDetails, error) {
	return nil, fmt.Errorf("google places details: %w", places.ErrNotImplemented)
}

func (p *Provider) Geocode(ctx context.Context, params places.GeocodeParams) (*places.GeocodeResult, error) {
	return nil, fmt.Errorf("google places geocode: %w", places.ErrNotImplemented)
}
