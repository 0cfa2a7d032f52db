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

// Package places defines the contract every places data source implements,
// along with the data model shared by providers, the cache and the
// recommender.
package places

import "context"

const (
	DefaultRadius = 1000
	DefaultLimit  = 20
)

// Provider is a source of nearby places. Implementations must be
// interchangeable: callers only ever inspect returned errors with errors.Is
// and errors.As.
type Provider interface {
	// SearchNearby finds places around params.Center. A zero Radius or Limit
	// means DefaultRadius and DefaultLimit; empty Types means the provider's
	// default category set.
	SearchNearby(ctx context.Context, params NearbySearchParams) (*NearbySearchResult, error)
	// GetPlaceDetails returns ErrNotFound when the id is unknown to the provider.
	GetPlaceDetails(ctx context.Context, placeID string) (*PlaceDetails, error)
	// Geocode returns (nil, nil) when nothing matches the query. Near is only
	// a bias hint.
	Geocode(ctx context.Context, params GeocodeParams) (*GeocodeResult, error)
}

type NearbySearchParams struct {
	Center Coordinates
	Radius int
	Types  []PlaceType
	Limit  int
	Cursor string
}

// RadiusOrDefault returns the requested radius, or DefaultRadius when unset.
func (p NearbySearchParams) RadiusOrDefault() int {
	if p.Radius <= 0 {
		return DefaultRadius
	}
	return p.Radius
}

// LimitOrDefault returns the requested limit, or DefaultLimit when unset.
func (p NearbySearchParams) LimitOrDefault() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}
	return p.Limit
}

type NearbySearchResult struct {
	Places       []PlaceSummary `json:"places"`
	NextCursor   string         `json:"nextCursor,omitempty"`
	TotalResults *int           `json:"totalResults,omitempty"`
}

type GeocodeParams struct {
	Query string
	Near  *Coordinates
}

type GeocodeResult struct {
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	PlaceID     string      `json:"placeId,omitempty"`
}
