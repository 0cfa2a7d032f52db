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

package query

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

type queryContext struct {
	location  *places.Coordinates
	name      string
	sessionID string
	placeType string
}

type qckt int

var queryContextKey qckt

// ContextWith attaches the request's search parameters to ctx. An invalid
// or partial location is dropped; use ParseLocation to report it.
func ContextWith(ctx context.Context, sessionID string, q url.Values) context.Context {
	location, _ := ParseLocation(q)
	qc := queryContext{
		location:  location,
		name:      strings.TrimSpace(q.Get("name")),
		sessionID: sessionID,
		placeType: q.Get("type"),
	}
	return context.WithValue(ctx, queryContextKey, qc)
}

// ParseLocation reads lat and lon. It returns (nil, nil) when both are
// absent.
func ParseLocation(q url.Values) (*places.Coordinates, error) {
	if q.Get("lat") == "" && q.Get("lon") == "" {
		return nil, nil
	}
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		return nil, fmt.Errorf("lat and lon must both be numbers")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("location %v,%v is out of range", lat, lon)
	}
	return &places.Coordinates{Latitude: lat, Longitude: lon}, nil
}

func fromContext(ctx context.Context) queryContext {
	qc, _ := ctx.Value(queryContextKey).(queryContext)
	return qc
}

func LocationFromContext(ctx context.Context) *places.Coordinates {
	return fromContext(ctx).location
}

func NameFromContext(ctx context.Context) string {
	return fromContext(ctx).name
}

func SessionIDFromContext(ctx context.Context) string {
	return fromContext(ctx).sessionID
}

func PlaceTypeFromContext(ctx context.Context) string {
	return fromContext(ctx).placeType
}
