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

package places

import "fmt"

type PlaceType string

const (
	Restaurant PlaceType = "restaurant"
	Attraction PlaceType = "attraction"
)

// ParsePlaceType accepts "restaurant" or "attraction".
func ParsePlaceType(s string) (PlaceType, error) {
	switch PlaceType(s) {
	case Restaurant, Attraction:
		return PlaceType(s), nil
	}
	return "", fmt.Errorf("place type must be one of 'restaurant' or 'attraction'; not %q", s)
}

// PriceLevel runs from 1 (cheap) to 4 (expensive).
type PriceLevel int

func (p PriceLevel) Valid() bool {
	return p >= 1 && p <= 4
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
}

type Photo struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type OpeningHours struct {
	Display   string `json:"display"`
	IsOpenNow *bool  `json:"isOpenNow,omitempty"`
}

// PlaceSummary is the list representation of a place. ID is only unique
// within the provider that assigned it.
type PlaceSummary struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Type           PlaceType   `json:"type"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	DistanceMeters float64     `json:"distance"`
	Address        string      `json:"address"`
	Rating         *float64    `json:"rating,omitempty"`
	PriceLevel     *PriceLevel `json:"priceLevel,omitempty"`
	Categories     []Category  `json:"categories"`
	ThumbnailURL   string      `json:"thumbnailUrl,omitempty"`
	IsOpenNow      *bool       `json:"isOpenNow,omitempty"`
}

// PlaceDetails is always a superset of the PlaceSummary with the same ID.
type PlaceDetails struct {
	PlaceSummary
	Description string        `json:"description,omitempty"`
	Photos      []Photo       `json:"photos"`
	Hours       *OpeningHours `json:"hours,omitempty"`
	Website     string        `json:"website,omitempty"`
	Phone       string        `json:"phone,omitempty"`
}

// DetailsFromSummary promotes a summary to details with no photos.
func DetailsFromSummary(s PlaceSummary) *PlaceDetails {
	return &PlaceDetails{
		PlaceSummary: s,
		Photos:       []Photo{},
	}
}
