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

package foursquare

import (
	"strings"

	"github.com/umahmood/haversine"

	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

type Place struct {
	ID         string     `json:"fsq_place_id"`
	Name       string     `json:"name"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Location   Location   `json:"location"`
	Categories []Category `json:"categories"`
	Distance   *float64   `json:"distance,omitempty"`
	Rating     *float64   `json:"rating,omitempty"`
	Price      *int       `json:"price,omitempty"`
	// The fields below are premium attributes; we never request them, but
	// they're decoded if the upstream sends them anyway.
	Description string  `json:"description,omitempty"`
	Tel         string  `json:"tel,omitempty"`
	Website     string  `json:"website,omitempty"`
	Hours       *Hours  `json:"hours,omitempty"`
	Photos      []Photo `json:"photos,omitempty"`
}

type Location struct {
	FormattedAddress string `json:"formatted_address,omitempty"`
	Address          string `json:"address,omitempty"`
	Locality         string `json:"locality,omitempty"`
	Region           string `json:"region,omitempty"`
	Country          string `json:"country,omitempty"`
}

type Category struct {
	ID         string `json:"fsq_category_id"`
	Name       string `json:"name"`
	ShortName  string `json:"short_name,omitempty"`
	PluralName string `json:"plural_name,omitempty"`
	Icon       Icon   `json:"icon"`
}

type Icon struct {
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

type Hours struct {
	Display        string `json:"display,omitempty"`
	IsLocalHoliday *bool  `json:"is_local_holiday,omitempty"`
	OpenNow        *bool  `json:"open_now,omitempty"`
}

type Photo struct {
	ID     string `json:"id"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type SearchResponse struct {
	Results []Place `json:"results"`
}

// restaurantKeywords is matched as substrings of lower-cased category names.
var restaurantKeywords = []string{
	"restaurant",
	"cafe",
	"coffee",
	"bakery",
	"bar",
	"pub",
	"food",
	"dining",
	"eatery",
	"bistro",
	"grill",
	"kitchen",
	"diner",
	"ramen",
	"sushi",
	"izakaya",
	"kaiseki",
	"unagi",
	"tempura",
	"udon",
	"soba",
	"yakitori",
	"tonkatsu",
	"curry",
	"noodle",
	"dumpling",
	"dim sum",
	"tea house",
	"dessert",
	"ice cream",
	"pizza",
	"burger",
	"steakhouse",
	"seafood",
	"bbq",
	"brewery",
}

// ClassifyCategories is a keyword heuristic: any food-ish category makes the
// place a restaurant, everything else is an attraction.
func ClassifyCategories(categories []Category) places.PlaceType {
	for _, cat := range categories {
		name := strings.ToLower(cat.Name)
		for _, keyword := range restaurantKeywords {
			if strings.Contains(name, keyword) {
				return places.Restaurant
			}
		}
	}
	return places.Attraction
}

func formatAddress(l Location) string {
	if l.FormattedAddress != "" {
		return l.FormattedAddress
	}
	var parts []string
	for _, p := range []string{l.Address, l.Locality, l.Region} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func transformCategories(categories []Category) []places.Category {
	result := make([]places.Category, 0, len(categories))
	for _, cat := range categories {
		name := cat.ShortName
		if name == "" {
			name = cat.Name
		}
		result = append(result, places.Category{
			ID:      cat.ID,
			Name:    name,
			IconURL: cat.Icon.Prefix + "64" + cat.Icon.Suffix,
		})
	}
	return result
}

func thumbnailURL(photos []Photo) string {
	if len(photos) == 0 {
		return ""
	}
	return photos[0].Prefix + "200x200" + photos[0].Suffix
}

func transformPhotos(photos []Photo) []places.Photo {
	result := make([]places.Photo, 0, len(photos))
	for _, p := range photos {
		result = append(result, places.Photo{
			ID:     p.ID,
			URL:    p.Prefix + "original" + p.Suffix,
			Width:  p.Width,
			Height: p.Height,
		})
	}
	return result
}

// toSummary converts an upstream record. center is used to fill in the
// distance when the upstream leaves it out; pass nil when there is none.
func toSummary(p Place, center *places.Coordinates) places.PlaceSummary {
	s := places.PlaceSummary{
		ID:           p.ID,
		Name:         p.Name,
		Type:         ClassifyCategories(p.Categories),
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		Address:      formatAddress(p.Location),
		Rating:       p.Rating,
		Categories:   transformCategories(p.Categories),
		ThumbnailURL: thumbnailURL(p.Photos),
	}
	switch {
	case p.Distance != nil:
		s.DistanceMeters = *p.Distance
	case center != nil:
		_, km := haversine.Distance(
			haversine.Coord{Lat: center.Latitude, Lon: center.Longitude},
			haversine.Coord{Lat: p.Latitude, Lon: p.Longitude},
		)
		s.DistanceMeters = km * 1000
	}
	if p.Price != nil {
		if level := places.PriceLevel(*p.Price); level.Valid() {
			s.PriceLevel = &level
		}
	}
	if p.Hours != nil {
		s.IsOpenNow = p.Hours.OpenNow
	}
	return s
}

func toDetails(p Place) *places.PlaceDetails {
	d := &places.PlaceDetails{
		PlaceSummary: toSummary(p, nil),
		Description:  p.Description,
		Photos:       transformPhotos(p.Photos),
		Website:      p.Website,
		Phone:        p.Tel,
	}
	if p.Hours != nil {
		d.Hours = &places.OpeningHours{
			Display:   p.Hours.Display,
			IsOpenNow: p.Hours.OpenNow,
		}
	}
	return d
}
