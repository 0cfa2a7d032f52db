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

// Package format renders recommendation data for people: distances, prices,
// ratings, cache ages and navigation links.
package format

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

var printer = message.NewPrinter(language.TraditionalChinese)

// whole prints n without digit grouping.
func whole(n int64) number.Formatter {
	return number.Decimal(n, number.NoSeparator())
}

// Distance is whole meters below 1km and kilometers to one decimal above.
func Distance(meters float64) string {
	if meters < 1000 {
		return printer.Sprintf("%vm", whole(int64(roundHalfUp(meters))))
	}
	return strconv.FormatFloat(meters/1000, 'f', 1, 64) + "km"
}

func PriceLevel(level places.PriceLevel) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat("$", int(level))
}

// RatingTo5Stars converts the upstream 0-10 scale to 0-5 with one decimal.
func RatingTo5Stars(rating float64) float64 {
	return roundHalfUp(rating/2*10) / 10
}

// CacheAge describes how long ago a cache entry was written.
func CacheAge(age time.Duration) string {
	minutes := int64(age / time.Minute)
	hours := int64(age / time.Hour)
	days := int64(age / (24 * time.Hour))
	switch {
	case minutes < 1:
		return "剛剛"
	case minutes < 60:
		return printer.Sprintf("%v 分鐘前", whole(minutes))
	case hours < 24:
		return printer.Sprintf("%v 小時前", whole(hours))
	}
	return printer.Sprintf("%v 天前", whole(days))
}

// NavigationURL is a Google Maps walking-directions deep link. name, when
// set, is passed as destination_place_id.
func NavigationURL(destination places.Coordinates, name string) string {
	ll := strconv.FormatFloat(destination.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(destination.Longitude, 'f', -1, 64)
	var b strings.Builder
	b.WriteString("https://www.google.com/maps/dir/?api=1")
	b.WriteString("&destination=" + url.QueryEscape(ll))
	b.WriteString("&travelmode=walking")
	if name != "" {
		b.WriteString("&destination_place_id=" + url.QueryEscape(name))
	}
	return b.String()
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
