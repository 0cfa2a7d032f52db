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

package redact

import (
	"net/url"
	"testing"
)

func TestCleanHoneycomb(t *testing.T) {
	data := map[string]interface{}{
		"request.query":                "lat=35.1&lon=139.2&name=Hotel+Gracery",
		"request.url":                  "https://places-api.foursquare.com/places/search?ll=35.1%2C139.2&radius=1000",
		"request.path":                 "/recommendations",
		"request.header.authorization": "Bearer secret",
		"ll":                           "35.1,139.2",
		"query":                        "tokyo tower",
		"radius":                       1000,
	}
	CleanHoneycomb(data)

	q, err := url.ParseQuery(data["request.query"].(string))
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	for _, k := range []string{"lat", "lon", "name"} {
		if q.Get(k) != "redacted" {
			t.Errorf("query %s = %q, want redacted", k, q.Get(k))
		}
	}

	u, err := url.Parse(data["request.url"].(string))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Query().Get("ll") != "redacted" || u.Query().Get("radius") != "1000" {
		t.Errorf("url query = %v", u.Query())
	}
	if u.Path != "/places/search" {
		t.Errorf("url path = %q", u.Path)
	}

	for _, k := range []string{"request.header.authorization", "ll", "query"} {
		if data[k] != "redacted" {
			t.Errorf("%s = %v, want redacted", k, data[k])
		}
	}
	if data["radius"] != 1000 {
		t.Errorf("radius = %v, want untouched", data["radius"])
	}
	if data["request.path"] != "/recommendations" {
		t.Errorf("request.path = %v", data["request.path"])
	}
}

func TestRedactQueryParseError(t *testing.T) {
	if got := redactQuery("%zz"); got != "[parse error redacted for safety]" {
		t.Fatalf("redactQuery = %q", got)
	}
}
