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
	"strings"

	"golang.org/x/exp/slices"
)

var sensitiveQueryParams = []string{
	"ll", "lat", "lon", // the searcher's location
	"q", "query",       // free text the user typed to find a place
	"name",             // label of the search center, often a home or hotel
	"session",          // identifies a client across searches
	"cursor",           // upstream pagination token, encodes the search center
}

// sensitiveFields are span fields we add ourselves that carry the same data.
var sensitiveFields = []string{
	"ll",
	"query",
	"session_id",
	"app.session_id",
	"center_key",
}

var sensitiveHeaders = []string{
	"request.header.authorization",
	"request.header.x_session_id",
}

func redactQuery(query string) string {
	values, err := url.ParseQuery(query)
	if err != nil {
		return "[parse error redacted for safety]"
	}
	newValues := url.Values{}
	for k, v := range values {
		if slices.Contains(sensitiveQueryParams, k) {
			newValues[k] = []string{"redacted"}
		} else {
			newValues[k] = v
		}
	}
	return newValues.Encode()
}

func cleanUrl(u string) string {
	parsedUrl, err := url.Parse(u)
	if err != nil {
		return "[parse error redacted for safety]"
	}
	parsedUrl.RawQuery = redactQuery(parsedUrl.RawQuery)
	return parsedUrl.String()
}

// CleanHoneycomb is a beeline PresendHook. Requests to and from us carry the
// user's location and search text, which must not leave the process.
func CleanHoneycomb(data map[string]interface{}) {
	if query, ok := data["request.query"]; ok {
		if queryStr, ok := query.(string); ok {
			data["request.query"] = redactQuery(queryStr)
		}
	}
	if u, ok := data["request.url"]; ok {
		if urlStr, ok := u.(string); ok {
			data["request.url"] = cleanUrl(urlStr)
		}
	}
	for _, field := range sensitiveFields {
		if _, ok := data[field]; ok {
			data[field] = "redacted"
		}
	}
	for k := range data {
		if slices.Contains(sensitiveHeaders, strings.ToLower(k)) {
			data[k] = "redacted"
		}
	}
}
