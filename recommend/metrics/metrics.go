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

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nearby_cache_lookups_total",
			Help: "Cache lookups by outcome (fresh, stale, miss).",
		},
		[]string{"result"},
	)

	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nearby_upstream_requests_total",
			Help: "Requests sent to the places provider by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	upstreamWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nearby_upstream_pacing_wait_seconds",
			Help:    "Time spent waiting for the request pacer before dispatch.",
			Buckets: []float64{0, .05, .1, .25, .5, 1, 2, 5},
		},
	)

	searchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nearby_search_outcomes_total",
			Help: "Final state of each recommendation search.",
		},
		[]string{"state", "from_cache"},
	)
)

func CacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

// UpstreamRequest records one dispatched request. status is 0 when no
// response was received.
func UpstreamRequest(endpoint string, status int) {
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	upstreamRequests.WithLabelValues(endpoint, label).Inc()
}

func PacingWait(d time.Duration) {
	upstreamWait.Observe(d.Seconds())
}

func SearchOutcome(state string, fromCache bool) {
	searchOutcomes.WithLabelValues(state, strconv.FormatBool(fromCache)).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
