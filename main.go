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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/honeycombio/beeline-go"
	"github.com/honeycombio/beeline-go/wrappers/hnynethttp"
	"golang.org/x/text/language"

	"github.com/chuangbahenbccs/TravelApp/recommend"
	"github.com/chuangbahenbccs/TravelApp/recommend/cache"
	"github.com/chuangbahenbccs/TravelApp/recommend/cache/rediscache"
	"github.com/chuangbahenbccs/TravelApp/recommend/cache/sqlitecache"
	"github.com/chuangbahenbccs/TravelApp/recommend/config"
	"github.com/chuangbahenbccs/TravelApp/recommend/connectivity"
	"github.com/chuangbahenbccs/TravelApp/recommend/places"
	"github.com/chuangbahenbccs/TravelApp/recommend/places/foursquare"
	"github.com/chuangbahenbccs/TravelApp/recommend/places/googleplaces"
	"github.com/chuangbahenbccs/TravelApp/recommend/util/redact"
	"github.com/chuangbahenbccs/TravelApp/recommend/util/storage"
)

func main() {
	cfg := config.GetConfig()
	beeline.Init(beeline.Config{
		WriteKey:    cfg.HoneycombKey,
		Dataset:     "rws",
		ServiceName: "nearby-recommendations",
		PresendHook: redact.CleanHoneycomb,
	})
	defer beeline.Close()
	http.DefaultTransport = hnynethttp.WrapRoundTripper(http.DefaultTransport)

	store, closeStore, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Opening cache store failed: %v", err)
	}
	defer closeStore()

	provider, err := newProvider(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Creating places provider failed: %v", err)
	}

	service := recommend.NewService(provider, store, newChecker(cfg))
	service.ClearExpired(context.Background())
	log.Printf("Listening on %s.", cfg.ListenAddr)
	log.Fatal(service.ListenAndServe(cfg.ListenAddr))
}

func newStore(cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case "sqlite", "":
		s, err := sqlitecache.Open(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "redis":
		return rediscache.New(storage.GetRedis()), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}

// newProvider builds the one provider the process uses. The Foursquare
// client paces its own requests, so it must not be constructed twice.
func newProvider(ctx context.Context, cfg *config.Config) (places.Provider, error) {
	switch cfg.PlacesProvider {
	case "foursquare", "":
		opts := []foursquare.Option{
			foursquare.WithHTTPClient(http.DefaultClient),
			foursquare.WithBaseURL(cfg.FoursquareBaseURL),
			foursquare.WithAPIVersion(cfg.FoursquareAPIVersion),
			foursquare.WithMinInterval(cfg.MinRequestInterval),
		}
		if cfg.Language != "" {
			tag, err := language.Parse(cfg.Language)
			if err != nil {
				return nil, fmt.Errorf("parse LANGUAGE: %w", err)
			}
			opts = append(opts, foursquare.WithLanguage(tag))
		}
		return foursquare.New(cfg.FoursquareKey, opts...)
	case "google":
		return googleplaces.New(ctx, cfg.GooglePlacesKey)
	}
	return nil, fmt.Errorf("unknown places provider %q", cfg.PlacesProvider)
}

func newChecker(cfg *config.Config) connectivity.Checker {
	if cfg.ForceOffline {
		return connectivity.Static(false)
	}
	if cfg.ConnectivityProbeURL != "" {
		return connectivity.NewProbe(cfg.ConnectivityProbeURL)
	}
	return connectivity.Static(true)
}
