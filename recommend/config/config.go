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

package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8080"`

	PlacesProvider       string        `env:"PLACES_PROVIDER" envDefault:"foursquare"`
	FoursquareKey        string        `env:"FOURSQUARE_API_KEY"`
	FoursquareBaseURL    string        `env:"FOURSQUARE_BASE_URL" envDefault:"https://places-api.foursquare.com"`
	FoursquareAPIVersion string        `env:"FOURSQUARE_API_VERSION" envDefault:"2025-06-17"`
	GooglePlacesKey      string        `env:"GOOGLE_PLACES_API_KEY"`
	MinRequestInterval   time.Duration `env:"MIN_REQUEST_INTERVAL" envDefault:"1s"`
	Language             string        `env:"LANGUAGE"`

	CacheBackend string `env:"CACHE_BACKEND" envDefault:"sqlite"`
	CachePath    string `env:"CACHE_PATH" envDefault:"recommendations.db"`
	RedisURL     string `env:"REDIS_URL"`

	ConnectivityProbeURL string `env:"CONNECTIVITY_PROBE_URL"`
	ForceOffline         bool   `env:"FORCE_OFFLINE"`

	HoneycombKey string `env:"HONEYCOMB_KEY"`
}

var c Config

func GetConfig() *Config {
	return &c
}

// Parse fills a Config from the process environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func init() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only log if the file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			log.Printf("Error loading .env file: %v", err)
		}
	}

	var err error
	c, err = Parse()
	if err != nil {
		log.Printf("Error reading configuration: %v", err)
	}
}
