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

package storage

import (
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/chuangbahenbccs/TravelApp/recommend/config"
)

var sharedRedis *redis.Client
var sharedRedisOnce sync.Once

// GetRedis returns the process-wide Redis client built from REDIS_URL.
func GetRedis() *redis.Client {
	sharedRedisOnce.Do(func() {
		client, err := NewRedis(config.GetConfig().RedisURL)
		if err != nil {
			log.Fatalf("Error connecting to redis: %v", err)
		}
		sharedRedis = client
	})
	return sharedRedis
}

// NewRedis builds a client from a redis:// URL.
func NewRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
