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

package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/honeycombio/beeline-go"
	"github.com/redis/go-redis/v9"

	"github.com/chuangbahenbccs/TravelApp/recommend/cache"
)

const DefaultPrefix = "reccache:"

// Store keeps each entry as a JSON string and indexes keys in two sorted
// sets scored by cachedAt and expiresAt in Unix milliseconds. Entries carry
// no Redis TTL: stale entries have to stay readable for offline fallback.
type Store struct {
	redis  *redis.Client
	prefix string
	now    cache.Clock
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func WithClock(clock cache.Clock) Option {
	return func(s *Store) {
		s.now = clock
	}
}

func New(r *redis.Client, opts ...Option) *Store {
	s := &Store{
		redis:  r,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) entryKey(key string) string {
	return s.prefix + "entry:" + key
}

func (s *Store) cachedAtIndex() string {
	return s.prefix + "cached_at"
}

func (s *Store) expiresAtIndex() string {
	return s.prefix + "expires_at"
}

func (s *Store) Get(ctx context.Context, key string) (*cache.Entry, error) {
	ctx, span := beeline.StartSpan(ctx, "rediscache.get")
	defer span.Send()
	entry, err := s.load(ctx, key)
	if err != nil {
		span.AddField("error", err)
		return nil, err
	}
	if entry == nil || entry.IsExpired(s.now()) {
		span.AddField("hit", false)
		return nil, nil
	}
	span.AddField("hit", true)
	return entry, nil
}

func (s *Store) GetIncludingExpired(ctx context.Context, key string) (*cache.Entry, error) {
	ctx, span := beeline.StartSpan(ctx, "rediscache.get_including_expired")
	defer span.Send()
	entry, err := s.load(ctx, key)
	if err != nil {
		span.AddField("error", err)
		return nil, err
	}
	span.AddField("hit", entry != nil)
	return entry, nil
}

func (s *Store) load(ctx context.Context, key string) (*cache.Entry, error) {
	data, err := s.redis.Get(ctx, s.entryKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cache entry %q: %w", key, err)
	}
	return decodeEntry(data)
}

func decodeEntry(data string) (*cache.Entry, error) {
	var entry cache.Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return entry.Normalize(), nil
}

// Set writes the entry and both index scores in a single MULTI block.
func (s *Store) Set(ctx context.Context, entry *cache.Entry) error {
	ctx, span := beeline.StartSpan(ctx, "rediscache.set")
	defer span.Send()
	if entry == nil || entry.Key == "" {
		return fmt.Errorf("cache entry key is required")
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.entryKey(entry.Key))
		pipe.Set(ctx, s.entryKey(entry.Key), encoded, 0)
		pipe.ZAdd(ctx, s.cachedAtIndex(), redis.Z{Score: score(entry.CachedAt), Member: entry.Key})
		pipe.ZAdd(ctx, s.expiresAtIndex(), redis.Z{Score: score(entry.ExpiresAt), Member: entry.Key})
		return nil
	})
	if err != nil {
		span.AddField("error", err)
		return fmt.Errorf("set cache entry %q: %w", entry.Key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, span := beeline.StartSpan(ctx, "rediscache.delete")
	defer span.Send()
	if err := s.remove(ctx, key); err != nil {
		span.AddField("error", err)
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, len(keys))
	entryKeys := make([]string, len(keys))
	for i, k := range keys {
		members[i] = k
		entryKeys[i] = s.entryKey(k)
	}
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, entryKeys...)
		pipe.ZRem(ctx, s.cachedAtIndex(), members...)
		pipe.ZRem(ctx, s.expiresAtIndex(), members...)
		return nil
	})
	return err
}

// sweepAttempts bounds how often one key is rechecked when a concurrent
// write aborts the transaction.
const sweepAttempts = 3

// ClearExpired uses the expiry index to find candidates, then checks and
// removes each key in its own WATCH transaction against the exact stored
// timestamp, since index scores are only millisecond precise. Index members
// without an entry are dropped from the indexes but not counted.
func (s *Store) ClearExpired(ctx context.Context) (int, error) {
	ctx, span := beeline.StartSpan(ctx, "rediscache.clear_expired")
	defer span.Send()
	now := s.now()
	candidates, err := s.redis.ZRangeByScore(ctx, s.expiresAtIndex(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli()+1, 10),
	}).Result()
	if err != nil {
		span.AddField("error", err)
		return 0, fmt.Errorf("scan expiry index: %w", err)
	}

	removed := 0
	for _, key := range candidates {
		ok, err := s.sweep(ctx, key, now)
		if err != nil {
			span.AddField("error", err)
			return removed, fmt.Errorf("remove expired entry %q: %w", key, err)
		}
		if ok {
			removed++
		}
	}
	span.AddField("removed", removed)
	return removed, nil
}

// sweep removes key if it is expired at now. It reports whether an entry
// was deleted.
func (s *Store) sweep(ctx context.Context, key string, now time.Time) (bool, error) {
	for attempt := 0; attempt < sweepAttempts; attempt++ {
		removed, err := s.sweepOnce(ctx, key, now)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return removed, err
	}
	// Still contended: leave the key to the writer.
	return false, nil
}

func (s *Store) sweepOnce(ctx context.Context, key string, now time.Time) (bool, error) {
	entryKey := s.entryKey(key)
	removed := false
	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		exists := true
		data, err := tx.Get(ctx, entryKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
			exists = false
		case err != nil:
			return err
		default:
			entry, err := decodeEntry(data)
			if err != nil {
				return err
			}
			if entry.ExpiresAt.After(now) {
				return nil
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if exists {
				pipe.Del(ctx, entryKey)
			}
			pipe.ZRem(ctx, s.cachedAtIndex(), key)
			pipe.ZRem(ctx, s.expiresAtIndex(), key)
			return nil
		})
		if err != nil {
			return err
		}
		removed = exists
		return nil
	}, entryKey)
	return removed, err
}

func (s *Store) ClearAll(ctx context.Context) error {
	ctx, span := beeline.StartSpan(ctx, "rediscache.clear_all")
	defer span.Send()
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+"entry:*", 100).Result()
		if err != nil {
			span.AddField("error", err)
			return fmt.Errorf("scan cache entries: %w", err)
		}
		if len(keys) > 0 {
			if err := s.redis.Del(ctx, keys...).Err(); err != nil {
				span.AddField("error", err)
				return fmt.Errorf("delete cache entries: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if err := s.redis.Del(ctx, s.cachedAtIndex(), s.expiresAtIndex()).Err(); err != nil {
		span.AddField("error", err)
		return fmt.Errorf("delete cache indexes: %w", err)
	}
	return nil
}

func (s *Store) RecentSearches(ctx context.Context, limit int) ([]cache.SearchCenter, error) {
	ctx, span := beeline.StartSpan(ctx, "rediscache.recent_searches")
	defer span.Send()
	if limit <= 0 {
		limit = cache.DefaultRecentSearches
	}
	keys, err := s.redis.ZRevRange(ctx, s.cachedAtIndex(), 0, int64(limit-1)).Result()
	if err != nil {
		span.AddField("error", err)
		return nil, fmt.Errorf("list recent searches: %w", err)
	}
	centers := make([]cache.SearchCenter, 0, len(keys))
	if len(keys) == 0 {
		return centers, nil
	}
	entryKeys := make([]string, len(keys))
	for i, k := range keys {
		entryKeys[i] = s.entryKey(k)
	}
	values, err := s.redis.MGet(ctx, entryKeys...).Result()
	if err != nil {
		span.AddField("error", err)
		return nil, fmt.Errorf("load recent searches: %w", err)
	}
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			// index and entry raced with a delete
			continue
		}
		entry, err := decodeEntry(data)
		if err != nil {
			return nil, err
		}
		centers = append(centers, entry.Center)
	}
	return centers, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
