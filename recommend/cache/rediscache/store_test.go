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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/chuangbahenbccs/TravelApp/recommend/cache"
	"github.com/chuangbahenbccs/TravelApp/recommend/cache/cachetest"
)

func TestStoreContract(t *testing.T) {
	cachetest.Run(t, func(t *testing.T, clock cache.Clock) cache.Store {
		return New(newRedis(t), WithClock(clock))
	})
}

func TestEntriesHaveNoRedisTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	clock := cachetest.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	s := New(client, WithClock(clock.Now))
	entry := cachetest.SampleEntry("nara", 34.6851, 135.8048, clock.Now())

	if err := s.Set(context.Background(), entry); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(DefaultPrefix + "entry:" + entry.Key); ttl != 0 {
		t.Fatalf("redis ttl = %s, want none", ttl)
	}
}

func TestPrefixIsolation(t *testing.T) {
	client := newRedis(t)
	clock := cachetest.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	a := New(client, WithPrefix("a:"), WithClock(clock.Now))
	b := New(client, WithPrefix("b:"), WithClock(clock.Now))
	entry := cachetest.SampleEntry("osaka", 34.6937, 135.5023, clock.Now())
	ctx := context.Background()

	if err := a.Set(ctx, entry); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := b.ClearAll(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	got, err := a.Get(ctx, entry.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("entry under prefix a: removed by clearing prefix b:")
	}
}

// afterGet runs fn once, right after the first GET of key completes.
type afterGet struct {
	key  string
	once sync.Once
	fn   func()
}

func (h *afterGet) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *afterGet) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if args := cmd.Args(); cmd.Name() == "get" && len(args) > 1 && args[1] == h.key {
			h.once.Do(h.fn)
		}
		return err
	}
}

func (h *afterGet) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestClearExpiredSparesConcurrentWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	sweeperClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	writerClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = sweeperClient.Close()
		_ = writerClient.Close()
	})
	clock := cachetest.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	sweeper := New(sweeperClient, WithClock(clock.Now))
	writer := New(writerClient, WithClock(clock.Now))
	ctx := context.Background()

	old := cachetest.SampleEntry("kobe", 34.6901, 135.1955, clock.Now())
	if err := writer.Set(ctx, old); err != nil {
		t.Fatalf("set old: %v", err)
	}
	clock.Set(old.ExpiresAt.Add(time.Hour))
	fresh := cachetest.SampleEntry("kobe", 34.6901, 135.1955, clock.Now())

	var writeErr error
	sweeperClient.AddHook(&afterGet{
		key: DefaultPrefix + "entry:" + old.Key,
		fn:  func() { writeErr = writer.Set(ctx, fresh) },
	})

	removed, err := sweeper.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("clear expired: %v", err)
	}
	if writeErr != nil {
		t.Fatalf("concurrent set: %v", writeErr)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	got, err := writer.Get(ctx, fresh.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || !got.CachedAt.Equal(fresh.CachedAt) {
		t.Fatalf("entry after sweep = %+v, want the concurrent write", got)
	}
	recent, err := writer.RecentSearches(ctx, 10)
	if err != nil {
		t.Fatalf("recent searches: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("recent searches len = %d, want 1", len(recent))
	}
}

func TestClearExpiredIgnoresOrphanIndexMembers(t *testing.T) {
	client := newRedis(t)
	clock := cachetest.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	s := New(client, WithClock(clock.Now))
	ctx := context.Background()

	for _, index := range []string{s.cachedAtIndex(), s.expiresAtIndex()} {
		if err := client.ZAdd(ctx, index, redis.Z{Score: 0, Member: "ghost"}).Err(); err != nil {
			t.Fatalf("zadd %s: %v", index, err)
		}
	}

	removed, err := s.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("clear expired: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
	for _, index := range []string{s.cachedAtIndex(), s.expiresAtIndex()} {
		if err := client.ZScore(ctx, index, "ghost").Err(); !errors.Is(err, redis.Nil) {
			t.Fatalf("ghost still in %s: err = %v", index, err)
		}
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}
