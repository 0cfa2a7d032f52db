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

// Package sqlitecache is a cache.Store backed by a local SQLite file, so
// searches survive restarts without any network dependency.
package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/honeycombio/beeline-go"
	_ "modernc.org/sqlite"

	"github.com/chuangbahenbccs/TravelApp/recommend/cache"
	"github.com/chuangbahenbccs/TravelApp/recommend/cache/sqlitecache/migrations"
	"github.com/chuangbahenbccs/TravelApp/recommend/places"
)

type Store struct {
	sqlDB *sql.DB
	now   cache.Clock
}

type Option func(*Store)

// WithClock replaces time.Now as the store's notion of the current time.
func WithClock(clock cache.Clock) Option {
	return func(s *Store) {
		s.now = clock
	}
}

// Open opens (creating if needed) the cache database at path and applies
// migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, key string) (*cache.Entry, error) {
	ctx, span := beeline.StartSpan(ctx, "sqlitecache.get")
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
	ctx, span := beeline.StartSpan(ctx, "sqlitecache.get_including_expired")
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
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	var (
		centerJSON, placesJSON string
		cachedAt, expiresAt    int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT center_json, places_json, cached_at, expires_at
FROM recommendation_caches
WHERE center_key = ?
`, key).Scan(&centerJSON, &placesJSON, &cachedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cache entry %q: %w", key, err)
	}

	entry := &cache.Entry{
		Key:       key,
		CachedAt:  time.Unix(0, cachedAt),
		ExpiresAt: time.Unix(0, expiresAt),
	}
	if err := json.Unmarshal([]byte(centerJSON), &entry.Center); err != nil {
		return nil, fmt.Errorf("decode center for %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(placesJSON), &entry.Places); err != nil {
		return nil, fmt.Errorf("decode places for %q: %w", key, err)
	}
	return entry.Normalize(), nil
}

// Set replaces any existing row for entry.Key inside one transaction.
func (s *Store) Set(ctx context.Context, entry *cache.Entry) error {
	ctx, span := beeline.StartSpan(ctx, "sqlitecache.set")
	defer span.Send()
	if err := s.check(ctx); err != nil {
		return err
	}
	if entry == nil || entry.Key == "" {
		return fmt.Errorf("cache entry key is required")
	}
	centerJSON, err := json.Marshal(entry.Center)
	if err != nil {
		return fmt.Errorf("encode center: %w", err)
	}
	list := entry.Places
	if list == nil {
		list = []places.PlaceSummary{}
	}
	placesJSON, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode places: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		span.AddField("error", err)
		return fmt.Errorf("begin set: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendation_caches WHERE center_key = ?`, entry.Key); err != nil {
		_ = tx.Rollback()
		span.AddField("error", err)
		return fmt.Errorf("delete previous entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO recommendation_caches (
	center_key,
	center_json,
	places_json,
	cached_at,
	expires_at
) VALUES (?, ?, ?, ?, ?)
`,
		entry.Key,
		string(centerJSON),
		string(placesJSON),
		entry.CachedAt.UTC().UnixNano(),
		entry.ExpiresAt.UTC().UnixNano(),
	); err != nil {
		_ = tx.Rollback()
		span.AddField("error", err)
		return fmt.Errorf("insert entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		span.AddField("error", err)
		return fmt.Errorf("commit set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, span := beeline.StartSpan(ctx, "sqlitecache.delete")
	defer span.Send()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM recommendation_caches WHERE center_key = ?`, key); err != nil {
		span.AddField("error", err)
		return fmt.Errorf("delete cache entry %q: %w", key, err)
	}
	return nil
}

func (s *Store) ClearExpired(ctx context.Context) (int, error) {
	ctx, span := beeline.StartSpan(ctx, "sqlitecache.clear_expired")
	defer span.Send()
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM recommendation_caches WHERE expires_at <= ?`, s.now().UTC().UnixNano())
	if err != nil {
		span.AddField("error", err)
		return 0, fmt.Errorf("clear expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear expired rows affected: %w", err)
	}
	span.AddField("removed", n)
	return int(n), nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	ctx, span := beeline.StartSpan(ctx, "sqlitecache.clear_all")
	defer span.Send()
	if err := s.check(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM recommendation_caches`); err != nil {
		span.AddField("error", err)
		return fmt.Errorf("clear all: %w", err)
	}
	return nil
}

func (s *Store) RecentSearches(ctx context.Context, limit int) ([]cache.SearchCenter, error) {
	ctx, span := beeline.StartSpan(ctx, "sqlitecache.recent_searches")
	defer span.Send()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = cache.DefaultRecentSearches
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT center_json
FROM recommendation_caches
ORDER BY cached_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		span.AddField("error", err)
		return nil, fmt.Errorf("list recent searches: %w", err)
	}
	defer rows.Close()

	centers := make([]cache.SearchCenter, 0, limit)
	for rows.Next() {
		var centerJSON string
		if err := rows.Scan(&centerJSON); err != nil {
			return nil, fmt.Errorf("scan recent search: %w", err)
		}
		var center cache.SearchCenter
		if err := json.Unmarshal([]byte(centerJSON), &center); err != nil {
			return nil, fmt.Errorf("decode recent search: %w", err)
		}
		center.SearchedAt = center.SearchedAt.UTC()
		centers = append(centers, center)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent searches: %w", err)
	}
	return centers, nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}
