// Copyright 2026 The ShopStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ratelimit implements the per-identifier request window applied to
// proxied backend calls. The counter store is injectable so a single-instance
// deployment uses process memory while multi-instance deployments share a
// Redis window.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of requests allowed per identifier per window.
	DefaultLimit = 100

	// DefaultWindow is the counting window length.
	DefaultWindow = 60 * time.Second
)

// Store counts requests per identifier within a window.
type Store interface {
	// Incr increments the counter for key and returns the new count. The
	// window resets lazily on the first increment observed after expiry.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter enforces a fixed window of Limit requests per identifier.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// Config tunes a Limiter. Zero values take the defaults.
type Config struct {
	Limit  int
	Window time.Duration
}

// NewLimiter builds a Limiter over the given store.
func NewLimiter(store Store, cfg Config) *Limiter {
	limit := int64(cfg.Limit)
	if limit <= 0 {
		limit = DefaultLimit
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow reports whether the identifier is under its window budget. Store
// infrastructure errors fail open so a degraded Redis cannot take the portal
// down; the in-memory store never errors.
func (l *Limiter) Allow(ctx context.Context, identifier string) bool {
	count, err := l.store.Incr(ctx, identifier, l.window)
	if err != nil {
		slog.WarnContext(ctx, "rate limit store unavailable, failing open",
			slog.String("error", err.Error()),
		)
		return true
	}
	return count <= l.limit
}

// MemoryStore is the process-local window counter.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
}

type windowEntry struct {
	count   int64
	resetAt time.Time
}

// NewMemoryStore builds an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*windowEntry)}
}

// Incr implements Store with lazy window reset.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.resetAt) {
		entry = &windowEntry{resetAt: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

// Reset clears the counter for an identifier. Used by tests.
func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}
