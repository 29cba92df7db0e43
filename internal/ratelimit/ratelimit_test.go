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

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPurpose: Verifies the fixed window admits exactly the configured budget.
// Scope: Unit Test
// Expected: request 100 allowed, request 101 denied, other identifiers unaffected.
func TestLimiter_WindowBudget(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), Config{Limit: 100, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.True(t, l.Allow(ctx, "user-1"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Allow(ctx, "user-1"), "request 101 must be denied")

	assert.True(t, l.Allow(ctx, "user-2"), "budgets are per identifier")
}

func TestLimiter_WindowReset(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), Config{Limit: 2, Window: 30 * time.Millisecond})
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "ip-1"))
	assert.True(t, l.Allow(ctx, "ip-1"))
	assert.False(t, l.Allow(ctx, "ip-1"))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, l.Allow(ctx, "ip-1"), "budget returns after the window lapses")
}

func TestLimiter_Defaults(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), Config{})
	assert.Equal(t, int64(DefaultLimit), l.limit)
	assert.Equal(t, DefaultWindow, l.window)
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

// TestPurpose: Verifies store outages degrade to allowing traffic.
// Scope: Unit Test
// Security: Availability over strictness for the counter backend
// Expected: Allow returns true when the store errors.
func TestLimiter_FailsOpen(t *testing.T) {
	l := NewLimiter(failingStore{}, Config{Limit: 1, Window: time.Minute})
	assert.True(t, l.Allow(context.Background(), "anyone"))
	assert.True(t, l.Allow(context.Background(), "anyone"))
}

func TestMemoryStore_Reset(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	count, err := s.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	s.Reset("k")
	count, err = s.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// TestPurpose: Verifies the Redis store anchors the TTL to the first request of a window.
// Scope: Integration Test (embedded Redis)
// Expected: counts accumulate inside the window; expiry restarts the count; the TTL is not extended by later hits.
func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewRedisStore(client, "rl-test")
	ctx := context.Background()

	count, err := s.Incr(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	for i := 0; i < 3; i++ {
		count, err = s.Incr(ctx, "user-1", time.Minute)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(4), count)

	// The window is anchored to the first increment: 61s later the key is
	// gone even though hits kept arriving inside the window.
	mr.FastForward(61 * time.Second)
	count, err = s.Incr(ctx, "user-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisStore_WithLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := NewLimiter(NewRedisStore(client, ""), Config{Limit: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "tenant-1:user-9"))
	}
	assert.False(t, l.Allow(ctx, "tenant-1:user-9"))

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, l.Allow(ctx, "tenant-1:user-9"))
}

func TestRedisStore_FailOpenThroughLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewLimiter(NewRedisStore(client, ""), Config{Limit: 1, Window: time.Minute})

	mr.Close()
	client.Close()

	assert.True(t, l.Allow(context.Background(), "user-1"), "redis outage fails open")
}
