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

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/admin-gateway/internal/audit"
	"github.com/shopstack/admin-gateway/internal/authz"
	"github.com/shopstack/admin-gateway/internal/config"
	"github.com/shopstack/admin-gateway/internal/csrf"
	"github.com/shopstack/admin-gateway/internal/observability/metrics"
	"github.com/shopstack/admin-gateway/internal/pii"
	"github.com/shopstack/admin-gateway/internal/proxy"
	"github.com/shopstack/admin-gateway/internal/ratelimit"
	"github.com/shopstack/admin-gateway/internal/secrets"
)

type gatewayFixture struct {
	router    http.Handler
	protector *csrf.Protector
	store     *ratelimit.MemoryStore
	backend   *httptest.Server
	hits      *int
}

func newGatewayFixture(t *testing.T, rateLimit int) *gatewayFixture {
	t.Helper()
	t.Setenv("CSRF_SECRET", "transport-test-secret")

	hits := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"echo": r.URL.Path})
	}))
	t.Cleanup(backend.Close)

	provider, err := secrets.NewProvider(nil, secrets.Config{Enabled: false})
	require.NoError(t, err)
	protector := csrf.NewProtector(provider, false)
	require.NoError(t, protector.EnsureInitialized(context.Background()))

	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.NewLimiter(store, ratelimit.Config{Limit: rateLimit, Window: time.Minute})

	gatewayMetrics, err := metrics.New(context.Background(), metrics.Config{}, "test")
	require.NoError(t, err)

	masker := pii.NewMasker(pii.MaskerConfig{})
	secureLog := pii.NewSecureLogger(slog.Default(), masker, false)

	handler := NewHandler(
		authz.New(authz.Config{}),
		protector,
		limiter,
		proxy.NewClient(false, secureLog, 2*time.Second),
		gatewayMetrics,
		audit.NewSlogLogger(masker),
		secureLog,
		config.BackendsConfig{
			CategoriesServiceURL:   backend.URL,
			OrdersServiceURL:       backend.URL,
			ReturnsServiceURL:      backend.URL,
			TeamsServiceURL:        backend.URL,
			DocumentServiceURL:     backend.URL,
			AnalyticsServiceURL:    backend.URL,
			SearchServiceURL:       backend.URL,
			NotificationGatewayURL: backend.URL,
		},
	)

	burst := NewBurstLimiter(1000, 1000)
	return &gatewayFixture{
		router:    NewRouter(handler, burst),
		protector: protector,
		store:     store,
		backend:   backend,
		hits:      &hits,
	}
}

func authedRequest(method, target string, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set(authz.HeaderClaimSub, "u1")
	r.Header.Set(authz.HeaderClaimTenantID, "t1")
	r.Header.Set(authz.HeaderClaimRoles, `["store_admin"]`)
	return r
}

func (f *gatewayFixture) withCSRF(t *testing.T, r *http.Request) {
	t.Helper()
	token, err := f.protector.GenerateToken(r.Context())
	require.NoError(t, err)
	r.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: token})
	r.Header.Set(csrf.HeaderName, token)
}

func TestHealthCheck(t *testing.T) {
	f := newGatewayFixture(t, 100)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

// TestPurpose: Verifies an authenticated GET is proxied end to end in the success envelope.
// Scope: Integration Test (full router, httptest backend)
// Expected: 200, {data:{echo:/orders/123}, success:true}, backend hit once.
func TestRouter_ProxiesAuthenticatedRequest(t *testing.T) {
	f := newGatewayFixture(t, 100)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders/123", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope proxy.SuccessEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	data := envelope.Data.(map[string]any)
	assert.Equal(t, "/orders/123", data["echo"], "mount prefix /api/v1 is stripped before forwarding")
	assert.Equal(t, 1, *f.hits)
}

// TestPurpose: Verifies unauthenticated requests are rejected before any backend traffic.
// Scope: Integration Test
// Security: Fail-closed authorization
// Expected: 401 with the UNAUTHORIZED code; the backend is never called.
func TestRouter_RejectsUnauthenticated(t *testing.T) {
	f := newGatewayFixture(t, 100)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), authz.CodeUnauthorized)
	assert.Equal(t, 0, *f.hits, "no backend call for unauthenticated traffic")
}

// TestPurpose: Verifies CSRF enforcement sits between authorization and the proxy for mutating methods.
// Scope: Integration Test
// Security: CSRF fail-closed ordering
// Expected: authenticated POST without a token gets 403 and never reaches the backend; with a token it passes.
func TestRouter_CSRFOrdering(t *testing.T) {
	f := newGatewayFixture(t, 100)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/categories", `{"name":"x"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "CSRF_VALIDATION_FAILED")
	assert.Equal(t, 0, *f.hits, "CSRF rejection must precede the backend call")

	r := authedRequest(http.MethodPost, "/api/v1/categories", `{"name":"x"}`)
	f.withCSRF(t, r)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *f.hits)
}

func TestRouter_CSRFSkippedForSafeMethods(t *testing.T) {
	f := newGatewayFixture(t, 100)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/categories", ""))
	assert.Equal(t, http.StatusOK, rec.Code, "GET needs no CSRF token")
}

// TestPurpose: Verifies the per-identifier window limiter returns 429 once the budget is spent.
// Scope: Integration Test
// Expected: requests beyond the limit get 429 and do not reach the backend.
func TestRouter_RateLimit(t *testing.T) {
	f := newGatewayFixture(t, 3)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders", ""))
		require.Equal(t, http.StatusOK, rec.Code, "request %d inside budget", i+1)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders", ""))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 3, *f.hits)

	// Another identity has its own budget.
	r := authedRequest(http.MethodGet, "/api/v1/orders", "")
	r.Header.Set(authz.HeaderClaimSub, "u2")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestPurpose: Verifies the token mint endpoint works without authentication and sets the cookie.
// Scope: Integration Test
// Expected: 200, csrf-token cookie set, token echoed in the body, token validates.
func TestMintCSRFToken(t *testing.T) {
	f := newGatewayFixture(t, 100)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrf.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "mint must set the double-submit cookie")

	var envelope proxy.SuccessEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]any)
	assert.Equal(t, cookie.Value, data["csrfToken"])
	assert.True(t, f.protector.ValidateToken(context.Background(), cookie.Value))
}

func TestCurrentUser(t *testing.T) {
	f := newGatewayFixture(t, 100)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/me", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope proxy.SuccessEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]any)
	assert.Equal(t, "u1", data["userId"])
	assert.Equal(t, "t1", data["tenantId"])
	assert.Equal(t, "admin", data["userRole"])
	assert.Equal(t, true, data["isAuthenticated"])
}

// TestPurpose: Verifies spoofed identity headers in overrides never reach the backend
// while legitimate inbound claim headers do.
// Scope: Integration Test
// Security: Identity header relay integrity
// Expected: backend sees the inbound sub/tenant claims unchanged.
func TestRouter_ForwardsIdentityHeaders(t *testing.T) {
	t.Setenv("CSRF_SECRET", "transport-test-secret")

	var seen http.Header
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	provider, err := secrets.NewProvider(nil, secrets.Config{Enabled: false})
	require.NoError(t, err)
	protector := csrf.NewProtector(provider, false)
	require.NoError(t, protector.EnsureInitialized(context.Background()))

	gatewayMetrics, err := metrics.New(context.Background(), metrics.Config{}, "test")
	require.NoError(t, err)
	masker := pii.NewMasker(pii.MaskerConfig{})
	secureLog := pii.NewSecureLogger(slog.Default(), masker, false)

	handler := NewHandler(
		authz.New(authz.Config{}),
		protector,
		ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Config{}),
		proxy.NewClient(false, secureLog, 2*time.Second),
		gatewayMetrics,
		audit.NewSlogLogger(masker),
		secureLog,
		config.BackendsConfig{OrdersServiceURL: backend.URL},
	)
	router := NewRouter(handler, NewBurstLimiter(1000, 1000))

	r := authedRequest(http.MethodGet, "/api/v1/orders", "")
	r.Header.Set(authz.HeaderClaimEmail, "u1@shop.example")
	r.Header.Set("Authorization", "Bearer inbound-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen.Get(authz.HeaderClaimSub))
	assert.Equal(t, "t1", seen.Get(authz.HeaderClaimTenantID))
	assert.Equal(t, "u1@shop.example", seen.Get(authz.HeaderClaimEmail))
	assert.Equal(t, "Bearer inbound-token", seen.Get("Authorization"))
	assert.Empty(t, seen.Get(authz.HeaderClaimRoles), "roles are re-derived by backends, never relayed")
}

func TestBurstLimiter(t *testing.T) {
	rl := NewBurstLimiter(1, 2)
	handler := BurstLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed, limited := 0, 0
	for i := 0; i < 5; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("x-real-ip", "198.51.100.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		if rec.Code == http.StatusOK {
			allowed++
		} else {
			limited++
		}
	}
	assert.Equal(t, 2, allowed, "burst of 2 admitted")
	assert.Equal(t, 3, limited)

	// A different IP has its own bucket.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("x-real-ip", "198.51.100.2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUserContext_ZeroValue(t *testing.T) {
	uc := GetUserContext(context.Background())
	assert.False(t, uc.IsAuthenticated)
	assert.Equal(t, authz.RoleGuest, uc.UserRole)
}
