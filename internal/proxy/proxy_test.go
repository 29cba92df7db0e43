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

package proxy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/admin-gateway/internal/pii"
)

func testClient(production bool) *Client {
	logger := pii.NewSecureLogger(slog.Default(), pii.NewMasker(pii.MaskerConfig{}), false)
	return NewClient(production, logger, 2*time.Second)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"x-forwarded-for single", map[string]string{"x-forwarded-for": "203.0.113.5"}, "203.0.113.5"},
		{"x-forwarded-for chain keeps first", map[string]string{"x-forwarded-for": "203.0.113.5, 10.0.0.1, 10.0.0.2"}, "203.0.113.5"},
		{"x-real-ip", map[string]string{"x-real-ip": "198.51.100.7"}, "198.51.100.7"},
		{"cloudflare", map[string]string{"cf-connecting-ip": "192.0.2.9"}, "192.0.2.9"},
		{"vercel chain", map[string]string{"x-vercel-forwarded-for": "192.0.2.1, 10.0.0.1"}, "192.0.2.1"},
		{"forwarded-for wins over real-ip", map[string]string{"x-forwarded-for": "203.0.113.5", "x-real-ip": "198.51.100.7"}, "203.0.113.5"},
		{"nothing", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

// TestPurpose: Verifies a successful backend call is wrapped in the standard success envelope
// and that identity headers, request ID and client IP are forwarded.
// Scope: Integration Test (httptest backend)
// Expected: 200 with {data, success:true, timestamp}; backend sees the forwarded header set.
func TestProxyRequest_Success(t *testing.T) {
	var seen http.Header
	var seenPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		seenPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"orders":[{"id":"o1"}]}`))
	}))
	defer backend.Close()

	inbound := httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=2", nil)
	inbound.Header.Set("x-forwarded-for", "203.0.113.5")
	inbound.Header.Set("User-Agent", "portal-test/1.0")

	headers := http.Header{}
	headers.Set("x-jwt-claim-sub", "u1")
	headers.Set("Authorization", "Bearer tok")

	status, envelope := testClient(false).ProxyRequest(context.Background(), backend.URL+"/", "/orders", inbound, Options{
		Headers: headers,
	})

	require.Equal(t, http.StatusOK, status)
	success, ok := envelope.(SuccessEnvelope)
	require.True(t, ok)
	assert.True(t, success.Success)
	assert.NotEmpty(t, success.Timestamp)
	data, ok := success.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data, "orders")

	assert.Equal(t, "/orders?page=2", seenPath, "path and query forwarded verbatim")
	assert.Equal(t, "u1", seen.Get("x-jwt-claim-sub"))
	assert.Equal(t, "Bearer tok", seen.Get("Authorization"))
	assert.NotEmpty(t, seen.Get(HeaderRequestID))
	assert.Equal(t, "203.0.113.5", seen.Get(HeaderForwardedFor))
	assert.Equal(t, "203.0.113.5", seen.Get(HeaderRealIP))
	assert.Equal(t, "203.0.113.5", seen.Get(HeaderClientIP))
	assert.Equal(t, "portal-test/1.0", seen.Get("User-Agent"))
}

func TestProxyRequest_ExistingRequestIDPropagates(t *testing.T) {
	var seen string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(HeaderRequestID)
		w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	inbound := httptest.NewRequest(http.MethodGet, "/x", nil)
	inbound.Header.Set(HeaderRequestID, "req-abc-123")

	testClient(false).ProxyRequest(context.Background(), backend.URL, "/x", inbound, Options{})
	assert.Equal(t, "req-abc-123", seen)
}

// TestPurpose: Verifies mutating requests forward the inbound JSON body.
// Scope: Integration Test (httptest backend)
// Expected: backend receives the body with a JSON content type; explicit Body overrides it.
func TestProxyRequest_BodyForwarding(t *testing.T) {
	var seenBody string
	var seenCT string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seenBody = string(raw)
		seenCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"new"}`))
	}))
	defer backend.Close()

	c := testClient(false)

	inbound := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"Summer Sale"}`))
	status, _ := c.ProxyRequest(context.Background(), backend.URL, "/categories", inbound, Options{})
	assert.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"name":"Summer Sale"}`, seenBody)
	assert.Equal(t, "application/json", seenCT)

	inbound = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"ignored":true}`))
	c.ProxyRequest(context.Background(), backend.URL, "/categories", inbound, Options{
		Body: map[string]string{"name": "Override"},
	})
	assert.JSONEq(t, `{"name":"Override"}`, seenBody, "explicit body wins over the inbound one")

	inbound = httptest.NewRequest(http.MethodGet, "/x", strings.NewReader(`{"never":"sent"}`))
	c.ProxyRequest(context.Background(), backend.URL, "/categories", inbound, Options{})
	assert.Empty(t, seenBody, "safe methods send no body")
}

// TestPurpose: Verifies backend error statuses are mirrored with the upstream message extracted.
// Scope: Integration Test (httptest backend)
// Expected: upstream 404 relays as a 404 error envelope carrying the backend's message.
func TestProxyRequest_UpstreamError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"order not found"}}`))
	}))
	defer backend.Close()

	inbound := httptest.NewRequest(http.MethodGet, "/x", nil)
	status, envelope := testClient(false).ProxyRequest(context.Background(), backend.URL, "/orders/nope", inbound, Options{})

	require.Equal(t, http.StatusNotFound, status)
	errEnv, ok := envelope.(ErrorEnvelope)
	require.True(t, ok)
	assert.Equal(t, "order not found", errEnv.Error.Message)
	assert.Equal(t, http.StatusNotFound, errEnv.Error.Status)
}

func TestProxyRequest_FlatMessageAndFallback(t *testing.T) {
	payloads := map[string]string{
		"flat": `{"message":"validation failed"}`,
		"bare": `oops`,
	}
	for name, body := range payloads {
		t.Run(name, func(t *testing.T) {
			backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(body))
			}))
			defer backend.Close()

			inbound := httptest.NewRequest(http.MethodGet, "/x", nil)
			_, envelope := testClient(false).ProxyRequest(context.Background(), backend.URL, "/y", inbound, Options{})
			errEnv := envelope.(ErrorEnvelope)
			if name == "flat" {
				assert.Equal(t, "validation failed", errEnv.Error.Message)
			} else {
				assert.Equal(t, http.StatusText(http.StatusBadRequest), errEnv.Error.Message)
			}
		})
	}
}

// TestPurpose: Verifies unreachable backends yield a 503 whose raw detail leaks only outside production.
// Scope: Integration Test
// Security: No internal error strings in production responses
// Expected: development envelope has details; production envelope has none.
func TestProxyRequest_BackendUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	inbound := httptest.NewRequest(http.MethodGet, "/x", nil)

	status, envelope := testClient(false).ProxyRequest(context.Background(), dead.URL, "/orders", inbound, Options{})
	require.Equal(t, http.StatusServiceUnavailable, status)
	errEnv := envelope.(ErrorEnvelope)
	assert.Equal(t, "backend service unavailable", errEnv.Error.Message)
	assert.NotNil(t, errEnv.Error.Details, "development includes the dial error")

	status, envelope = testClient(true).ProxyRequest(context.Background(), dead.URL, "/orders", inbound, Options{})
	require.Equal(t, http.StatusServiceUnavailable, status)
	errEnv = envelope.(ErrorEnvelope)
	assert.Nil(t, errEnv.Error.Details, "production omits internals")
}

func TestEnvelopes(t *testing.T) {
	s := Success(map[string]string{"k": "v"})
	assert.True(t, s.Success)
	_, err := time.Parse(time.RFC3339, s.Timestamp)
	assert.NoError(t, err)

	e := Error("boom", http.StatusBadGateway, nil)
	assert.Equal(t, "boom", e.Error.Message)
	assert.Equal(t, http.StatusBadGateway, e.Error.Status)
	assert.NotEmpty(t, e.Error.Timestamp)
}
