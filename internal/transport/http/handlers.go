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
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shopstack/admin-gateway/internal/audit"
	"github.com/shopstack/admin-gateway/internal/authz"
	"github.com/shopstack/admin-gateway/internal/config"
	"github.com/shopstack/admin-gateway/internal/csrf"
	"github.com/shopstack/admin-gateway/internal/observability/metrics"
	"github.com/shopstack/admin-gateway/internal/pii"
	"github.com/shopstack/admin-gateway/internal/proxy"
	"github.com/shopstack/admin-gateway/internal/ratelimit"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	authorizer  *authz.Authorizer
	protector   *csrf.Protector
	limiter     *ratelimit.Limiter
	proxyClient *proxy.Client
	metrics     *metrics.GatewayMetrics
	auditLogger audit.Logger
	secureLog   *pii.SecureLogger
	backends    config.BackendsConfig
}

// NewHandler creates a new HTTP handler
func NewHandler(
	authorizer *authz.Authorizer,
	protector *csrf.Protector,
	limiter *ratelimit.Limiter,
	proxyClient *proxy.Client,
	gatewayMetrics *metrics.GatewayMetrics,
	auditLogger audit.Logger,
	secureLog *pii.SecureLogger,
	backends config.BackendsConfig,
) *Handler {
	return &Handler{
		authorizer:  authorizer,
		protector:   protector,
		limiter:     limiter,
		proxyClient: proxyClient,
		metrics:     gatewayMetrics,
		auditLogger: auditLogger,
		secureLog:   secureLog,
		backends:    backends,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, burst *BurstLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(BurstLimitMiddleware(burst))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(h.LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Token mint is reachable without authentication: the login page
		// needs a token before a session exists.
		r.Get("/csrf-token", h.MintCSRFToken)

		// Proxied surface (FAIL-CLOSED). Order is load-bearing:
		// authorization -> CSRF -> rate limit -> proxy.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Use(h.CSRFMiddleware)
			r.Use(h.RateLimitMiddleware)

			r.Get("/me", h.CurrentUser)

			r.Mount("/categories", h.backendProxy("categories-service", h.backends.CategoriesServiceURL))
			r.Mount("/orders", h.backendProxy("orders-service", h.backends.OrdersServiceURL))
			r.Mount("/returns", h.backendProxy("returns-service", h.backends.ReturnsServiceURL))
			r.Mount("/teams", h.backendProxy("teams-service", h.backends.TeamsServiceURL))
			r.Mount("/media", h.backendProxy("document-service", h.backends.DocumentServiceURL))
			r.Mount("/analytics", h.backendProxy("analytics-service", h.backends.AnalyticsServiceURL))
			r.Mount("/search", h.backendProxy("search-service", h.backends.SearchServiceURL))
			r.Mount("/notifications", h.backendProxy("notification-gateway", h.backends.NotificationGatewayURL))
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "admin-gateway",
	})
}

// MintCSRFToken sets a fresh double-submit cookie and echoes the token so
// SPA clients that cannot read cookies on first paint still get one.
func (h *Handler) MintCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.protector.SetCookie(r.Context(), w)
	if err != nil {
		h.secureLog.Error(r.Context(), "failed to mint CSRF token", "error", err.Error())
		respondError(w, http.StatusInternalServerError, "failed to mint CSRF token", nil)
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeTokenMinted,
		Resource:  "csrf_token",
		IPAddress: proxy.ClientIP(r),
	})

	respondData(w, http.StatusOK, map[string]string{"csrfToken": token})
}

// CurrentUser returns the derived user context. The UI renders name/role from
// this instead of decoding tokens client-side.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, GetUserContext(r.Context()))
}

// backendProxy returns a catch-all handler relaying the sub-route to one
// backend service. The path under the mount point is forwarded verbatim.
func (h *Handler) backendProxy(serviceName, serviceURL string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Backends are rooted at their resource: /api/v1/categories/123
		// forwards as /categories/123.
		endpoint := strings.TrimPrefix(r.URL.Path, "/api/v1")
		if !strings.HasPrefix(endpoint, "/") {
			endpoint = "/" + endpoint
		}

		uc := GetUserContext(r.Context())
		headers := authz.AuthorizedHeaders(r, nil)

		status, envelope := h.proxyClient.ProxyRequest(r.Context(), serviceURL, endpoint, r, proxy.Options{
			Headers: headers,
		})

		h.metrics.RecordProxy(r.Context(), serviceName, status)
		if status >= 500 {
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeProxyFailure,
				TenantID:  uc.TenantID,
				ActorID:   uc.UserID,
				Resource:  serviceName + endpoint,
				IPAddress: proxy.ClientIP(r),
			})
		}

		respondJSON(w, status, envelope)
	})
}
