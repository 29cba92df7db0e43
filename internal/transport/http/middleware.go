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
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/shopstack/admin-gateway/internal/audit"
	"github.com/shopstack/admin-gateway/internal/csrf"
	"github.com/shopstack/admin-gateway/internal/observability/logger"
	"github.com/shopstack/admin-gateway/internal/proxy"
)

// Ordering invariant on the proxied surface: authorization extraction runs
// before CSRF validation, and CSRF validation runs before any mutating
// backend call. The middleware chain below encodes that order; rearranging it
// is a security defect.

// LoggingMiddleware logs HTTP requests. Values reaching the log pass through
// PII masking in the secure logger.
func (h *Handler) LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				h.secureLog.Info(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.ClientIP(proxy.ClientIP(r)),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// AuthMiddleware derives the trusted user context and requires admin portal
// access. It MUST run first on the proxied surface: the derived identity
// gates everything downstream.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := h.authorizer.RequireAdminPortalAccess(r)
		if !res.Authorized {
			h.metrics.AuthFailures.Add(r.Context(), 1)
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeAccessDenied,
				Resource:  r.URL.Path,
				IPAddress: proxy.ClientIP(r),
				UserAgent: r.UserAgent(),
				Metadata:  map[string]any{"code": res.Err.Code},
			})
			respondAuthError(w, res.Err)
			return
		}

		ctx := WithUserContext(r.Context(), res.Context)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFMiddleware enforces the double-submit check for state-changing methods.
// Safe methods pass through untouched.
func (h *Handler) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !csrf.RequiresProtection(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		validation := h.protector.ValidateRequest(r)
		if !validation.Valid {
			uc := GetUserContext(r.Context())
			h.metrics.CSRFRejections.Add(r.Context(), 1)
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeCSRFRejected,
				TenantID:  uc.TenantID,
				ActorID:   uc.UserID,
				Resource:  r.URL.Path,
				IPAddress: proxy.ClientIP(r),
				Metadata:  map[string]any{"reason": validation.Error},
			})
			respondError(w, http.StatusForbidden, validation.Error,
				map[string]string{"code": "CSRF_VALIDATION_FAILED"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware applies the per-identifier window budget. Authenticated
// requests count against the user ID so one client cannot starve an office
// NAT; anonymous requests fall back to the client IP.
func (h *Handler) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uc := GetUserContext(r.Context())

		identifier := uc.UserID
		if identifier == "" {
			identifier = proxy.ClientIP(r)
		}

		if !h.limiter.Allow(r.Context(), identifier) {
			h.metrics.RateLimited.Add(r.Context(), 1)
			h.auditLogger.Log(r.Context(), audit.Event{
				Type:      audit.TypeRateLimited,
				TenantID:  uc.TenantID,
				ActorID:   uc.UserID,
				Resource:  r.URL.Path,
				IPAddress: proxy.ClientIP(r),
			})
			slog.WarnContext(r.Context(), "rate limit exceeded",
				logger.Path(r.URL.Path),
			)
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
