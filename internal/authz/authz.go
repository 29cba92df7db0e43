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

// Package authz derives a trusted per-request user context for the admin
// portal. Identity comes exclusively from gateway-verified claim headers or a
// validated session cookie; a client-decoded JWT contributes display fields
// only. Nothing here is persisted.
package authz

import (
	"net/http"
)

// Error codes for authorization failures.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
)

// UserContext is the trusted identity derived for one request.
type UserContext struct {
	UserID                  string `json:"userId"`
	UserRole                Role   `json:"userRole"`
	UserName                string `json:"userName"`
	UserEmail               string `json:"userEmail"`
	TenantID                string `json:"tenantId"`
	IsAuthenticated         bool   `json:"isAuthenticated"`
	IsAdminPortalAuthorized bool   `json:"isAdminPortalAuthorized"`
}

// AuthError is a structured authorization failure.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

// Result is the outcome of an authorization check.
type Result struct {
	Authorized bool
	Context    UserContext
	Err        *AuthError
}

// Config holds authorizer settings.
type Config struct {
	// SessionCookieName is the auth-bff session cookie whose presence marks
	// a validated session. Defaults to "admin_session".
	SessionCookieName string
}

const defaultSessionCookie = "admin_session"

// Authorizer performs per-request context derivation and checks.
type Authorizer struct {
	sessionCookie string
}

// New builds an Authorizer.
func New(cfg Config) *Authorizer {
	name := cfg.SessionCookieName
	if name == "" {
		name = defaultSessionCookie
	}
	return &Authorizer{sessionCookie: name}
}

// ExtractUserContext derives the trusted user context for a request.
//
// Trust order: gateway-verified claim headers first, then the session cookie
// presence flag. Display claims from an unverified bearer token fill in the
// name (always) and email (only when the gateway supplied none); they never
// influence IsAuthenticated or UserRole.
func (a *Authorizer) ExtractUserContext(r *http.Request) UserContext {
	verified := VerifiedClaimsFromRequest(r)
	display := DisplayClaimsFromRequest(r)

	hasSession := a.hasSessionCookie(r)
	authenticated := verified.HasIdentity() || hasSession

	ctx := UserContext{
		UserID:          verified.Subject,
		TenantID:        verified.TenantID,
		UserEmail:       verified.Email,
		UserName:        display.Name,
		UserRole:        deriveRole(verified),
		IsAuthenticated: authenticated,
	}

	if ctx.UserEmail == "" {
		ctx.UserEmail = display.Email
	}

	// Fine-grained RBAC is re-derived by each backend service; portal access
	// only requires an authenticated identity.
	ctx.IsAdminPortalAuthorized = ctx.IsAuthenticated

	return ctx
}

func (a *Authorizer) hasSessionCookie(r *http.Request) bool {
	cookie, err := r.Cookie(a.sessionCookie)
	return err == nil && cookie.Value != ""
}

// RequireAuthentication fails with UNAUTHORIZED/401 when no trusted identity
// is present.
func (a *Authorizer) RequireAuthentication(r *http.Request) Result {
	ctx := a.ExtractUserContext(r)
	if !ctx.IsAuthenticated {
		return Result{
			Context: ctx,
			Err: &AuthError{
				Code:    CodeUnauthorized,
				Message: "authentication required",
				Status:  http.StatusUnauthorized,
			},
		}
	}
	return Result{Authorized: true, Context: ctx}
}

// RequireRole fails with FORBIDDEN/403 when the derived role sits below the
// required one. Authentication is checked first.
func (a *Authorizer) RequireRole(r *http.Request, required Role) Result {
	res := a.RequireAuthentication(r)
	if !res.Authorized {
		return res
	}
	if !HasMinimumRole(res.Context.UserRole, required) {
		return Result{
			Context: res.Context,
			Err: &AuthError{
				Code:    CodeForbidden,
				Message: "insufficient role",
				Status:  http.StatusForbidden,
			},
		}
	}
	return res
}

// RequireAdminPortalAccess gates the portal surface.
func (a *Authorizer) RequireAdminPortalAccess(r *http.Request) Result {
	res := a.RequireAuthentication(r)
	if !res.Authorized {
		return res
	}
	if !res.Context.IsAdminPortalAuthorized {
		return Result{
			Context: res.Context,
			Err: &AuthError{
				Code:    CodeForbidden,
				Message: "admin portal access denied",
				Status:  http.StatusForbidden,
			},
		}
	}
	return res
}
