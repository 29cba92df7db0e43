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

package authz

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Gateway-injected claim headers. The ingress proxy verifies the JWT
// signature before injecting these, so their values are trusted as-is.
const (
	HeaderClaimSub           = "x-jwt-claim-sub"
	HeaderClaimTenantID      = "x-jwt-claim-tenant-id"
	HeaderClaimEmail         = "x-jwt-claim-email"
	HeaderClaimPlatformOwner = "x-jwt-claim-platform-owner"
	HeaderClaimRoles         = "x-jwt-claim-roles"
)

// VerifiedClaims holds identity attributes taken from gateway-verified
// headers. This is the ONLY type that may feed authentication or role
// decisions.
type VerifiedClaims struct {
	Subject       string
	TenantID      string
	Email         string
	PlatformOwner bool
	Roles         []string
}

// HasIdentity reports whether the gateway asserted a subject.
func (c VerifiedClaims) HasIdentity() bool {
	return c.Subject != ""
}

// VerifiedClaimsFromRequest extracts the gateway-injected claim headers.
// A malformed roles array is treated as no roles, never as an error that
// would widen access.
func VerifiedClaimsFromRequest(r *http.Request) VerifiedClaims {
	claims := VerifiedClaims{
		Subject:       r.Header.Get(HeaderClaimSub),
		TenantID:      r.Header.Get(HeaderClaimTenantID),
		Email:         r.Header.Get(HeaderClaimEmail),
		PlatformOwner: r.Header.Get(HeaderClaimPlatformOwner) == "true",
	}

	if raw := r.Header.Get(HeaderClaimRoles); raw != "" {
		var roles []string
		if err := json.Unmarshal([]byte(raw), &roles); err == nil {
			claims.Roles = roles
		}
	}
	return claims
}

// DisplayClaims holds attributes decoded from the Authorization bearer token
// WITHOUT signature verification. They exist for display only (a greeting
// name, a fallback email) and are structurally separate from VerifiedClaims
// so they can never feed an authorization decision.
type DisplayClaims struct {
	Name  string
	Email string
	Role  string
}

// DisplayClaimsFromRequest decodes (but does not verify) the bearer token.
// Absent or unparseable tokens yield zero claims.
func DisplayClaimsFromRequest(r *http.Request) DisplayClaims {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return DisplayClaims{}
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if raw == "" {
		return DisplayClaims{}
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return DisplayClaims{}
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return DisplayClaims{}
	}

	out := DisplayClaims{}
	if v, ok := mapClaims["name"].(string); ok {
		out.Name = v
	}
	if v, ok := mapClaims["email"].(string); ok {
		out.Email = v
	}
	if v, ok := mapClaims["role"].(string); ok {
		out.Role = v
	}
	return out
}
