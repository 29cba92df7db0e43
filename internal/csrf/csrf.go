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

// Package csrf implements stateless double-submit-cookie CSRF protection.
// Tokens are HMAC-signed and time-boxed; no server-side token store exists.
package csrf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shopstack/admin-gateway/internal/cryptoutil"
	"github.com/shopstack/admin-gateway/internal/secrets"
)

const (
	// CookieName is the JS-readable cookie carrying the minted token.
	CookieName = "csrf-token"

	// HeaderName is the request header the client must echo the cookie into.
	HeaderName = "X-CSRF-Token"

	// TokenMaxAge bounds token freshness.
	TokenMaxAge = time.Hour

	// tokenRandomBytes is the length of the random token part.
	tokenRandomBytes = 32

	// secretID and secretEnvVar locate the signing secret.
	secretID     = "jwt-secret"
	secretEnvVar = "CSRF_SECRET"

	// developmentSecret is the clearly-named fallback outside production.
	developmentSecret = "insecure-development-csrf-secret"
)

// Validation error messages. Each failure mode is distinguishable.
const (
	ErrMissingCookie = "Missing CSRF cookie"
	ErrMissingHeader = "Missing CSRF header"
	ErrTokenMismatch = "CSRF token mismatch"
	ErrInvalidToken  = "Invalid CSRF token"
)

// ErrNoSecret is returned when no signing secret is resolvable in production.
var ErrNoSecret = errors.New("CSRF secret is not resolvable")

// RequestValidation is the outcome of validating an inbound request.
type RequestValidation struct {
	Valid bool
	Error string
}

// protectedMethods are the state-changing methods that require a token.
var protectedMethods = map[string]struct{}{
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// RequiresProtection reports whether a method is state-changing. Safe methods
// (GET, HEAD, OPTIONS) bypass validation.
func RequiresProtection(method string) bool {
	_, ok := protectedMethods[method]
	return ok
}

// Protector mints and validates CSRF tokens. The signing secret is resolved
// lazily exactly once per process: concurrent initializers share one
// in-flight fetch. In production a failed resolution is terminal; elsewhere
// the development secret is substituted.
type Protector struct {
	provider   *secrets.Provider
	production bool

	group singleflight.Group

	mu      sync.RWMutex
	secret  string
	initErr error
}

// NewProtector builds a Protector backed by the given secrets provider.
func NewProtector(provider *secrets.Provider, production bool) *Protector {
	return &Protector{provider: provider, production: production}
}

// EnsureInitialized resolves the signing secret if it has not been resolved
// yet. Call during boot in production so a missing secret fails hard before
// serving traffic.
func (p *Protector) EnsureInitialized(ctx context.Context) error {
	_, err := p.signingSecret(ctx)
	return err
}

func (p *Protector) signingSecret(ctx context.Context) (string, error) {
	p.mu.RLock()
	secret, initErr := p.secret, p.initErr
	p.mu.RUnlock()
	if secret != "" {
		return secret, nil
	}
	if initErr != nil {
		return "", initErr
	}

	value, err, _ := p.group.Do("csrf-secret", func() (any, error) {
		resolved := p.provider.GetWithFallback(ctx, secretID, secretEnvVar)
		if resolved == "" {
			if p.production {
				return nil, ErrNoSecret
			}
			slog.WarnContext(ctx, "no CSRF secret configured, using development secret")
			resolved = developmentSecret
		}

		p.mu.Lock()
		p.secret = resolved
		p.mu.Unlock()
		return resolved, nil
	})
	if err != nil {
		p.mu.Lock()
		p.initErr = err
		p.mu.Unlock()
		return "", err
	}
	return value.(string), nil
}

// GenerateToken mints a token of the form {random}.{timestampMillis}.{signature}.
func (p *Protector) GenerateToken(ctx context.Context) (string, error) {
	secret, err := p.signingSecret(ctx)
	if err != nil {
		return "", err
	}

	random, err := cryptoutil.GenerateSecureToken(tokenRandomBytes)
	if err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%s.%d", random, time.Now().UnixMilli())
	return payload + "." + cryptoutil.SignHMAC(payload, secret), nil
}

// ValidateToken checks a token's structure, signature and age.
func (p *Protector) ValidateToken(ctx context.Context, token string) bool {
	secret, err := p.signingSecret(ctx)
	if err != nil {
		return false
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	random, timestamp, signature := parts[0], parts[1], parts[2]

	if !cryptoutil.VerifyHMAC(random+"."+timestamp, signature, secret) {
		return false
	}

	millis, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	return time.Since(time.UnixMilli(millis)) <= TokenMaxAge
}

// ValidateRequest applies the double-submit check: the cookie and header must
// both be present, match in constant time, and the header token must itself
// verify. Missing pieces yield specific, distinguishable errors.
func (p *Protector) ValidateRequest(r *http.Request) RequestValidation {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return RequestValidation{Error: ErrMissingCookie}
	}

	header := r.Header.Get(HeaderName)
	if header == "" {
		return RequestValidation{Error: ErrMissingHeader}
	}

	if !cryptoutil.SecureCompare(cookie.Value, header) {
		return RequestValidation{Error: ErrTokenMismatch}
	}

	if !p.ValidateToken(r.Context(), header) {
		return RequestValidation{Error: ErrInvalidToken}
	}

	return RequestValidation{Valid: true}
}

// SetCookie mints a fresh token and writes it as the double-submit cookie:
// JS-readable (not HttpOnly) so the client can echo it into the header,
// SameSite=Strict, Secure in production, 1 hour max-age. The token is also
// returned for response bodies.
func (p *Protector) SetCookie(ctx context.Context, w http.ResponseWriter) (string, error) {
	token, err := p.GenerateToken(ctx)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(TokenMaxAge.Seconds()),
		Secure:   p.production,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}
