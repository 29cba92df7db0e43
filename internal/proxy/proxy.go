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

// Package proxy forwards admin-portal requests to the backend microservices
// and normalizes their responses into the standard envelopes.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shopstack/admin-gateway/internal/pii"
)

// Forwarded header names.
const (
	HeaderRequestID    = "X-Request-ID"
	HeaderForwardedFor = "X-Forwarded-For"
	HeaderRealIP       = "X-Real-IP"
	HeaderClientIP     = "X-Client-IP"
)

const defaultTimeout = 10 * time.Second

// mutatingMethods carry a JSON body to the backend.
var mutatingMethods = map[string]struct{}{
	http.MethodPost:  {},
	http.MethodPut:   {},
	http.MethodPatch: {},
}

// ClientIP derives the caller address from the proxy header chain, first
// match wins. Comma lists keep only the first (client-nearest) segment.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("x-forwarded-for"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if rip := r.Header.Get("x-real-ip"); rip != "" {
		return strings.TrimSpace(rip)
	}
	if cf := r.Header.Get("cf-connecting-ip"); cf != "" {
		return strings.TrimSpace(cf)
	}
	if vf := r.Header.Get("x-vercel-forwarded-for"); vf != "" {
		return strings.TrimSpace(strings.Split(vf, ",")[0])
	}
	return "unknown"
}

// Options tunes one proxied call.
type Options struct {
	// Headers is the pre-authorized header set to forward (see
	// authz.AuthorizedHeaders). Identity headers only come in this way.
	Headers http.Header

	// Body, when non-nil, is marshaled and sent instead of the inbound
	// request body.
	Body any

	// Timeout overrides the client default for this call.
	Timeout time.Duration
}

// Client issues outbound backend calls with tracing and a per-call timeout.
type Client struct {
	http       *http.Client
	timeout    time.Duration
	production bool
	logger     *pii.SecureLogger
}

// NewClient builds a proxy client. The transport is wrapped with otelhttp so
// backend calls join the inbound trace.
func NewClient(production bool, logger *pii.SecureLogger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout:    timeout,
		production: production,
		logger:     logger,
	}
}

// ProxyRequest forwards the inbound request to serviceURL+endpoint and
// returns the status code plus the envelope to relay. Backend-reported errors
// mirror the upstream status; an unreachable backend yields a distinct 503
// envelope whose raw detail is only included outside production.
func (c *Client) ProxyRequest(ctx context.Context, serviceURL, endpoint string, r *http.Request, opts Options) (int, any) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, status, envelope := c.requestBody(r, opts)
	if envelope != nil {
		return status, envelope
	}

	target := strings.TrimSuffix(serviceURL, "/") + endpoint
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(callCtx, r.Method, target, body)
	if err != nil {
		return http.StatusInternalServerError, Error("failed to build backend request", http.StatusInternalServerError, nil)
	}

	c.forwardHeaders(req, r, opts.Headers)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error(ctx, "backend unreachable",
			slog.String("service_url", serviceURL),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		var details any
		if !c.production {
			details = err.Error()
		}
		return http.StatusServiceUnavailable, Error("backend service unavailable", http.StatusServiceUnavailable, details)
	}
	defer resp.Body.Close()

	payload := decodeJSON(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, Error(upstreamMessage(payload, resp.StatusCode), resp.StatusCode, payload)
	}
	return resp.StatusCode, Success(payload)
}

// requestBody selects the outbound body: an explicit opts.Body wins; mutating
// methods forward the inbound JSON body; safe methods send none.
func (c *Client) requestBody(r *http.Request, opts Options) (io.Reader, int, any) {
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, http.StatusInternalServerError, Error("failed to encode request body", http.StatusInternalServerError, nil)
		}
		return bytes.NewReader(raw), 0, nil
	}

	if _, ok := mutatingMethods[r.Method]; !ok || r.Body == nil {
		return nil, 0, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, http.StatusBadRequest, Error("failed to read request body", http.StatusBadRequest, nil)
	}
	if len(raw) == 0 {
		return nil, 0, nil
	}
	return bytes.NewReader(raw), 0, nil
}

// forwardHeaders assembles the outbound header set: pre-authorized identity
// headers, a request ID, the client-IP triplet and the original user agent.
func (c *Client) forwardHeaders(req *http.Request, r *http.Request, authorized http.Header) {
	for key, values := range authorized {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	requestID := r.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, requestID)

	ip := ClientIP(r)
	req.Header.Set(HeaderForwardedFor, ip)
	req.Header.Set(HeaderRealIP, ip)
	req.Header.Set(HeaderClientIP, ip)

	if ua := r.UserAgent(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
}

// decodeJSON parses a backend body, falling back to the raw text when it is
// not JSON.
func decodeJSON(body io.Reader) any {
	raw, err := io.ReadAll(io.LimitReader(body, 10<<20))
	if err != nil || len(raw) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return string(raw)
	}
	return payload
}

// upstreamMessage pulls the message out of a backend error envelope when one
// is present.
func upstreamMessage(payload any, status int) string {
	if m, ok := payload.(map[string]any); ok {
		if errObj, ok := m["error"].(map[string]any); ok {
			if msg, ok := errObj["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if msg, ok := m["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return http.StatusText(status)
}
