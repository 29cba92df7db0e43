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

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopstack/admin-gateway/internal/pii"
)

// Event types
const (
	TypeAccessGranted = "access_granted"
	TypeAccessDenied  = "access_denied"
	TypeCSRFRejected  = "csrf_rejected"
	TypeRateLimited   = "rate_limited"
	TypeProxyForward  = "proxy_forward"
	TypeProxyFailure  = "proxy_failure"
	TypeTokenMinted   = "csrf_token_minted"
	TypeSecretRotated = "secret_rotated"
)

// Event represents an auditable action on the admin gateway
type Event struct {
	Type      string
	TenantID  string
	ActorID   string
	Resource  string
	Metadata  map[string]any
	Timestamp time.Time
	IPAddress string
	UserAgent string
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog, masking all metadata before
// emission.
type SlogLogger struct {
	masker *pii.Masker
}

// NewSlogLogger creates a new audit logger
func NewSlogLogger(masker *pii.Masker) *SlogLogger {
	if masker == nil {
		masker = pii.NewMasker(pii.MaskerConfig{})
	}
	return &SlogLogger{masker: masker}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_type", event.Type),
		slog.String("tenant_id", event.TenantID),
		slog.String("actor_id", event.ActorID),
		slog.String("resource", event.Resource),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", pii.MaskIP(event.IPAddress)))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	if len(event.Metadata) > 0 {
		masked, _ := l.masker.MaskObject(event.Metadata, pii.MaskOptions{}).(map[string]any)
		group := []any{}
		for k, v := range masked {
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}
