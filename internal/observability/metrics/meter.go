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

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// GatewayMetrics carries the counters the security path records.
type GatewayMetrics struct {
	meter metric.Meter

	ProxyRequests  metric.Int64Counter
	AuthFailures   metric.Int64Counter
	CSRFRejections metric.Int64Counter
	RateLimited    metric.Int64Counter
}

// New creates the gateway meter and its instruments. When disabled, a noop
// meter backs the counters so recording is always safe.
func New(ctx context.Context, cfg Config, serviceName string) (*GatewayMetrics, error) {
	var meter metric.Meter
	if cfg.Enabled {
		meter = otel.Meter(serviceName)
	} else {
		meter = otel.Meter("noop")
	}

	m := &GatewayMetrics{meter: meter}

	var err error
	if m.ProxyRequests, err = meter.Int64Counter("gateway_proxy_requests_total",
		metric.WithDescription("Requests proxied to backend services"),
	); err != nil {
		return nil, fmt.Errorf("failed to create proxy counter: %w", err)
	}
	if m.AuthFailures, err = meter.Int64Counter("gateway_auth_failures_total",
		metric.WithDescription("Requests rejected by authorization"),
	); err != nil {
		return nil, fmt.Errorf("failed to create auth failure counter: %w", err)
	}
	if m.CSRFRejections, err = meter.Int64Counter("gateway_csrf_rejections_total",
		metric.WithDescription("Requests rejected by CSRF validation"),
	); err != nil {
		return nil, fmt.Errorf("failed to create CSRF counter: %w", err)
	}
	if m.RateLimited, err = meter.Int64Counter("gateway_rate_limited_total",
		metric.WithDescription("Requests rejected by the window rate limiter"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}

	return m, nil
}

// RecordProxy counts one proxied request per backend service and status.
func (m *GatewayMetrics) RecordProxy(ctx context.Context, service string, status int) {
	m.ProxyRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("service", service),
			attribute.Int("status", status),
		),
	)
}
