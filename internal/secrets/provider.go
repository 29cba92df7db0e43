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

package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Domain errors
var (
	ErrDisabled = errors.New("secret manager integration is disabled")
	ErrNotFound = errors.New("secret not found")
)

const (
	// DefaultPrefix namespaces secret names when no deployment prefix is set.
	DefaultPrefix = "devtest"

	defaultCacheTTL     = 5 * time.Minute
	defaultFetchTimeout = 5 * time.Second
	cacheMaxEntries     = 128
)

// ManagerClient is the slice of the Secret Manager API the provider needs.
// The production implementation is *secretmanager.Client; tests inject fakes.
type ManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Compile-time check that the real client satisfies the interface.
var _ ManagerClient = (*secretmanager.Client)(nil)

// Config holds provider configuration.
type Config struct {
	// Enabled gates managed-secret usage (feature flag USE_GCP_SECRET_MANAGER).
	Enabled bool

	// ProjectID is required when Enabled.
	ProjectID string

	// Prefix namespaces secret names as {prefix}-{id}. Defaults to "devtest".
	Prefix string

	// CacheTTL bounds how long a fetched value is served from cache.
	// Defaults to 5 minutes.
	CacheTTL time.Duration

	// FetchTimeout bounds each backend call. Defaults to 5 seconds.
	FetchTimeout time.Duration
}

// Provider resolves named secrets from Secret Manager with a TTL-bound cache,
// falling back to environment variables when the integration is disabled or
// failing. Safe for concurrent use; concurrent fetches of the same secret may
// race, which is tolerated because the fetched value is idempotent.
type Provider struct {
	client       ManagerClient
	cfg          Config
	cache        *lru.LRU[string, string]
	fetchTimeout time.Duration
}

// NewProvider builds a Provider. client may be nil when cfg.Enabled is false.
func NewProvider(client ManagerClient, cfg Config) (*Provider, error) {
	if cfg.Enabled && cfg.ProjectID == "" {
		return nil, errors.New("project ID is required when secret manager is enabled")
	}
	if cfg.Enabled && client == nil {
		return nil, errors.New("secret manager client is required when enabled")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &Provider{
		client:       client,
		cfg:          cfg,
		cache:        lru.NewLRU[string, string](cacheMaxEntries, nil, ttl),
		fetchTimeout: timeout,
	}, nil
}

// secretName builds the fully-qualified resource name for a secret ID.
func (p *Provider) secretName(id string) string {
	return fmt.Sprintf("projects/%s/secrets/%s-%s/versions/latest", p.cfg.ProjectID, p.cfg.Prefix, id)
}

// Get fetches the secret {prefix}-{id}, serving from cache inside the TTL.
// Errors wrap the backend failure.
func (p *Provider) Get(ctx context.Context, id string) (string, error) {
	if !p.cfg.Enabled {
		return "", ErrDisabled
	}

	cacheKey := p.cfg.Prefix + "-" + id
	if value, ok := p.cache.Get(cacheKey); ok {
		return value, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	resp, err := p.client.AccessSecretVersion(fetchCtx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: p.secretName(id),
	})
	if err != nil {
		slog.WarnContext(ctx, "secret fetch failed",
			slog.String("secret_id", id),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("access secret %q: %w", cacheKey, err)
	}

	value := string(resp.GetPayload().GetData())
	p.cache.Add(cacheKey, value)
	slog.DebugContext(ctx, "secret fetched", slog.String("secret_id", id))
	return value, nil
}

// GetJSON fetches a secret and unmarshals it as JSON into T. JSON parse
// errors propagate.
func GetJSON[T any](ctx context.Context, p *Provider, id string) (T, error) {
	var out T
	raw, err := p.Get(ctx, id)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("parse secret %q as JSON: %w", id, err)
	}
	return out, nil
}

// GetWithFallback tries the managed backend when enabled and falls back to
// the named environment variable on any failure. It never returns an error;
// the empty string means neither source had a value.
func (p *Provider) GetWithFallback(ctx context.Context, id, envVar string) string {
	if p.cfg.Enabled {
		if value, err := p.Get(ctx, id); err == nil && value != "" {
			return value
		}
		slog.WarnContext(ctx, "falling back to environment variable for secret",
			slog.String("secret_id", id),
			slog.String("env_var", envVar),
		)
	}
	return os.Getenv(envVar)
}

// ClearCache purges all cached values. Call after secret rotation.
func (p *Provider) ClearCache() {
	p.cache.Purge()
}
