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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/shopstack/admin-gateway/internal/audit"
	"github.com/shopstack/admin-gateway/internal/authz"
	"github.com/shopstack/admin-gateway/internal/config"
	"github.com/shopstack/admin-gateway/internal/csrf"
	"github.com/shopstack/admin-gateway/internal/observability/logger"
	"github.com/shopstack/admin-gateway/internal/observability/metrics"
	"github.com/shopstack/admin-gateway/internal/observability/tracing"
	"github.com/shopstack/admin-gateway/internal/pii"
	"github.com/shopstack/admin-gateway/internal/proxy"
	"github.com/shopstack/admin-gateway/internal/ratelimit"
	"github.com/shopstack/admin-gateway/internal/secrets"
	transportHTTP "github.com/shopstack/admin-gateway/internal/transport/http"
)

func main() {
	// Local development reads .env; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting admin gateway")

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	gatewayMetrics, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
		os.Exit(1)
	}

	// Secrets provider, backed by Secret Manager when the flag is on.
	var managerClient secrets.ManagerClient
	if cfg.Secrets.UseSecretManager {
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			slog.Error("failed to create secret manager client", logger.Error(err))
			os.Exit(1)
		}
		defer client.Close()
		managerClient = client
	}

	secretProvider, err := secrets.NewProvider(managerClient, secrets.Config{
		Enabled:      cfg.Secrets.UseSecretManager,
		ProjectID:    cfg.Secrets.ProjectID,
		Prefix:       cfg.Secrets.Prefix,
		CacheTTL:     cfg.Secrets.CacheTTL,
		FetchTimeout: cfg.Secrets.FetchTimeout,
	})
	if err != nil {
		slog.Error("failed to initialize secrets provider", logger.Error(err))
		os.Exit(1)
	}

	// CSRF secret resolution is fatal in production: never serve mutating
	// traffic with an unsigned token path.
	protector := csrf.NewProtector(secretProvider, cfg.IsProduction())
	if err := protector.EnsureInitialized(ctx); err != nil {
		slog.Error("failed to resolve CSRF secret", logger.Error(err))
		os.Exit(1)
	}

	// Window rate limiter: Redis-backed when configured, process-local
	// otherwise.
	var store ratelimit.Store
	if cfg.RateLimit.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			slog.Error("invalid rate limit Redis URL", logger.Error(err))
			os.Exit(1)
		}
		store = ratelimit.NewRedisStore(redis.NewClient(opts), "ratelimit")
		slog.Info("using Redis-backed rate limit store")
	} else {
		store = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.NewLimiter(store, ratelimit.Config{
		Limit:  cfg.RateLimit.RequestsPerWindow,
		Window: cfg.RateLimit.Window,
	})

	masker := pii.NewMasker(pii.MaskerConfig{})
	secureLog := pii.NewSecureLogger(slog.Default(), masker, cfg.IsDevelopment())
	auditLogger := audit.NewSlogLogger(masker)

	authorizer := authz.New(authz.Config{
		SessionCookieName: cfg.Session.CookieName,
	})

	proxyClient := proxy.NewClient(cfg.IsProduction(), secureLog, cfg.Backends.ProxyTimeout)

	handler := transportHTTP.NewHandler(
		authorizer,
		protector,
		limiter,
		proxyClient,
		gatewayMetrics,
		auditLogger,
		secureLog,
		cfg.Backends,
	)

	burst := transportHTTP.NewBurstLimiter(cfg.RateLimit.BurstRPS, cfg.RateLimit.BurstLimit)
	router := transportHTTP.NewRouter(handler, burst)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", logger.Error(err))
	}
}
