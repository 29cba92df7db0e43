package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Backends      BackendsConfig
	Secrets       SecretsConfig
	Session       SessionConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// BackendsConfig holds the base URLs of the microservices the gateway fronts
type BackendsConfig struct {
	CategoriesServiceURL   string
	OrdersServiceURL       string
	ReturnsServiceURL      string
	TeamsServiceURL        string
	DocumentServiceURL     string
	AnalyticsServiceURL    string
	SearchServiceURL       string
	NotificationGatewayURL string
	ProxyTimeout           time.Duration
}

// SecretsConfig holds secret-manager integration configuration
type SecretsConfig struct {
	// UseSecretManager gates managed-secret usage (USE_GCP_SECRET_MANAGER)
	UseSecretManager bool
	ProjectID        string
	Prefix           string
	CacheTTL         time.Duration
	FetchTimeout     time.Duration
}

// SessionConfig holds the auth-bff session cookie name
type SessionConfig struct {
	CookieName string
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Window limiter applied per identifier before proxying
	RequestsPerWindow int
	Window            time.Duration
	// RedisURL switches the window store to Redis when set
	RedisURL string

	// Transport-edge burst limiter (per IP)
	BurstRPS   float64
	BurstLimit int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Backends: BackendsConfig{
			CategoriesServiceURL:   getEnv("CATEGORIES_SERVICE_URL", "http://categories-service:8080"),
			OrdersServiceURL:       getEnv("ORDERS_SERVICE_URL", "http://orders-service:8080"),
			ReturnsServiceURL:      getEnv("RETURNS_SERVICE_URL", "http://returns-service:8080"),
			TeamsServiceURL:        getEnv("TEAMS_SERVICE_URL", "http://teams-service:8080"),
			DocumentServiceURL:     getEnv("DOCUMENT_SERVICE_URL", "http://document-service:8080"),
			AnalyticsServiceURL:    getEnv("ANALYTICS_SERVICE_URL", "http://analytics-service:8080"),
			SearchServiceURL:       getEnv("SEARCH_SERVICE_URL", "http://search-service:8080"),
			NotificationGatewayURL: getEnv("NOTIFICATION_GATEWAY_URL", "http://notification-gateway:8080"),
			ProxyTimeout:           parseDuration("PROXY_TIMEOUT", "10s"),
		},
		Secrets: SecretsConfig{
			UseSecretManager: getEnv("USE_GCP_SECRET_MANAGER", "") == "true",
			ProjectID:        getEnv("GCP_PROJECT_ID", ""),
			Prefix:           getEnv("GCP_SECRET_PREFIX", "devtest"),
			CacheTTL:         parseDuration("SECRET_CACHE_TTL", "5m"),
			FetchTimeout:     parseDuration("SECRET_FETCH_TIMEOUT", "5s"),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "admin_session"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "admin-gateway"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: parseInt("RATELIMIT_REQUESTS_PER_WINDOW", 100),
			Window:            parseDuration("RATELIMIT_WINDOW", "60s"),
			RedisURL:          getEnv("RATELIMIT_REDIS_URL", ""),
			BurstRPS:          float64(parseInt("RATELIMIT_BURST_RPS", 25)),
			BurstLimit:        parseInt("RATELIMIT_BURST", 50),
		},
		Environment: getEnv("APP_ENV", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the gateway runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether verbose logging paths are permitted.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Secrets.UseSecretManager && c.Secrets.ProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required when USE_GCP_SECRET_MANAGER is enabled")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
