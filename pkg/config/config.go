package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/seamed/tracker/pkg/observability"
)

// Environment is the deployment target. Only Development may enable the
// development authentication bypass.
type Environment string

const (
	Production  Environment = "production"
	Staging     Environment = "staging"
	Development Environment = "development"
)

// ParseEnvironment maps a string to an Environment. Unknown values fall back
// to Production.
func ParseEnvironment(s string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case Development:
		return Development
	case Staging:
		return Staging
	default:
		return Production
	}
}

// Config holds all application configuration
type Config struct {
	Environment Environment

	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Database configuration
	Database DatabaseConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Jobs configuration
	Jobs JobsConfig

	// Templates configuration
	Templates TemplatesConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	CORSOrigins     []string
	APIBaseURL      string
}

// AuthConfig holds token verification and provisioning settings
type AuthConfig struct {
	Issuer   string
	ClientID string
	Audience string

	// DevAuthEnabled turns on the development bypass. It also requires a
	// binary built with the devauth tag.
	DevAuthEnabled bool

	// ProvisionCacheSize bounds the provisioning cache; 0 means unbounded.
	ProvisionCacheSize int
}

// DatabaseConfig holds SQL storage settings
type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RateLimitConfig holds per-subject rate limit settings
type RateLimitConfig struct {
	Enabled  bool
	RPS      float64
	Burst    int
	RedisURL string
}

// JobsConfig holds background job settings
type JobsConfig struct {
	StatsSchedule string
}

// TemplatesConfig selects where reference kits come from. An empty Dir
// serves the templates built into the binary.
type TemplatesConfig struct {
	Dir         string
	ReloadDelay time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment: ParseEnvironment(getEnv("SEAMED_ENV", string(Production))),
		Server:      loadServerConfig(),
		Auth:        loadAuthConfig(),
		Database:    loadDatabaseConfig(),
		RateLimit:   loadRateLimitConfig(),
		Jobs:        JobsConfig{StatsSchedule: getEnv("SEAMED_STATS_SCHEDULE", "@every 5m")},
		Templates: TemplatesConfig{
			Dir:         getEnv("SEAMED_TEMPLATES_DIR", ""),
			ReloadDelay: getEnvDuration("SEAMED_TEMPLATES_RELOAD_DELAY", 2*time.Second),
		},
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SEAMED_HOST", "0.0.0.0"),
		Port:            getEnv("SEAMED_PORT", "3001"),
		ReadTimeout:     getEnvDuration("SEAMED_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SEAMED_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SEAMED_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SEAMED_SHUTDOWN_TIMEOUT", 30*time.Second),
		RequestTimeout:  getEnvDuration("SEAMED_REQUEST_TIMEOUT", 30*time.Second),
		CORSOrigins:     getEnvList("SEAMED_CORS_ORIGINS", []string{"*"}),
		APIBaseURL:      getEnv("SEAMED_API_BASE_URL", "http://localhost:3001"),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		Issuer:             getEnv("SEAMED_OIDC_ISSUER", os.Getenv("OKTA_ISSUER")),
		ClientID:           getEnv("SEAMED_OIDC_CLIENT_ID", os.Getenv("OKTA_CLIENT_ID")),
		Audience:           getEnv("SEAMED_OIDC_AUDIENCE", "api://default"),
		DevAuthEnabled:     getEnvBool("SEAMED_DEV_AUTH_ENABLED", false),
		ProvisionCacheSize: getEnvInt("SEAMED_PROVISION_CACHE_SIZE", 0),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          getEnv("SEAMED_DB_DRIVER", "postgres"),
		URL:             getEnv("SEAMED_DATABASE_URL", os.Getenv("DATABASE_URL")),
		MaxOpenConns:    getEnvInt("SEAMED_DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    getEnvInt("SEAMED_DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("SEAMED_DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:  getEnvBool("SEAMED_RATE_LIMIT_ENABLED", true),
		RPS:      getEnvFloat("SEAMED_RATE_LIMIT_RPS", 20),
		Burst:    getEnvInt("SEAMED_RATE_LIMIT_BURST", 40),
		RedisURL: getEnv("SEAMED_REDIS_URL", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("SEAMED_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SEAMED_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SEAMED_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SEAMED_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SEAMED_OTEL_SERVICE_NAME", "seamed-api"),
		OTelServiceVersion: getEnv("SEAMED_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SEAMED_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if c.Auth.DevAuthEnabled && c.Environment != Development {
		return fmt.Errorf("development auth bypass cannot be enabled in %s environment", c.Environment)
	}
	if c.Auth.Issuer == "" && !c.Auth.DevAuthEnabled {
		return fmt.Errorf("OIDC issuer is required")
	}
	if c.Auth.ProvisionCacheSize < 0 {
		return fmt.Errorf("provision cache size cannot be negative")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit RPS must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive")
		}
	}

	if c.Templates.Dir != "" && c.Templates.ReloadDelay <= 0 {
		return fmt.Errorf("template reload delay must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable as a slice
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
