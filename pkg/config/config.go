package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/packbazaar/bazaar/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Blob storage configuration
	Blob BlobConfig

	// Redis configuration (search index feed)
	Redis RedisConfig

	// Upload handling configuration
	Uploads UploadConfig

	// Access policy configuration
	Authz AuthzConfig

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

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds SQL database configuration. Driver selects the
// placeholder style and the DSN format ("postgres" or "sqlite3").
type DatabaseConfig struct {
	Driver   string
	DSN      string
	MaxConns int
	MinConns int
}

// BlobConfig holds payload storage configuration. Backend is
// "filesystem" or "s3".
type BlobConfig struct {
	Backend string

	// Filesystem backend
	FilesystemRoot string

	// S3 backend
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// RedisConfig holds the search index feed configuration. An empty URL
// disables the feed; publication then proceeds without indexing.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Queue    string
}

// UploadConfig holds upload handling configuration
type UploadConfig struct {
	MaxSize int64

	// Retention sweep for stale, never-promoted records
	RetentionMaxAge   time.Duration
	RetentionSchedule string
}

// AuthzConfig holds access policy configuration. RulesPath empty means
// the built-in default rule table; a file is watched and hot-reloaded.
// AdminToken, when set, is a bootstrap bearer token granted every
// capability.
type AuthzConfig struct {
	RulesPath  string
	AdminToken string
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
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Blob:          loadBlobConfig(),
		Redis:         loadRedisConfig(),
		Uploads:       loadUploadConfig(),
		Authz:         loadAuthzConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BAZAAR_HOST", "0.0.0.0"),
		Port:            getEnv("BAZAAR_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BAZAAR_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BAZAAR_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BAZAAR_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BAZAAR_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("BAZAAR_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads SQL database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:   getEnv("BAZAAR_DB_DRIVER", "sqlite3"),
		DSN:      getEnv("BAZAAR_DB_DSN", "bazaar.db"),
		MaxConns: getEnvInt("BAZAAR_DB_MAX_CONNS", 20),
		MinConns: getEnvInt("BAZAAR_DB_MIN_CONNS", 2),
	}
}

// loadBlobConfig loads blob storage configuration from environment
func loadBlobConfig() BlobConfig {
	return BlobConfig{
		Backend:        getEnv("BAZAAR_BLOB_BACKEND", "filesystem"),
		FilesystemRoot: getEnv("BAZAAR_BLOB_ROOT", "./data/blobs"),
		S3Endpoint:     getEnv("BAZAAR_S3_ENDPOINT", ""),
		S3Region:       getEnv("BAZAAR_S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("BAZAAR_S3_BUCKET", ""),
		S3AccessKey:    getEnv("BAZAAR_S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("BAZAAR_S3_SECRET_KEY", ""),
		S3UsePathStyle: getEnvBool("BAZAAR_S3_USE_PATH_STYLE", false),
	}
}

// loadRedisConfig loads the search feed configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("BAZAAR_REDIS_URL", ""),
		Password: getEnv("BAZAAR_REDIS_PASSWORD", ""),
		DB:       getEnvInt("BAZAAR_REDIS_DB", 0),
		Queue:    getEnv("BAZAAR_REDIS_QUEUE", ""),
	}
}

// loadUploadConfig loads upload handling configuration from environment
func loadUploadConfig() UploadConfig {
	return UploadConfig{
		MaxSize:           getEnvInt64("BAZAAR_UPLOAD_MAX_SIZE", 50<<20),
		RetentionMaxAge:   getEnvDuration("BAZAAR_UPLOAD_RETENTION_MAX_AGE", 7*24*time.Hour),
		RetentionSchedule: getEnv("BAZAAR_UPLOAD_RETENTION_SCHEDULE", "@hourly"),
	}
}

// loadAuthzConfig loads access policy configuration from environment
func loadAuthzConfig() AuthzConfig {
	return AuthzConfig{
		RulesPath:  getEnv("BAZAAR_AUTHZ_RULES", ""),
		AdminToken: getEnv("BAZAAR_ADMIN_TOKEN", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("BAZAAR_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("BAZAAR_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("BAZAAR_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("BAZAAR_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("BAZAAR_OTEL_SERVICE_NAME", "bazaar"),
		OTelServiceVersion: getEnv("BAZAAR_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("BAZAAR_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	switch c.Blob.Backend {
	case "filesystem":
		if c.Blob.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem blob storage")
		}
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 blob storage")
		}
	default:
		return fmt.Errorf("invalid blob backend: %s (must be filesystem or s3)", c.Blob.Backend)
	}

	if c.Uploads.MaxSize <= 0 {
		return fmt.Errorf("upload max size must be positive")
	}
	if c.Uploads.RetentionMaxAge <= 0 {
		return fmt.Errorf("upload retention max age must be positive")
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

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
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

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
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
