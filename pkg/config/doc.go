// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	BAZAAR_HOST="0.0.0.0"
//	BAZAAR_PORT="8080"
//	BAZAAR_HEALTH_PORT="9090"
//	BAZAAR_READ_TIMEOUT="15s"
//	BAZAAR_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	BAZAAR_DB_DRIVER="postgres"  # postgres, sqlite3
//	BAZAAR_DB_DSN="postgres://localhost/bazaar"
//	BAZAAR_DB_MAX_CONNS="20"
//
// Blob storage settings:
//
//	BAZAAR_BLOB_BACKEND="filesystem"  # filesystem, s3
//	BAZAAR_BLOB_ROOT="/var/bazaar/blobs"
//	BAZAAR_S3_BUCKET="bazaar-payloads"
//	BAZAAR_S3_REGION="us-east-1"
//
// Search feed settings:
//
//	BAZAAR_REDIS_URL="localhost:6379"
//	BAZAAR_REDIS_QUEUE="bazaar:search:index"
//
// Upload settings:
//
//	BAZAAR_UPLOAD_MAX_SIZE="52428800"
//	BAZAAR_UPLOAD_RETENTION_MAX_AGE="168h"
//	BAZAAR_UPLOAD_RETENTION_SCHEDULE="@hourly"
//
// Observability settings:
//
//	BAZAAR_LOG_LEVEL="info"  # debug, info, warn, error
//	BAZAAR_METRICS_ENABLED="true"
//	BAZAAR_OTEL_ENABLED="true"
//	BAZAAR_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Database: %s\n", cfg.Database.Driver)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
package config
