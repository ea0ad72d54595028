// Package blob stores raw upload payloads under content-addressed keys.
//
// Keys are the lowercase hex SHA-256 of the payload, so storing the same
// bytes twice is idempotent. Two backends are provided: a local filesystem
// store for development and an S3-compatible store for production. The
// WithMetrics decorator instruments any backend with operation counters.
package blob
