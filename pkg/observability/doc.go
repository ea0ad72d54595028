// Package observability provides structured logging, Prometheus metrics,
// health probes, distributed tracing and graceful shutdown for the Bazaar
// marketplace service.
//
// Loggers are passed explicitly into the components that need them; a
// request-scoped logger carrying the request id and actor id can be pulled
// back out of a context with FromContext.
package observability
