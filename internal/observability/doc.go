// Package observability provides structured logging and Prometheus metrics
// for the audit trail service.
//
// Loggers are plain *zap.Logger values built by NewLogger and passed down by
// constructor injection. Metrics are registered against an explicit
// prometheus.Registerer so tests can use a private registry.
package observability
