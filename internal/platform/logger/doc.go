// Package logger configures the application's structured logging.
//
// It builds on log/slog with a JSON handler and lets request-scoped loggers
// travel through a context.Context so that stores and services log with the
// request's trace ID attached.
package logger
