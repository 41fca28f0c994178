// Package audit provides lending.ActivityAuditLog implementations: an append-only Redis stream
// for production and a log/slog sink for local runs.
package audit
