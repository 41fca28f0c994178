package postgresengine

import (
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// TableNames configures the tables the Store works on.
// Users is an existing table owned by user management, only its id column is read.
type TableNames struct {
	Stocks       string
	Loans        string
	Reservations string
	History      string
	Users        string
}

// DefaultTableNames returns the table names used when nothing else is configured.
func DefaultTableNames() TableNames {
	return TableNames{
		Stocks:       "stocks",
		Loans:        "loans",
		Reservations: "reservations",
		History:      "lending_history",
		Users:        "users",
	}
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithTableNames sets the table names for the Store. None of them may be empty.
func WithTableNames(names TableNames) Option {
	return func(s *Store) error {
		for _, name := range []string{names.Stocks, names.Loans, names.Reservations, names.History, names.Users} {
			if name == "" {
				return lending.ErrEmptyTableName
			}
		}

		s.tables = names

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: committed transactions with durations, concurrency conflicts (production-safe)
// Warn level: Non-critical issues like rollback or cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// It receives the same messages as the Logger, with trace correlation when tracing is enabled.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives transaction durations, concurrency conflicts, and database errors.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. Every transaction becomes a span.
func WithTracing(collector lending.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithClock sets the clock used to timestamp history entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		s.now = now
		return nil
	}
}
