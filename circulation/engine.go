package circulation

import (
	"errors"
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/shell"
)

var (
	// ErrMissingStore is returned by New without a store.
	ErrMissingStore = errors.New("circulation: store is required")

	// ErrMissingUserDirectory is returned by New without a user directory.
	ErrMissingUserDirectory = errors.New("circulation: user directory is required")
)

// Dependencies are the store and the external collaborators of the engine.
// Notifier, History, and Audit are optional; without them the matching side effects are skipped.
type Dependencies struct {
	Store    lending.Store
	Users    lending.UserDirectory
	Notifier lending.NotificationGateway
	History  lending.HistoryRecorder
	Audit    lending.ActivityAuditLog
}

// Engine groups the components of the lending engine.
type Engine struct {
	Loans        *LoanManager
	Reservations *ReservationQueue
	Expiry       *ExpiryWorker
	Inventory    *Inventory
}

type settings struct {
	policy           lending.Policy
	now              func() time.Time
	logger           lending.Logger
	contextualLogger lending.ContextualLogger
	metricsCollector lending.MetricsCollector
	tracingCollector lending.TracingCollector
	retryOptions     []shell.RetryOption
}

// Option configures the Engine.
type Option func(*settings) error

// WithPolicy replaces lending.DefaultPolicy.
func WithPolicy(policy lending.Policy) Option {
	return func(s *settings) error {
		if err := policy.Validate(); err != nil {
			return err
		}

		s.policy = policy

		return nil
	}
}

// WithClock sets the clock that stamps commands; it defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) error {
		s.now = now
		return nil
	}
}

// WithLogger sets a basic logger for the handler wrappers and the expiry worker.
func WithLogger(logger lending.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, preferred over WithLogger.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(s *settings) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for handlers, retries, and the expiry worker.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(s *settings) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the handler wrappers.
func WithTracing(collector lending.TracingCollector) Option {
	return func(s *settings) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithRetryOptions tunes the retry of concurrency conflicts for all command handlers.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(s *settings) error {
		s.retryOptions = opts
		return nil
	}
}

// New wires all components.
func New(deps Dependencies, opts ...Option) (*Engine, error) {
	if deps.Store == nil {
		return nil, ErrMissingStore
	}

	if deps.Users == nil {
		return nil, ErrMissingUserDirectory
	}

	s := settings{
		policy: lending.DefaultPolicy(),
		now:    time.Now,
	}

	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return nil, err
		}
	}

	loans, err := newLoanManager(deps, s)
	if err != nil {
		return nil, err
	}

	reservations, err := newReservationQueue(deps, s)
	if err != nil {
		return nil, err
	}

	expiry, err := newExpiryWorker(deps, s)
	if err != nil {
		return nil, err
	}

	inventory, err := newInventory(deps, s)
	if err != nil {
		return nil, err
	}

	return &Engine{
		Loans:        loans,
		Reservations: reservations,
		Expiry:       expiry,
		Inventory:    inventory,
	}, nil
}

// retryOptionsFor adds retry metrics for commandType to the configured retry options.
func (s settings) retryOptionsFor(commandType string) []shell.RetryOption {
	opts := append([]shell.RetryOption{}, s.retryOptions...)

	if s.metricsCollector != nil {
		opts = append(opts, shell.WithMetrics(s.metricsCollector, commandType))
	}

	return opts
}
