package shell

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// Retry defaults: attempts 0, 10, 20, 40, 80 and 160 ms apart, each delay stretched by up to 30%.
const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// Error types reported in RetryMetrics.LastErrorType and as metric labels.
const (
	errorTypeNone                    = "none"
	errorTypeConcurrencyConflict     = "concurrency_conflict"
	errorTypeContextCanceled         = "context_canceled"
	errorTypeContextDeadlineExceeded = "context_deadline_exceeded"
	errorTypeOther                   = "other"
)

var (
	// ErrNilMetricsCollector is returned when WithMetrics gets a nil collector.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyCommandType is returned when WithMetrics gets an empty command type.
	ErrEmptyCommandType = errors.New("command type must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is outside [0, 1].
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc is one attempt of a lending transaction.
type RetryableFunc func(ctx context.Context) error

// RetryMetrics describes how a retried execution went.
type RetryMetrics struct {
	Attempts         int
	TotalDelay       time.Duration
	LastErrorType    string
	RetriesExhausted bool
}

type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector MetricsCollector
	commandType      string
}

// RetryOption configures RetryWithExponentialBackoff.
type RetryOption func(*retryConfig) error

// RetryWithExponentialBackoff runs fn until it succeeds, fails with an error other than
// lending.ErrConcurrencyConflict, the attempts are used up, or ctx is done.
//
// Serializable transactions on the same stock or reservation rows abort each other regularly,
// those aborts surface as lending.ErrConcurrencyConflict. Everything else fails fast.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) (RetryMetrics, error) {
	metrics := RetryMetrics{LastErrorType: errorTypeNone}

	config, err := newRetryConfig(options)
	if err != nil {
		return metrics, err
	}

	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			delay := config.backoff(attempt)
			config.recordDelay(ctx, attempt, delay)

			if err = sleep(ctx, delay); err != nil {
				metrics.LastErrorType = classifyRetryError(err)
				return metrics, err
			}

			metrics.TotalDelay += delay
		}

		metrics.Attempts = attempt
		err = fn(ctx)
		metrics.LastErrorType = classifyRetryError(err)

		switch {
		case err == nil:
			return metrics, nil
		case !errors.Is(err, lending.ErrConcurrencyConflict):
			return metrics, err
		case attempt == config.maxAttempts:
			metrics.RetriesExhausted = true
			config.recordExhausted(ctx, err)

			return metrics, err
		}

		config.recordRetry(ctx, attempt, err)
	}
}

func newRetryConfig(options []RetryOption) (*retryConfig, error) {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// backoff returns the wait before the given attempt (2..n): baseDelay * 2^(attempt-2) plus jitter.
func (c *retryConfig) backoff(attempt int) time.Duration {
	delay := c.baseDelay << (attempt - 2)
	jitter := time.Duration(rand.Float64() * c.jitterFactor * float64(delay)) //nolint:gosec // jitter needs no crypto randomness

	return delay + jitter
}

func (c *retryConfig) recordDelay(ctx context.Context, attempt int, delay time.Duration) {
	if c.metricsCollector == nil {
		return
	}

	RecordDuration(ctx, c.metricsCollector, CommandHandlerRetryDelayMetric, delay, map[string]string{
		LogAttrCommandType: c.commandType,
		"attempt_number":   strconv.Itoa(attempt - 1),
	})
}

func (c *retryConfig) recordRetry(ctx context.Context, attempt int, err error) {
	if c.metricsCollector == nil {
		return
	}

	IncrementCounter(ctx, c.metricsCollector, CommandHandlerRetriesMetric,
		BuildRetryLabels(c.commandType, attempt, classifyRetryError(err)))
}

func (c *retryConfig) recordExhausted(ctx context.Context, err error) {
	if c.metricsCollector == nil {
		return
	}

	IncrementCounter(ctx, c.metricsCollector, CommandHandlerMaxRetriesReachedMetric, map[string]string{
		LogAttrCommandType: c.commandType,
		"final_error_type": classifyRetryError(err),
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classifyRetryError(err error) string {
	switch {
	case err == nil:
		return errorTypeNone
	case errors.Is(err, lending.ErrConcurrencyConflict):
		return errorTypeConcurrencyConflict
	case errors.Is(err, context.Canceled):
		return errorTypeContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeContextDeadlineExceeded
	default:
		return errorTypeOther
	}
}

// WithMaxAttempts sets the number of attempts, the first one included.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the wait before the first retry; every further retry doubles it.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets how far (0.0 to 1.0) a delay may be stretched at random.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithMetrics records retries, retry delays and exhausted retries, labeled with commandType.
func WithMetrics(collector MetricsCollector, commandType string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if commandType == "" {
			return ErrEmptyCommandType
		}

		config.metricsCollector = collector
		config.commandType = commandType

		return nil
	}
}
