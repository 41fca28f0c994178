package shell

import (
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// HandlerResult represents the execution outcome of a command handler.
// It captures business outcomes (failure reason, idempotency) and execution metadata (retries,
// collaborator problems) without coupling the handler to specific observability implementations.
// Every use case result embeds it.
type HandlerResult struct {
	// Failure is the business failure that prevented the state change, FailureNone on success.
	Failure lending.FailureReason

	// Idempotent indicates that nothing needed to change.
	Idempotent bool

	// SideEffectErr collects the failures of collaborator calls made after commit.
	// The committed state is never undone because of them.
	SideEffectErr error

	// EarmarkDrift reports reservations whose earmark the stock row did not account for
	// (wraps lending.ErrEarmarkDrift). The use case still completed.
	EarmarkDrift error

	// RetryAttempts is the total number of attempts made (1 for no retries, 2+ for retries).
	RetryAttempts int

	// TotalRetryDelay is the cumulative time spent in retry backoff delays.
	TotalRetryDelay time.Duration

	// LastErrorType describes the type of the final error encountered during retries.
	// Values: "none" (success), "concurrency_conflict", "context_canceled", "context_deadline_exceeded", "other"
	LastErrorType string

	// RetriesExhausted indicates whether max retry attempts were reached with a retryable error.
	RetriesExhausted bool
}

// ExecutionResult exposes the embedded HandlerResult to the observable wrappers.
func (r HandlerResult) ExecutionResult() HandlerResult {
	return r
}

// Succeeded reports whether the use case changed state as requested.
func (r HandlerResult) Succeeded() bool {
	return !r.Failure.IsFailure() && !r.Idempotent
}

// BusinessOutcome classifies the result for metrics and logs.
func (r HandlerResult) BusinessOutcome() string {
	switch {
	case r.Failure.IsFailure():
		return StatusFailure
	case r.Idempotent:
		return StatusIdempotent
	default:
		return StatusSuccess
	}
}

// NewSuccessResult creates a HandlerResult for operations that changed state.
func NewSuccessResult(retryMetrics RetryMetrics) HandlerResult {
	return newResult(retryMetrics)
}

// NewFailureResult creates a HandlerResult for operations rejected by a business rule.
func NewFailureResult(reason lending.FailureReason, retryMetrics RetryMetrics) HandlerResult {
	result := newResult(retryMetrics)
	result.Failure = reason

	return result
}

// NewIdempotentResult creates a HandlerResult for operations that needed no state change.
func NewIdempotentResult(retryMetrics RetryMetrics) HandlerResult {
	result := newResult(retryMetrics)
	result.Idempotent = true

	return result
}

// NewErrorResult creates a HandlerResult for failed operations.
// This is used when the handler returns an error but still wants to report retry metadata.
func NewErrorResult(retryMetrics RetryMetrics) HandlerResult {
	return newResult(retryMetrics)
}

func newResult(retryMetrics RetryMetrics) HandlerResult {
	return HandlerResult{
		RetryAttempts:    retryMetrics.Attempts,
		TotalRetryDelay:  retryMetrics.TotalDelay,
		LastErrorType:    retryMetrics.LastErrorType,
		RetriesExhausted: retryMetrics.RetriesExhausted,
	}
}
