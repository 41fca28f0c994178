package core

import "github.com/AntonStoeckl/book-lending-engine-go/lending"

// DecisionResult represents the outcome of a business decision in a Decide function.
//
// IMPORTANT: DecisionResult should only be constructed using the provided factory methods:
// SuccessDecision(), FailureDecision(reason), or IdempotentDecision().
type DecisionResult struct {
	Outcome string // "success", "failure", or "idempotent"
	Reason  lending.FailureReason
}

const (
	successOutcome    = "success"
	failureOutcome    = "failure"
	idempotentOutcome = "idempotent"
)

// SuccessDecision creates a DecisionResult indicating the state change should be applied.
func SuccessDecision() DecisionResult {
	return DecisionResult{Outcome: successOutcome}
}

// FailureDecision creates a DecisionResult indicating a business rule prevents the state change.
func FailureDecision(reason lending.FailureReason) DecisionResult {
	return DecisionResult{
		Outcome: failureOutcome,
		Reason:  reason,
	}
}

// IdempotentDecision creates a DecisionResult indicating no state change is needed.
func IdempotentDecision() DecisionResult {
	return DecisionResult{Outcome: idempotentOutcome}
}

// IsSuccess returns true if the state change should be applied.
func (r DecisionResult) IsSuccess() bool {
	return r.Outcome == successOutcome
}

// IsFailure returns true if a business rule was violated.
func (r DecisionResult) IsFailure() bool {
	return r.Outcome == failureOutcome
}

// IsIdempotent returns true if nothing needs to change.
func (r DecisionResult) IsIdempotent() bool {
	return r.Outcome == idempotentOutcome
}
