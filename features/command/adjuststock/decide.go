package adjuststock

import (
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

// Decision is the outcome of Decide, carrying the adjusted stock row.
type Decision struct {
	core.DecisionResult
	Adjusted lending.Stock
}

// Decide implements the adjustment rules.
//
// Business Rules:
//
//	GIVEN: an existing stock row
//	WHEN: AdjustStock is received
//	THEN: the quantity changes by Delta and the availability flag is recomputed
//	FAILURE: not_found if the stock row does not exist
//	FAILURE: policy_violation if the quantity would become negative or drop below the earmarked copies
//	IDEMPOTENCY: Delta is zero
func Decide(stock *lending.Stock, command Command) Decision {
	if stock == nil {
		return Decision{DecisionResult: core.FailureDecision(lending.FailureNotFound)}
	}

	if command.Delta == 0 {
		return Decision{DecisionResult: core.IdempotentDecision(), Adjusted: *stock}
	}

	adjusted := *stock
	if err := adjusted.AdjustQuantity(command.Delta); err != nil {
		return Decision{DecisionResult: core.FailureDecision(lending.FailurePolicyViolation)}
	}

	return Decision{DecisionResult: core.SuccessDecision(), Adjusted: adjusted}
}
