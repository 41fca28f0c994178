package returnloan

import (
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

// State is the snapshot the decision depends on.
type State struct {
	Loan *lending.Loan

	// Stock is the row the loan took its copy from.
	Stock *lending.Stock

	// NextPending is the head of the promotion queue of the loan's book.
	NextPending *lending.Reservation
}

// Decision is the outcome of Decide.
type Decision struct {
	core.DecisionResult

	// Promotes means NextPending becomes Available and the returned copy is earmarked for it.
	Promotes bool
}

// Decide implements the return rules. It is a pure function.
//
// Business Rules:
//
//	GIVEN: a loan
//	WHEN: ReturnLoan is received
//	THEN: the loan is closed and its copy goes back to its stock row
//	AND: the earliest Pending reservation of the book is promoted, if there is one
//	FAILURE: not_found if the loan or its stock row does not exist
//	FAILURE: already_processed if the loan was returned before
func Decide(state State) Decision {
	if state.Loan == nil {
		return Decision{DecisionResult: core.FailureDecision(lending.FailureNotFound)}
	}

	if !state.Loan.IsActive() {
		return Decision{DecisionResult: core.FailureDecision(lending.FailureAlreadyProcessed)}
	}

	if state.Stock == nil {
		return Decision{DecisionResult: core.FailureDecision(lending.FailureNotFound)}
	}

	return Decision{
		DecisionResult: core.SuccessDecision(),
		Promotes:       state.NextPending != nil,
	}
}
