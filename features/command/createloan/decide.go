package createloan

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

// State is the snapshot of everything the decision depends on, read inside the transaction.
type State struct {
	UserExists bool

	// ExistingLoan is the loan already stored under the command's LoanID, if any.
	ExistingLoan *lending.Loan

	ActiveLoans int

	// HeldReservation is the user's Available reservation for the book, if any.
	HeldReservation *lending.Reservation

	// Stocks are all stock rows of the book, ordered by ID.
	Stocks []lending.Stock
}

// Decision is the outcome of Decide.
type Decision struct {
	core.DecisionResult

	// StockID is the stock row the copy is taken from.
	StockID uuid.UUID

	// ClaimsReservation means the copy earmarked for HeldReservation is collected.
	ClaimsReservation bool
}

// Decide implements the borrowing rules. It is a pure function.
//
// Business Rules:
//
//	GIVEN: a user and a book
//	WHEN: CreateLoan is received
//	THEN: a copy is taken from a stock row of the book
//	FAILURE: not_found if the user does not exist
//	FAILURE: policy_violation if the user already holds MaxActiveLoans unreturned loans
//	FAILURE: unavailable if no stock row of the book has a free copy and no copy is earmarked for the user
//	IDEMPOTENCY: a loan with the same ID for the same user and book already exists
func Decide(state State, command Command, policy lending.Policy) Decision {
	if state.ExistingLoan != nil {
		if state.ExistingLoan.UserID == command.UserID && state.ExistingLoan.BookID == command.BookID {
			return Decision{DecisionResult: core.IdempotentDecision(), StockID: state.ExistingLoan.StockID}
		}

		return failure(lending.FailureAlreadyProcessed)
	}

	if !state.UserExists {
		return failure(lending.FailureNotFound)
	}

	if !policy.AllowsAnotherLoan(state.ActiveLoans) {
		return failure(lending.FailurePolicyViolation)
	}

	if held := state.HeldReservation; held != nil && held.HoldsEarmark() {
		for _, stock := range state.Stocks {
			if stock.ID == *held.AssignedStockID && stock.Earmarked > 0 {
				return Decision{DecisionResult: core.SuccessDecision(), StockID: stock.ID, ClaimsReservation: true}
			}
		}
	}

	for _, stock := range state.Stocks {
		if stock.HasFreeUnit() {
			return Decision{DecisionResult: core.SuccessDecision(), StockID: stock.ID}
		}
	}

	return failure(lending.FailureUnavailable)
}

func failure(reason lending.FailureReason) Decision {
	return Decision{DecisionResult: core.FailureDecision(reason)}
}
