package createreservation

import (
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

// State is the snapshot the decision depends on.
type State struct {
	UserExists bool

	// Existing is the reservation already stored under the command's ReservationID, if any.
	Existing *lending.Reservation

	// Active is the user's Pending or Available reservation for the book, if any.
	Active *lending.Reservation

	Stocks []lending.Stock
}

// Authorize rejects commands where the acting user queues somebody else.
func Authorize(command Command) error {
	if command.RequestingUserID != command.UserID {
		return lending.ErrUnauthorized
	}

	return nil
}

// Decide implements the reservation rules. It is a pure function.
//
// Business Rules:
//
//	GIVEN: a user and a book
//	WHEN: CreateReservation is received
//	THEN: a Pending reservation is queued
//	FAILURE: not_found if the user does not exist
//	FAILURE: policy_violation if the user already has an active reservation for the book
//	FAILURE: unavailable if the book has no stock row, or, with ReservationRequiresAvailableCopy,
//	         if no stock row has a free copy
//	IDEMPOTENCY: the same reservation was already created
func Decide(state State, command Command, policy lending.Policy) core.DecisionResult {
	if existing := state.Existing; existing != nil {
		if existing.UserID == command.UserID && existing.BookID == command.BookID {
			return core.IdempotentDecision()
		}

		return core.FailureDecision(lending.FailureAlreadyProcessed)
	}

	if !state.UserExists {
		return core.FailureDecision(lending.FailureNotFound)
	}

	if state.Active != nil {
		return core.FailureDecision(lending.FailurePolicyViolation)
	}

	if len(state.Stocks) == 0 {
		return core.FailureDecision(lending.FailureUnavailable)
	}

	if policy.ReservationRequiresAvailableCopy && !anyFreeUnit(state.Stocks) {
		return core.FailureDecision(lending.FailureUnavailable)
	}

	return core.SuccessDecision()
}

func anyFreeUnit(stocks []lending.Stock) bool {
	for _, stock := range stocks {
		if stock.HasFreeUnit() {
			return true
		}
	}

	return false
}
