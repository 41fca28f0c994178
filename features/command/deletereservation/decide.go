package deletereservation

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

// State is the snapshot the decision depends on.
type State struct {
	Reservation *lending.Reservation

	// Stock is the row the reservation holds an earmark on, nil if none or if the row is gone.
	Stock *lending.Stock
}

// Decision is the outcome of Decide.
type Decision struct {
	core.DecisionResult

	// ReleasedStock is the stock row after its earmark was released, nil if nothing was released.
	ReleasedStock *lending.Stock

	// EarmarkDrift is set when the stock row did not account for the reservation's earmark.
	EarmarkDrift error
}

// Authorize rejects deletions by anybody but the reservation's owner.
func Authorize(reservation lending.Reservation, requestingUserID uuid.UUID) error {
	if reservation.UserID != requestingUserID {
		return lending.ErrUnauthorized
	}

	return nil
}

// Decide implements the deletion rules.
//
// Business Rules:
//
//	GIVEN: a reservation owned by the acting user
//	WHEN: DeleteReservation is received
//	THEN: the reservation is removed, an earmarked copy goes back to general availability
//	FAILURE: not_found if the reservation does not exist, which includes a second delete
//
// Withdrawing an Available reservation does not promote the next pending one,
// the released copy is free for anybody until the next return.
func Decide(state State) Decision {
	if state.Reservation == nil {
		return Decision{DecisionResult: core.FailureDecision(lending.FailureNotFound)}
	}

	decision := Decision{DecisionResult: core.SuccessDecision()}

	decision.ReleasedStock, decision.EarmarkDrift = lending.ReleaseHeldEarmark(*state.Reservation, state.Stock)

	return decision
}
