package expirereservations

import (
	"time"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

// State is the re-read snapshot of one expiry candidate.
type State struct {
	Reservation *lending.Reservation
	Stock       *lending.Stock
}

// Decision is the outcome of Decide.
type Decision struct {
	core.DecisionResult
	ReleasedStock *lending.Stock

	// EarmarkDrift is set when the stock row did not account for the reservation's earmark.
	EarmarkDrift error
}

// Decide implements the expiry rule for one candidate.
//
// Business Rules:
//
//	GIVEN: a reservation that was Available when the sweep selected it
//	WHEN: the sweep processes it
//	THEN: the earmark on its stock row is released and the reservation is removed
//	IDEMPOTENCY: the reservation is gone, no longer Available, or no longer expired
func Decide(state State, now time.Time, policy lending.Policy) Decision {
	if state.Reservation == nil || !state.Reservation.HoldExpired(now, policy.ReservationHoldWindow) {
		return Decision{DecisionResult: core.IdempotentDecision()}
	}

	decision := Decision{DecisionResult: core.SuccessDecision()}

	decision.ReleasedStock, decision.EarmarkDrift = lending.ReleaseHeldEarmark(*state.Reservation, state.Stock)

	return decision
}
