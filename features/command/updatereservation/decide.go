package updatereservation

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
	"github.com/AntonStoeckl/book-lending-engine-go/shared/core"
)

// State is the snapshot the decision depends on.
type State struct {
	Current *lending.Reservation

	// Target is Current with the changes applied, see ApplyChanges.
	Target lending.Reservation

	// OtherActive means the owner has another active reservation for the same book.
	OtherActive bool

	// OldStock is the row Current holds an earmark on, if any.
	OldStock *lending.Stock

	// NewStock is the row Target is assigned to, if any.
	NewStock *lending.Stock
}

// Decision is the outcome of Decide, carrying the rows to persist.
type Decision struct {
	core.DecisionResult
	Updated lending.Reservation

	// ReleasedStock is OldStock after its earmark was released, nil if unchanged.
	ReleasedStock *lending.Stock

	// EarmarkedStock is NewStock after a copy was earmarked, nil if unchanged.
	EarmarkedStock *lending.Stock

	// EarmarkDrift is set when OldStock did not account for the earmark Current held.
	EarmarkDrift error
}

// Authorize rejects updates by anybody but the reservation's owner.
func Authorize(reservation lending.Reservation, requestingUserID uuid.UUID) error {
	if reservation.UserID != requestingUserID {
		return lending.ErrUnauthorized
	}

	return nil
}

// ApplyChanges computes the reservation as it would look after the update.
// A reservation that is not Available keeps neither an assigned stock nor an availability timestamp,
// except a Completed one, which keeps them as a record of the fulfilled hold.
// Entering Available without an AvailableAt uses now.
func ApplyChanges(current lending.Reservation, changes Changes, now time.Time) lending.Reservation {
	target := current

	if changes.Status != nil {
		target.Status = *changes.Status
	}

	if changes.AvailableAt != nil {
		availableAt := *changes.AvailableAt
		target.AvailableAt = &availableAt
	}

	if changes.AssignedStockID != nil {
		stockID := *changes.AssignedStockID
		target.AssignedStockID = &stockID
	}

	switch target.Status {
	case lending.ReservationPending:
		target.AvailableAt = nil
		target.AssignedStockID = nil

	case lending.ReservationAvailable:
		if target.AvailableAt == nil {
			availableAt := now
			target.AvailableAt = &availableAt
		}

	case lending.ReservationCompleted:
	}

	return target
}

// Decide implements the update rules. It is a pure function working on copies of the stock rows.
//
// Business Rules:
//
//	GIVEN: a reservation owned by the acting user
//	WHEN: UpdateReservation is received
//	THEN: the reservation is changed and the earmarks of the affected stock rows follow
//	FAILURE: not_found if the reservation or the newly assigned stock row does not exist
//	FAILURE: policy_violation if Available has no assigned stock, the stock row belongs to another book,
//	         or reactivating would create a second active reservation for the book
//	FAILURE: unavailable if the newly assigned stock row has no free copy to earmark
//	IDEMPOTENCY: nothing changes
func Decide(state State) Decision {
	if state.Current == nil {
		return failure(lending.FailureNotFound)
	}

	current := *state.Current
	target := state.Target

	if sameReservation(current, target) {
		return Decision{DecisionResult: core.IdempotentDecision(), Updated: current}
	}

	switch target.Status {
	case lending.ReservationAvailable:
		if target.AssignedStockID == nil {
			return failure(lending.FailurePolicyViolation)
		}

	case lending.ReservationPending, lending.ReservationCompleted:
	default:
		return failure(lending.FailurePolicyViolation)
	}

	if target.Status.IsActive() && !current.Status.IsActive() && state.OtherActive {
		return failure(lending.FailurePolicyViolation)
	}

	decision := Decision{DecisionResult: core.SuccessDecision(), Updated: target}
	stockChanged := current.HoldsEarmark() && target.HoldsEarmark() && *current.AssignedStockID != *target.AssignedStockID

	if target.HoldsEarmark() && (!current.HoldsEarmark() || stockChanged) {
		if state.NewStock == nil {
			return failure(lending.FailureNotFound)
		}

		if state.NewStock.BookID != target.BookID {
			return failure(lending.FailurePolicyViolation)
		}

		earmarked := *state.NewStock
		if err := earmarked.Earmark(); err != nil {
			return failure(lending.FailureUnavailable)
		}

		decision.EarmarkedStock = &earmarked
	}

	if current.HoldsEarmark() && (!target.HoldsEarmark() || stockChanged) {
		decision.ReleasedStock, decision.EarmarkDrift = lending.ReleaseHeldEarmark(current, state.OldStock)
	}

	return decision
}

func failure(reason lending.FailureReason) Decision {
	return Decision{DecisionResult: core.FailureDecision(reason)}
}

func sameReservation(a, b lending.Reservation) bool {
	return a.Status == b.Status && sameTime(a.AvailableAt, b.AvailableAt) && sameID(a.AssignedStockID, b.AssignedStockID)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
