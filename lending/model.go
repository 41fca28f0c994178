package lending

import (
	"time"

	"github.com/google/uuid"
)

// Loan records one physical copy lent to one user for a bounded period.
// A loan is never deleted; ReturnDate is set exactly once.
type Loan struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	BookID     uuid.UUID
	StockID    uuid.UUID
	LoanDate   time.Time
	DueDate    time.Time
	ReturnDate *time.Time
}

// IsActive reports whether the loan has not been returned yet.
func (l Loan) IsActive() bool {
	return l.ReturnDate == nil
}

// Stock is the count of owned copies of a title currently on the shelf and their availability.
//
// Earmarked counts the units set aside for promoted (Available) reservations.
// IsAvailable is a cached flag, recomputed by every stock ledger mutation and persisted with the row.
type Stock struct {
	ID          uuid.UUID
	BookID      uuid.UUID
	Quantity    int
	Earmarked   int
	IsAvailable bool
}

// ReservationStatus is the closed set of lifecycle states of a Reservation.
type ReservationStatus string

const (
	// ReservationPending is a queued request waiting for a returned copy.
	ReservationPending ReservationStatus = "pending"

	// ReservationAvailable is a promoted request holding an earmarked copy.
	ReservationAvailable ReservationStatus = "available"

	// ReservationCompleted is a fulfilled request.
	ReservationCompleted ReservationStatus = "completed"
)

// ParseReservationStatus converts a persisted status value into a ReservationStatus.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch status := ReservationStatus(s); status {
	case ReservationPending, ReservationAvailable, ReservationCompleted:
		return status, nil
	default:
		return "", ErrUnknownReservationStatus
	}
}

// IsActive reports whether the status counts towards the one-active-reservation-per-title rule.
func (s ReservationStatus) IsActive() bool {
	switch s {
	case ReservationPending, ReservationAvailable:
		return true
	case ReservationCompleted:
		return false
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s ReservationStatus) String() string {
	return string(s)
}

// Reservation is a patron's standing request to receive the next copy returned for a title.
type Reservation struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	BookID          uuid.UUID
	Status          ReservationStatus
	CreatedAt       time.Time
	AvailableAt     *time.Time
	AssignedStockID *uuid.UUID
}

// Promote turns a pending reservation into an available one holding a unit of the given stock.
// The caller is responsible for earmarking the unit on the stock row in the same transaction.
func (r *Reservation) Promote(stockID uuid.UUID, at time.Time) {
	availableAt := at
	assigned := stockID

	r.Status = ReservationAvailable
	r.AvailableAt = &availableAt
	r.AssignedStockID = &assigned
}

// HoldExpired reports whether an available reservation was promoted at least window ago.
func (r Reservation) HoldExpired(now time.Time, window time.Duration) bool {
	switch r.Status {
	case ReservationAvailable:
		return r.AvailableAt != nil && !r.AvailableAt.After(now.Add(-window))
	case ReservationPending, ReservationCompleted:
		return false
	default:
		return false
	}
}

// HoldsEarmark reports whether the reservation currently owns an earmarked stock unit.
func (r Reservation) HoldsEarmark() bool {
	return r.Status == ReservationAvailable && r.AssignedStockID != nil
}
