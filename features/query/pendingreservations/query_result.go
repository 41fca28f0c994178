package pendingreservations

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// PendingReservations is the queue of a title, ordered by CreatedAt, then by ID.
type PendingReservations struct {
	BookID       uuid.UUID
	Reservations []lending.Reservation
}

// ResultCount returns the length of the queue.
func (r PendingReservations) ResultCount() int {
	return len(r.Reservations)
}

// Next returns the reservation the next return of the title would promote.
func (r PendingReservations) Next() (lending.Reservation, bool) {
	if len(r.Reservations) == 0 {
		return lending.Reservation{}, false
	}

	return r.Reservations[0], true
}
