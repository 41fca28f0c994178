package lending

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TxFunc is the body of a unit of work. Returning an error rolls back every write made through tx.
type TxFunc func(ctx context.Context, tx Tx) error

// Store runs units of work as serializable read-modify-write transactions.
//
// Implementations must guarantee that either all writes of a TxFunc become visible or none do,
// and must report serialization failures as ErrConcurrencyConflict so callers can retry.
// A canceled context before commit rolls the transaction back.
type Store interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// Tx gives a unit of work access to all lending tables inside one transaction.
type Tx interface {
	LoanRepository
	StockRepository
	ReservationRepository
}

// LoanRepository reads and writes loans.
type LoanRepository interface {
	// CountActiveLoans counts the loans of userID whose ReturnDate is not set.
	CountActiveLoans(ctx context.Context, userID uuid.UUID) (int, error)

	// LoanForUpdate loads and locks a loan.
	LoanForUpdate(ctx context.Context, loanID uuid.UUID) (Loan, bool, error)

	InsertLoan(ctx context.Context, loan Loan) error
	UpdateLoan(ctx context.Context, loan Loan) error
}

// StockRepository reads and writes stock rows.
type StockRepository interface {
	// StocksForBook loads and locks all stock rows of a title, ordered by ID.
	StocksForBook(ctx context.Context, bookID uuid.UUID) ([]Stock, error)

	// StockForUpdate loads and locks a single stock row.
	StockForUpdate(ctx context.Context, stockID uuid.UUID) (Stock, bool, error)

	// SaveStock persists quantity, earmarked units, and the availability flag of a stock row.
	SaveStock(ctx context.Context, stock Stock) error
}

// ReservationRepository reads and writes reservations.
type ReservationRepository interface {
	// ReservationForUpdate loads and locks a reservation.
	ReservationForUpdate(ctx context.Context, reservationID uuid.UUID) (Reservation, bool, error)

	// ActiveReservation returns the Pending or Available reservation of userID for bookID, if any.
	ActiveReservation(ctx context.Context, userID, bookID uuid.UUID) (Reservation, bool, error)

	// PendingForBook returns the Pending reservations of a title in promotion order:
	// CreatedAt ascending, then ID ascending.
	PendingForBook(ctx context.Context, bookID uuid.UUID) ([]Reservation, error)

	// ExpiredReservationIDs returns the IDs of Available reservations with AvailableAt <= cutoff.
	ExpiredReservationIDs(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)

	InsertReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error

	// DeleteReservation removes a reservation and reports whether a row was removed.
	DeleteReservation(ctx context.Context, reservationID uuid.UUID) (bool, error)
}
