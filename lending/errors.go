package lending

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrConcurrencyConflict is returned when a transaction could not be serialized against
	// a concurrent one. The whole use case may be retried.
	ErrConcurrencyConflict = errors.New("concurrency conflict, transaction could not be serialized")

	// ErrUnauthorized is returned when the acting user is not the owner of the resource.
	ErrUnauthorized = errors.New("acting user is not allowed to access this resource")

	// ErrRowNotFound is returned when a row that should be updated does not exist.
	ErrRowNotFound = errors.New("row to update does not exist")

	// ErrDuplicateRow is returned when a row with the same key already exists.
	ErrDuplicateRow = errors.New("row with the same key already exists")

	// ErrInsufficientStock is returned by the stock ledger when a mutation would consume a unit that does not exist.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQuantityAdjustment is returned when an adjustment would drop the quantity below zero or below the earmarked units.
	ErrInvalidQuantityAdjustment = errors.New("quantity adjustment would violate stock invariants")

	// ErrNoEarmark is returned when an earmark should be released or claimed but none is held.
	ErrNoEarmark = errors.New("stock holds no earmarked unit")

	// ErrEarmarkDrift marks a reservation that holds an earmark its stock row does not account for.
	// Use cases that release such an earmark still complete and report the drift separately.
	ErrEarmarkDrift = errors.New("reservation earmark is not accounted for by its stock row")

	// ErrUnknownReservationStatus is returned when a status value is outside the closed set.
	ErrUnknownReservationStatus = errors.New("unknown reservation status")

	// ErrNilDatabaseConnection is returned when a nil database connection is supplied to a store constructor.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is configured.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrBeginTxFailed is returned when a transaction could not be started.
	ErrBeginTxFailed = errors.New("beginning the transaction failed")

	// ErrCommitTxFailed is returned when a transaction could not be committed.
	ErrCommitTxFailed = errors.New("committing the transaction failed")

	// ErrBuildingQueryFailed is returned when a SQL statement could not be built.
	ErrBuildingQueryFailed = errors.New("building the query failed")

	// ErrQueryingFailed is returned when a SQL query failed.
	ErrQueryingFailed = errors.New("querying the database failed")

	// ErrScanningDBRowFailed is returned when a database row could not be scanned.
	ErrScanningDBRowFailed = errors.New("scanning the database row failed")

	// ErrExecutingStatementFailed is returned when a SQL write statement failed.
	ErrExecutingStatementFailed = errors.New("executing the statement failed")

	// ErrInvalidPolicy is returned when a Policy violates its own constraints.
	ErrInvalidPolicy = errors.New("invalid lending policy")
)

// NewEarmarkDrift describes which reservation and stock row disagree about an earmark.
// cause is ErrNoEarmark when the row has none left, ErrRowNotFound when the row is gone.
func NewEarmarkDrift(reservationID, stockID uuid.UUID, cause error) error {
	return fmt.Errorf("%w: reservation %s, stock %s: %w", ErrEarmarkDrift, reservationID, stockID, cause)
}
