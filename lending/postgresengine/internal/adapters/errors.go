package adapters

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes that mean "a concurrent transaction won, try again".
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
)

// IsConcurrencyConflict reports whether err is a serialization failure, a deadlock,
// or a unique violation raised by the pgx or the lib/pq driver.
// Unique violations happen when two transactions insert the same key or a second
// active reservation for the same user and title, both resolve on retry.
func IsConcurrencyConflict(err error) bool {
	code := SQLState(err)

	switch code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateUniqueViolation:
		return true
	default:
		return false
	}
}

// SQLState extracts the SQLSTATE code from a driver error, or returns "".
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}
