package lending

import (
	"errors"
	"time"
)

const (
	// DefaultMaxActiveLoans is the default cap of unreturned loans per user.
	DefaultMaxActiveLoans = 10

	// DefaultLoanDuration is the default time between lending and the due date.
	DefaultLoanDuration = 14 * 24 * time.Hour

	// DefaultReservationHoldWindow is the default time a promoted reservation keeps its earmarked copy.
	DefaultReservationHoldWindow = 48 * time.Hour
)

// Policy holds the numbers and switches of the borrowing rules.
// It is injected into the use case handlers instead of being hard-coded.
type Policy struct {
	// MaxActiveLoans is the number of unreturned loans a user may hold at once.
	MaxActiveLoans int

	// LoanDuration is added to the loan date to compute the due date.
	LoanDuration time.Duration

	// ReservationHoldWindow is how long an Available reservation may stay uncollected before
	// the expiry worker reclaims it.
	ReservationHoldWindow time.Duration

	// ReservationRequiresAvailableCopy rejects reservations with FailureUnavailable unless at least
	// one stock row of the title currently has a free unit. When false, any title with a stock row
	// can be reserved, which is the usual way to queue for a title that is fully lent out.
	ReservationRequiresAvailableCopy bool
}

// DefaultPolicy returns the policy used when nothing else is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxActiveLoans:                   DefaultMaxActiveLoans,
		LoanDuration:                     DefaultLoanDuration,
		ReservationHoldWindow:            DefaultReservationHoldWindow,
		ReservationRequiresAvailableCopy: false,
	}
}

// Validate checks that all numbers are usable.
func (p Policy) Validate() error {
	if p.MaxActiveLoans <= 0 {
		return errors.Join(ErrInvalidPolicy, errors.New("max active loans must be positive"))
	}

	if p.LoanDuration <= 0 {
		return errors.Join(ErrInvalidPolicy, errors.New("loan duration must be positive"))
	}

	if p.ReservationHoldWindow <= 0 {
		return errors.Join(ErrInvalidPolicy, errors.New("reservation hold window must be positive"))
	}

	return nil
}

// AllowsAnotherLoan reports whether a user with activeLoans unreturned loans may borrow one more.
func (p Policy) AllowsAnotherLoan(activeLoans int) bool {
	return activeLoans < p.MaxActiveLoans
}

// DueDate computes the due date of a loan issued at loanDate.
func (p Policy) DueDate(loanDate time.Time) time.Time {
	return loanDate.Add(p.LoanDuration)
}

// HoldExpiryCutoff returns the latest AvailableAt that counts as expired at now.
func (p Policy) HoldExpiryCutoff(now time.Time) time.Time {
	return now.Add(-p.ReservationHoldWindow)
}
