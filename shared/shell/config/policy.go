package config

import (
	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

// Environment variables overriding the borrowing policy.
const (
	EnvMaxActiveLoans                   = "LENDING_MAX_ACTIVE_LOANS"
	EnvLoanDuration                     = "LENDING_LOAN_DURATION"
	EnvReservationHoldWindow            = "LENDING_RESERVATION_HOLD_WINDOW"
	EnvReservationRequiresAvailableCopy = "LENDING_RESERVATION_REQUIRES_AVAILABLE_COPY"
)

// PolicyFromEnv starts from lending.DefaultPolicy and applies the overrides that are set.
// Durations use time.ParseDuration syntax, e.g. "336h".
func PolicyFromEnv() (lending.Policy, error) {
	defaults := lending.DefaultPolicy()

	maxActiveLoans, err := envInt(EnvMaxActiveLoans, defaults.MaxActiveLoans)
	if err != nil {
		return lending.Policy{}, err
	}

	loanDuration, err := envDuration(EnvLoanDuration, defaults.LoanDuration)
	if err != nil {
		return lending.Policy{}, err
	}

	holdWindow, err := envDuration(EnvReservationHoldWindow, defaults.ReservationHoldWindow)
	if err != nil {
		return lending.Policy{}, err
	}

	requiresAvailableCopy, err := envBool(EnvReservationRequiresAvailableCopy, defaults.ReservationRequiresAvailableCopy)
	if err != nil {
		return lending.Policy{}, err
	}

	policy := lending.Policy{
		MaxActiveLoans:                   maxActiveLoans,
		LoanDuration:                     loanDuration,
		ReservationHoldWindow:            holdWindow,
		ReservationRequiresAvailableCopy: requiresAvailableCopy,
	}

	if err = policy.Validate(); err != nil {
		return lending.Policy{}, err
	}

	return policy, nil
}
