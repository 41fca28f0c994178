package lending

// FailureReason classifies an expected business outcome that prevented a use case from changing state.
// Business failures are carried in use case results and are not returned as errors.
type FailureReason string

const (
	// FailureNone marks a successful outcome.
	FailureNone FailureReason = ""

	// FailureNotFound means a referenced user, loan, stock row, or reservation does not exist.
	FailureNotFound FailureReason = "not_found"

	// FailurePolicyViolation means the request breaks a borrowing rule, e.g. the loan cap
	// or the one-active-reservation-per-title rule.
	FailurePolicyViolation FailureReason = "policy_violation"

	// FailureUnavailable means no copy of the title can serve the request.
	FailureUnavailable FailureReason = "unavailable"

	// FailureAlreadyProcessed means the request was already applied, e.g. a double return.
	FailureAlreadyProcessed FailureReason = "already_processed"
)

// IsFailure reports whether the reason denotes a failed outcome.
func (r FailureReason) IsFailure() bool {
	return r != FailureNone
}

// String implements fmt.Stringer.
func (r FailureReason) String() string {
	if r == FailureNone {
		return "none"
	}

	return string(r)
}
