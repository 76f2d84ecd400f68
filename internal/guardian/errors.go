package guardian

import (
	"errors"
	"fmt"
)

// DenialReason identifies which limit caused an authorization to be denied.
type DenialReason string

const (
	// ReasonMaxAttempts means the attempt ceiling was already reached.
	ReasonMaxAttempts DenialReason = "max-attempts-reached"
	// ReasonInsufficientBudget means the remaining budget cannot cover the
	// attempt's cost and overflow is not allowed.
	ReasonInsufficientBudget DenialReason = "insufficient-budget"
)

// DenialError is returned when AuthorizeAttempt refuses an attempt. It
// carries a snapshot of the ledger at denial time so callers can report
// without reaching back into the guardian.
type DenialError struct {
	Reason  DenialReason
	Message string
	State   GuardianState
}

func (e *DenialError) Error() string {
	return e.Message
}

// newDenialError snapshots the given state into a DenialError.
func newDenialError(reason DenialReason, state GuardianState, format string, args ...interface{}) *DenialError {
	return &DenialError{
		Reason:  reason,
		Message: fmt.Sprintf(format, args...),
		State:   state.Clone(),
	}
}

// IsDenial reports whether err is any guardian denial.
func IsDenial(err error) bool {
	var denial *DenialError
	return errors.As(err, &denial)
}

// IsMaxAttempts reports whether err is a max-attempts-reached denial.
func IsMaxAttempts(err error) bool {
	var denial *DenialError
	return errors.As(err, &denial) && denial.Reason == ReasonMaxAttempts
}

// IsInsufficientBudget reports whether err is an insufficient-budget denial.
func IsInsufficientBudget(err error) bool {
	var denial *DenialError
	return errors.As(err, &denial) && denial.Reason == ReasonInsufficientBudget
}
