package orchestrator

import (
	"errors"
	"fmt"
)

// PreconditionError marks a request that was well-formed but not allowed in
// the current state (not verified, already voted, roster full, ...). No side
// effect has happened when one is returned.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

func precondition(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// ErrForbidden is returned when an admin lacks the permission an operation
// requires, or the account is deactivated.
var ErrForbidden = errors.New("admin lacks required permission")
