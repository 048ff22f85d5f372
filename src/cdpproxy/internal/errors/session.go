package errors

import (
	stderr "errors"
	"fmt"

	"github.com/gofrs/uuid"
)

// InvalidTransitionError reports an attempt to move a session status backwards.
type InvalidTransitionError struct {
	SessionUUID uuid.UUID
	From        string
	To          string
}

// Error is an implementation of the error interface.
func (n *InvalidTransitionError) Error() string {
	return fmt.Sprintf("session %q cannot move from status %q to %q", n.SessionUUID, n.From, n.To)
}

// IsInvalidTransition reports whether an InvalidTransitionError is part of the error chain.
func IsInvalidTransition(e error) bool {
	var it *InvalidTransitionError
	return stderr.As(e, &it)
}
