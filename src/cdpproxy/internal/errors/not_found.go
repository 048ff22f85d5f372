package errors

import (
	stderr "errors"
	"fmt"

	"github.com/gofrs/uuid"
)

// UUIDNotFoundError reports that no debug session is registered under UUID.
type UUIDNotFoundError struct {
	UUID uuid.UUID
}

func (n *UUIDNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", n.UUID)
}

// NotFoundUUID returns the missing session UUID when a UUIDNotFoundError is part of the error chain.
func NotFoundUUID(e error) (_ uuid.UUID, ok bool) {
	var nf *UUIDNotFoundError
	if !stderr.As(e, &nf) {
		return uuid.Nil, false
	}
	return nf.UUID, true
}

// NoClientFoundError means the request context carries no control connection UUID.
type NoClientFoundError struct{}

func (*NoClientFoundError) Error() string {
	return "no client found in context"
}
