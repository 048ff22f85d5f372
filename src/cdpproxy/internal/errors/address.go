package errors

import "fmt"

// InvalidAddressError indicates that a textual IP address could not be parsed.
type InvalidAddressError struct {
	Address string
}

// Error is an implementation of the error interface.
func (n *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q", n.Address)
}
