package errors

import "fmt"

// MalformedMessageError indicates that a CDP message is not valid JSON or is missing required fields.
type MalformedMessageError struct {
	Method string
	Reason string
}

// Error is an implementation of the error interface.
func (n *MalformedMessageError) Error() string {
	if n.Method == "" {
		return fmt.Sprintf("malformed CDP message: %s", n.Reason)
	}
	return fmt.Sprintf("malformed %s message: %s", n.Method, n.Reason)
}

// UnresolvedScriptError describes a breakpoint that references a path with no loaded script.
// It is informational: the breakpoint is held until a matching script is parsed.
type UnresolvedScriptError struct {
	Location string
}

// Error is an implementation of the error interface.
func (n *UnresolvedScriptError) Error() string {
	return fmt.Sprintf("no loaded script matches %q", n.Location)
}
