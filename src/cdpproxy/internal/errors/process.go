package errors

import (
	stderr "errors"
	"fmt"
	"strings"
)

// TargetProcessFailureError indicates that an external process exited unsuccessfully.
type TargetProcessFailureError struct {
	Command  string
	ExitCode int
	Stderr   string
	TimedOut bool
}

// Error is an implementation of the error interface.
func (n *TargetProcessFailureError) Error() string {
	stderrText := strings.TrimSpace(n.Stderr)
	if n.TimedOut {
		return fmt.Sprintf("%s timed out: %s", n.Command, stderrText)
	}
	return fmt.Sprintf("%s failed with exit code %d: %s", n.Command, n.ExitCode, stderrText)
}

// ProcessFailure returns the TargetProcessFailureError in the error chain, if any.
func ProcessFailure(e error) (*TargetProcessFailureError, bool) {
	var pf *TargetProcessFailureError
	if !stderr.As(e, &pf) {
		return nil, false
	}
	return pf, true
}
