package entity

import "fmt"

// ScriptRecord describes one script instance loaded by the target.
// A record is never changed after registration except for Superseded.
type ScriptRecord struct {
	ScriptID  string
	RemoteURL string
	// LocalPath is empty when the remote URL does not map under the project.
	LocalPath string
	// LocalURL is what the debugger client sees in Debugger.scriptParsed.
	LocalURL string
	// Discriminator separates scripts embedded in one document. It is "line:column" of the script start,
	// or empty for a script that starts at the top of its resource.
	Discriminator string
	StartLine     int
	EndLine       int
	Generation    int
	Superseded    bool
}

// Key identifies the slot a record occupies in the mapper. Only one current record may hold a key.
func (r *ScriptRecord) Key() string {
	path := r.LocalPath
	if path == "" {
		path = r.RemoteURL
	}
	if r.Discriminator == "" {
		return path
	}
	return path + "#" + r.Discriminator
}

// Contains reports whether a line falls inside the script. An EndLine of zero is treated as unbounded.
func (r *ScriptRecord) Contains(line int) bool {
	if line < r.StartLine {
		return false
	}
	return r.EndLine == 0 || line <= r.EndLine
}

// Discriminator formats the discriminator for a script starting at line and column.
func Discriminator(startLine, startColumn int) string {
	if startLine == 0 && startColumn == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", startLine, startColumn)
}

// BreakpointState is the lifecycle state of a breakpoint the debugger client asked for.
type BreakpointState int

const (
	// BreakpointPending has no matching live script.
	BreakpointPending BreakpointState = iota
	// BreakpointBound is set in the target against a current script.
	BreakpointBound
	// BreakpointRebinding was bound to a script that has since been superseded.
	BreakpointRebinding
	// BreakpointRemoved is terminal.
	BreakpointRemoved
)

// String implements fmt.Stringer.
func (s BreakpointState) String() string {
	switch s {
	case BreakpointPending:
		return "Pending"
	case BreakpointBound:
		return "Bound"
	case BreakpointRebinding:
		return "Rebinding"
	case BreakpointRemoved:
		return "Removed"
	}
	return fmt.Sprintf("BreakpointState(%d)", int(s))
}

// BreakpointSpec is a breakpoint as the debugger client asked for it.
// It outlives any single script instance.
type BreakpointSpec struct {
	// ID is the proxy-side breakpoint id handed to the debugger client.
	ID string
	// LocalPath is set when the client asked by url; URLRegex when it asked by urlRegex.
	LocalPath string
	URLRegex  string
	Line      int
	Column    int
	HasColumn bool
	Condition string

	State BreakpointState
	// Bindings holds one entry per script slot the breakpoint is set in. A url breakpoint has at most
	// one; a urlRegex breakpoint has one for every matching script.
	Bindings []*ScriptBinding
}

// Binding returns the binding for a script slot key.
func (s *BreakpointSpec) Binding(key string) (*ScriptBinding, bool) {
	for _, b := range s.Bindings {
		if b.Key == key {
			return b, true
		}
	}
	return nil, false
}

// ScriptBinding is a breakpoint set in the target against one script slot.
type ScriptBinding struct {
	// Key is the ScriptRecord key the binding follows across reloads.
	Key string
	// RemoteURL is the url the target breakpoint was set by.
	RemoteURL string
	// TargetBreakpointID may be shared with other bindings set at the same location.
	TargetBreakpointID string
	BoundScriptID      string
	// InFlightScriptID is the script a set request is outstanding for.
	InFlightScriptID string
}
