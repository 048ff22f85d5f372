package entity

// CDP methods the proxy inspects. Everything else is forwarded untouched apart from id remapping.
const (
	MethodDebuggerScriptParsed            = "Debugger.scriptParsed"
	MethodDebuggerSetBreakpointByURL      = "Debugger.setBreakpointByUrl"
	MethodDebuggerRemoveBreakpoint        = "Debugger.removeBreakpoint"
	MethodDebuggerBreakpointResolved      = "Debugger.breakpointResolved"
	MethodDebuggerPaused                  = "Debugger.paused"
	MethodRuntimeExecutionContextsCleared = "Runtime.executionContextsCleared"
)

// CDP error codes used in synthesized responses.
const (
	CDPErrorInvalidParams = -32602
	CDPErrorServer        = -32000
)

// DebuggingTarget is an entry of the DevTools discovery endpoint (/json/list).
type DebuggingTarget struct {
	Description          string `json:"description,omitempty"`
	DevtoolsFrontendURL  string `json:"devtoolsFrontendUrl,omitempty"`
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// BrowserVersion is the payload of the DevTools /json/version endpoint.
type BrowserVersion struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent,omitempty"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl,omitempty"`
}

// BreakpointLocation is a CDP Debugger.Location.
type BreakpointLocation struct {
	ScriptID     string `json:"scriptId"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber *int   `json:"columnNumber,omitempty"`
}
