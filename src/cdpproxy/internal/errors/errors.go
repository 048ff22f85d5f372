package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// NoSessionIDOnWireError reports that the request is missing a session id.
	NoSessionIDOnWireError = New("sessionId is required")
	// NoTargetOnWireError reports that the request names neither a websocket debugger URL nor a DevTools endpoint.
	NoTargetOnWireError = New("one of webSocketDebuggerUrl or devToolsEndpoint is required")
	// UnknownPlatformOnWireError reports a platform other than android, ios or browser.
	UnknownPlatformOnWireError = New("platform must be one of android, ios, browser")
	// NoProjectRootOnWireError reports that the request is missing the project root.
	NoProjectRootOnWireError = New("projectRoot is required")
)

// IsBadRequest reports whether the error is a bad request from the caller.
func IsBadRequest(e error) bool {
	for _, wire := range []error{NoSessionIDOnWireError, NoTargetOnWireError, UnknownPlatformOnWireError, NoProjectRootOnWireError} {
		if stderr.Is(e, wire) {
			return true
		}
	}
	var mm *MalformedMessageError
	var ia *InvalidAddressError
	return stderr.As(e, &mm) || stderr.As(e, &ia)
}
