package entity

import "github.com/gofrs/uuid"

// Control channel methods served to the IDE extension.
const (
	MethodStartSession        = "cordova/startSession"
	MethodGetSession          = "cordova/getSession"
	MethodSetSessionStatus    = "cordova/setSessionStatus"
	MethodEndSession          = "cordova/endSession"
	MethodListTargets         = "cordova/listTargets"
	MethodRun                 = "cordova/run"
	MethodRequestFullShutdown = "cordova/requestFullShutdown"
	MethodShutdown            = "shutdown"
	MethodExit                = "exit"
)

// StartSessionParams are the parameters of cordova/startSession.
type StartSessionParams struct {
	IDESessionID         string   `json:"ideSessionId"`
	Platform             Platform `json:"platform"`
	ProjectRoot          string   `json:"projectRoot"`
	WebSocketDebuggerURL string   `json:"webSocketDebuggerUrl,omitempty"`
	DevToolsEndpoint     string   `json:"devToolsEndpoint,omitempty"`
	TargetURLFilter      string   `json:"targetUrlFilter,omitempty"`
}

// StartSessionResult is returned by cordova/startSession.
type StartSessionResult struct {
	SessionID uuid.UUID `json:"sessionId"`
	// ProxyURL is the websocket URL the debugger client should attach to.
	ProxyURL string `json:"proxyUrl"`
}

// SessionIDParams identify a single session.
type SessionIDParams struct {
	SessionID uuid.UUID `json:"sessionId"`
}

// SetSessionStatusParams are the parameters of cordova/setSessionStatus.
type SetSessionStatusParams struct {
	SessionID uuid.UUID     `json:"sessionId"`
	Status    SessionStatus `json:"status"`
}

// ListTargetsParams are the parameters of cordova/listTargets.
type ListTargetsParams struct {
	DevToolsEndpoint string `json:"devToolsEndpoint"`
	URLFilter        string `json:"urlFilter,omitempty"`
}

// RunParams are the parameters of cordova/run.
type RunParams struct {
	Args                 []string          `json:"args"`
	WorkingDirectory     string            `json:"workingDirectory"`
	EnvironmentOverrides map[string]string `json:"environmentOverrides,omitempty"`
	TimeoutSeconds       int               `json:"timeoutSeconds,omitempty"`
}

// RunResult is returned by cordova/run.
type RunResult struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}
