// Package entity contains the domain types for the cordova-cdp-proxy service.
package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

type keyType string

// ClientContextKey indicates the key to be used to identify the control connection UUID in the context.
const ClientContextKey keyType = "ClientUUID"

// SessionStatus is the lifecycle state of a debug session.
type SessionStatus int

const (
	// SessionStatusNotActivated is the status of a session that has been created but has no debugger attached.
	SessionStatusNotActivated SessionStatus = iota
	// SessionStatusPending means a debugger client connected and the target is being dialed.
	SessionStatusPending
	// SessionStatusActivated means traffic is flowing between the debugger client and the target.
	SessionStatusActivated
)

var _sessionStatusNames = map[SessionStatus]string{
	SessionStatusNotActivated: "NotActivated",
	SessionStatusPending:      "Pending",
	SessionStatusActivated:    "Activated",
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	if name, ok := _sessionStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SessionStatus(%d)", int(s))
}

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	_, ok := _sessionStatusNames[s]
	return ok
}

// CanTransitionTo reports whether a session in status s may move to next.
// Statuses only move forward; setting the current status again is allowed.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return s.Valid() && next.Valid() && next >= s
}

// ParseSessionStatus maps a status name to its SessionStatus.
func ParseSessionStatus(name string) (SessionStatus, error) {
	for status, n := range _sessionStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown session status %q", name)
}

// MarshalJSON encodes the status by name.
func (s SessionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *SessionStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSessionStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Platform identifies the Cordova platform the app runs on.
type Platform string

const (
	// PlatformAndroid is an Android WebView.
	PlatformAndroid Platform = "android"
	// PlatformIOS is a WKWebView reached through a webkit debug proxy.
	PlatformIOS Platform = "ios"
	// PlatformBrowser is the Cordova browser platform.
	PlatformBrowser Platform = "browser"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformBrowser:
		return true
	}
	return false
}

// Session entity representing a single debug session driven by the IDE.
type Session struct {
	UUID                 uuid.UUID     `json:"sessionId" zap:"sessionId"`
	IDESessionID         string        `json:"ideSessionId" zap:"ideSessionId"`
	ClientUUID           uuid.UUID     `json:"-" zap:"clientUUID"`
	Status               SessionStatus `json:"status" zap:"status"`
	Platform             Platform      `json:"platform" zap:"platform"`
	ProjectRoot          string        `json:"projectRoot" zap:"projectRoot"`
	WebSocketDebuggerURL string        `json:"webSocketDebuggerUrl,omitempty" zap:"webSocketDebuggerUrl"`
	DevToolsEndpoint     string        `json:"devToolsEndpoint,omitempty" zap:"devToolsEndpoint"`
	TargetURLFilter      string        `json:"targetUrlFilter,omitempty" zap:"targetUrlFilter"`
	CreatedAt            time.Time     `json:"createdAt" zap:"createdAt"`
}

// SessionID returns the proxy-side identifier of the session.
func (s *Session) SessionID() uuid.UUID {
	return s.UUID
}

// IDESession returns the handle of the IDE debug session this session belongs to.
func (s *Session) IDESession() string {
	return s.IDESessionID
}

// CurrentStatus returns the status at the time the session was read from the registry.
func (s *Session) CurrentStatus() SessionStatus {
	return s.Status
}
