package model

import (
	"time"

	"github.com/gofrs/uuid"
)

// Session is the repository layer model for a single debug session.
type Session struct {
	UUID                 uuid.UUID
	IDESessionID         string
	ClientUUID           uuid.UUID
	Status               int
	Platform             string
	ProjectRoot          string
	WebSocketDebuggerURL string
	DevToolsEndpoint     string
	TargetURLFilter      string
	CreatedAt            time.Time
}
