package mapper

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/model"
)

// SessionToModel maps a Session entity to its model equivalent.
func SessionToModel(f *entity.Session) *model.Session {
	return &model.Session{
		UUID:                 f.UUID,
		IDESessionID:         f.IDESessionID,
		ClientUUID:           f.ClientUUID,
		Status:               int(f.Status),
		Platform:             string(f.Platform),
		ProjectRoot:          f.ProjectRoot,
		WebSocketDebuggerURL: f.WebSocketDebuggerURL,
		DevToolsEndpoint:     f.DevToolsEndpoint,
		TargetURLFilter:      f.TargetURLFilter,
		CreatedAt:            f.CreatedAt,
	}
}

// ModelToSession maps a model Session to its entity equivalent.
func ModelToSession(f *model.Session) (*entity.Session, error) {
	return &entity.Session{
		UUID:                 f.UUID,
		IDESessionID:         f.IDESessionID,
		ClientUUID:           f.ClientUUID,
		Status:               entity.SessionStatus(f.Status),
		Platform:             entity.Platform(f.Platform),
		ProjectRoot:          f.ProjectRoot,
		WebSocketDebuggerURL: f.WebSocketDebuggerURL,
		DevToolsEndpoint:     f.DevToolsEndpoint,
		TargetURLFilter:      f.TargetURLFilter,
		CreatedAt:            f.CreatedAt,
	}, nil
}

// StartSessionParamsToSession builds an unregistered Session from the startSession request.
func StartSessionParamsToSession(clientUUID uuid.UUID, params *entity.StartSessionParams) *entity.Session {
	return &entity.Session{
		IDESessionID:         params.IDESessionID,
		ClientUUID:           clientUUID,
		Status:               entity.SessionStatusNotActivated,
		Platform:             params.Platform,
		ProjectRoot:          params.ProjectRoot,
		WebSocketDebuggerURL: params.WebSocketDebuggerURL,
		DevToolsEndpoint:     params.DevToolsEndpoint,
		TargetURLFilter:      params.TargetURLFilter,
	}
}

// ContextToClientUUID extracts the control connection UUID from a context.
func ContextToClientUUID(c context.Context) (uuid.UUID, error) {
	s, ok := c.Value(entity.ClientContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, &errors.NoClientFoundError{}
	}
	return s, nil
}
