package debugsession

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"go.uber.org/zap"
)

// StartSession registers a debug session for the calling control connection and returns the URL its debugger
// client attaches to.
func (c *controller) StartSession(ctx context.Context, params *entity.StartSessionParams) (*entity.StartSessionResult, error) {
	clientID, err := mapper.ContextToClientUUID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting client from context: %w", err)
	}

	s, err := c.sessions.Create(ctx, mapper.StartSessionParamsToSession(clientID, params))
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	c.logger.Infow("debug session started",
		"sessionId", s.UUID.String(),
		"ideSessionId", s.IDESessionID,
		"platform", string(s.Platform),
	)
	return &entity.StartSessionResult{
		SessionID: s.UUID,
		ProxyURL:  c.proxy.ProxyURL(s.UUID),
	}, nil
}

// GetSession returns the current state of a session.
func (c *controller) GetSession(ctx context.Context, id uuid.UUID) (*entity.Session, error) {
	return c.sessions.Get(ctx, id)
}

// SetSessionStatus moves a session to a new status. Backward moves are rejected when transitions are strict and
// applied with a warning otherwise.
func (c *controller) SetSessionStatus(ctx context.Context, params *entity.SetSessionStatusParams) (*entity.Session, error) {
	s, err := c.sessions.SetStatus(ctx, params.SessionID, params.Status)
	if err == nil || !errors.IsInvalidTransition(err) || c.strictTransitions {
		return s, err
	}

	c.logger.Warnw("forcing session status", "sessionId", params.SessionID.String(), zap.Error(err))
	return c.sessions.ForceStatus(ctx, params.SessionID, params.Status)
}

// EndSession stops proxying the session and removes it from the registry.
func (c *controller) EndSession(ctx context.Context, id uuid.UUID) error {
	if _, err := c.sessions.Get(ctx, id); err != nil {
		return err
	}
	if err := c.proxy.Detach(ctx, id); err != nil {
		c.logger.Warnw("detaching debugger", "sessionId", id.String(), zap.Error(err))
	}
	if err := c.sessions.Delete(ctx, id); err != nil {
		return err
	}
	c.logger.Infow("debug session ended", "sessionId", id.String())
	return nil
}

// ListTargets returns the debuggable pages at a DevTools endpoint.
func (c *controller) ListTargets(ctx context.Context, params *entity.ListTargetsParams) ([]entity.DebuggingTarget, error) {
	targets, err := c.targets.ListTargets(ctx, params.DevToolsEndpoint, params.URLFilter)
	if err != nil {
		return nil, fmt.Errorf("listing targets at %q: %w", params.DevToolsEndpoint, err)
	}
	return targets, nil
}
