package debugsession

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/multierr"
)

// Shutdown is sent just before Exit. Proxied debugger connections of the client are closed; its sessions stay
// registered until Exit.
func (c *controller) Shutdown(ctx context.Context) error {
	clientID, err := mapper.ContextToClientUUID(ctx)
	if err != nil {
		return fmt.Errorf("getting client from context: %w", err)
	}

	sessions, err := c.sessions.GetAllForClient(ctx, clientID)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		err = multierr.Append(err, c.proxy.Detach(ctx, s.UUID))
	}
	return err
}

// Exit will be used to either clean up from an individual connection, or shutdown the whole server.
func (c *controller) Exit(ctx context.Context) error {
	if c.fullShutdown {
		// Zero out the timer to trigger immediate shutdown.
		c.idleTimerMu.Lock()
		c.idleTimer.Reset(0)
		c.idleTimerMu.Unlock()
		return nil
	}

	clientID, err := mapper.ContextToClientUUID(ctx)
	if err != nil {
		return fmt.Errorf("error during client exit: %w", err)
	}
	return c.EndClient(ctx, clientID)
}

// RequestFullShutdown will set the controller to treat subsequent Shutdown and Exit requests as requests to exit the entire process.
func (c *controller) RequestFullShutdown(ctx context.Context) error {
	c.fullShutdown = true
	return nil
}

// InitClient registers a new control connection and returns its UUID.
func (c *controller) InitClient(ctx context.Context, conn *jsonrpc2.Conn) (uuid.UUID, error) {
	defer c.refreshIdleTimer(ctx)

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}

	if err := c.ideGateway.RegisterClient(ctx, id, conn); err != nil {
		return uuid.Nil, err
	}

	c.clientsMu.Lock()
	c.clients[id] = struct{}{}
	c.clientsMu.Unlock()
	return id, nil
}

// EndClient ends every debug session owned by the connection, during or after its last JSON-RPC request.
func (c *controller) EndClient(ctx context.Context, id uuid.UUID) error {
	defer c.refreshIdleTimer(ctx)

	c.clientsMu.Lock()
	delete(c.clients, id)
	c.clientsMu.Unlock()

	var errs error
	sessions, err := c.sessions.GetAllForClient(ctx, id)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	for _, s := range sessions {
		errs = multierr.Append(errs, c.EndSession(ctx, s.UUID))
	}

	if err := c.ideGateway.DeregisterClient(ctx, id); err != nil {
		c.logger.Error(err)
	}
	return errs
}
