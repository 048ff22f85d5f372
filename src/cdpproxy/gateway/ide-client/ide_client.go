package notifier

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=ideclientmock/ide_client_mock.go -package=ideclientmock . Gateway

const _errSendToClient = "sending call/notification to IDE: %w"

// MethodSessionStatusChanged notifies the IDE that a debug session moved to a new status.
const MethodSessionStatusChanged = "cordova/sessionStatusChanged"

// Gateway is used to send outbound notifications to the IDE.
// All calls to the gateway should include a context with a client UUID, which will be used to route notifications to the correct IDE connection.
type Gateway interface {
	// RegisterClient registers a new client with the gateway. Should be called each time a new IDE connection is initialized.
	RegisterClient(ctx context.Context, id uuid.UUID, conn *jsonrpc2.Conn) error
	// DeregisterClient removes a client from the gateway. Should be called each time an IDE connection is closed.
	DeregisterClient(ctx context.Context, id uuid.UUID) error

	LogMessage(ctx context.Context, params *protocol.LogMessageParams) (err error)
	ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) (err error)
	// Notify sends a notification outside of the LSP window namespace, such as MethodSessionStatusChanged.
	Notify(ctx context.Context, method string, params interface{}) (err error)

	// GetLogMessageWriter returns an io.Writer that can be used to log messages to the IDE client.
	// Do not store or use across requests, get a new one each time as needed.
	GetLogMessageWriter(ctx context.Context, prefix string) (io.Writer, error)
}

// ideClient pairs the LSP window dispatcher with the raw connection used for custom notifications.
type ideClient struct {
	window protocol.Client
	conn   jsonrpc2.Conn
}

type gateway struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]ideClient
	logger  *zap.Logger
}

// New returns a Gateway for sending IDE notifications.
func New(logger *zap.Logger) Gateway {
	return &gateway{
		clients: make(map[uuid.UUID]ideClient),
		logger:  logger,
	}
}

func (g *gateway) RegisterClient(ctx context.Context, id uuid.UUID, conn *jsonrpc2.Conn) error {
	if conn == nil || *conn == nil {
		return fmt.Errorf("registering client %q: no connection", id)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.clients[id]; ok {
		return fmt.Errorf("client with id %q already registered", id)
	}
	g.clients[id] = ideClient{
		window: protocol.ClientDispatcher(*conn, g.logger),
		conn:   *conn,
	}
	return nil
}

func (g *gateway) DeregisterClient(ctx context.Context, id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, id)
	return nil
}

func (g *gateway) LogMessage(ctx context.Context, params *protocol.LogMessageParams) (err error) {
	c, err := g.lookup(ctx)
	if err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	return c.window.LogMessage(ctx, params)
}

func (g *gateway) ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) (err error) {
	c, err := g.lookup(ctx)
	if err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	return c.window.ShowMessage(ctx, params)
}

func (g *gateway) Notify(ctx context.Context, method string, params interface{}) (err error) {
	c, err := g.lookup(ctx)
	if err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	if err := c.conn.Notify(ctx, method, params); err != nil {
		return fmt.Errorf(_errSendToClient, err)
	}
	return nil
}

// lookup finds the IDE connection named by the client UUID in ctx.
func (g *gateway) lookup(ctx context.Context) (ideClient, error) {
	id, err := mapper.ContextToClientUUID(ctx)
	if err != nil {
		return ideClient{}, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.clients[id]
	if !ok {
		return ideClient{}, fmt.Errorf("client with id %q not found", id)
	}
	return c, nil
}

func (g *gateway) GetLogMessageWriter(ctx context.Context, prefix string) (io.Writer, error) {
	c, err := g.lookup(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting IDE log message writer: %w", err)
	}
	return &logMessageWriter{window: c.window, ctx: ctx, prefix: prefix}, nil
}

// logMessageWriter sends each non-blank line written to it as a separate window/logMessage.
type logMessageWriter struct {
	window protocol.Client
	ctx    context.Context
	prefix string
}

func (w *logMessageWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := w.window.LogMessage(w.ctx, &protocol.LogMessageParams{
			Message: fmt.Sprintf("[%s] %s", w.prefix, line),
			Type:    protocol.MessageTypeLog,
		}); err != nil {
			return 0, fmt.Errorf("writing to IDE log message writer: %w", err)
		}
	}
	return len(p), nil
}
