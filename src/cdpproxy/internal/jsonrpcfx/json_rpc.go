package jsonrpcfx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/serverinfofile"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=json_rpc_mock_test.go -package=jsonrpcfx . Router,ConnectionManager
//go:generate mockgen -destination=jsonrpcfxmock/json_rpc_mock.go -package=jsonrpcfxmock . JSONRPCModule

const (
	_configKeyAddress = "jsonrpc.address"
	_outputKey        = "jsonrpc-address"
)

// Module is an fx module to handle JSON-RPC requests.
var Module = fx.Provide(New)

// JSONRPCModule represents a module to manage JSON-RPC requests.
type JSONRPCModule interface {
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
	ServeStream(ctx context.Context, conn jsonrpc2.Conn) error
	RegisterConnectionManager(connectionManager ConnectionManager) error
}

// Router serves as the interface through which handling of requests will be implemented.
type Router interface {
	HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error
	UUID() uuid.UUID
}

// ConnectionManager will manage each active connection and its corresponding Router throughout the lifecycle of a connection.
type ConnectionManager interface {
	NewConnection(ctx context.Context, conn *jsonrpc2.Conn) (router Router, err error)
	RemoveConnection(ctx context.Context, id uuid.UUID)
}

type module struct {
	address string

	connectionMgr  ConnectionManager
	logger         *zap.SugaredLogger
	serverInfoFile serverinfofile.ServerInfoFile

	mu      sync.Mutex
	ln      net.Listener
	stopped bool
	live    map[uuid.UUID]jsonrpc2.Conn
	streams sync.WaitGroup
	serving chan struct{}
}

// Params define values to be used by JsonRpcHandler.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Logger         *zap.SugaredLogger
	ServerInfoFile serverinfofile.ServerInfoFile
}

// New creates a new server to handle JSON-RPC requests on the configured address.
func New(p Params) (JSONRPCModule, error) {
	if p.Lifecycle == nil || p.Config == nil {
		return nil, errors.New("required parameters are missing")
	}

	m := module{
		logger:         p.Logger,
		serverInfoFile: p.ServerInfoFile,
	}

	if err := m.processConfig(p.Config); err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: m.OnStart,
		OnStop:  m.OnStop,
	})

	return &m, nil
}

// OnStart listens on the configured address, publishes it in the server info file and begins accepting IDE connections.
func (m *module) OnStart(ctx context.Context) error {
	ln, err := m.listen()
	if err != nil {
		return err
	}

	address := ln.Addr().String()
	if err := m.serverInfoFile.UpdateField(_outputKey, address); err != nil {
		return multierr.Append(fmt.Errorf("publishing JSON-RPC address: %w", err), m.closeListener())
	}

	// The IDE extension waits for this line, keep it at Warn so it survives quieter log levels.
	m.logger.Warnw("started JSON-RPC inbound", zap.String("address", address))

	m.serving = make(chan struct{})
	go m.serve(ln)
	return nil
}

// OnStop stops accepting connections, closes the live ones and waits for their streams to be cleaned up.
func (m *module) OnStop(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	live := make([]jsonrpc2.Conn, 0, len(m.live))
	for _, conn := range m.live {
		live = append(live, conn)
	}
	m.mu.Unlock()

	err := m.closeListener()
	for _, conn := range live {
		if closeErr := conn.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			err = multierr.Append(err, closeErr)
		}
	}

	done := make(chan struct{})
	go func() {
		m.streams.Wait()
		if m.serving != nil {
			<-m.serving
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, fmt.Errorf("waiting for JSON-RPC connections to close: %w", ctx.Err()))
	}
	return err
}

// ServeStream is called when a new connection is initiated. Requests received via the connection will be routed to the handler, and answered via the connection's replier.
func (m *module) ServeStream(ctx context.Context, conn jsonrpc2.Conn) error {
	if m.connectionMgr == nil {
		m.logger.Errorf("cannot serve connection, no connection manager set")
		return errors.New("cannot serve connection, no connection manager set")
	}

	handler, err := m.connectionMgr.NewConnection(ctx, &conn)
	if err != nil {
		return err
	}
	id := handler.UUID()

	if !m.track(id, conn) {
		m.connectionMgr.RemoveConnection(ctx, id)
		return multierr.Append(errors.New("JSON-RPC inbound is stopping"), conn.Close())
	}
	defer m.untrack(id)

	m.logger.Infow("client connected", zap.Stringer("uuid", id))
	conn.Go(ctx, handler.HandleReq)
	<-conn.Done()

	m.connectionMgr.RemoveConnection(ctx, id)
	m.logger.Infow("client disconnected", zap.Stringer("uuid", id))

	return conn.Err()
}

// RegisterConnectionManager sets the connection manager, which keeps track of current active connections and provides a Router implementation.
func (m *module) RegisterConnectionManager(connectionMgr ConnectionManager) error {
	if m.connectionMgr != nil {
		return errors.New("cannot register a duplicate connection manager")
	}
	m.connectionMgr = connectionMgr
	return nil
}

func (m *module) listen() (net.Listener, error) {
	if m.address == "" {
		return nil, errors.New("listen called before address is set")
	}

	ln, err := net.Listen("tcp", m.address)
	if err != nil {
		return nil, fmt.Errorf("listening on %q: %w", m.address, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ln = ln
	return ln, nil
}

func (m *module) serve(ln net.Listener) {
	defer close(m.serving)
	if err := jsonrpc2.Serve(context.Background(), ln, m, 0); err != nil && !m.isStopped() {
		m.logger.Errorw("JSON-RPC inbound stopped accepting connections", zap.Error(err))
	}
}

func (m *module) closeListener() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln == nil {
		return nil
	}
	err := m.ln.Close()
	m.ln = nil
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// track records a live connection. It reports false once OnStop has begun.
func (m *module) track(id uuid.UUID, conn jsonrpc2.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	if m.live == nil {
		m.live = make(map[uuid.UUID]jsonrpc2.Conn)
	}
	m.live[id] = conn
	m.streams.Add(1)
	return true
}

func (m *module) untrack(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, id)
	m.streams.Done()
}

func (m *module) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// processConfig will parse the configuration for any values required by this module.
func (m *module) processConfig(cfg config.Provider) error {
	val := cfg.Get(_configKeyAddress)
	if err := val.Populate(&m.address); err != nil {
		// incorrectly formatted config
		return fmt.Errorf("getting config field %q: %w", _configKeyAddress, err)
	}

	if m.address == "" {
		// yaml is missing either the key or value
		return fmt.Errorf("missing field %q in config", _configKeyAddress)
	}

	return nil
}
