// Package debugsession implements the control channel business logic of the proxy.
package debugsession

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	cdpproxy "github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/cdp-proxy"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	target "github.com/uber/cordova-cdp-proxy/src/cdpproxy/gateway/cdp-target"
	notifier "github.com/uber/cordova-cdp-proxy/src/cdpproxy/gateway/ide-client"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/cordova"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/repository/session"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=debugsessionmock/debug_session_mock.go -package=debugsessionmock . Controller

const (
	// Configuration keys
	_idleTimeoutMinutesKey = "idleTimeoutMinutes"
	_strictTransitionsKey  = "sessions.strictTransitions"
)

// Controller orchestrates the business logic for each control channel request.
type Controller interface {
	// Lifecycle methods, as sent by the IDE extension when it disconnects.
	Shutdown(ctx context.Context) error
	Exit(ctx context.Context) error
	RequestFullShutdown(ctx context.Context) error

	// Debug session methods.
	StartSession(ctx context.Context, params *entity.StartSessionParams) (*entity.StartSessionResult, error)
	GetSession(ctx context.Context, id uuid.UUID) (*entity.Session, error)
	SetSessionStatus(ctx context.Context, params *entity.SetSessionStatusParams) (*entity.Session, error)
	EndSession(ctx context.Context, id uuid.UUID) error
	ListTargets(ctx context.Context, params *entity.ListTargetsParams) ([]entity.DebuggingTarget, error)

	// RunCordova runs the Cordova CLI and forwards its output to the IDE log.
	RunCordova(ctx context.Context, params *entity.RunParams) (*entity.RunResult, error)

	// Custom methods for use within this service.
	InitClient(ctx context.Context, conn *jsonrpc2.Conn) (uuid.UUID, error)
	EndClient(ctx context.Context, id uuid.UUID) error
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Shutdowner fx.Shutdowner
	Lifecycle  fx.Lifecycle
	Sessions   session.Repository
	IdeGateway notifier.Gateway
	Logger     *zap.SugaredLogger
	Config     config.Provider
	Proxy      cdpproxy.Controller
	Targets    target.Gateway
	Cordova    cordova.Runner
}

type controller struct {
	sessions   session.Repository
	shutdowner fx.Shutdowner
	logger     *zap.SugaredLogger
	ideGateway notifier.Gateway
	proxy      cdpproxy.Controller
	targets    target.Gateway
	cordova    cordova.Runner

	// strictTransitions returns backward status moves to the caller instead of forcing them.
	strictTransitions bool
	fullShutdown      bool

	clients   map[uuid.UUID]struct{}
	clientsMu sync.Mutex

	idleTimer          *time.Timer
	idleTimerMu        sync.Mutex
	idleTimeoutMinutes time.Duration
	stopped            chan struct{}
}

// New constructs a new top-level controller for the service.
func New(p Params) (Controller, error) {
	ctx := context.Background()

	var timeoutMinutesRaw int64
	if err := p.Config.Get(_idleTimeoutMinutesKey).Populate(&timeoutMinutesRaw); err != nil || timeoutMinutesRaw == 0 {
		return nil, fmt.Errorf("unable to get idle timeout from config: %w", err)
	}
	var strict bool
	if err := p.Config.Get(_strictTransitionsKey).Populate(&strict); err != nil {
		return nil, fmt.Errorf("unable to get %q from config: %w", _strictTransitionsKey, err)
	}

	c := &controller{
		sessions:   p.Sessions,
		shutdowner: p.Shutdowner,
		logger:     p.Logger,
		ideGateway: p.IdeGateway,
		proxy:      p.Proxy,
		targets:    p.Targets,
		cordova:    p.Cordova,

		strictTransitions:  strict,
		clients:            make(map[uuid.UUID]struct{}),
		idleTimeoutMinutes: time.Duration(timeoutMinutesRaw) * time.Minute,
		stopped:            make(chan struct{}),
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				c.stopIdleTimer()
				return nil
			},
		})
	}
	c.refreshIdleTimer(ctx)

	return c, nil
}

// refreshIdleTimer ensures that the service shuts down after a defined inactivity period with no IDE connections.
func (c *controller) refreshIdleTimer(ctx context.Context) {
	c.idleTimerMu.Lock()
	defer c.idleTimerMu.Unlock()

	// First call initializes new timer and leaves it running prior to first connection.
	if c.idleTimer == nil {
		c.idleTimer = time.NewTimer(c.idleTimeoutMinutes)
		timer := c.idleTimer
		go func() {
			select {
			case <-timer.C:
			case <-c.stopped:
				return
			}
			c.logger.Info("Shutdown signal received.")
			if err := c.shutdowner.Shutdown(); err != nil {
				os.Exit(1)
			}
		}()
		return
	}

	// Subsequent calls stop the timer and reset it only if no connections are active.
	c.idleTimer.Stop()
	if c.clientCount() == 0 {
		c.idleTimer.Reset(c.idleTimeoutMinutes)
	}
}

func (c *controller) stopIdleTimer() {
	c.idleTimerMu.Lock()
	defer c.idleTimerMu.Unlock()
	select {
	case <-c.stopped:
	default:
		close(c.stopped)
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
}

func (c *controller) clientCount() int {
	c.clientsMu.Lock()
	defer c.clientsMu.Unlock()
	return len(c.clients)
}
