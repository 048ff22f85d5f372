// Package cdpproxy serves the debugger-facing websocket endpoints and runs one actor per proxied session.
package cdpproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/gorilla/websocket"
	"github.com/uber-go/tally"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/cdp-proxy/engine"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	target "github.com/uber/cordova-cdp-proxy/src/cdpproxy/gateway/cdp-target"
	notifier "github.com/uber/cordova-cdp-proxy/src/cdpproxy/gateway/ide-client"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/logfilewriter"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/netutil"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/serverinfofile"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/repository/session"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=cdpproxymock/cdp_proxy_mock.go -package=cdpproxymock . Controller

const (
	_devtoolsScheme     = "devtools"
	_configKeyProxy     = "proxy"
	_configKeyPlatforms = "platforms"
	_outputKeyProxy     = "proxy-address"
	_sessionPathPrefix  = "/devtools/session/"
)

// Controller runs the CDP proxy for registered debug sessions.
type Controller interface {
	// ProxyURL is the websocket URL a debugger client connects to for the session.
	ProxyURL(id uuid.UUID) string
	// Detach stops the session's actor, if any, and waits for it to release both sockets.
	Detach(ctx context.Context, id uuid.UUID) error
	// IsAttached reports whether a debugger client is connected to the session.
	IsAttached(id uuid.UUID) bool
}

// Config is the proxy config block.
type Config struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	TraceTraffic   bool     `yaml:"traceTraffic"`
	ScriptHistory  int      `yaml:"scriptHistory"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Params are inbound parameters to initialize a new controller.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Logger         *zap.SugaredLogger
	Stats          tally.Scope
	Sessions       session.Repository
	Targets        target.Gateway
	IdeGateway     notifier.Gateway
	Traces         logfilewriter.Factory
	ServerInfoFile serverinfofile.ServerInfoFile
}

type controller struct {
	cfg       Config
	platforms map[entity.Platform]engine.PlatformConfig

	logger         *zap.SugaredLogger
	stats          tally.Scope
	sessions       session.Repository
	targets        target.Gateway
	ideGateway     notifier.Gateway
	traces         logfilewriter.Factory
	serverInfoFile serverinfofile.ServerInfoFile

	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	mu     sync.Mutex
	actors map[uuid.UUID]*sessionActor
	// attaching holds sessions whose target is being dialed.
	attaching map[uuid.UUID]struct{}
}

// New creates a new controller for the CDP proxy.
func New(p Params) (Controller, error) {
	c := &controller{
		logger:         p.Logger,
		stats:          p.Stats,
		sessions:       p.Sessions,
		targets:        p.Targets,
		ideGateway:     p.IdeGateway,
		traces:         p.Traces,
		serverInfoFile: p.ServerInfoFile,
		actors:         make(map[uuid.UUID]*sessionActor),
		attaching:      make(map[uuid.UUID]struct{}),
	}

	if err := c.processConfig(p.Config); err != nil {
		return nil, err
	}

	c.upgrader = websocket.Upgrader{CheckOrigin: c.checkOrigin}
	c.server = &http.Server{Handler: c.routes()}

	p.Lifecycle.Append(fx.Hook{
		OnStart: c.onStart,
		OnStop:  c.onStop,
	})
	return c, nil
}

func (c *controller) processConfig(cfg config.Provider) error {
	if err := cfg.Get(_configKeyProxy).Populate(&c.cfg); err != nil {
		return fmt.Errorf("getting config field %q: %w", _configKeyProxy, err)
	}
	if _, err := netutil.IPToBuffer(c.cfg.Host); err != nil {
		return fmt.Errorf("config field %q: %w", _configKeyProxy+".host", err)
	}
	if c.cfg.Port < 0 || c.cfg.Port > 65535 {
		return fmt.Errorf("config field %q: port %d out of range", _configKeyProxy+".port", c.cfg.Port)
	}

	var raw map[string]engine.PlatformConfig
	if err := cfg.Get(_configKeyPlatforms).Populate(&raw); err != nil {
		return fmt.Errorf("getting config field %q: %w", _configKeyPlatforms, err)
	}
	c.platforms = make(map[entity.Platform]engine.PlatformConfig, len(raw))
	for name, platformCfg := range raw {
		platform := entity.Platform(name)
		if !platform.Valid() {
			return fmt.Errorf("config field %q: unknown platform %q", _configKeyPlatforms, name)
		}
		c.platforms[platform] = platformCfg
	}
	return nil
}

func (c *controller) onStart(ctx context.Context) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port)))
	if err != nil {
		return fmt.Errorf("starting CDP proxy listener: %w", err)
	}
	c.mu.Lock()
	c.listener = ln
	c.mu.Unlock()

	if c.serverInfoFile != nil {
		if err := c.serverInfoFile.UpdateField(_outputKeyProxy, ln.Addr().String()); err != nil {
			return multierr.Append(err, ln.Close())
		}
	}

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorw("CDP proxy listener stopped", zap.Error(err))
		}
	}()
	c.logger.Infow("started CDP proxy", zap.String("address", ln.Addr().String()))
	return nil
}

func (c *controller) onStop(ctx context.Context) error {
	err := c.server.Shutdown(ctx)

	c.mu.Lock()
	ids := make([]uuid.UUID, 0, len(c.actors))
	for id := range c.actors {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		err = multierr.Append(err, c.Detach(ctx, id))
	}
	return err
}

func (c *controller) address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

func (c *controller) ProxyURL(id uuid.UUID) string {
	return "ws://" + c.address() + _sessionPathPrefix + id.String()
}

func (c *controller) IsAttached(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.actors[id]
	return ok
}

// ErrAlreadyAttached reports a second debugger client for one session.
var ErrAlreadyAttached = errors.New("a debugger client is already attached to this session")

// attach proxies an upgraded debugger client connection for a registered session. It returns once the target is
// connected and the session actor owns both sockets. The caller keeps ownership of client on error.
func (c *controller) attach(ctx context.Context, s *entity.Session, client wsConn) (err error) {
	id := s.UUID
	if s.Status == entity.SessionStatusNotActivated {
		if s, err = c.setStatus(ctx, s, entity.SessionStatusPending); err != nil {
			return err
		}
	}

	platformCfg, ok := c.platforms[s.Platform]
	if !ok {
		return fmt.Errorf("no path mapping configured for platform %q", s.Platform)
	}
	transform, err := engine.NewPathTransform(s.ProjectRoot, platformCfg)
	if err != nil {
		return err
	}

	wsURL, err := c.targets.ResolveDebuggerURL(ctx, s)
	if err != nil {
		c.warnIDE(ctx, s, fmt.Sprintf("Unable to find the debugging target for %s: %v", s.Platform, err))
		return err
	}
	targetConn, err := c.targets.Dial(ctx, wsURL)
	if err != nil {
		c.warnIDE(ctx, s, fmt.Sprintf("Unable to connect to the %s WebView: %v", s.Platform, err))
		return err
	}

	trace := c.openTrace(s)
	eng := engine.NewEngine(engine.Params{
		Transform:    transform,
		Logger:       c.logger.With("sessionId", id.String()),
		Stats:        c.stats.Tagged(map[string]string{"platform": string(s.Platform)}),
		Alive:        c.aliveFunc(id),
		HistoryLimit: c.cfg.ScriptHistory,
	})

	if s, err = c.setStatus(ctx, s, entity.SessionStatusActivated); err != nil {
		closeErr := targetConn.Close()
		if trace != nil {
			closeErr = multierr.Append(closeErr, trace.Close())
		}
		return multierr.Append(err, closeErr)
	}

	actor := newSessionActor(id, client, targetConn, eng, c.logger, trace)
	c.mu.Lock()
	delete(c.attaching, id)
	c.actors[id] = actor
	c.mu.Unlock()

	// The actor outlives the upgrade request.
	actor.start(context.Background(), func(exitErr error) {
		c.onActorExit(s, actor, exitErr)
	})
	c.logger.Infow("debugger attached", "sessionId", id.String(), "target", wsURL)
	return nil
}

func (c *controller) Detach(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	actor, ok := c.actors[id]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return actor.stop(ctx)
}

func (c *controller) reserve(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.actors[id]; ok {
		return ErrAlreadyAttached
	}
	if _, ok := c.attaching[id]; ok {
		return ErrAlreadyAttached
	}
	c.attaching[id] = struct{}{}
	return nil
}

func (c *controller) release(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attaching, id)
}

func (c *controller) onActorExit(s *entity.Session, actor *sessionActor, err error) {
	c.mu.Lock()
	if c.actors[s.UUID] == actor {
		delete(c.actors, s.UUID)
	}
	c.mu.Unlock()

	var disconnected *DisconnectedError
	switch {
	case errors.As(err, &disconnected) && disconnected.Side == sideTarget.String():
		c.logger.Warnw("debugging target disconnected", "sessionId", s.UUID.String(), zap.Error(err))
		c.warnIDE(context.Background(), s, fmt.Sprintf("Lost connection to the %s WebView. Reload the app and reattach the debugger.", s.Platform))
	case errors.As(err, &disconnected):
		c.logger.Infow("debugger client disconnected", "sessionId", s.UUID.String(), zap.Error(err))
	default:
		c.logger.Infow("debug session detached", "sessionId", s.UUID.String())
	}
}

func (c *controller) setStatus(ctx context.Context, s *entity.Session, status entity.SessionStatus) (*entity.Session, error) {
	updated, err := c.sessions.SetStatus(ctx, s.UUID, status)
	if err != nil {
		return nil, err
	}
	if updated.Status != s.Status {
		notifyCtx := context.WithValue(ctx, entity.ClientContextKey, s.ClientUUID)
		if err := c.ideGateway.Notify(notifyCtx, notifier.MethodSessionStatusChanged, entity.SetSessionStatusParams{
			SessionID: s.UUID,
			Status:    updated.Status,
		}); err != nil {
			c.logger.Debugw("notifying IDE of status change", "sessionId", s.UUID.String(), zap.Error(err))
		}
	}
	return updated, nil
}

func (c *controller) warnIDE(ctx context.Context, s *entity.Session, message string) {
	ctx = context.WithValue(ctx, entity.ClientContextKey, s.ClientUUID)
	if err := c.ideGateway.ShowMessage(ctx, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeWarning,
		Message: message,
	}); err != nil {
		c.logger.Warnw("unable to warn IDE", "sessionId", s.UUID.String(), zap.Error(err))
	}
}

func (c *controller) openTrace(s *entity.Session) io.WriteCloser {
	if !c.cfg.TraceTraffic || c.traces == nil {
		return nil
	}
	w, err := c.traces.SetupOutputWriter("cdp-" + s.UUID.String())
	if err != nil {
		c.logger.Warnw("unable to open CDP traffic trace", "sessionId", s.UUID.String(), zap.Error(err))
		return nil
	}
	return w
}

// aliveFunc reports whether the session is still registered.
func (c *controller) aliveFunc(id uuid.UUID) func() bool {
	return func() bool {
		_, err := c.sessions.Get(context.Background(), id)
		return err == nil
	}
}

// checkOrigin admits clients that send no Origin, such as IDE debug adapters. Browser origins must be listed
// in allowedOrigins; with an empty list only loopback pages and the DevTools frontend get in.
func (c *controller) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(c.cfg.AllowedOrigins) == 0 {
		return isLocalOrigin(origin)
	}
	for _, allowed := range c.cfg.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	return false
}

func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme == _devtoolsScheme {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || netutil.IsLoopback(host)
}
