// Package target discovers DevTools targets exposed by a WebView and dials their debugger websockets.
package target

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/clock"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=targetmock/target_mock.go -package=targetmock . Gateway

const (
	_configKey          = "proxy"
	_listPath           = "/json/list"
	_pageType           = "page"
	_defaultDialTimeout = 10 * time.Second
	_defaultAttempts    = 3
	_retryBackoff       = 500 * time.Millisecond
)

// Gateway talks to the DevTools endpoints of a debugging target.
type Gateway interface {
	// ListTargets returns the page targets at the endpoint whose URL contains urlFilter.
	ListTargets(ctx context.Context, endpoint string, urlFilter string) ([]entity.DebuggingTarget, error)
	// ResolveDebuggerURL returns the websocket URL to dial for the session.
	ResolveDebuggerURL(ctx context.Context, session *entity.Session) (string, error)
	// Dial opens the debugger websocket, retrying while the WebView is still starting.
	Dial(ctx context.Context, wsURL string) (*websocket.Conn, error)
}

// Config is the part of the proxy config block the gateway reads.
type Config struct {
	DialTimeoutSeconds int `yaml:"dialTimeoutSeconds"`
	DialAttempts       int `yaml:"dialAttempts"`
}

// Params are the dependencies of the gateway.
type Params struct {
	fx.In

	Config config.Provider
	Clock  clock.Clock
	Logger *zap.SugaredLogger
}

type gateway struct {
	client   *http.Client
	dialer   *websocket.Dialer
	attempts int
	clock    clock.Clock
	logger   *zap.SugaredLogger
}

// New creates a Gateway from the proxy config block.
func New(p Params) (Gateway, error) {
	var cfg Config
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}

	timeout := _defaultDialTimeout
	if cfg.DialTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.DialTimeoutSeconds) * time.Second
	}
	attempts := _defaultAttempts
	if cfg.DialAttempts > 0 {
		attempts = cfg.DialAttempts
	}

	return &gateway{
		client:   &http.Client{Timeout: timeout},
		dialer:   &websocket.Dialer{HandshakeTimeout: timeout},
		attempts: attempts,
		clock:    p.Clock,
		logger:   p.Logger,
	}, nil
}

func (g *gateway) ListTargets(ctx context.Context, endpoint string, urlFilter string) ([]entity.DebuggingTarget, error) {
	listURL := endpointURL(endpoint) + _listPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building target list request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getting debug targets from %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getting debug targets from %s: unexpected status %s", endpoint, resp.Status)
	}

	var all []entity.DebuggingTarget
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decoding targets: %w", err)
	}

	targets := make([]entity.DebuggingTarget, 0, len(all))
	for _, t := range all {
		// iOS webkit proxies omit the type.
		if t.Type != "" && t.Type != _pageType {
			continue
		}
		if t.WebSocketDebuggerURL == "" {
			continue
		}
		if urlFilter != "" && !strings.Contains(t.URL, urlFilter) {
			continue
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func (g *gateway) ResolveDebuggerURL(ctx context.Context, session *entity.Session) (string, error) {
	if session.WebSocketDebuggerURL != "" {
		return session.WebSocketDebuggerURL, nil
	}
	if session.DevToolsEndpoint == "" {
		return "", fmt.Errorf("session %q has no debugging target", session.UUID)
	}

	targets, err := g.ListTargets(ctx, session.DevToolsEndpoint, session.TargetURLFilter)
	if err != nil {
		return "", err
	}
	if len(targets) == 0 {
		return "", fmt.Errorf("no page target at %s matches %q", session.DevToolsEndpoint, session.TargetURLFilter)
	}
	g.logger.Infow("resolved debugging target",
		"sessionId", session.UUID.String(),
		"title", targets[0].Title,
		"url", targets[0].URL,
	)
	return targets[0].WebSocketDebuggerURL, nil
}

func (g *gateway) Dial(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		conn, _, err := g.dialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		g.logger.Debugw("dialing debugging target failed", "url", wsURL, "attempt", attempt, "error", err)
		if attempt < g.attempts {
			g.clock.Sleep(time.Duration(attempt) * _retryBackoff)
		}
	}
	return nil, fmt.Errorf("connecting to %s: %w", wsURL, lastErr)
}

// endpointURL accepts host:port or a full http(s) URL.
func endpointURL(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "http://" + endpoint
}
