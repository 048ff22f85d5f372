package handler

import (
	"github.com/uber-go/tally"
	controller "github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller"
	cdpproxy "github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/cdp-proxy"
	debugsession "github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/debug-session"
	handler "github.com/uber/cordova-cdp-proxy/src/cdpproxy/handler/debug-session"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/repository/session"
	"go.uber.org/fx"
)

// Module provides the control channel and the CDP proxy into an Fx application.
var Module = fx.Options(
	controller.Module,
	fx.Provide(newSessionRepository),
	fx.Provide(handler.New),
	fx.Invoke(func(m handler.Handler) {}),
	fx.Invoke(func(m debugsession.Controller) {}),
	fx.Invoke(func(m cdpproxy.Controller) {}),
)

func newSessionRepository(stats tally.Scope) session.Repository {
	return session.New(stats)
}
