package controller

import (
	cdpproxy "github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/cdp-proxy"
	debugsession "github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/debug-session"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(debugsession.New),
	fx.Provide(cdpproxy.New),
)
