package gateway

import (
	target "github.com/uber/cordova-cdp-proxy/src/cdpproxy/gateway/cdp-target"
	notifier "github.com/uber/cordova-cdp-proxy/src/cdpproxy/gateway/ide-client"
	"go.uber.org/fx"
)

// Module provides the outbound gateways.
var Module = fx.Options(
	fx.Provide(notifier.New),
	fx.Provide(target.New),
)
