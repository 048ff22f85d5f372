package app

import (
	"context"
	"time"

	"github.com/uber-go/tally"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/gateway"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/handler"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/clock"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/cordova"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/core"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/executor"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/fs"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/jsonrpcfx"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/logfilewriter"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/serverinfofile"
	"go.uber.org/fx"
)

// Module defines the cordova-cdp-proxy application module.
var Module = fx.Options(
	gateway.Module, // outbounds
	handler.Module, // inbounds
	jsonrpcfx.Module,
	fs.Module,
	clock.Module,
	executor.Module,
	cordova.Module,
	serverinfofile.Module,
	logfilewriter.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "cordova-cdp-proxy",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        EnvLocal,
			RuntimeEnvironment: EnvLocal,
		}
	}),
)
