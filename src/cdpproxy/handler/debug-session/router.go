package debugsession

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	controller "github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/debug-session"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"go.lsp.dev/jsonrpc2"
)

type jsonRPCRouter struct {
	debugSession controller.Controller
	uuid         uuid.UUID
	stats        tally.Scope
}

// HandleReq handles routing for a single request.
func (r *jsonRPCRouter) HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	ctx = context.WithValue(ctx, entity.ClientContextKey, r.uuid)
	if r.stats != nil {
		r.stats.Tagged(map[string]string{"method": req.Method()}).Counter("requests").Inc(1)
	}

	switch req.Method() {
	// Lifecycle related methods.
	case entity.MethodShutdown:
		return r.Shutdown(ctx, reply, req)

	case entity.MethodExit:
		return r.Exit(ctx, reply, req)

	case entity.MethodRequestFullShutdown:
		return r.RequestFullShutdown(ctx, reply, req)

	// Debug session methods.
	case entity.MethodStartSession:
		return r.StartSession(ctx, reply, req)

	case entity.MethodGetSession:
		return r.GetSession(ctx, reply, req)

	case entity.MethodSetSessionStatus:
		return r.SetSessionStatus(ctx, reply, req)

	case entity.MethodEndSession:
		return r.EndSession(ctx, reply, req)

	case entity.MethodListTargets:
		return r.ListTargets(ctx, reply, req)

	// Cordova CLI.
	case entity.MethodRun:
		return r.Run(ctx, reply, req)

	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func (r *jsonRPCRouter) UUID() uuid.UUID {
	return r.uuid
}

// replyErr returns a domain error to the IDE as a JSON-RPC error.
func replyErr(ctx context.Context, reply jsonrpc2.Replier, err error) error {
	return reply(ctx, nil, mapper.ToJSONRPCError(err))
}
