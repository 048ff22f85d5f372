package debugsession

import (
	"context"

	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"go.lsp.dev/jsonrpc2"
)

// StartSession registers a new debug session and replies with the websocket URL for its debugger client.
func (r *jsonRPCRouter) StartSession(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToStartSessionParams(req)
	if err != nil {
		return replyErr(ctx, reply, err)
	}

	result, err := r.debugSession.StartSession(ctx, params)
	if err != nil {
		return replyErr(ctx, reply, err)
	}
	return reply(ctx, result, nil)
}

func (r *jsonRPCRouter) GetSession(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToSessionIDParams(req)
	if err != nil {
		return replyErr(ctx, reply, err)
	}

	result, err := r.debugSession.GetSession(ctx, params.SessionID)
	if err != nil {
		return replyErr(ctx, reply, err)
	}
	return reply(ctx, result, nil)
}

func (r *jsonRPCRouter) SetSessionStatus(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToSetSessionStatusParams(req)
	if err != nil {
		return replyErr(ctx, reply, err)
	}

	result, err := r.debugSession.SetSessionStatus(ctx, params)
	if err != nil {
		return replyErr(ctx, reply, err)
	}
	return reply(ctx, result, nil)
}

func (r *jsonRPCRouter) EndSession(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToSessionIDParams(req)
	if err != nil {
		return replyErr(ctx, reply, err)
	}

	err = r.debugSession.EndSession(ctx, params.SessionID)
	return replyErr(ctx, reply, err)
}

// ListTargets replies with the debuggable pages at a DevTools endpoint.
func (r *jsonRPCRouter) ListTargets(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToListTargetsParams(req)
	if err != nil {
		return replyErr(ctx, reply, err)
	}

	result, err := r.debugSession.ListTargets(ctx, params)
	if err != nil {
		return replyErr(ctx, reply, err)
	}
	return reply(ctx, result, nil)
}
