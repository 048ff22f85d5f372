package debugsession

import (
	"context"

	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"go.lsp.dev/jsonrpc2"
)

// Run runs the Cordova CLI and replies with its captured output.
func (r *jsonRPCRouter) Run(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToRunParams(req)
	if err != nil {
		return replyErr(ctx, reply, err)
	}

	result, err := r.debugSession.RunCordova(ctx, params)
	if err != nil {
		return replyErr(ctx, reply, err)
	}
	return reply(ctx, result, nil)
}
