package debugsession

import (
	"context"

	"go.lsp.dev/jsonrpc2"
)

// Shutdown closes the debugger connections of this client, but does not exit.
// RequestFullShutdown must be sent first if full shutdown is needed, otherwise it will be used only to clean up from that specific client.
func (r *jsonRPCRouter) Shutdown(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	err := r.debugSession.Shutdown(ctx)
	return replyErr(ctx, reply, err)
}

// Exit asks the server to exit its process.
// Because the server is shared between multiple IDE windows, the process will only exit when RequestFullShutdown is sent first.
func (r *jsonRPCRouter) Exit(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	// Reply first to ensure that a reply is sent before the controller initiates the shutdown.
	reply(ctx, nil, nil)
	return r.debugSession.Exit(ctx)
}

// RequestFullShutdown will indicate that the next Shutdown and Exit requests should perform a full shutdown and exit of the server.
func (r *jsonRPCRouter) RequestFullShutdown(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	err := r.debugSession.RequestFullShutdown(ctx)
	return replyErr(ctx, reply, err)
}
