package mapper

import (
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"go.lsp.dev/jsonrpc2"
)

// ToJSONRPCError maps domain errors to JSON-RPC errors returned over the control channel.
func ToJSONRPCError(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsBadRequest(err) {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	if _, ok := errors.NotFoundUUID(err); ok {
		return jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error())
	}
	if errors.IsInvalidTransition(err) {
		return jsonrpc2.NewError(jsonrpc2.InvalidRequest, err.Error())
	}
	return err
}
