package factory

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"go.lsp.dev/jsonrpc2"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// JSONRPCRequest is a user-defined factory for a JSON-RPC request containing the specified method and parameters.
func JSONRPCRequest(method string, params interface{}) jsonrpc2.Request {
	req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), method, params)
	return req
}

// Session returns a registered-looking Session for the given platform.
func Session(platform entity.Platform) *entity.Session {
	return &entity.Session{
		UUID:                 UUID(),
		IDESessionID:         fmt.Sprintf("ide-%s", UUID()),
		ClientUUID:           UUID(),
		Status:               entity.SessionStatusNotActivated,
		Platform:             platform,
		ProjectRoot:          "/home/dev/app",
		WebSocketDebuggerURL: "ws://127.0.0.1:9222/devtools/page/1",
		CreatedAt:            time.Unix(1700000000, 0),
	}
}
