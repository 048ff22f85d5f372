package mapper

import (
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"go.lsp.dev/jsonrpc2"
)

// RequestToStartSessionParams maps the parameters from a jsonrpc2.Request into entity.StartSessionParams.
func RequestToStartSessionParams(req jsonrpc2.Request) (*entity.StartSessionParams, error) {
	params := entity.StartSessionParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	if params.WebSocketDebuggerURL == "" && params.DevToolsEndpoint == "" {
		return nil, errors.NoTargetOnWireError
	}
	if !params.Platform.Valid() {
		return nil, errors.UnknownPlatformOnWireError
	}
	if params.ProjectRoot == "" {
		return nil, errors.NoProjectRootOnWireError
	}
	return &params, nil
}

// RequestToSessionIDParams maps the parameters from a jsonrpc2.Request into entity.SessionIDParams.
func RequestToSessionIDParams(req jsonrpc2.Request) (*entity.SessionIDParams, error) {
	params := entity.SessionIDParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	if params.SessionID == uuid.Nil {
		return nil, errors.NoSessionIDOnWireError
	}
	return &params, nil
}

// RequestToSetSessionStatusParams maps the parameters from a jsonrpc2.Request into entity.SetSessionStatusParams.
func RequestToSetSessionStatusParams(req jsonrpc2.Request) (*entity.SetSessionStatusParams, error) {
	params := entity.SetSessionStatusParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	if params.SessionID == uuid.Nil {
		return nil, errors.NoSessionIDOnWireError
	}
	return &params, nil
}

// RequestToListTargetsParams maps the parameters from a jsonrpc2.Request into entity.ListTargetsParams.
func RequestToListTargetsParams(req jsonrpc2.Request) (*entity.ListTargetsParams, error) {
	params := entity.ListTargetsParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	if params.DevToolsEndpoint == "" {
		return nil, errors.NoTargetOnWireError
	}
	return &params, nil
}

// RequestToRunParams maps the parameters from a jsonrpc2.Request into entity.RunParams.
func RequestToRunParams(req jsonrpc2.Request) (*entity.RunParams, error) {
	params := entity.RunParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

func wrapErrParse(err error) error {
	return fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err)
}
