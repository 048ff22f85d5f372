package mapper

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
)

// CDPEnvelope is the routing view of a CDP message. Params, Result and Error stay as raw JSON.
type CDPEnvelope struct {
	ID     int64
	HasID  bool
	Method string
	// SessionID is the flattened-protocol session id, passed through untouched.
	SessionID string
	Params    gjson.Result
	Result    gjson.Result
	Error     gjson.Result
	Raw       []byte
}

// IsRequest reports whether the message carries both an id and a method.
func (e *CDPEnvelope) IsRequest() bool {
	return e.HasID && e.Method != ""
}

// IsResponse reports whether the message carries an id and no method.
func (e *CDPEnvelope) IsResponse() bool {
	return e.HasID && e.Method == ""
}

// IsEvent reports whether the message is a notification.
func (e *CDPEnvelope) IsEvent() bool {
	return !e.HasID && e.Method != ""
}

// BytesToEnvelope parses the routing fields of a CDP message.
func BytesToEnvelope(raw []byte) (*CDPEnvelope, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &errors.MalformedMessageError{Reason: "invalid JSON"}
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, &errors.MalformedMessageError{Reason: "message is not an object"}
	}

	env := &CDPEnvelope{Raw: raw}
	if id := root.Get("id"); id.Exists() {
		if id.Type != gjson.Number {
			return nil, &errors.MalformedMessageError{Reason: "id is not a number"}
		}
		env.ID = id.Int()
		env.HasID = true
	}
	if method := root.Get("method"); method.Exists() {
		if method.Type != gjson.String {
			return nil, &errors.MalformedMessageError{Reason: "method is not a string"}
		}
		env.Method = method.String()
	}
	if !env.HasID && env.Method == "" {
		return nil, &errors.MalformedMessageError{Reason: "message has neither id nor method"}
	}
	env.SessionID = root.Get("sessionId").String()
	env.Params = root.Get("params")
	env.Result = root.Get("result")
	env.Error = root.Get("error")
	return env, nil
}

// WithID returns a copy of the message with its id replaced.
func WithID(raw []byte, id int64) ([]byte, error) {
	return sjson.SetBytes(raw, "id", id)
}

// NewRequestBytes builds a CDP request. params may be nil.
func NewRequestBytes(id int64, method string, params map[string]any) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{}`), "id", id)
	if err != nil {
		return nil, err
	}
	if msg, err = sjson.SetBytes(msg, "method", method); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return sjson.SetBytes(msg, "params", params)
}

// NewResponseBytes builds a CDP success response carrying result.
func NewResponseBytes(id int64, result any) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{}`), "id", id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = map[string]any{}
	}
	return sjson.SetBytes(msg, "result", result)
}

// NewErrorResponseBytes builds a CDP error response.
func NewErrorResponseBytes(id int64, code int, message string) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{}`), "id", id)
	if err != nil {
		return nil, err
	}
	if msg, err = sjson.SetBytes(msg, "error.code", code); err != nil {
		return nil, err
	}
	return sjson.SetBytes(msg, "error.message", message)
}

// NewEventBytes builds a CDP event.
func NewEventBytes(method string, params any) ([]byte, error) {
	msg, err := sjson.SetBytes([]byte(`{}`), "method", method)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(msg, "params", params)
}
