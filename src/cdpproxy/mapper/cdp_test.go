package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
)

func TestBytesToEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantErr    bool
		wantReq    bool
		wantResp   bool
		wantEvent  bool
		wantMethod string
		wantID     int64
	}{
		{
			name:       "request",
			raw:        `{"id":3,"method":"Debugger.setBreakpointByUrl","params":{"lineNumber":4}}`,
			wantReq:    true,
			wantMethod: "Debugger.setBreakpointByUrl",
			wantID:     3,
		},
		{
			name:     "response",
			raw:      `{"id":9,"result":{}}`,
			wantResp: true,
			wantID:   9,
		},
		{
			name:       "event",
			raw:        `{"method":"Debugger.scriptParsed","params":{"scriptId":"1"}}`,
			wantEvent:  true,
			wantMethod: "Debugger.scriptParsed",
		},
		{name: "invalid json", raw: `{"id":`, wantErr: true},
		{name: "array", raw: `[1,2]`, wantErr: true},
		{name: "string id", raw: `{"id":"a","method":"x"}`, wantErr: true},
		{name: "empty object", raw: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env, err := BytesToEnvelope([]byte(tt.raw))
			if tt.wantErr {
				var mm *errors.MalformedMessageError
				assert.ErrorAs(t, err, &mm)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReq, env.IsRequest())
			assert.Equal(t, tt.wantResp, env.IsResponse())
			assert.Equal(t, tt.wantEvent, env.IsEvent())
			assert.Equal(t, tt.wantMethod, env.Method)
			assert.Equal(t, tt.wantID, env.ID)
		})
	}
}

func TestBuilders(t *testing.T) {
	t.Run("request", func(t *testing.T) {
		b, err := NewRequestBytes(7, "Debugger.removeBreakpoint", map[string]any{"breakpointId": "1:2:0:x"})
		require.NoError(t, err)
		assert.Equal(t, int64(7), gjson.GetBytes(b, "id").Int())
		assert.Equal(t, "1:2:0:x", gjson.GetBytes(b, "params.breakpointId").String())
	})

	t.Run("request without params", func(t *testing.T) {
		b, err := NewRequestBytes(1, "Debugger.enable", nil)
		require.NoError(t, err)
		assert.True(t, gjson.GetBytes(b, "params").IsObject())
	})

	t.Run("error response", func(t *testing.T) {
		b, err := NewErrorResponseBytes(4, -32602, "bad")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":4,"error":{"code":-32602,"message":"bad"}}`, string(b))
	})

	t.Run("response", func(t *testing.T) {
		b, err := NewResponseBytes(2, map[string]any{"breakpointId": "cdpproxy:1", "locations": []any{}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":2,"result":{"breakpointId":"cdpproxy:1","locations":[]}}`, string(b))
	})

	t.Run("event", func(t *testing.T) {
		b, err := NewEventBytes("Debugger.breakpointResolved", map[string]any{"breakpointId": "cdpproxy:1"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"method":"Debugger.breakpointResolved","params":{"breakpointId":"cdpproxy:1"}}`, string(b))
	})

	t.Run("with id", func(t *testing.T) {
		b, err := WithID([]byte(`{"id":1,"method":"Runtime.enable","params":{}}`), 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), gjson.GetBytes(b, "id").Int())
	})
}
