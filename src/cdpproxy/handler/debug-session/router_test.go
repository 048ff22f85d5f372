package debugsession

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/controller/debug-session/debugsessionmock"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/factory"
	cdperrors "github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/mock/gomock"
)

func TestHandleReq(t *testing.T) {
	sessionID := factory.UUID()
	errController := errors.New("controller error")

	tests := []struct {
		name      string
		method    string
		params    interface{}
		setReturn func(c *debugsessionmock.MockController, err error)
		result    interface{}
		// validates is false for methods that accept any params.
		validates bool
	}{
		{
			name:   "shutdown",
			method: entity.MethodShutdown,
			setReturn: func(c *debugsessionmock.MockController, err error) {
				c.EXPECT().Shutdown(gomock.Any()).Return(err)
			},
		},
		{
			name:   "request full shutdown",
			method: entity.MethodRequestFullShutdown,
			setReturn: func(c *debugsessionmock.MockController, err error) {
				c.EXPECT().RequestFullShutdown(gomock.Any()).Return(err)
			},
		},
		{
			name:   "start session",
			method: entity.MethodStartSession,
			params: map[string]any{
				"ideSessionId":     "ide-1",
				"platform":         "android",
				"projectRoot":      "/home/dev/app",
				"devToolsEndpoint": "127.0.0.1:9222",
			},
			setReturn: func(c *debugsessionmock.MockController, err error) {
				var result *entity.StartSessionResult
				if err == nil {
					result = &entity.StartSessionResult{SessionID: sessionID, ProxyURL: "ws://127.0.0.1:9229/devtools/session/x"}
				}
				c.EXPECT().StartSession(gomock.Any(), gomock.Any()).DoAndReturn(
					func(ctx context.Context, params *entity.StartSessionParams) (*entity.StartSessionResult, error) {
						assert.Equal(t, entity.PlatformAndroid, params.Platform)
						return result, err
					})
			},
			result:    &entity.StartSessionResult{SessionID: sessionID, ProxyURL: "ws://127.0.0.1:9229/devtools/session/x"},
			validates: true,
		},
		{
			name:   "get session",
			method: entity.MethodGetSession,
			params: map[string]any{"sessionId": sessionID.String()},
			setReturn: func(c *debugsessionmock.MockController, err error) {
				c.EXPECT().GetSession(gomock.Any(), sessionID).Return(&entity.Session{UUID: sessionID}, err)
			},
			result:    &entity.Session{UUID: sessionID},
			validates: true,
		},
		{
			name:   "set session status",
			method: entity.MethodSetSessionStatus,
			params: map[string]any{"sessionId": sessionID.String(), "status": "Activated"},
			setReturn: func(c *debugsessionmock.MockController, err error) {
				c.EXPECT().SetSessionStatus(gomock.Any(), &entity.SetSessionStatusParams{
					SessionID: sessionID,
					Status:    entity.SessionStatusActivated,
				}).Return(&entity.Session{UUID: sessionID, Status: entity.SessionStatusActivated}, err)
			},
			result:    &entity.Session{UUID: sessionID, Status: entity.SessionStatusActivated},
			validates: true,
		},
		{
			name:   "end session",
			method: entity.MethodEndSession,
			params: map[string]any{"sessionId": sessionID.String()},
			setReturn: func(c *debugsessionmock.MockController, err error) {
				c.EXPECT().EndSession(gomock.Any(), sessionID).Return(err)
			},
			validates: true,
		},
		{
			name:   "list targets",
			method: entity.MethodListTargets,
			params: map[string]any{"devToolsEndpoint": "127.0.0.1:9222"},
			setReturn: func(c *debugsessionmock.MockController, err error) {
				c.EXPECT().ListTargets(gomock.Any(), &entity.ListTargetsParams{DevToolsEndpoint: "127.0.0.1:9222"}).
					Return([]entity.DebuggingTarget{{ID: "1"}}, err)
			},
			result:    []entity.DebuggingTarget{{ID: "1"}},
			validates: true,
		},
		{
			name:   "run",
			method: entity.MethodRun,
			params: map[string]any{"args": []string{"build"}, "workingDirectory": "/home/dev/app"},
			setReturn: func(c *debugsessionmock.MockController, err error) {
				c.EXPECT().RunCordova(gomock.Any(), gomock.Any()).Return(&entity.RunResult{Stdout: "ok"}, err)
			},
			result:    &entity.RunResult{Stdout: "ok"},
			validates: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := debugsessionmock.NewMockController(ctrl)
			r := jsonRPCRouter{debugSession: c, uuid: factory.UUID()}

			// Valid params.
			tt.setReturn(c, nil)
			replier := newRecordingReplier()
			req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), tt.method, tt.params)
			require.NoError(t, r.HandleReq(context.Background(), replier.reply, req))
			assert.Equal(t, tt.result, replier.result)

			// Error from controller.
			tt.setReturn(c, errController)
			err := r.HandleReq(context.Background(), newRecordingReplier().reply, req)
			assert.ErrorIs(t, err, errController)

			// Invalid params.
			if tt.validates {
				req, _ = jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), tt.method, 5)
				assert.Error(t, r.HandleReq(context.Background(), newRecordingReplier().reply, req))
			}
		})
	}
}

func TestHandleReqContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := debugsessionmock.NewMockController(ctrl)
	id := factory.UUID()
	r := jsonRPCRouter{debugSession: c, uuid: id, stats: tally.NewTestScope("testing", nil)}

	c.EXPECT().Shutdown(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		clientID, err := mapper.ContextToClientUUID(ctx)
		assert.NoError(t, err)
		assert.Equal(t, id, clientID)
		return nil
	})
	req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), entity.MethodShutdown, nil)
	assert.NoError(t, r.HandleReq(context.Background(), newRecordingReplier().reply, req))
	assert.Equal(t, id, r.UUID())
}

func TestHandleReqErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := debugsessionmock.NewMockController(ctrl)
	r := jsonRPCRouter{debugSession: c}
	id := factory.UUID()

	t.Run("domain errors become JSON-RPC errors", func(t *testing.T) {
		c.EXPECT().GetSession(gomock.Any(), id).Return(nil, &cdperrors.UUIDNotFoundError{UUID: id})
		req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), entity.MethodGetSession, map[string]any{"sessionId": id.String()})

		err := r.HandleReq(context.Background(), newRecordingReplier().reply, req)
		var rpcErr *jsonrpc2.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, jsonrpc2.InvalidParams, rpcErr.Code)
	})

	t.Run("missing session id", func(t *testing.T) {
		req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), entity.MethodEndSession, map[string]any{})
		err := r.HandleReq(context.Background(), newRecordingReplier().reply, req)
		var rpcErr *jsonrpc2.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, jsonrpc2.InvalidParams, rpcErr.Code)
	})

	t.Run("unknown method", func(t *testing.T) {
		req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), "cordova/unknown", nil)
		err := r.HandleReq(context.Background(), newRecordingReplier().reply, req)
		assert.ErrorIs(t, err, jsonrpc2.ErrMethodNotFound)
	})
}

func TestExit(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := debugsessionmock.NewMockController(ctrl)
	r := jsonRPCRouter{debugSession: c}

	replier := newRecordingReplier()
	c.EXPECT().Exit(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		assert.True(t, replier.called, "reply is sent before exiting")
		return nil
	})
	req, _ := jsonrpc2.NewNotification(entity.MethodExit, nil)
	assert.NoError(t, r.HandleReq(context.Background(), replier.reply, req))
}

type recordingReplier struct {
	called bool
	result interface{}
}

func newRecordingReplier() *recordingReplier {
	return &recordingReplier{}
}

func (r *recordingReplier) reply(ctx context.Context, result interface{}, err error) error {
	r.called = true
	r.result = result
	return err
}
