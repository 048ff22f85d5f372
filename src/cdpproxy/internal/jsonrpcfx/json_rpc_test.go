package jsonrpcfx

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/cordova-cdp-proxy/idl/mock/jsonrpc2mock"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/serverinfofile/serverinfofilemock"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		params  func(t *testing.T) Params
		wantErr bool
	}{
		{
			name:    "missing required params",
			params:  func(t *testing.T) Params { return Params{} },
			wantErr: true,
		},
		{
			name: "all required params are present",
			params: func(t *testing.T) Params {
				return Params{
					Lifecycle: fxtest.NewLifecycle(t),
					Config:    newConfigProvider(t, "valid"),
				}
			},
		},
		{
			name: "bad config",
			params: func(t *testing.T) Params {
				return Params{
					Lifecycle: fxtest.NewLifecycle(t),
					Config:    newConfigProvider(t, "missingKey"),
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params(t))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterConnectionManager(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := module{}

	mockConnectionManager := NewMockConnectionManager(ctrl)

	// first call should return no error
	err := m.RegisterConnectionManager(mockConnectionManager)
	assert.NoError(t, err)

	// duplicate call should return error
	err = m.RegisterConnectionManager(mockConnectionManager)
	assert.Error(t, err)
}

func TestServeStream(t *testing.T) {
	ctx := context.Background()
	mockUUID, _ := uuid.NewV4()

	tests := []struct {
		name                        string
		connectionManagerRegistered bool
		newConnectionErr            error
		wantErr                     bool
	}{
		{
			name:    "no connection manager registered",
			wantErr: true,
		},
		{
			name:                        "failed NewConnection",
			connectionManagerRegistered: true,
			newConnectionErr:            errors.New("sample error"),
			wantErr:                     true,
		},
		{
			name:                        "successful NewConnection",
			connectionManagerRegistered: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := module{logger: zap.NewNop().Sugar()}
			conn := jsonrpc2mock.NewMockConn(ctrl)
			mockConnectionManager := NewMockConnectionManager(ctrl)

			if tt.connectionManagerRegistered {
				require.NoError(t, m.RegisterConnectionManager(mockConnectionManager))
			}

			if tt.connectionManagerRegistered && tt.newConnectionErr != nil {
				mockConnectionManager.EXPECT().NewConnection(gomock.Any(), gomock.Any()).Return(nil, tt.newConnectionErr)
			} else if tt.connectionManagerRegistered {
				mockRouter := NewMockRouter(ctrl)
				mockRouter.EXPECT().UUID().Return(mockUUID).AnyTimes()
				mockConnectionManager.EXPECT().NewConnection(gomock.Any(), gomock.Any()).Return(mockRouter, nil)
				mockConnectionManager.EXPECT().RemoveConnection(ctx, mockUUID)

				done := make(chan struct{})
				close(done)
				conn.EXPECT().Go(gomock.Any(), gomock.Any())
				conn.EXPECT().Done().Return((<-chan struct{})(done))
				conn.EXPECT().Err().Return(nil)
			}

			err := m.ServeStream(ctx, conn)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestListen(t *testing.T) {
	m := module{
		logger: zap.NewNop().Sugar(),
	}
	_, err := m.listen()
	assert.Error(t, err)

	m = module{address: "127.0.0.1:0"}
	ln, err := m.listen()
	require.NoError(t, err)
	assert.Equal(t, ln, m.ln)
	assert.NoError(t, m.OnStop(context.Background()))
}

func TestProcessConfig(t *testing.T) {
	tests := []struct {
		name        string
		configKey   string
		wantErr     bool
		errorString string
	}{
		{
			name:      "valid configuration",
			configKey: "valid",
		},
		{
			name:        "missing address key",
			configKey:   "missingKey",
			wantErr:     true,
			errorString: "missing field \"jsonrpc.address\" in config",
		},
		{
			name:        "missing address value",
			configKey:   "missingValue",
			wantErr:     true,
			errorString: "missing field \"jsonrpc.address\" in config",
		},
		{
			name:      "incorrectly formatted entry",
			configKey: "formatProblem",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := module{
				logger: zap.NewNop().Sugar(),
			}
			err := m.processConfig(newConfigProvider(t, tt.configKey))

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.errorString != "" {
				assert.Equal(t, tt.errorString, err.Error())
			}
		})
	}
}

func TestOnStart(t *testing.T) {
	t.Run("no address", func(t *testing.T) {
		m := module{logger: zap.NewNop().Sugar()}
		assert.Error(t, m.OnStart(context.Background()))
	})

	t.Run("info file failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		infoFileMock := serverinfofilemock.NewMockServerInfoFile(ctrl)
		infoFileMock.EXPECT().UpdateField(_outputKey, gomock.Any()).Return(errors.New("read-only"))

		m := module{
			address:        "127.0.0.1:0",
			serverInfoFile: infoFileMock,
			logger:         zap.NewNop().Sugar(),
		}
		assert.ErrorContains(t, m.OnStart(context.Background()), "read-only")
		assert.Nil(t, m.ln)
	})

	t.Run("start and stop", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		infoFileMock := serverinfofilemock.NewMockServerInfoFile(ctrl)
		infoFileMock.EXPECT().UpdateField(_outputKey, gomock.Any()).Return(nil)

		m := module{
			address:        "127.0.0.1:0",
			serverInfoFile: infoFileMock,
			logger:         zap.NewNop().Sugar(),
		}
		require.NoError(t, m.OnStart(context.Background()))
		assert.NoError(t, m.OnStop(context.Background()))
	})
}

func TestOnStopClosesConnections(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	id, _ := uuid.NewV4()

	infoFileMock := serverinfofilemock.NewMockServerInfoFile(ctrl)
	infoFileMock.EXPECT().UpdateField(_outputKey, gomock.Any()).Return(nil)

	router := NewMockRouter(ctrl)
	router.EXPECT().UUID().Return(id).AnyTimes()
	connected := make(chan struct{})
	removed := make(chan struct{})
	mgr := NewMockConnectionManager(ctrl)
	mgr.EXPECT().NewConnection(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, *jsonrpc2.Conn) (Router, error) {
		close(connected)
		return router, nil
	})
	mgr.EXPECT().RemoveConnection(gomock.Any(), id).Do(func(context.Context, uuid.UUID) {
		close(removed)
	})

	m := module{
		address:        "127.0.0.1:0",
		serverInfoFile: infoFileMock,
		logger:         zap.NewNop().Sugar(),
	}
	require.NoError(t, m.RegisterConnectionManager(mgr))
	require.NoError(t, m.OnStart(ctx))

	client, err := net.Dial("tcp", m.ln.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not served")
	}

	require.NoError(t, m.OnStop(ctx))
	select {
	case <-removed:
	case <-time.After(5 * time.Second):
		t.Fatal("connection was not removed")
	}

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = client.Read(make([]byte, 1))
	assert.Error(t, err)
}

func newConfigProvider(t *testing.T, configKey string) config.Provider {
	configs := map[string]string{
		"valid": `
jsonrpc:
  address: 127.0.0.1:5859`,
		"missingKey": `
jsonrpc:
  other: value`,
		"missingValue": `
jsonrpc:
  address:`,
		"formatProblem": `
jsonrpc:
  address:
    key: val`,
	}

	provider, err := config.NewYAML(config.Source(strings.NewReader(configs[configKey])))
	require.NoError(t, err)
	return provider
}
