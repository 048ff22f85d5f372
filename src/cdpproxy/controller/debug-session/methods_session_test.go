package debugsession

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/factory"
	cdperrors "github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zapcore"
)

func TestStartSession(t *testing.T) {
	params := &entity.StartSessionParams{
		IDESessionID:     "ide-1",
		Platform:         entity.PlatformIOS,
		ProjectRoot:      "/home/dev/app",
		DevToolsEndpoint: "127.0.0.1:9221",
		TargetURLFilter:  "index.html",
	}

	t.Run("success", func(t *testing.T) {
		c, m := newTestController(t)
		clientID := factory.UUID()
		created := factory.Session(entity.PlatformIOS)

		m.sessions.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, template *entity.Session) (*entity.Session, error) {
				assert.Equal(t, clientID, template.ClientUUID)
				assert.Equal(t, "ide-1", template.IDESessionID)
				assert.Equal(t, "index.html", template.TargetURLFilter)
				return created, nil
			})
		m.proxy.EXPECT().ProxyURL(created.UUID).Return("ws://127.0.0.1:9229/devtools/session/" + created.UUID.String())

		result, err := c.StartSession(clientContext(clientID), params)
		require.NoError(t, err)
		assert.Equal(t, created.UUID, result.SessionID)
		assert.Equal(t, "ws://127.0.0.1:9229/devtools/session/"+created.UUID.String(), result.ProxyURL)
	})

	t.Run("no client in context", func(t *testing.T) {
		c, _ := newTestController(t)
		_, err := c.StartSession(context.Background(), params)
		var noSession *cdperrors.NoClientFoundError
		assert.ErrorAs(t, err, &noSession)
	})

	t.Run("create failure", func(t *testing.T) {
		c, m := newTestController(t)
		m.sessions.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("uuid failure"))
		_, err := c.StartSession(clientContext(factory.UUID()), params)
		assert.ErrorContains(t, err, "uuid failure")
	})
}

func TestGetSession(t *testing.T) {
	c, m := newTestController(t)
	s := factory.Session(entity.PlatformAndroid)
	m.sessions.EXPECT().Get(gomock.Any(), s.UUID).Return(s, nil)

	got, err := c.GetSession(context.Background(), s.UUID)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSetSessionStatus(t *testing.T) {
	s := factory.Session(entity.PlatformAndroid)
	backward := &cdperrors.InvalidTransitionError{SessionUUID: s.UUID, From: "Activated", To: "Pending"}

	tests := []struct {
		name      string
		strict    bool
		setup     func(m *mocks)
		expectErr error
		expectLog bool
	}{
		{
			name: "forward move",
			setup: func(m *mocks) {
				m.sessions.EXPECT().SetStatus(gomock.Any(), s.UUID, entity.SessionStatusPending).Return(s, nil)
			},
		},
		{
			name:   "backward move rejected when strict",
			strict: true,
			setup: func(m *mocks) {
				m.sessions.EXPECT().SetStatus(gomock.Any(), s.UUID, entity.SessionStatusPending).Return(nil, backward)
			},
			expectErr: backward,
		},
		{
			name: "backward move forced otherwise",
			setup: func(m *mocks) {
				m.sessions.EXPECT().SetStatus(gomock.Any(), s.UUID, entity.SessionStatusPending).Return(nil, backward)
				m.sessions.EXPECT().ForceStatus(gomock.Any(), s.UUID, entity.SessionStatusPending).Return(s, nil)
			},
			expectLog: true,
		},
		{
			name: "unknown session is never forced",
			setup: func(m *mocks) {
				m.sessions.EXPECT().SetStatus(gomock.Any(), s.UUID, entity.SessionStatusPending).Return(nil, &cdperrors.UUIDNotFoundError{UUID: s.UUID})
			},
			expectErr: &cdperrors.UUIDNotFoundError{UUID: s.UUID},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c, m := newTestController(t)
			c.strictTransitions = tt.strict
			tt.setup(m)

			got, err := c.SetSessionStatus(context.Background(), &entity.SetSessionStatusParams{
				SessionID: s.UUID,
				Status:    entity.SessionStatusPending,
			})
			if tt.expectErr != nil {
				assert.Equal(t, tt.expectErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, s, got)
			assert.Equal(t, tt.expectLog, m.logs.FilterLevelExact(zapcore.WarnLevel).Len() == 1)
		})
	}
}

func TestEndSession(t *testing.T) {
	s := factory.Session(entity.PlatformBrowser)

	t.Run("detaches and deletes", func(t *testing.T) {
		c, m := newTestController(t)
		gomock.InOrder(
			m.sessions.EXPECT().Get(gomock.Any(), s.UUID).Return(s, nil),
			m.proxy.EXPECT().Detach(gomock.Any(), s.UUID).Return(nil),
			m.sessions.EXPECT().Delete(gomock.Any(), s.UUID).Return(nil),
		)
		assert.NoError(t, c.EndSession(context.Background(), s.UUID))
	})

	t.Run("detach failure still deletes", func(t *testing.T) {
		c, m := newTestController(t)
		m.sessions.EXPECT().Get(gomock.Any(), s.UUID).Return(s, nil)
		m.proxy.EXPECT().Detach(gomock.Any(), s.UUID).Return(context.DeadlineExceeded)
		m.sessions.EXPECT().Delete(gomock.Any(), s.UUID).Return(nil)

		assert.NoError(t, c.EndSession(context.Background(), s.UUID))
		assert.Equal(t, 1, m.logs.FilterMessage("detaching debugger").Len())
	})

	t.Run("unknown session", func(t *testing.T) {
		c, m := newTestController(t)
		m.sessions.EXPECT().Get(gomock.Any(), s.UUID).Return(nil, &cdperrors.UUIDNotFoundError{UUID: s.UUID})

		err := c.EndSession(context.Background(), s.UUID)
		_, ok := cdperrors.NotFoundUUID(err)
		assert.True(t, ok)
	})
}

func TestListTargets(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, m := newTestController(t)
		targets := []entity.DebuggingTarget{{ID: "1", Type: "page", URL: "file:///android_asset/www/index.html"}}
		m.targets.EXPECT().ListTargets(gomock.Any(), "127.0.0.1:9222", "index").Return(targets, nil)

		got, err := c.ListTargets(context.Background(), &entity.ListTargetsParams{DevToolsEndpoint: "127.0.0.1:9222", URLFilter: "index"})
		require.NoError(t, err)
		assert.Equal(t, targets, got)
	})

	t.Run("endpoint unreachable", func(t *testing.T) {
		c, m := newTestController(t)
		m.targets.EXPECT().ListTargets(gomock.Any(), "127.0.0.1:1", "").Return(nil, errors.New("connection refused"))

		_, err := c.ListTargets(context.Background(), &entity.ListTargetsParams{DevToolsEndpoint: "127.0.0.1:1"})
		assert.ErrorContains(t, err, `listing targets at "127.0.0.1:1": connection refused`)
	})
}
