package debugsession

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/cordova"
	cdperrors "github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"go.lsp.dev/protocol"
	"go.uber.org/mock/gomock"
)

func TestRunCordova(t *testing.T) {
	params := &entity.RunParams{
		Args:                 []string{"run", "android"},
		WorkingDirectory:     "/home/dev/app",
		EnvironmentOverrides: map[string]string{"ANDROID_HOME": "/opt/android"},
		TimeoutSeconds:       30,
	}
	expectOpts := cordova.RunOptions{
		WorkingDirectory:     "/home/dev/app",
		EnvironmentOverrides: map[string]string{"ANDROID_HOME": "/opt/android"},
		Timeout:              30 * time.Second,
	}

	t.Run("success", func(t *testing.T) {
		c, m := newTestController(t)
		var ideLog bytes.Buffer
		m.cordova.EXPECT().Run(gomock.Any(), params.Args, expectOpts).Return(cordova.Output{Stdout: "BUILD SUCCESSFUL\n"}, nil)
		m.ideGateway.EXPECT().GetLogMessageWriter(gomock.Any(), _cordovaLogPrefix).Return(&ideLog, nil)

		result, err := c.RunCordova(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, "BUILD SUCCESSFUL\n", result.Stdout)
		assert.Equal(t, "BUILD SUCCESSFUL\n", ideLog.String())
	})

	t.Run("process failure is shown to the IDE", func(t *testing.T) {
		c, m := newTestController(t)
		failure := &cdperrors.TargetProcessFailureError{Command: "cordova run", ExitCode: 1, Stderr: "No platforms added"}
		m.cordova.EXPECT().Run(gomock.Any(), params.Args, expectOpts).Return(cordova.Output{}, failure)
		m.ideGateway.EXPECT().GetLogMessageWriter(gomock.Any(), _cordovaLogPrefix).Return(nil, errors.New("no client"))
		m.ideGateway.EXPECT().ShowMessage(gomock.Any(), &protocol.ShowMessageParams{
			Type:    protocol.MessageTypeError,
			Message: "cordova run failed with exit code 1: No platforms added",
		}).Return(nil)

		_, err := c.RunCordova(context.Background(), params)
		assert.Equal(t, failure, err)
	})

	t.Run("other failures are only returned", func(t *testing.T) {
		c, m := newTestController(t)
		m.cordova.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(cordova.Output{}, errors.New("cordova not found"))

		_, err := c.RunCordova(context.Background(), params)
		assert.ErrorContains(t, err, "cordova not found")
	})

	t.Run("no arguments", func(t *testing.T) {
		c, _ := newTestController(t)
		_, err := c.RunCordova(context.Background(), &entity.RunParams{})
		assert.Error(t, err)
	})
}
