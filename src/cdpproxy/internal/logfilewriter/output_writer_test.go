package logfilewriter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/fs/fsmock"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/serverinfofile/serverinfofilemock"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSetupOutputWriter(t *testing.T) {
	ctrl := gomock.NewController(t)
	serverInfoFileMock := serverinfofilemock.NewMockServerInfoFile(ctrl)
	fsMock := fsmock.NewMockProxyFS(ctrl)

	newFactory := func(t *testing.T) (Factory, *fxtest.Lifecycle) {
		lc := fxtest.NewLifecycle(t)
		return New(Params{Lifecycle: lc, ServerInfoFile: serverInfoFileMock, FS: fsMock}), lc
	}

	t.Run("success", func(t *testing.T) {
		f, lc := newFactory(t)
		lc.RequireStart()

		file, err := os.CreateTemp(t.TempDir(), "")
		require.NoError(t, err)
		key := fmt.Sprintf(_fmtOutputKey, "trace-1")
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(nil)
		fsMock.EXPECT().TempFile(gomock.Any(), "trace-1-*.log").Return(file, nil)
		serverInfoFileMock.EXPECT().UpdateField(key, file.Name()).Return(nil)

		writer, err := f.SetupOutputWriter("trace-1")
		require.NoError(t, err)

		_, err = writer.Write([]byte("client -> target {\"id\":1}\n"))
		assert.NoError(t, err)

		serverInfoFileMock.EXPECT().RemoveField(key).Return(nil)
		assert.NoError(t, writer.Close())
		assert.NoError(t, writer.Close())

		content, err := os.ReadFile(file.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), `client -> target {"id":1}`)

		fsMock.EXPECT().Remove(file.Name()).Return(nil)
		lc.RequireStop()
	})

	t.Run("mkdir fail", func(t *testing.T) {
		f, _ := newFactory(t)
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(errors.New("sample"))
		_, err := f.SetupOutputWriter("trace-2")
		assert.Error(t, err)
	})

	t.Run("tempfile fail", func(t *testing.T) {
		f, _ := newFactory(t)
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(nil)
		fsMock.EXPECT().TempFile(gomock.Any(), gomock.Any()).Return(nil, errors.New("sample"))
		_, err := f.SetupOutputWriter("trace-3")
		assert.Error(t, err)
	})

	t.Run("server info fail", func(t *testing.T) {
		f, _ := newFactory(t)
		file, err := os.CreateTemp(t.TempDir(), "")
		require.NoError(t, err)
		fsMock.EXPECT().MkdirAll(gomock.Any()).Return(nil)
		fsMock.EXPECT().TempFile(gomock.Any(), gomock.Any()).Return(file, nil)
		serverInfoFileMock.EXPECT().UpdateField(gomock.Any(), file.Name()).Return(errors.New("sample"))
		_, err = f.SetupOutputWriter("trace-4")
		assert.Error(t, err)
	})
}

func TestWrite(t *testing.T) {
	// For testing purposes, collect logger results in a buffer.
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(&buf),
		zap.InfoLevel,
	)
	sampleWriter := loggerWriter{logger: zap.New(core).Sugar()}

	sampleMessage := "sample log message"

	_, err := sampleWriter.Write([]byte(sampleMessage + "\n" + sampleMessage + "\n\n"))
	assert.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "sample log message"))
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 2)
	assert.NoError(t, sampleWriter.Close())
}
