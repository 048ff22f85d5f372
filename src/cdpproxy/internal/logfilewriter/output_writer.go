package logfilewriter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/fs"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/serverinfofile"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	_fmtOutputKey = "output:%s"
	_outputDir    = "cordova-cdp-proxy"
)

//go:generate mockgen -destination=logfilewritermock/output_writer_mock.go -package=logfilewritermock . Factory

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Factory creates human readable output files, such as per-session CDP traffic traces.
type Factory interface {
	// SetupOutputWriter creates a temporary file for the named output and publishes its path in the server info file.
	// Closing the writer unpublishes the path. The file itself is removed when the application stops.
	SetupOutputWriter(name string) (io.WriteCloser, error)
}

// Params define the dependencies for Factory.
type Params struct {
	fx.In

	FS             fs.ProxyFS
	Lifecycle      fx.Lifecycle
	ServerInfoFile serverinfofile.ServerInfoFile
}

type factory struct {
	fs             fs.ProxyFS
	serverInfoFile serverinfofile.ServerInfoFile
	dir            string

	mu    sync.Mutex
	files []string
}

// New creates a Factory writing under the user's temp directory.
func New(p Params) Factory {
	f := &factory{
		fs:             p.FS,
		serverInfoFile: p.ServerInfoFile,
		dir:            filepath.Join(os.TempDir(), _outputDir),
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: f.onStop,
	})
	return f
}

func (f *factory) SetupOutputWriter(name string) (io.WriteCloser, error) {
	if err := f.fs.MkdirAll(f.dir); err != nil {
		return nil, err
	}

	logFile, err := f.fs.TempFile(f.dir, name+"-*.log")
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.files = append(f.files, logFile.Name())
	f.mu.Unlock()

	// IDE can tail the file by getting the file path from the server info file.
	key := fmt.Sprintf(_fmtOutputKey, name)
	if err := f.serverInfoFile.UpdateField(key, logFile.Name()); err != nil {
		return nil, multierr.Append(err, logFile.Close())
	}

	// Write via a logger for formatting, timestamp, and performance/buffering.
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(logFile),
		zap.InfoLevel,
	)

	return &loggerWriter{
		logger: zap.New(core).Sugar(),
		close: func() error {
			return multierr.Combine(
				f.serverInfoFile.RemoveField(key),
				logFile.Close(),
			)
		},
	}, nil
}

func (f *factory) onStop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	for _, name := range f.files {
		if removeErr := f.fs.Remove(name); removeErr != nil && !os.IsNotExist(removeErr) {
			err = multierr.Append(err, removeErr)
		}
	}
	f.files = nil
	return err
}

type loggerWriter struct {
	logger *zap.SugaredLogger
	once   sync.Once
	close  func() error
}

// Write implements the io.Writer interface by sending data to the given logger.
func (o *loggerWriter) Write(p []byte) (n int, err error) {
	// Incoming data may contain multiple lines, including blank ones.
	// Split and log each line individually.
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if len(line) > 0 {
			o.logger.Info(line)
		}
	}

	return len(p), nil
}

// Close flushes the logger and releases the file. Later calls are no-ops.
func (o *loggerWriter) Close() error {
	var err error
	o.once.Do(func() {
		_ = o.logger.Sync()
		if o.close != nil {
			err = o.close()
		}
	})
	return err
}
