package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/fx"
)

//go:generate mockgen -destination=fsmock/fs_mock.go -package=fsmock . ProxyFS

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// ProxyFS covers the files the proxy writes for the IDE: log folders, traffic traces and the server info file.
type ProxyFS interface {
	MkdirAll(path string) error
	TempFile(dir, pattern string) (*os.File, error)
	// WriteFileAtomic replaces name in one step, so readers polling the file never see a partial write.
	WriteFileAtomic(name string, data []byte) error
	Remove(name string) error
}

type fsImpl struct{}

// New creates a new ProxyFS.
func New() ProxyFS {
	return fsImpl{}
}

func (fsImpl) MkdirAll(path string) error { return os.MkdirAll(path, os.ModePerm) }

func (fsImpl) TempFile(dir, pattern string) (*os.File, error) {
	return os.CreateTemp(dir, pattern)
}

func (fsImpl) WriteFileAtomic(name string, data []byte) (err error) {
	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}

func (fsImpl) Remove(name string) error {
	return os.Remove(name)
}
