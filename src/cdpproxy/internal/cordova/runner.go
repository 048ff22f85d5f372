// Package cordova runs the Cordova CLI on behalf of the IDE.
package cordova

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	cdperrors "github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/executor"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=cordovamock/runner_mock.go -package=cordovamock . Runner

const (
	_configKey             = "cordova"
	_defaultBinary         = "cordova"
	_defaultTimeoutSeconds = 600
)

// Module provides the Cordova CLI runner and the binary lookup it depends on.
var Module = fx.Options(
	fx.Provide(func() LookPathFunc { return exec.LookPath }),
	fx.Provide(New),
)

// LookPathFunc resolves a binary name to an executable path.
type LookPathFunc func(file string) (string, error)

// RunOptions are the recognized options of a CLI run.
type RunOptions struct {
	WorkingDirectory     string
	EnvironmentOverrides map[string]string
	// Timeout of zero uses the configured default.
	Timeout time.Duration
}

// Output is the captured output of a successful run.
type Output struct {
	Stdout string
	Stderr string
}

// Runner runs Cordova CLI commands.
type Runner interface {
	// Run executes the CLI with args. A non-zero exit fails with *errors.TargetProcessFailureError.
	Run(ctx context.Context, args []string, opts RunOptions) (Output, error)
}

// Config is the cordova config block.
type Config struct {
	Binary                string `yaml:"binary"`
	DefaultTimeoutSeconds int    `yaml:"defaultTimeoutSeconds"`
}

// Params are the dependencies of the runner.
type Params struct {
	fx.In

	Config   config.Provider
	Executor executor.Executor
	Logger   *zap.SugaredLogger
	LookPath LookPathFunc
}

type runner struct {
	binary         string
	defaultTimeout time.Duration
	executor       executor.Executor
	logger         *zap.SugaredLogger
	lookPath       LookPathFunc
}

// New creates a Runner from the cordova config block.
func New(p Params) (Runner, error) {
	cfg := Config{
		Binary:                _defaultBinary,
		DefaultTimeoutSeconds: _defaultTimeoutSeconds,
	}
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if cfg.Binary == "" {
		cfg.Binary = _defaultBinary
	}
	if p.LookPath == nil {
		return nil, errors.New("binary lookup is required")
	}

	return &runner{
		binary:         cfg.Binary,
		defaultTimeout: time.Duration(cfg.DefaultTimeoutSeconds) * time.Second,
		executor:       p.Executor,
		logger:         p.Logger,
		lookPath:       p.LookPath,
	}, nil
}

func (r *runner) Run(ctx context.Context, args []string, opts RunOptions) (Output, error) {
	binPath, err := r.lookPath(r.binary)
	if err != nil {
		return Output{}, fmt.Errorf("locating %s: %w", r.binary, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := r.executor.Run(ctx, executor.Command{
		Path: binPath,
		Args: args,
		Dir:  opts.WorkingDirectory,
		Env:  mergeEnv(os.Environ(), opts.EnvironmentOverrides),
	})
	if err == nil {
		return Output{Stdout: result.Stdout, Stderr: result.Stderr}, nil
	}

	name := commandName(r.binary, args)
	if errors.Is(err, context.DeadlineExceeded) {
		return Output{}, &cdperrors.TargetProcessFailureError{
			Command:  name,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			TimedOut: true,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || result.ExitCode > 0 {
		r.logger.Warnw("cordova command failed", "command", name, "exitCode", result.ExitCode)
		return Output{}, &cdperrors.TargetProcessFailureError{
			Command:  name,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}

	return Output{}, fmt.Errorf("running %s: %w", name, err)
}

// mergeEnv applies overrides on top of base, replacing existing keys.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

func commandName(binary string, args []string) string {
	if len(args) == 0 {
		return binary
	}
	return binary + " " + args[0]
}
