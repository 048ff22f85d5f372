package debugsession

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/entity"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/cordova"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/errors"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

const _cordovaLogPrefix = "cordova"

// RunCordova runs the Cordova CLI. A failed run is reported to the IDE with the captured stderr.
func (c *controller) RunCordova(ctx context.Context, params *entity.RunParams) (*entity.RunResult, error) {
	if len(params.Args) == 0 {
		return nil, fmt.Errorf("cordova run requires at least one argument")
	}

	out, err := c.cordova.Run(ctx, params.Args, cordova.RunOptions{
		WorkingDirectory:     params.WorkingDirectory,
		EnvironmentOverrides: params.EnvironmentOverrides,
		Timeout:              time.Duration(params.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		if pf, ok := errors.ProcessFailure(err); ok {
			c.logOutput(ctx, pf.Stderr)
			if showErr := c.ideGateway.ShowMessage(ctx, &protocol.ShowMessageParams{
				Type:    protocol.MessageTypeError,
				Message: pf.Error(),
			}); showErr != nil {
				c.logger.Warnw("unable to report cordova failure to IDE", zap.Error(showErr))
			}
		}
		return nil, err
	}

	c.logOutput(ctx, out.Stdout)
	c.logOutput(ctx, out.Stderr)
	return &entity.RunResult{Stdout: out.Stdout, Stderr: out.Stderr}, nil
}

// logOutput mirrors CLI output in the IDE log, when the IDE is reachable.
func (c *controller) logOutput(ctx context.Context, text string) {
	if text == "" {
		return
	}
	w, err := c.ideGateway.GetLogMessageWriter(ctx, _cordovaLogPrefix)
	if err != nil {
		c.logger.Debugw("no IDE log for cordova output", zap.Error(err))
		return
	}
	if _, err := io.WriteString(w, text); err != nil {
		c.logger.Debugw("writing cordova output to IDE", zap.Error(err))
	}
}
