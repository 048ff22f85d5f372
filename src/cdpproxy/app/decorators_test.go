package app

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/fs"
	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/fs/fsmock"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
)

func TestEnv(t *testing.T) {
	tests := []struct {
		name      string
		setEnvKey string
		setEnvVal string
		expectVal string
	}{
		{
			name:      "local",
			expectVal: EnvLocal,
		},
		{
			name:      "development",
			setEnvKey: _envCdpProxyEnvironment,
			setEnvVal: "development",
			expectVal: EnvDevelopment,
		},
		{
			name:      "unknown value falls back to local",
			setEnvKey: _envCdpProxyEnvironment,
			setEnvVal: "staging",
			expectVal: EnvLocal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnvKey != "" {
				t.Setenv(tt.setEnvKey, tt.setEnvVal)
			} else {
				os.Unsetenv(_envCdpProxyEnvironment)
			}

			fxtest.New(
				t,
				fx.Provide(func() Context {
					return Context{
						Environment:        "local",
						RuntimeEnvironment: "local",
					}
				}),
				fx.Decorate(decorateEnvContext),
				fx.Invoke(func(ctx Context) {
					require.Equal(t, tt.expectVal, ctx.Environment, "unexpected environment")
					require.Equal(t, tt.expectVal, ctx.RuntimeEnvironment, "unexpected runtime environment")
				}),
			).RequireStart().RequireStop()
		})
	}
}

func loggingProvider(t *testing.T, extra map[string]interface{}) config.Provider {
	values := map[string]interface{}{
		"logging": map[string]interface{}{
			"outputPaths": []string{
				"/tmp/foo/myfile1.log",
			},
		},
	}
	for k, v := range extra {
		values[k] = v
	}
	p, err := config.NewStaticProvider(values)
	require.NoError(t, err)
	return p
}

func TestDecorateConfigProvider(t *testing.T) {
	tests := []struct {
		name         string
		env          string
		expectStrict bool
	}{
		{
			name:         "local keeps configured transitions",
			env:          EnvLocal,
			expectStrict: false,
		},
		{
			name:         "development forces strict transitions",
			env:          EnvDevelopment,
			expectStrict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fsMock := fsmock.NewMockProxyFS(ctrl)
			fsMock.EXPECT().MkdirAll("/tmp/foo").Return(nil)

			fxtest.New(
				t,
				fx.Provide(func() fs.ProxyFS {
					return fsMock
				}),
				fx.Provide(func() config.Provider {
					return loggingProvider(t, map[string]interface{}{
						"sessions": map[string]interface{}{
							"strictTransitions": false,
						},
					})
				}),
				fx.Provide(func() Context {
					return Context{
						Environment:        tt.env,
						RuntimeEnvironment: tt.env,
					}
				}),
				fx.Decorate(decorateConfigProvider),
				fx.Invoke(func(cfg config.Provider) {
					var strict bool
					require.NoError(t, cfg.Get("sessions.strictTransitions").Populate(&strict))
					assert.Equal(t, tt.expectStrict, strict)
				}),
			).RequireStart().RequireStop()
		})
	}

	t.Run("log folder failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		fsMock := fsmock.NewMockProxyFS(ctrl)
		fsMock.EXPECT().MkdirAll("/tmp/foo").Return(errors.New("permission denied"))

		_, err := decorateConfigProvider(DecorateConfigParams{
			Env: Context{RuntimeEnvironment: EnvLocal},
			Cfg: loggingProvider(t, nil),
			FS:  fsMock,
		})
		assert.ErrorContains(t, err, "permission denied")
	})
}

func TestEnsureLogFolder(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Run("no errors", func(t *testing.T) {
		fsMock := fsmock.NewMockProxyFS(ctrl)

		fsMock.EXPECT().MkdirAll("/tmp/foo").Return(nil)
		fsMock.EXPECT().MkdirAll("/tmp/bar").Return(nil)

		fxtest.New(
			t,
			fx.Provide(func() fs.ProxyFS {
				return fsMock
			}),
			fx.Provide(func() config.Provider {
				p, _ := config.NewStaticProvider(map[string]interface{}{
					"logging": map[string]interface{}{
						"outputPaths": []string{
							"/tmp/foo/myfile1.log",
							"/tmp/bar/myfile2.log",
						},
					},
				})
				return p
			}),
			fx.Decorate(ensureLogFolder),
			fx.Invoke(func(cfg config.Provider) {
			}),
		).RequireStart().RequireStop()
	})

	t.Run("error creating directory", func(t *testing.T) {
		fsMock := fsmock.NewMockProxyFS(ctrl)
		fsMock.EXPECT().MkdirAll("/tmp/foo").Return(errors.New("error creating directory"))
		p, _ := config.NewStaticProvider(map[string]interface{}{
			"logging": map[string]interface{}{
				"outputPaths": []string{
					"/tmp/foo/myfile1.log",
					"/tmp/bar/myfile2.log",
				},
			},
		})
		_, err := ensureLogFolder(p, fsMock)
		assert.Error(t, err)
	})
}
