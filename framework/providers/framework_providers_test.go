package providers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/go-boot/framework/config"
	"github.com/km-arc/go-boot/framework/container"
	"github.com/km-arc/go-boot/framework/providers"
)

func TestCoreModules(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := &config.Config{App: config.AppConfig{Name: "Shop", Env: "testing"}}

	c := container.New()
	mods := container.NewModules(c)
	require.NoError(t, mods.Register(&providers.ConfigModule{Config: cfg}))
	require.NoError(t, mods.Register(&providers.LoggingModule{Logger: zap.New(core)}))
	require.NoError(t, c.RegisterService(container.Descriptor{
		Name: "greeter",
		Params: []container.Param{
			container.Typed("app", "AppConfig"),
			container.Typed("log", "zap.Logger"),
		},
		Constructor: func(args container.Arguments) (any, error) {
			return container.Arg[config.AppConfig](args, "app").Name, nil
		},
	}))

	_, err := c.Build()
	require.NoError(t, err)
	require.NoError(t, mods.Boot())

	got, err := container.Resolve[*config.Config](c, "config")
	require.NoError(t, err)
	assert.Same(t, cfg, got)

	name, err := container.Resolve[string](c, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "Shop", name)

	assert.Equal(t, 1, logs.FilterMessage("logging module booted").Len())
}

func TestLoggingModule_DefaultsToNop(t *testing.T) {
	c := container.New()
	require.NoError(t, (&providers.LoggingModule{}).Register(c))
	_, err := c.Build()
	require.NoError(t, err)

	logger, err := container.Resolve[*zap.Logger](c, "logger")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
