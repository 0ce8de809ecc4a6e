package providers

import (
	"errors"

	"go.uber.org/zap"

	"github.com/km-arc/go-boot/framework/config"
	"github.com/km-arc/go-boot/framework/container"
)

// ── ConfigModule ──────────────────────────────────────────────────────────────

// ConfigModule binds the loaded configuration into the container.
//
// Bound services:
//   - "config"  → *config.Config
//   - "app_config" → config.AppConfig
//
// Application services receive it through a parameter:
//
//	container.Ref("cfg", "config")
type ConfigModule struct {
	container.BaseModule
	Config *config.Config
}

func (m *ConfigModule) Register(app *container.Container) error {
	cfg := m.Config
	if cfg == nil {
		cfg = config.Load()
	}
	if err := app.RegisterService(container.Instance("config", cfg)); err != nil {
		return err
	}
	return app.RegisterService(container.Descriptor{
		Name:   "app_config",
		Params: []container.Param{container.Ref("config", "config")},
		Constructor: func(args container.Arguments) (any, error) {
			cfg := container.Arg[*config.Config](args, "config")
			if cfg == nil {
				return nil, errors.New("providers: app_config needs config")
			}
			return cfg.App, nil
		},
	})
}

// ── LoggingModule ─────────────────────────────────────────────────────────────

// LoggingModule binds the application logger.
//
// Bound services:
//   - "logger" → *zap.Logger
//
// Inferred from a parameter typed Logger:
//
//	container.Typed("log", "zap.Logger") // → "logger"
type LoggingModule struct {
	container.BaseModule
	Logger *zap.Logger
}

func (m *LoggingModule) Register(app *container.Container) error {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return app.RegisterService(container.Instance("logger", logger))
}

// Boot checks that the logger resolves.
func (m *LoggingModule) Boot(app *container.Container) error {
	logger, err := container.Resolve[*zap.Logger](app, "logger")
	if err != nil {
		return err
	}
	logger.Debug("logging module booted")
	return nil
}
