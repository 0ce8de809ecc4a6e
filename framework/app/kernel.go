package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/km-arc/go-boot/framework/config"
	"github.com/km-arc/go-boot/framework/container"
	"github.com/km-arc/go-boot/framework/manifest"
	"github.com/km-arc/go-boot/framework/providers"
	"github.com/km-arc/go-boot/framework/routing"
)

// ShutdownTimeout bounds graceful HTTP shutdown in Run.
const ShutdownTimeout = 10 * time.Second

// Application owns the container, its modules and the resolved service table.
//
//	application, err := app.New(cfg, logger)
//	application.Register(&shop.Module{})
//	application.Bootstrap()
//	application.Run(ctx)
type Application struct {
	Container *container.Container
	Modules   *container.Modules

	config  *config.Config
	logger  *zap.Logger
	metrics *prometheus.Registry
	router  *routing.Router

	mu           sync.RWMutex
	services     map[string]any
	degraded     bool
	bootstrapped bool

	mountOnce sync.Once
}

// New creates the application and registers the core modules ("config" and
// "logger"). A nil cfg loads from the environment; a nil logger is a no-op one.
func New(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Load()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []container.Option{container.WithLogger(logger.Named("container"))}
	var reg *prometheus.Registry
	if cfg.Container.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		m, err := container.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("app: metrics: %w", err)
		}
		opts = append(opts, container.WithMetrics(m))
	}

	c := container.New(opts...)
	a := &Application{
		Container: c,
		Modules:   container.NewModules(c),
		config:    cfg,
		logger:    logger,
		metrics:   reg,
		router:    routing.New(logger.Named("http")),
		services:  make(map[string]any),
	}

	if err := a.Register(&providers.ConfigModule{Config: cfg}); err != nil {
		return nil, err
	}
	if err := a.Register(&providers.LoggingModule{Logger: logger}); err != nil {
		return nil, err
	}
	return a, nil
}

// Register adds a module to the application.
func (a *Application) Register(m container.Module) error {
	return a.Modules.Register(m)
}

// RegisterManifest registers every service of m, with constructors from ctors.
func (a *Application) RegisterManifest(m *manifest.Manifest, ctors manifest.Constructors) error {
	descs, err := m.Bind(ctors)
	if err != nil {
		return err
	}
	for _, d := range descs {
		if err := a.Container.RegisterService(d); err != nil {
			return err
		}
	}
	return nil
}

// ── Bootstrap ─────────────────────────────────────────────────────────────────

// Bootstrap builds the container, resolves every singleton into the service
// table and boots the modules.
//
// When the build fails the application is degraded: every service is
// constructed directly from its config and declared defaults, without
// injection, and services whose direct construction fails are skipped. A
// singleton that fails to resolve after a successful build gets the same
// treatment on its own. Only module boot errors are returned in either mode.
func (a *Application) Bootstrap() error {
	a.mu.Lock()
	if a.bootstrapped {
		a.mu.Unlock()
		return nil
	}
	a.bootstrapped = true
	built := a.populate()
	a.mu.Unlock()

	if !built {
		return nil
	}
	return a.Modules.Boot()
}

// populate fills the service table and reports whether the container built.
func (a *Application) populate() bool {
	if _, err := a.Container.Build(); err != nil {
		a.logger.Warn("falling back to direct construction without injection", zap.Error(err))
		a.degraded = true
		for _, name := range a.Container.Names() {
			a.constructDirect(name)
		}
		return false
	}

	resolved, err := a.Container.ResolveAll()
	for name, inst := range resolved {
		a.services[name] = inst
	}
	if err != nil {
		for _, name := range a.Container.Order() {
			if _, ok := resolved[name]; ok {
				continue
			}
			if p, ok := a.Container.Provider(name); ok && p.Lifetime() == container.Singleton {
				a.constructDirect(name)
			}
		}
	}

	a.logger.Info("application bootstrapped",
		zap.String("app", a.config.App.Name),
		zap.Int("services", len(a.services)))
	return true
}

func (a *Application) constructDirect(name string) {
	desc, ok := a.Container.Descriptor(name)
	if !ok {
		return
	}
	inst, err := container.ConstructDirect(desc)
	if err != nil {
		a.logger.Error("service construction failed", zap.String("service", name), zap.Error(err))
		return
	}
	a.services[name] = inst
	a.logger.Warn("service constructed without injection", zap.String("service", name))
}

// Degraded reports whether Bootstrap fell back to direct construction.
func (a *Application) Degraded() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.degraded
}

// ── Services ──────────────────────────────────────────────────────────────────

// Resolve returns a service from the table, falling back to the container for
// factories. In degraded mode only the table is consulted.
func (a *Application) Resolve(name string) (any, error) {
	a.mu.RLock()
	inst, ok := a.services[name]
	degraded := a.degraded
	a.mu.RUnlock()
	if ok {
		return inst, nil
	}
	if degraded {
		if a.Container.Has(name) {
			return nil, fmt.Errorf("app: service %q is unavailable in degraded mode: %w", name, a.Container.BuildError())
		}
		return nil, &container.UnknownServiceError{Name: name}
	}
	return a.Container.Resolve(name)
}

// Service is Resolve reporting only whether the service is available.
func (a *Application) Service(name string) (any, bool) {
	inst, err := a.Resolve(name)
	return inst, err == nil
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger { return a.logger }

// Router returns the router application routes are added to.
func (a *Application) Router() *routing.Router { return a.router }

// ── HTTP ──────────────────────────────────────────────────────────────────────

// Handler mounts the introspection endpoints on the router and returns it.
//
//	GET /_container/services  → per-service diagnostics
//	GET /_container/order     → initialization order and degraded flag
//	GET /metrics              → Prometheus metrics, when enabled
func (a *Application) Handler() http.Handler {
	a.mountOnce.Do(a.mount)
	return a.router
}

func (a *Application) mount() {
	a.router.Prefix("/_container", func(r *routing.Router) {
		r.Get("/services", func(w http.ResponseWriter, _ *http.Request) {
			routing.Success(w, a.Container.Services())
		})
		r.Get("/order", func(w http.ResponseWriter, _ *http.Request) {
			routing.Success(w, map[string]any{
				"order":    a.Container.Order(),
				"degraded": a.Degraded(),
			})
		})
	})
	if a.metrics != nil {
		a.router.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	}
}

// Run bootstraps the application if needed and serves HTTP on APP_PORT until
// ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.config.App.Port)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	bootErr := a.Bootstrap()
	if bootErr != nil {
		a.logger.Error("module boot failed", zap.Error(bootErr))
	}

	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening",
			zap.String("app", a.config.App.Name),
			zap.String("addr", ln.Addr().String()),
			zap.String("env", a.config.App.Env))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return multierr.Append(bootErr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	return multierr.Append(bootErr, err)
}

// ── Environment ───────────────────────────────────────────────────────────────

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
