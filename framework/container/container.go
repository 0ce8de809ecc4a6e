package container

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Options ───────────────────────────────────────────────────────────────────

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Container) { c.metrics = m }
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container owns the registry, the providers and the singleton cache.
//
// Lifecycle:
//
//  1. Register: c.RegisterService(desc) for every discovered service
//  2. Build:    c.Build() orders, validates and binds providers
//  3. Resolve:  c.Resolve(name) is safe for concurrent use
//
// Once built, the set of providers is frozen; Clear starts a new lifecycle.
type Container struct {
	mu sync.RWMutex

	logger   *zap.Logger
	metrics  *Metrics
	registry *Registry

	// name → provider shell recorded at registration
	shells map[string]*Provider
	// name → bound provider, populated by a successful Build
	providers map[string]*Provider
	// name → resolved singleton instance
	instances map[string]any

	order       []string
	built       bool
	buildFailed bool
	buildErr    error
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	c.registry = NewRegistry(c.logger)
	c.reset()
	return c
}

func (c *Container) reset() {
	c.registry.Clear()
	c.shells = make(map[string]*Provider)
	c.providers = make(map[string]*Provider)
	c.instances = make(map[string]any)
	c.order = nil
	c.built = false
	c.buildFailed = false
	c.buildErr = nil
}

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterService records a descriptor. Registering a name twice replaces the
// earlier descriptor.
//
//	c.RegisterService(container.Descriptor{
//	    Name:   "user_repository",
//	    Params: []container.Param{container.Typed("db", "DatabaseClient")},
//	    Constructor: func(args container.Arguments) (any, error) {
//	        return &UserRepository{DB: container.Arg[*DatabaseClient](args, "db")}, nil
//	    },
//	})
func (c *Container) RegisterService(desc Descriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("%w: empty service name", ErrInvalidDescriptor)
	}
	if desc.Constructor == nil {
		return fmt.Errorf("%w: service %q has no constructor", ErrInvalidDescriptor, desc.Name)
	}
	if desc.Lifetime != Singleton && desc.Lifetime != Factory {
		return fmt.Errorf("%w: service %q has %s", ErrInvalidDescriptor, desc.Name, desc.Lifetime)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return fmt.Errorf("%w: cannot register %q", ErrContainerBuilt, desc.Name)
	}

	c.registry.Register(desc)
	c.shells[desc.Name] = newProvider(desc, c.registry.Signature(desc.Name), c.metrics)
	c.invalidate()
	return nil
}

// invalidate forgets the outcome of a failed build after a registration change.
func (c *Container) invalidate() {
	c.buildFailed = false
	c.buildErr = nil
	c.order = nil
}

// ── Contextual binding ────────────────────────────────────────────────────────

// When starts a contextual binding chain: when concrete needs a service, give
// it another one instead.
//
//	c.When("order_service").Needs("email_service").Give("smtp_email_service")
func (c *Container) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{container: c, concrete: concrete}
}

func (c *Container) override(concrete, needs, give string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return fmt.Errorf("%w: cannot rebind %q for %q", ErrContainerBuilt, needs, concrete)
	}
	c.registry.Override(concrete, needs, give)
	c.invalidate()
	return nil
}

// ── Build ─────────────────────────────────────────────────────────────────────

// BuildResult describes a successful Build.
type BuildResult struct {
	// Order is the initialization order providers were bound in.
	Order []string
	// Warnings lists dangling references and ordering fallbacks.
	Warnings []string
}

// Build orders the registered services and binds a provider for each, wiring
// every parameter to the provider of its dependency.
//
// A cycle fails with *CircularDependencyError. Required dependencies that were
// never registered fail with one *MissingDependencyError per gap, combined with
// multierr. On failure no provider is installed, BuildFailed reports true and
// Resolve refuses every registered name.
func (c *Container) Build() (BuildResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.built {
		return BuildResult{Order: append([]string(nil), c.order...), Warnings: c.registry.Warnings()}, nil
	}

	res, err := c.build()
	c.metrics.observeBuild(err)
	if err != nil {
		c.buildFailed = true
		c.buildErr = err
		c.logger.Error("container build failed", zap.Error(err))
		return BuildResult{Warnings: c.registry.Warnings()}, err
	}

	c.built = true
	c.buildFailed = false
	c.buildErr = nil
	c.logger.Info("container built", zap.Int("services", len(res.Order)), zap.Strings("order", res.Order))
	return res, nil
}

func (c *Container) build() (BuildResult, error) {
	order, err := c.registry.InitializationOrder()
	if err != nil {
		return BuildResult{}, err
	}

	wiring := make(map[string]map[string]*Provider, len(order))
	var gaps error
	for _, name := range order {
		deps := make(map[string]*Provider)
		for _, p := range c.registry.Signature(name) {
			dep := c.registry.target(name, p)
			if dep == "" {
				continue
			}
			if _, ok := wiring[dep]; ok {
				deps[p.Name] = c.shells[dep]
				continue
			}
			if c.registry.Has(dep) {
				// Only reachable through the ordering fallback.
				gaps = multierr.Append(gaps, fmt.Errorf("container: %q reached before its dependency %q", name, dep))
				continue
			}
			if p.Optional {
				continue
			}
			gaps = multierr.Append(gaps, &MissingDependencyError{Service: name, Param: p.Name, Dependency: dep})
		}
		wiring[name] = deps
	}
	if gaps != nil {
		return BuildResult{}, gaps
	}

	bound := make(map[string]*Provider, len(order))
	for _, name := range order {
		shell := c.shells[name].bind(wiring[name])
		bound[name] = shell
		c.logger.Debug("provider bound",
			zap.String("service", name),
			zap.Stringer("lifetime", shell.Lifetime()),
			zap.Strings("dependencies", c.registry.Dependencies(name)))
	}

	c.providers = bound
	c.order = order
	return BuildResult{Order: append([]string(nil), order...), Warnings: c.registry.Warnings()}, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns an instance of the named service.
//
//	svc, err := c.Resolve("user_service")
func (c *Container) Resolve(name string) (any, error) {
	c.mu.RLock()
	if inst, ok := c.instances[name]; ok {
		c.mu.RUnlock()
		c.metrics.observeResolve(name, Singleton)
		return inst, nil
	}
	provider, ok := c.providers[name]
	registered := c.registry.Has(name)
	buildErr := c.buildErr
	c.mu.RUnlock()

	if !ok {
		if !registered {
			return nil, &UnknownServiceError{Name: name}
		}
		if buildErr != nil {
			return nil, fmt.Errorf("%w: service %q: %w", ErrNotBuilt, name, buildErr)
		}
		return nil, fmt.Errorf("%w: service %q", ErrNotBuilt, name)
	}

	c.metrics.observeResolve(name, provider.Lifetime())
	inst, err := provider.Get()
	if err != nil {
		return nil, err
	}
	if provider.Lifetime() == Singleton {
		c.mu.Lock()
		if c.built {
			c.instances[name] = inst
		}
		c.mu.Unlock()
	}
	return inst, nil
}

// Has reports whether name is registered.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.Has(name)
}

// ResolveAll resolves every singleton in initialization order. Factories are
// left out: resolving one creates an instance, which must be asked for
// explicitly. Services that fail are missing from the map and reported in the
// combined error.
func (c *Container) ResolveAll() (map[string]any, error) {
	c.mu.RLock()
	if !c.built {
		c.mu.RUnlock()
		return nil, ErrNotBuilt
	}
	order := append([]string(nil), c.order...)
	providers := c.providers
	c.mu.RUnlock()

	out := make(map[string]any, len(order))
	var errs error
	for _, name := range order {
		if providers[name].Lifetime() != Singleton {
			continue
		}
		inst, err := c.Resolve(name)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out[name] = inst
	}
	return out, errs
}

// Clear drops providers, cached instances and registrations.
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// ── State ─────────────────────────────────────────────────────────────────────

// Built reports whether the last Build succeeded.
func (c *Container) Built() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.built
}

// BuildFailed reports whether the last Build failed. Callers use it to switch
// to dependency-free construction.
func (c *Container) BuildFailed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buildFailed
}

// BuildError returns the error of the last failed Build.
func (c *Container) BuildError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buildErr
}

// Order returns the initialization order of the last successful Build.
func (c *Container) Order() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Names returns registered service names in registration order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.Names()
}

// Descriptor returns the registered descriptor for name.
func (c *Container) Descriptor(name string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.Descriptor(name)
}

// Provider returns the bound provider for name, if the container is built.
func (c *Container) Provider(name string) (*Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[name]
	return p, ok
}

// ServiceInfo is a diagnostic snapshot of one service.
type ServiceInfo struct {
	Name         string   `json:"name"`
	Lifetime     string   `json:"lifetime"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	Bound        bool     `json:"bound"`
	Constructed  bool     `json:"constructed"`
}

// Inspect returns diagnostic information about a service.
func (c *Container) Inspect(name string) (ServiceInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inspect(name)
}

// Services returns diagnostic information for every service in registration order.
func (c *Container) Services() []ServiceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := c.registry.Names()
	out := make([]ServiceInfo, 0, len(names))
	for _, name := range names {
		info, _ := c.inspect(name)
		out = append(out, info)
	}
	return out
}

func (c *Container) inspect(name string) (ServiceInfo, bool) {
	desc, ok := c.registry.Descriptor(name)
	if !ok {
		return ServiceInfo{Name: name}, false
	}
	info := ServiceInfo{
		Name:         name,
		Lifetime:     desc.Lifetime.String(),
		Dependencies: c.registry.Dependencies(name),
		Dependents:   c.registry.Dependents(name),
	}
	if p, ok := c.providers[name]; ok {
		info.Bound = true
		info.Constructed = p.Constructed()
	}
	return info, true
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve resolves name and asserts the instance to T.
//
//	users, err := container.Resolve[*UserService](c, "user_service")
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	inst, err := c.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%T]: %q resolved to %T", zero, name, inst)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](c *Container, name string) T {
	v, err := Resolve[T](c, name)
	if err != nil {
		panic(err)
	}
	return v
}

// IsNotFound reports whether err means the service was never registered.
func IsNotFound(err error) bool {
	var target *UnknownServiceError
	return errors.As(err, &target)
}
