package container

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ── Lifetime ──────────────────────────────────────────────────────────────────

// Lifetime is the instance policy of a service.
type Lifetime uint8

const (
	// Singleton builds one instance lazily and reuses it. It is the default.
	Singleton Lifetime = iota
	// Factory builds a new instance on every Resolve.
	Factory
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Factory:
		return "factory"
	default:
		return fmt.Sprintf("lifetime(%d)", uint8(l))
	}
}

// ParseLifetime maps a scope string to a Lifetime. An empty string is Singleton.
func ParseLifetime(s string) (Lifetime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "singleton":
		return Singleton, nil
	case "factory", "transient", "prototype":
		return Factory, nil
	default:
		return Singleton, fmt.Errorf("container: unknown scope %q", s)
	}
}

// ── Descriptor ────────────────────────────────────────────────────────────────

// Arguments holds the named values handed to a Constructor: resolved dependency
// instances, raw config entries and declared defaults.
type Arguments map[string]any

// Arg returns the argument as T, or T's zero value when absent or of another type.
//
//	db := container.Arg[*DatabaseClient](args, "db")
func Arg[T any](args Arguments, name string) T {
	v, _ := LookupArg[T](args, name)
	return v
}

// LookupArg is like Arg but reports whether a value of type T was present.
func LookupArg[T any](args Arguments, name string) (T, bool) {
	raw, ok := args[name]
	if !ok || raw == nil {
		var zero T
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// Constructor builds one instance of a service.
type Constructor func(args Arguments) (any, error)

// Descriptor is one injectable service as handed over by discovery.
type Descriptor struct {
	Name        string
	Params      []Param
	Lifetime    Lifetime
	Config      map[string]any
	Constructor Constructor
}

// Instance describes a pre-built value registered as a singleton.
//
//	c.RegisterService(container.Instance("config", cfg))
func Instance(name string, v any) Descriptor {
	return Descriptor{
		Name:        name,
		Lifetime:    Singleton,
		Constructor: func(Arguments) (any, error) { return v, nil },
	}
}

// ── Provider ──────────────────────────────────────────────────────────────────

// Provider produces instances of one service according to its Lifetime.
//
// Providers are created and bound by the Container during Build; they hold
// references to the providers of their dependencies, never to instances.
type Provider struct {
	name       string
	descriptor Descriptor
	signature  Signature
	metrics    *Metrics

	bound bool
	deps  map[string]*Provider // param name → dependency provider

	mu          sync.Mutex
	instance    any
	constructed bool
	flight      singleflight.Group
}

// newProvider creates an unbound provider shell.
func newProvider(desc Descriptor, sig Signature, m *Metrics) *Provider {
	return &Provider{name: desc.Name, descriptor: desc, signature: sig, metrics: m}
}

// bind installs the dependency providers and makes the provider usable.
func (p *Provider) bind(deps map[string]*Provider) *Provider {
	p.deps = deps
	p.bound = true
	return p
}

// Name returns the service name.
func (p *Provider) Name() string { return p.name }

// Lifetime returns the instance policy.
func (p *Provider) Lifetime() Lifetime { return p.descriptor.Lifetime }

// Constructed reports whether a singleton instance is cached.
func (p *Provider) Constructed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.constructed
}

// Get returns an instance: the cached one for singletons (built on first call),
// a fresh one for factories.
func (p *Provider) Get() (any, error) {
	if !p.bound {
		return nil, fmt.Errorf("%w: provider %q is not bound", ErrNotBuilt, p.name)
	}
	if p.descriptor.Lifetime == Factory {
		return p.construct()
	}

	p.mu.Lock()
	if p.constructed {
		inst := p.instance
		p.mu.Unlock()
		return inst, nil
	}
	p.mu.Unlock()

	inst, err, _ := p.flight.Do(p.name, func() (any, error) {
		p.mu.Lock()
		if p.constructed {
			inst := p.instance
			p.mu.Unlock()
			return inst, nil
		}
		p.mu.Unlock()

		inst, err := p.construct()
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.instance = inst
		p.constructed = true
		p.mu.Unlock()
		return inst, nil
	})
	return inst, err
}

// construct assembles the arguments and calls the constructor.
// Precedence for a parameter: dependency instance, then config, then default.
func (p *Provider) construct() (any, error) {
	args := make(Arguments, len(p.descriptor.Config)+len(p.signature))
	for k, v := range p.descriptor.Config {
		args[k] = v
	}
	for _, param := range p.signature {
		if dep, ok := p.deps[param.Name]; ok {
			inst, err := dep.Get()
			if err != nil {
				return nil, &ConstructionError{Service: p.name, Param: param.Name, Err: err}
			}
			args[param.Name] = inst
			continue
		}
		if _, set := args[param.Name]; set {
			continue
		}
		if param.Optional {
			args[param.Name] = param.Default
		}
	}

	start := time.Now()
	inst, err := invoke(p.descriptor.Constructor, args)
	p.metrics.observeConstruction(p.name, time.Since(start), err)
	if err != nil {
		return nil, &ConstructionError{Service: p.name, Err: err}
	}
	return inst, nil
}

// ConstructDirect builds desc without injection: its constructor receives the
// config values and declared defaults only. It is the fallback used when a
// container cannot be built.
func ConstructDirect(desc Descriptor) (any, error) {
	if desc.Constructor == nil {
		return nil, fmt.Errorf("%w: service %q has no constructor", ErrInvalidDescriptor, desc.Name)
	}
	sig := Inspect(desc.Params)
	args := make(Arguments, len(desc.Config)+len(sig))
	for k, v := range desc.Config {
		args[k] = v
	}
	for _, param := range sig {
		if _, set := args[param.Name]; !set && param.Optional {
			args[param.Name] = param.Default
		}
	}
	inst, err := invoke(desc.Constructor, args)
	if err != nil {
		return nil, &ConstructionError{Service: desc.Name, Err: err}
	}
	return inst, nil
}

// invoke calls ctor and turns a panic into an error.
func invoke(ctor Constructor, args Arguments) (inst any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			inst = nil
			err = fmt.Errorf("constructor panic: %v", rec)
		}
	}()
	return ctor(args)
}
