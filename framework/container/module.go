package container

import (
	"fmt"

	"go.uber.org/multierr"
)

// ── Module interface ──────────────────────────────────────────────────────────

// Module groups the registrations of one feature, like a service provider.
//
// Register is called before the container is built and must only record
// descriptors. Boot is called after a successful Build, so it may resolve.
//
//	type ShopModule struct{ container.BaseModule }
//
//	func (m *ShopModule) Register(c *container.Container) error {
//	    return c.RegisterService(container.Descriptor{Name: "database_client", ...})
//	}
//
//	func (m *ShopModule) Boot(c *container.Container) error {
//	    db, err := container.Resolve[*DatabaseClient](c, "database_client")
//	    ...
//	}
type Module interface {
	Register(c *Container) error
	Boot(c *Container) error
}

// BaseModule is an embeddable no-op Boot.
type BaseModule struct{}

func (BaseModule) Boot(*Container) error { return nil }

// ── Modules ───────────────────────────────────────────────────────────────────

// Modules registers modules against one container and boots them once it has
// been built.
type Modules struct {
	app        *Container
	modules    []Module
	registered map[Module]bool
	booted     bool
}

// NewModules creates a module set bound to c.
func NewModules(c *Container) *Modules {
	return &Modules{app: c, registered: make(map[Module]bool)}
}

// Register calls m.Register. Registering the same module twice is a no-op.
func (r *Modules) Register(m Module) error {
	if r.registered[m] {
		return nil
	}
	if err := m.Register(r.app); err != nil {
		return fmt.Errorf("register module %T: %w", m, err)
	}
	r.registered[m] = true
	r.modules = append(r.modules, m)
	return nil
}

// Boot calls Boot on every module in registration order. The container must be
// built. Boot runs once; every module is booted even if an earlier one fails.
func (r *Modules) Boot() error {
	if r.booted {
		return nil
	}
	if !r.app.Built() {
		return ErrNotBuilt
	}
	r.booted = true

	var errs error
	for _, m := range r.modules {
		if err := m.Boot(r.app); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("boot module %T: %w", m, err))
		}
	}
	return errs
}

// Booted returns true if Boot has been called.
func (r *Modules) Booted() bool { return r.booted }

// List returns the registered modules.
func (r *Modules) List() []Module { return append([]Module(nil), r.modules...) }
