// Package manifest reads service descriptions from YAML, the form in which an
// external scanner hands services to the container.
//
//	services:
//	  - type: DatabaseClient
//	    config:
//	      dsn: postgres://localhost/shop
//	  - type: UserRepository
//	    params:
//	      - name: db
//	        type: DatabaseClient
//	  - name: order_service
//	    type: OrderService
//	    scope: factory
//	    params:
//	      - { name: users, type: UserService }
//	      - { name: mailer, ref: email_service }
//	      - { name: cache, type: CacheService, optional: true }
//	      - { name: retries, default: 3 }
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-boot/framework/container"
)

// ── YAML shape ────────────────────────────────────────────────────────────────

type document struct {
	Services []serviceEntry `yaml:"services"`
}

type serviceEntry struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	Scope  string         `yaml:"scope"`
	Config map[string]any `yaml:"config"`
	Params []paramEntry   `yaml:"params"`
}

type paramEntry struct {
	Name     string    `yaml:"name"`
	Type     string    `yaml:"type"`
	Ref      string    `yaml:"ref"`
	Optional bool      `yaml:"optional"`
	Default  yaml.Node `yaml:"default"`
}

// ── Manifest ──────────────────────────────────────────────────────────────────

// Service is one validated manifest entry.
type Service struct {
	Name     string
	Type     string
	Lifetime container.Lifetime
	Config   map[string]any
	Params   []container.Param
}

// Manifest is the ordered list of services read from a document.
type Manifest struct {
	Services []Service
}

// LoadFile reads a manifest from path.
func LoadFile(path string, defaultLifetime container.Lifetime) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer f.Close()
	return Load(f, defaultLifetime)
}

// Load decodes and validates a manifest. Entries without a scope get
// defaultLifetime. Every invalid entry is reported in the returned error.
func Load(r io.Reader, defaultLifetime container.Lifetime) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}

	m := &Manifest{Services: make([]Service, 0, len(doc.Services))}
	seen := make(map[string]int, len(doc.Services))
	var errs error
	for i, entry := range doc.Services {
		svc, err := entry.service(defaultLifetime)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("manifest: services[%d]: %w", i, err))
			continue
		}
		if prev, ok := seen[svc.Name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("manifest: services[%d]: %q already declared at services[%d]", i, svc.Name, prev))
			continue
		}
		seen[svc.Name] = i
		m.Services = append(m.Services, svc)
	}
	if errs != nil {
		return nil, errs
	}
	return m, nil
}

func (s serviceEntry) service(defaultLifetime container.Lifetime) (Service, error) {
	name := s.Name
	if name == "" {
		name = container.SnakeCase(s.Type)
	}
	if name == "" {
		return Service{}, errors.New("entry needs a name or a type")
	}

	lifetime := defaultLifetime
	if s.Scope != "" {
		l, err := container.ParseLifetime(s.Scope)
		if err != nil {
			return Service{}, fmt.Errorf("%q: %w", name, err)
		}
		lifetime = l
	}

	params := make([]container.Param, 0, len(s.Params))
	for j, ps := range s.Params {
		p, err := ps.param()
		if err != nil {
			return Service{}, fmt.Errorf("%q: params[%d]: %w", name, j, err)
		}
		params = append(params, p)
	}

	return Service{Name: name, Type: s.Type, Lifetime: lifetime, Config: s.Config, Params: params}, nil
}

func (ps paramEntry) param() (container.Param, error) {
	if ps.Name == "" {
		return container.Param{}, errors.New("param needs a name")
	}
	if ps.Type != "" && ps.Ref != "" {
		return container.Param{}, fmt.Errorf("param %q sets both type and ref", ps.Name)
	}

	var p container.Param
	switch {
	case ps.Ref != "":
		p = container.Ref(ps.Name, ps.Ref)
	case ps.Type != "":
		p = container.Typed(ps.Name, ps.Type)
	default:
		p = container.Param{Name: ps.Name, Ref: container.NoRef()}
	}
	if ps.Optional {
		p = p.AsOptional()
	}
	if !ps.Default.IsZero() {
		var v any
		if err := ps.Default.Decode(&v); err != nil {
			return container.Param{}, fmt.Errorf("param %q default: %w", ps.Name, err)
		}
		p = p.WithDefault(v)
	}
	return p, nil
}

// ── Descriptors ───────────────────────────────────────────────────────────────

// Constructors maps a service type, or a service name, to its constructor.
type Constructors map[string]container.Constructor

// Lookup returns the constructor for svc, preferring its type over its name.
func (c Constructors) Lookup(svc Service) (container.Constructor, bool) {
	if svc.Type != "" {
		if ctor, ok := c[svc.Type]; ok {
			return ctor, true
		}
	}
	ctor, ok := c[svc.Name]
	return ctor, ok
}

// Descriptor returns the container descriptor of svc with ctor attached.
func (s Service) Descriptor(ctor container.Constructor) container.Descriptor {
	return container.Descriptor{
		Name:        s.Name,
		Params:      s.Params,
		Lifetime:    s.Lifetime,
		Config:      s.Config,
		Constructor: ctor,
	}
}

// Descriptors returns one descriptor per service without constructors. They
// are enough for graph analysis through a container.Registry.
func (m *Manifest) Descriptors() []container.Descriptor {
	out := make([]container.Descriptor, 0, len(m.Services))
	for _, s := range m.Services {
		out = append(out, s.Descriptor(nil))
	}
	return out
}

// Bind attaches a constructor to every service. Services with no constructor
// are all reported in the returned error.
func (m *Manifest) Bind(ctors Constructors) ([]container.Descriptor, error) {
	out := make([]container.Descriptor, 0, len(m.Services))
	var errs error
	for _, s := range m.Services {
		ctor, ok := ctors.Lookup(s)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("manifest: no constructor for %q (type %q)", s.Name, s.Type))
			continue
		}
		out = append(out, s.Descriptor(ctor))
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}
