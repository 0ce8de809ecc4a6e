package container

import (
	"regexp"
	"strings"
)

// ── DependencyRef ─────────────────────────────────────────────────────────────

type refKind uint8

const (
	refNone refKind = iota
	refExplicit
	refInferred
)

// DependencyRef says where a constructor parameter gets its value from:
// an explicitly named service, a service inferred from the declared type name,
// or nothing (plain value parameter fed from config or its default).
type DependencyRef struct {
	kind  refKind
	value string
}

// Explicit references a service by its registered name.
//
//	container.Explicit("email_service")
func Explicit(service string) DependencyRef { return DependencyRef{kind: refExplicit, value: service} }

// Inferred references a service through a declared type name.
// The service name is derived with SnakeCase.
//
//	container.Inferred("UserRepository") // -> "user_repository"
func Inferred(typeName string) DependencyRef { return DependencyRef{kind: refInferred, value: typeName} }

// NoRef marks a parameter that is not a dependency.
func NoRef() DependencyRef { return DependencyRef{} }

func (r DependencyRef) IsExplicit() bool { return r.kind == refExplicit }
func (r DependencyRef) IsInferred() bool { return r.kind == refInferred }
func (r DependencyRef) IsNone() bool     { return r.kind == refNone || r.value == "" }

// Target returns the explicit service name or the declared type name.
func (r DependencyRef) Target() string { return r.value }

// ── Param ─────────────────────────────────────────────────────────────────────

// Param statically describes one constructor parameter.
type Param struct {
	Name       string
	Ref        DependencyRef
	Optional   bool
	HasDefault bool
	Default    any
}

// Typed declares a parameter whose dependency is inferred from typeName.
//
//	container.Typed("db", "DatabaseClient")
func Typed(name, typeName string) Param {
	return Param{Name: name, Ref: Inferred(typeName)}
}

// Ref declares a parameter bound to an explicitly named service.
//
//	container.Ref("mailer", "email_service")
func Ref(name, service string) Param {
	return Param{Name: name, Ref: Explicit(service)}
}

// Value declares a plain parameter with a default value.
//
//	container.Value("retries", 3)
func Value(name string, def any) Param {
	return Param{Name: name, HasDefault: true, Default: def}
}

// AsOptional marks the parameter optional (Optional[T] / nullable).
// A missing optional dependency resolves to the default, nil if none was given.
func (p Param) AsOptional() Param {
	p.Optional = true
	return p
}

// WithDefault attaches a default value, which also makes the parameter optional.
func (p Param) WithDefault(v any) Param {
	p.HasDefault = true
	p.Default = v
	return p
}

// ── Signature ─────────────────────────────────────────────────────────────────

// ParamInfo is the inspected form of a Param.
type ParamInfo struct {
	Name string

	// Service is the inferred dependency target; empty for value parameters.
	Service string

	// TypeName is the declared type, empty for explicit references.
	TypeName string

	Explicit   bool
	Optional   bool
	HasDefault bool
	Default    any
}

// Signature is the ordered result of Inspect.
type Signature []ParamInfo

// Lookup finds a parameter by name.
func (s Signature) Lookup(param string) (ParamInfo, bool) {
	for _, p := range s {
		if p.Name == param {
			return p, true
		}
	}
	return ParamInfo{}, false
}

// Services returns the dependency targets in parameter order, without duplicates.
func (s Signature) Services() []string {
	out := make([]string, 0, len(s))
	seen := make(map[string]struct{}, len(s))
	for _, p := range s {
		if p.Service == "" {
			continue
		}
		if _, ok := seen[p.Service]; ok {
			continue
		}
		seen[p.Service] = struct{}{}
		out = append(out, p.Service)
	}
	return out
}

// receiverParam is the slot scanners emit for the implicit receiver.
const receiverParam = "self"

// Inspect turns a parameter list into a Signature. It is pure: the same input
// always yields the same output and nothing is resolved.
func Inspect(params []Param) Signature {
	sig := make(Signature, 0, len(params))
	for _, p := range params {
		if p.Name == receiverParam {
			continue
		}
		info := ParamInfo{
			Name:       p.Name,
			Optional:   p.Optional || p.HasDefault,
			HasDefault: p.HasDefault,
			Default:    p.Default,
		}
		switch {
		case p.Ref.IsNone():
		case p.Ref.IsExplicit():
			info.Service = p.Ref.Target()
			info.Explicit = true
		case p.Ref.IsInferred():
			info.TypeName = p.Ref.Target()
			info.Service = SnakeCase(p.Ref.Target())
		}
		sig = append(sig, info)
	}
	return sig
}

// ── Name transform ────────────────────────────────────────────────────────────

var (
	camelWord  = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	camelUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// SnakeCase derives a service name from a type name.
//
//	SnakeCase("UserService")        // "user_service"
//	SnakeCase("HTTPClient")         // "http_client"
//	SnakeCase("*shop.OrderService") // "order_service"
func SnakeCase(typeName string) string {
	name := strings.TrimLeft(strings.TrimSpace(typeName), "*[]&")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = camelWord.ReplaceAllString(name, "${1}_${2}")
	name = camelUpper.ReplaceAllString(name, "${1}_${2}")
	return strings.ToLower(name)
}
