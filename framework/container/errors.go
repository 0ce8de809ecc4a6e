package container

import (
	"errors"
	"strconv"
	"strings"
)

// ── Sentinels ─────────────────────────────────────────────────────────────────

var (
	// ErrNotBuilt is returned by Resolve when the service is registered but the
	// container has not been built, or its last build failed.
	ErrNotBuilt = errors.New("container: not built")

	// ErrContainerBuilt is returned when registrations are attempted after a
	// successful Build. Call Clear to start over.
	ErrContainerBuilt = errors.New("container: already built")

	// ErrInvalidDescriptor is returned for descriptors without a name or constructor.
	ErrInvalidDescriptor = errors.New("container: invalid descriptor")
)

// ── Typed errors ──────────────────────────────────────────────────────────────

// CircularDependencyError is returned by InitializationOrder (and therefore Build)
// when the dependency graph contains a cycle.
//
// Cycle is the ordered path and ends with its first element: [a b c a].
type CircularDependencyError struct {
	Cycle []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	// Example: container: circular dependency detected: a -> b -> a
	return "container: circular dependency detected: " + strings.Join(e.Cycle, " -> ")
}

// UnknownServiceError is returned by Resolve for a name that was never registered.
type UnknownServiceError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownServiceError) Error() string {
	return "container: service " + strconv.Quote(e.Name) + " is not registered"
}

// MissingDependencyError is returned by Build when a required parameter points at
// a service that was never registered.
type MissingDependencyError struct {
	Service    string
	Param      string
	Dependency string
}

// Error implements the error interface.
func (e *MissingDependencyError) Error() string {
	// Example: container: service "order_service" requires "user_service" (param "user") which is not registered
	return "container: service " + strconv.Quote(e.Service) +
		" requires " + strconv.Quote(e.Dependency) +
		" (param " + strconv.Quote(e.Param) + ") which is not registered"
}

// ConstructionError wraps a failure raised while building an instance: the
// service's own constructor failing or panicking, or one of its dependencies
// failing to construct (Param is then set).
type ConstructionError struct {
	Service string
	Param   string
	Err     error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	var b strings.Builder
	b.WriteString("container: construct ")
	b.WriteString(strconv.Quote(e.Service))
	if e.Param != "" {
		b.WriteString(" (param ")
		b.WriteString(strconv.Quote(e.Param))
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

// Unwrap returns the original cause.
func (e *ConstructionError) Unwrap() error { return e.Err }
