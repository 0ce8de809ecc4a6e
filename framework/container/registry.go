package container

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registry stores service descriptors and derives the dependency graph from
// their signatures. It is not safe for concurrent use; the Container serializes
// access to it.
type Registry struct {
	logger *zap.Logger

	names       []string       // registration order
	position    map[string]int // name → index in names
	descriptors map[string]Descriptor
	signatures  map[string]Signature

	// dependencies[a] lists what a depends on, in parameter order.
	dependencies map[string][]string
	// dependents[b] lists who depends on b; may hold names not (yet) registered.
	dependents map[string]map[string]struct{}

	// overrides[concrete][needs] = give
	overrides map[string]map[string]string

	graph    map[string][]string
	warnings []string
}

// NewRegistry creates an empty registry. A nil logger is replaced by a no-op one.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.names = nil
	r.position = make(map[string]int)
	r.descriptors = make(map[string]Descriptor)
	r.signatures = make(map[string]Signature)
	r.dependencies = make(map[string][]string)
	r.dependents = make(map[string]map[string]struct{})
	r.overrides = make(map[string]map[string]string)
	r.graph = nil
	r.warnings = nil
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register stores desc under desc.Name and recomputes its dependencies.
// Registering an existing name replaces the previous descriptor but keeps its
// place in registration order.
func (r *Registry) Register(desc Descriptor) {
	name := desc.Name
	if _, ok := r.position[name]; !ok {
		r.position[name] = len(r.names)
		r.names = append(r.names, name)
	}
	r.descriptors[name] = desc
	r.signatures[name] = Inspect(desc.Params)
	if _, ok := r.dependents[name]; !ok {
		r.dependents[name] = make(map[string]struct{})
	}
	r.analyze(name)
}

// analyze rebuilds the edges leaving name.
func (r *Registry) analyze(name string) {
	for _, old := range r.dependencies[name] {
		delete(r.dependents[old], name)
	}

	deps := r.targets(name)
	r.dependencies[name] = deps
	for _, dep := range deps {
		if _, ok := r.dependents[dep]; !ok {
			r.dependents[dep] = make(map[string]struct{})
		}
		r.dependents[dep][name] = struct{}{}
	}
	r.graph = nil
}

// targets returns the dependency names of a service after contextual overrides.
func (r *Registry) targets(name string) []string {
	sig := r.signatures[name]
	out := make([]string, 0, len(sig))
	seen := make(map[string]struct{}, len(sig))
	for _, p := range sig {
		dep := r.target(name, p)
		if dep == "" {
			continue
		}
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}
	return out
}

// target is the service a parameter of name resolves to, "" for value params.
func (r *Registry) target(name string, p ParamInfo) string {
	if p.Service == "" {
		return ""
	}
	if give, ok := r.overrides[name][p.Service]; ok {
		return give
	}
	return p.Service
}

// Override makes concrete receive give wherever it needs needs.
func (r *Registry) Override(concrete, needs, give string) {
	if _, ok := r.overrides[concrete]; !ok {
		r.overrides[concrete] = make(map[string]string)
	}
	r.overrides[concrete][needs] = give
	if _, ok := r.descriptors[concrete]; ok {
		r.analyze(concrete)
	}
}

// ── Queries ───────────────────────────────────────────────────────────────────

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.descriptors[name]
	return ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Descriptor returns the registered descriptor for name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Signature returns the inspected parameters of name.
func (r *Registry) Signature(name string) Signature {
	return r.signatures[name]
}

// Dependencies returns what name depends on, in parameter order.
func (r *Registry) Dependencies(name string) []string {
	return append([]string(nil), r.dependencies[name]...)
}

// Dependents returns who depends on name, in registration order.
func (r *Registry) Dependents(name string) []string {
	set := r.dependents[name]
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return r.position[out[i]] < r.position[out[j]] })
	return out
}

// Warnings returns the warnings recorded by BuildGraph and InitializationOrder.
func (r *Registry) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// Clear drops every registration, override and cached graph.
func (r *Registry) Clear() {
	r.reset()
}

// ── Graph ─────────────────────────────────────────────────────────────────────

// BuildGraph returns the adjacency map name → dependencies. The result is cached
// until the next registration; each call returns a fresh copy.
func (r *Registry) BuildGraph() map[string][]string {
	if r.graph == nil {
		r.warnings = nil
		r.graph = make(map[string][]string, len(r.names))
		for _, name := range r.names {
			deps := r.dependencies[name]
			for _, dep := range deps {
				if !r.Has(dep) {
					r.warn(fmt.Sprintf("service %q depends on %q which is not registered", name, dep),
						zap.String("service", name), zap.String("dependency", dep))
				}
			}
			r.graph[name] = deps
		}
	}

	out := make(map[string][]string, len(r.graph))
	for k, v := range r.graph {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (r *Registry) warn(msg string, fields ...zap.Field) {
	r.warnings = append(r.warnings, msg)
	r.logger.Warn(msg, fields...)
}

// DetectCycles returns every cycle found by a depth-first walk started from each
// unvisited service in registration order. Unregistered targets are not followed.
func (r *Registry) DetectCycles() [][]string {
	graph := r.BuildGraph()

	var (
		cycles  [][]string
		visited = make(map[string]bool, len(r.names))
		onStack = make(map[string]int, len(r.names)) // name → index in path
		path    []string
	)

	var visit func(node string)
	visit = func(node string) {
		if i, ok := onStack[node]; ok {
			cycle := append(append([]string(nil), path[i:]...), node)
			cycles = append(cycles, cycle)
			return
		}
		if visited[node] {
			return
		}
		visited[node] = true
		onStack[node] = len(path)
		path = append(path, node)

		for _, next := range graph[node] {
			if r.Has(next) {
				visit(next)
			}
		}

		delete(onStack, node)
		path = path[:len(path)-1]
	}

	for _, name := range r.names {
		if !visited[name] {
			visit(name)
		}
	}
	return cycles
}

// InitializationOrder returns every registered service so that each comes after
// all of its registered dependencies. Ties are broken by registration order.
func (r *Registry) InitializationOrder() ([]string, error) {
	if cycles := r.DetectCycles(); len(cycles) > 0 {
		return nil, &CircularDependencyError{Cycle: cycles[0]}
	}
	graph := r.BuildGraph()

	inDegree := make(map[string]int, len(r.names))
	for _, name := range r.names {
		for _, dep := range graph[name] {
			if r.Has(dep) {
				inDegree[name]++
			}
		}
	}

	queue := make([]string, 0, len(r.names))
	for _, name := range r.names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(r.names))
	placed := make(map[string]bool, len(r.names))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)
		placed[name] = true

		for _, dependent := range r.Dependents(name) {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) < len(r.names) {
		var remaining []string
		for _, name := range r.names {
			if !placed[name] {
				remaining = append(remaining, name)
			}
		}
		r.warn(fmt.Sprintf("initialization order undetermined for %v; appended in registration order", remaining),
			zap.Strings("services", remaining))
		order = append(order, remaining...)
	}
	return order, nil
}

// ── Validation ────────────────────────────────────────────────────────────────

// Gaps returns a MissingDependencyError for every required parameter whose
// target is not registered, in registration and parameter order.
func (r *Registry) Gaps() []*MissingDependencyError {
	var gaps []*MissingDependencyError
	for _, name := range r.names {
		for _, p := range r.signatures[name] {
			dep := r.target(name, p)
			if dep == "" || p.Optional || r.Has(dep) {
				continue
			}
			gaps = append(gaps, &MissingDependencyError{Service: name, Param: p.Name, Dependency: dep})
		}
	}
	return gaps
}

// Validate checks the registrations without constructing anything: it reports
// the first cycle and every required dependency that is not registered.
func (r *Registry) Validate() error {
	var err error
	if cycles := r.DetectCycles(); len(cycles) > 0 {
		err = multierr.Append(err, &CircularDependencyError{Cycle: cycles[0]})
	}
	for _, gap := range r.Gaps() {
		err = multierr.Append(err, gap)
	}
	return err
}
