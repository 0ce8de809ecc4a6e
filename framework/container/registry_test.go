package container_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-boot/framework/container"
)

func newRegistry(descs ...container.Descriptor) *container.Registry {
	r := container.NewRegistry(nil)
	for _, d := range descs {
		r.Register(d)
	}
	return r
}

// ── Dependencies / dependents ─────────────────────────────────────────────────

func TestRegistry_DependentsMirrorDependencies(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("database_client"),
		svc("user_repository", container.Typed("db", "DatabaseClient")),
		svc("audit_log", container.Typed("db", "DatabaseClient")),
	)

	assert.Equal(t, []string{"database_client"}, r.Dependencies("user_repository"))
	assert.Equal(t, []string{"user_repository", "audit_log"}, r.Dependents("database_client"))

	for _, name := range r.Names() {
		for _, dep := range r.Dependencies(name) {
			assert.Contains(t, r.Dependents(dep), name)
		}
		for _, dependent := range r.Dependents(name) {
			assert.Contains(t, r.Dependencies(dependent), name)
		}
	}
}

func TestRegistry_ForwardReferenceLinksLater(t *testing.T) {
	t.Parallel()

	r := newRegistry(svc("user_repository", container.Typed("db", "DatabaseClient")))
	assert.Equal(t, []string{"user_repository"}, r.Dependents("database_client"))
	assert.False(t, r.Has("database_client"))

	r.Register(svc("database_client"))

	order, err := r.InitializationOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"database_client", "user_repository"}, order)
}

func TestRegistry_ReRegisterReplacesEdges(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("alpha"),
		svc("beta"),
		svc("consumer", container.Typed("a", "Alpha")),
	)
	require.Equal(t, []string{"consumer"}, r.Dependents("alpha"))
	_ = r.BuildGraph()

	r.Register(svc("consumer", container.Typed("b", "Beta")))

	assert.Empty(t, r.Dependents("alpha"))
	assert.Equal(t, []string{"consumer"}, r.Dependents("beta"))
	assert.Equal(t, []string{"beta"}, r.BuildGraph()["consumer"], "graph cache must be invalidated")
	assert.Equal(t, []string{"alpha", "beta", "consumer"}, r.Names(), "position is kept")
}

// ── Graph ─────────────────────────────────────────────────────────────────────

func TestRegistry_BuildGraph_WarnsOnDanglingTarget(t *testing.T) {
	t.Parallel()

	r := newRegistry(svc("order_service", container.Typed("email", "EmailService")))

	graph := r.BuildGraph()
	assert.Equal(t, map[string][]string{"order_service": {"email_service"}}, graph)

	warnings := r.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], `"email_service"`)

	// Cached: a second call does not duplicate warnings.
	r.BuildGraph()
	assert.Len(t, r.Warnings(), 1)
}

func TestRegistry_BuildGraph_ReturnsCopy(t *testing.T) {
	t.Parallel()

	r := newRegistry(svc("a"), svc("b", container.Ref("a", "a")))
	g := r.BuildGraph()
	g["b"][0] = "mutated"

	assert.Equal(t, []string{"a"}, r.BuildGraph()["b"])
}

// ── Cycles ────────────────────────────────────────────────────────────────────

func TestRegistry_DetectCycles_ThreeNodes(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("a", container.Ref("b", "b")),
		svc("b", container.Ref("c", "c")),
		svc("c", container.Ref("a", "a")),
	)

	cycles := r.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0])
}

func TestRegistry_DetectCycles_SelfReference(t *testing.T) {
	t.Parallel()

	r := newRegistry(svc("a", container.Ref("me", "a")))
	assert.Equal(t, [][]string{{"a", "a"}}, r.DetectCycles())
}

func TestRegistry_DetectCycles_IgnoresDanglingAndAcyclic(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("a", container.Ref("ghost", "ghost")),
		svc("b", container.Ref("a", "a")),
		svc("c", container.Ref("a", "a"), container.Ref("b", "b")),
	)
	assert.Empty(t, r.DetectCycles())
}

func TestRegistry_DetectCycles_CycleBehindEntryNode(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("entry", container.Ref("x", "x")),
		svc("x", container.Ref("y", "y")),
		svc("y", container.Ref("x", "x")),
	)
	assert.Equal(t, [][]string{{"x", "y", "x"}}, r.DetectCycles())
}

// ── Initialization order ──────────────────────────────────────────────────────

func TestRegistry_InitializationOrder_RespectsEdges(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("d", container.Ref("b", "b"), container.Ref("c", "c")),
		svc("b", container.Ref("a", "a")),
		svc("c", container.Ref("a", "a")),
		svc("a"),
		svc("e"),
	)

	order, err := r.InitializationOrder()
	require.NoError(t, err)
	assert.ElementsMatch(t, r.Names(), order)

	for _, name := range r.Names() {
		for _, dep := range r.Dependencies(name) {
			assert.Less(t, indexOf(order, dep), indexOf(order, name), "%s must precede %s", dep, name)
		}
	}
}

func TestRegistry_InitializationOrder_TieBreakByRegistration(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("zeta"),
		svc("consumer", container.Ref("zeta", "zeta"), container.Ref("alpha", "alpha")),
		svc("alpha"),
		svc("mid", container.Ref("zeta", "zeta")),
	)

	order, err := r.InitializationOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid", "consumer"}, order)
}

func TestRegistry_InitializationOrder_Deterministic(t *testing.T) {
	t.Parallel()

	build := func() []string {
		r := newRegistry(
			svc("s1", container.Ref("s4", "s4")),
			svc("s2"),
			svc("s3", container.Ref("s2", "s2")),
			svc("s4", container.Ref("s2", "s2")),
			svc("s5"),
		)
		order, err := r.InitializationOrder()
		require.NoError(t, err)
		return order
	}

	first := build()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, build())
	}
}

func TestRegistry_InitializationOrder_CycleError(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("a", container.Ref("b", "b")),
		svc("b", container.Ref("a", "a")),
	)

	_, err := r.InitializationOrder()
	require.Error(t, err)

	var cycle *container.CircularDependencyError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"a", "b", "a"}, cycle.Cycle)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestRegistry_InitializationOrder_DanglingDoesNotBlock(t *testing.T) {
	t.Parallel()

	r := newRegistry(svc("user_service", container.Typed("cache", "CacheService").AsOptional()))

	order, err := r.InitializationOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"user_service"}, order)
}

// ── Overrides / validation / clear ────────────────────────────────────────────

func TestRegistry_Override_RewritesEdge(t *testing.T) {
	t.Parallel()

	r := newRegistry(
		svc("email_service"),
		svc("fake_email_service"),
		svc("order_service", container.Typed("email", "EmailService")),
	)
	r.Override("order_service", "email_service", "fake_email_service")

	assert.Equal(t, []string{"fake_email_service"}, r.Dependencies("order_service"))
	assert.Empty(t, r.Dependents("email_service"))
}

func TestRegistry_Validate_ReportsEveryGap(t *testing.T) {
	t.Parallel()

	r := newRegistry(svc("order_service",
		container.Typed("user", "UserService"),
		container.Typed("email", "EmailService"),
		container.Typed("cache", "CacheService").AsOptional(),
	))

	gaps := r.Gaps()
	require.Len(t, gaps, 2)
	assert.Equal(t, "user_service", gaps[0].Dependency)
	assert.Equal(t, "email_service", gaps[1].Dependency)

	err := r.Validate()
	require.Error(t, err)
	var missing *container.MissingDependencyError
	assert.True(t, errors.As(err, &missing))
}

func TestRegistry_Clear(t *testing.T) {
	t.Parallel()

	r := newRegistry(svc("a"), svc("b", container.Ref("a", "a")))
	r.Clear()

	assert.Empty(t, r.Names())
	assert.False(t, r.Has("a"))
	assert.Empty(t, r.Dependents("a"))
	assert.Empty(t, r.BuildGraph())
}
