package manifest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/km-arc/go-boot/framework/container"
	"github.com/km-arc/go-boot/framework/manifest"
)

func TestLoadFile_Shop(t *testing.T) {
	t.Parallel()

	m, err := manifest.LoadFile("testdata/shop.yaml", container.Singleton)
	require.NoError(t, err)
	require.Len(t, m.Services, 6)

	db := m.Services[0]
	assert.Equal(t, "database_client", db.Name)
	assert.Equal(t, "DatabaseClient", db.Type)
	assert.Equal(t, container.Singleton, db.Lifetime)
	assert.Equal(t, "postgres://localhost/shop", db.Config["dsn"])

	order := m.Services[5]
	assert.Equal(t, "order_service", order.Name)
	assert.Equal(t, container.Factory, order.Lifetime)

	sig := container.Inspect(order.Params)
	assert.Equal(t, []string{"user_service", "email_service"}, sig.Services())
	mailer, _ := sig.Lookup("mailer")
	assert.True(t, mailer.Explicit)
	retries, _ := sig.Lookup("retries")
	assert.True(t, retries.HasDefault)
	assert.Equal(t, 3, retries.Default)

	users := container.Inspect(m.Services[3].Params)
	cache, _ := users.Lookup("cache")
	assert.True(t, cache.Optional)
	assert.False(t, cache.HasDefault)
}

func TestLoad_DefaultLifetime(t *testing.T) {
	t.Parallel()

	m, err := manifest.Load(strings.NewReader("services:\n  - type: Clock\n"), container.Factory)
	require.NoError(t, err)
	assert.Equal(t, container.Factory, m.Services[0].Lifetime)
	assert.Equal(t, "clock", m.Services[0].Name)
}

func TestLoad_Empty(t *testing.T) {
	t.Parallel()

	m, err := manifest.Load(strings.NewReader(""), container.Singleton)
	require.NoError(t, err)
	assert.Empty(t, m.Services)
}

func TestLoad_ReportsEveryInvalidEntry(t *testing.T) {
	t.Parallel()

	doc := `
services:
  - config: {a: 1}
  - type: Clock
    scope: request
  - type: Mailer
    params:
      - { name: smtp, type: SMTPClient, ref: smtp_client }
  - type: Clock
`
	_, err := manifest.Load(strings.NewReader(doc), container.Singleton)
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "name or a type")
	assert.Contains(t, errs[1].Error(), `unknown scope "request"`)
	assert.Contains(t, errs[2].Error(), "both type and ref")
}

func TestLoad_DuplicateName(t *testing.T) {
	t.Parallel()

	doc := "services:\n  - type: Clock\n  - name: clock\n"
	_, err := manifest.Load(strings.NewReader(doc), container.Singleton)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared at services[0]")
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := manifest.Load(strings.NewReader("services:\n  - type: Clock\n    lifetime: factory\n"), container.Singleton)
	assert.Error(t, err)
}

func TestManifest_Bind(t *testing.T) {
	t.Parallel()

	m, err := manifest.LoadFile("testdata/shop.yaml", container.Singleton)
	require.NoError(t, err)

	ctor := func(args container.Arguments) (any, error) { return args, nil }
	ctors := manifest.Constructors{
		"DatabaseClient": ctor,
		"CacheService":   ctor,
		"UserRepository": ctor,
		"UserService":    ctor,
		"email_service":  ctor,
	}

	_, err = m.Bind(ctors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"order_service"`)

	ctors["OrderService"] = ctor
	descs, err := m.Bind(ctors)
	require.NoError(t, err)
	require.Len(t, descs, 6)

	c := container.New()
	for _, d := range descs {
		require.NoError(t, c.RegisterService(d))
	}
	res, err := c.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"database_client", "cache_service", "email_service",
		"user_repository", "user_service", "order_service",
	}, res.Order)

	got, err := container.Resolve[container.Arguments](c, "order_service")
	require.NoError(t, err)
	assert.Equal(t, 3, got["retries"])
}

func TestManifest_DescriptorsFeedRegistry(t *testing.T) {
	t.Parallel()

	m, err := manifest.LoadFile("testdata/shop.yaml", container.Singleton)
	require.NoError(t, err)

	r := container.NewRegistry(nil)
	for _, d := range m.Descriptors() {
		r.Register(d)
	}
	assert.NoError(t, r.Validate())
	assert.Equal(t, []string{"user_service"}, r.Dependents("user_repository"))
}
