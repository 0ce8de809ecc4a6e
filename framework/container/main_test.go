package container_test

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/km-arc/go-boot/framework/container"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ── fixtures ──────────────────────────────────────────────────────────────────

type DatabaseClient struct{ DSN string }

type CacheService struct{}

type UserRepository struct{ DB *DatabaseClient }

type UserService struct {
	Repo  *UserRepository
	Cache *CacheService
}

// svc returns a descriptor whose constructor records args into a fresh *record.
func svc(name string, params ...container.Param) container.Descriptor {
	return container.Descriptor{
		Name:   name,
		Params: params,
		Constructor: func(args container.Arguments) (any, error) {
			return &record{name: name, args: args}, nil
		},
	}
}

// record is a generic instance that remembers what it was built with.
type record struct {
	name string
	args container.Arguments
}

func mustRegister(t *testing.T, c *container.Container, descs ...container.Descriptor) {
	t.Helper()
	for _, d := range descs {
		if err := c.RegisterService(d); err != nil {
			t.Fatalf("register %q: %v", d.Name, err)
		}
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
