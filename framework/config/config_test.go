package config_test

import (
	"os"
	"testing"

	"github.com/km-arc/go-boot/framework/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func setEnv(t *testing.T, key, val string) {
	t.Helper()
	t.Setenv(key, val) // automatically restored after test
}

// unsetEnv removes keys for the duration of the test so an env file can set them.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

var keys = []string{
	"APP_NAME", "APP_ENV", "APP_DEBUG", "APP_PORT",
	"LOG_LEVEL", "LOG_FORMAT",
	"CONTAINER_DEFAULT_SCOPE", "CONTAINER_MANIFEST", "CONTAINER_METRICS",
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, keys...)
	cfg := config.Load("testdata/empty.env")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "GoBoot"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "console"},
		{"Container.DefaultScope", cfg.Container.DefaultScope, "singleton"},
		{"Container.Manifest", cfg.Container.Manifest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	if !cfg.Container.Metrics {
		t.Error("expected Container.Metrics to default to true")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, keys...)
	cfg := config.Load("testdata/shop.env")

	if cfg.App.Name != "Shop" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "Shop")
	}
	if cfg.App.Port != "9100" {
		t.Errorf("App.Port: got %q want %q", cfg.App.Port, "9100")
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("Log: got %+v", cfg.Log)
	}
	if cfg.Container.DefaultScope != "factory" {
		t.Errorf("Container.DefaultScope: got %q want factory", cfg.Container.DefaultScope)
	}
	if cfg.Container.Manifest != "services.yaml" {
		t.Errorf("Container.Manifest: got %q", cfg.Container.Manifest)
	}
	if cfg.Container.Metrics {
		t.Error("expected Container.Metrics to be false")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	unsetEnv(t, keys...)
	setEnv(t, "APP_NAME", "MyApp")
	setEnv(t, "LOG_LEVEL", "warn")

	cfg := config.Load("testdata/shop.env")

	if cfg.App.Name != "MyApp" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "MyApp")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level: got %q want %q", cfg.Log.Level, "warn")
	}
	if cfg.App.Env != "testing" {
		t.Errorf("App.Env: got %q want %q", cfg.App.Env, "testing")
	}
}

func TestLoad_AppDebugFalse(t *testing.T) {
	setEnv(t, "APP_DEBUG", "false")
	cfg := config.Load("testdata/empty.env")
	if cfg.App.Debug {
		t.Error("expected App.Debug to be false")
	}
}

func TestConfig_Map(t *testing.T) {
	unsetEnv(t, keys...)
	m := config.Load("testdata/empty.env").Map()

	if m["app.name"] != "GoBoot" {
		t.Errorf("app.name: got %v", m["app.name"])
	}
	if m["container.metrics"] != true {
		t.Errorf("container.metrics: got %v", m["container.metrics"])
	}
	if _, ok := m["log.format"]; !ok {
		t.Error("log.format missing")
	}
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet_ReturnsValue(t *testing.T) {
	setEnv(t, "CUSTOM_KEY", "hello")
	if got := config.Get("CUSTOM_KEY", "default"); got != "hello" {
		t.Errorf("got %q want %q", got, "hello")
	}
}

func TestGet_ReturnsFallback(t *testing.T) {
	unsetEnv(t, "MISSING_KEY")
	if got := config.Get("MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("got %q want %q", got, "fallback")
	}
}

func TestGetInt_ReturnsInt(t *testing.T) {
	setEnv(t, "SOME_INT", "42")
	if got := config.GetInt("SOME_INT", 0); got != 42 {
		t.Errorf("got %d want %d", got, 42)
	}
}

func TestGetInt_ReturnsFallbackOnInvalid(t *testing.T) {
	setEnv(t, "SOME_INT", "notanint")
	if got := config.GetInt("SOME_INT", 99); got != 99 {
		t.Errorf("got %d want %d", got, 99)
	}
}

func TestGetBool_True(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		setEnv(t, "BOOL_KEY", val)
		if !config.GetBool("BOOL_KEY", false) {
			t.Errorf("expected true for %q", val)
		}
	}
}

func TestGetBool_ReturnsFallbackOnInvalid(t *testing.T) {
	setEnv(t, "BOOL_KEY", "notabool")
	if config.GetBool("BOOL_KEY", true) != true {
		t.Error("expected fallback true")
	}
}
