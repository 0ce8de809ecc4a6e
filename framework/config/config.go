package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Container ContainerConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | console
}

type ContainerConfig struct {
	DefaultScope string // scope used by manifest entries that omit one
	Manifest     string // path to a service manifest, empty for none
	Metrics      bool   // export container metrics on /metrics
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "GoBoot"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			Port:  env("APP_PORT", "8000"),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "console"),
		},
		Container: ContainerConfig{
			DefaultScope: env("CONTAINER_DEFAULT_SCOPE", "singleton"),
			Manifest:     env("CONTAINER_MANIFEST", ""),
			Metrics:      envBool("CONTAINER_METRICS", true),
		},
	}
}

// Map flattens the configuration into dotted keys, the form handed to service
// constructors as config values.
func (c *Config) Map() map[string]any {
	return map[string]any{
		"app.name":                c.App.Name,
		"app.env":                 c.App.Env,
		"app.debug":               c.App.Debug,
		"app.port":                c.App.Port,
		"log.level":               c.Log.Level,
		"log.format":              c.Log.Format,
		"container.default_scope": c.Container.DefaultScope,
		"container.manifest":      c.Container.Manifest,
		"container.metrics":       c.Container.Metrics,
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
