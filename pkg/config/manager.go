package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Manager loads configuration from file and environment.
type Manager struct {
	v *viper.Viper
}

// NewManager creates a configuration manager with defaults applied.
// Configuration is read from config.yaml in the working directory,
// ./config, /etc/querylens or $HOME/.querylens, and every key can be
// overridden through QUERYLENS_-prefixed environment variables.
func NewManager() *Manager {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/querylens")
	v.AddConfigPath("$HOME/.querylens")

	v.SetEnvPrefix("QUERYLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &Manager{v: v}
}

// Option is a functional option for configuring the Manager.
type Option func(*Manager)

// WithConfigFile sets a specific config file path.
func WithConfigFile(path string) Option {
	return func(m *Manager) { m.v.SetConfigFile(path) }
}

// WithConfigPath adds a search path for config files.
func WithConfigPath(path string) Option {
	return func(m *Manager) { m.v.AddConfigPath(path) }
}

// NewManagerWithOptions creates a manager with custom options applied.
func NewManagerWithOptions(opts ...Option) *Manager {
	m := NewManager()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads configuration from file and environment. A missing config
// file is not an error; defaults and environment still apply.
func (m *Manager) Load() error {
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// GetConfig unmarshals the loaded configuration.
func (m *Manager) GetConfig() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("engine.query_timeout", 15*time.Second)
	v.SetDefault("engine.max_rows", 5000)

	v.SetDefault("cache.provider", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_items", 10000)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.memcache.servers", []string{"localhost:11211"})
	v.SetDefault("cache.memcache.timeout", 100*time.Millisecond)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "file:querylens.db?cache=shared")

	v.SetDefault("invalidation.provider", "memory")
	v.SetDefault("invalidation.channel", "querylens.invalidate")
	v.SetDefault("invalidation.nats_url", "nats://localhost:4222")

	v.SetDefault("logger.dev", false)
	v.SetDefault("logger.path", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "querylens")
	v.SetDefault("tracing.service_version", "dev")
	v.SetDefault("tracing.endpoint", "localhost:4317")

	v.SetDefault("error_tracking.enabled", false)
	v.SetDefault("error_tracking.provider", "noop")
	v.SetDefault("error_tracking.sample_rate", 1.0)
	v.SetDefault("error_tracking.traces_sample_rate", 0.0)

	v.SetDefault("middleware.rate_limit_rps", 50.0)
	v.SetDefault("middleware.rate_limit_burst", 100)
	v.SetDefault("middleware.max_request_size", int64(1<<20))
}
