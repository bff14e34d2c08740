package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Engine        EngineConfig        `mapstructure:"engine"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Store         StoreConfig         `mapstructure:"store"`
	Invalidation  InvalidationConfig  `mapstructure:"invalidation"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
	ErrorTracking ErrorTrackingConfig `mapstructure:"error_tracking"`
	Middleware    MiddlewareConfig    `mapstructure:"middleware"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EngineConfig bounds query execution.
type EngineConfig struct {
	// QueryTimeout is the hard wall-clock ceiling per backend query.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`

	// MaxRows caps how many rows a single query may return.
	MaxRows int `mapstructure:"max_rows"`

	// CredentialKey decrypts stored connection credentials. Base64 of
	// 32 bytes, or an arbitrary passphrase.
	CredentialKey string `mapstructure:"credential_key"`
}

// CacheConfig selects and configures the result cache provider.
type CacheConfig struct {
	Provider string         `mapstructure:"provider"` // memory, redis, memcache
	TTL      time.Duration  `mapstructure:"ttl"`
	MaxItems int            `mapstructure:"max_items"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Memcache MemcacheConfig `mapstructure:"memcache"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MemcacheConfig holds Memcache connection settings.
type MemcacheConfig struct {
	Servers      []string      `mapstructure:"servers"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StoreConfig configures the metadata store holding connections,
// datasets and widgets.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // postgres, sqlite
	DSN    string `mapstructure:"dsn"`
}

// InvalidationConfig selects the cross-instance cache invalidation bus.
type InvalidationConfig struct {
	Provider string `mapstructure:"provider"` // memory, redis, nats
	NATSUrl  string `mapstructure:"nats_url"`
	Channel  string `mapstructure:"channel"`
}

// LoggerConfig holds logger settings.
type LoggerConfig struct {
	Dev  bool   `mapstructure:"dev"`
	Path string `mapstructure:"path"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Endpoint       string `mapstructure:"endpoint"`
}

// ErrorTrackingConfig holds error tracker settings.
type ErrorTrackingConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Provider         string  `mapstructure:"provider"` // sentry, noop
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	Release          string  `mapstructure:"release"`
	Debug            bool    `mapstructure:"debug"`
	SampleRate       float64 `mapstructure:"sample_rate"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// MiddlewareConfig holds HTTP middleware settings.
type MiddlewareConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRequestSize int64   `mapstructure:"max_request_size"`
}
