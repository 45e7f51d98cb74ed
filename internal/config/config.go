package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Event bus implementations
const (
	EventBusAuto   = "auto"
	EventBusMemory = "memory"
	EventBusRedis  = "redis"
)

// Config holds all configuration for diun2homer
type Config struct {
	// Debug enables debug logging and the debug log file
	Debug    Flag   `env:"DEBUG" envDefault:"false"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server configuration
	HTTPPort int `env:"DIUN2HOMER_HTTP_PORT" envDefault:"8000"`
	GRPCPort int `env:"DIUN2HOMER_GRPC_PORT" envDefault:"0"`

	// Persistent data
	DataDir      string `env:"DATA_DIR" envDefault:"/app/data"`
	DebugLogFile string `env:"DEBUG_LOG_FILE" envDefault:"debug.log"`

	Storage   StorageConfig
	Redis     RedisConfig
	Webhook   WebhookConfig
	Homer     HomerConfig
	Retention RetentionConfig
	Timeouts  TimeoutConfig

	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// StorageConfig selects where notifications are persisted
type StorageConfig struct {
	Backend    string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH"`
	EventBus   string `env:"EVENT_BUS" envDefault:"auto"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password  string `env:"REDIS_PASS"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"diun2homer"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// WebhookConfig configures the Diun-facing endpoint
type WebhookConfig struct {
	Token           string `env:"WEBHOOK_TOKEN"`
	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`
}

// HomerConfig configures the Homer-facing endpoints
type HomerConfig struct {
	Limit int `env:"HOMER_LIMIT" envDefault:"0"`
}

// RetentionConfig bounds how many notifications are kept
type RetentionConfig struct {
	MaxEvents int           `env:"RETENTION_MAX_EVENTS" envDefault:"0"`
	MaxAge    time.Duration `env:"RETENTION_MAX_AGE" envDefault:"0s"`
	Interval  time.Duration `env:"RETENTION_INTERVAL" envDefault:"1h"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	Shutdown   time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"10s"`
	ReadHeader time.Duration `env:"TIMEOUT_READ_HEADER" envDefault:"5s"`
}

// Flag is a boolean that only accepts the literal "true" (any case) as
// true. Every other value, including garbage, is false.
type Flag bool

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Flag) UnmarshalText(text []byte) error {
	*f = Flag(strings.EqualFold(strings.TrimSpace(string(text)), "true"))
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.GRPCPort != 0 && c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("gRPC port must differ from HTTP port")
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.DataDir == "" && c.Storage.SQLitePath == "" {
			return fmt.Errorf("DATA_DIR or SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported storage backend: %s (must be sqlite, redis, or memory)", c.Storage.Backend)
	}

	switch c.Storage.EventBus {
	case EventBusAuto, EventBusMemory:
	case EventBusRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis event bus")
		}
	default:
		return fmt.Errorf("unsupported event bus: %s (must be auto, memory, or redis)", c.Storage.EventBus)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.Homer.Limit < 0 {
		return fmt.Errorf("homer limit must not be negative")
	}
	if c.Retention.MaxEvents < 0 {
		return fmt.Errorf("retention max events must not be negative")
	}
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("retention max age must not be negative")
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("retention interval must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive")
	}
	if c.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	return nil
}

// IsDebug reports whether debug mode is on
func (c *Config) IsDebug() bool {
	return bool(c.Debug)
}

// EffectiveLogLevel returns the log level after applying DEBUG
func (c *Config) EffectiveLogLevel() string {
	if c.IsDebug() {
		return "debug"
	}
	return c.LogLevel
}

// DatabasePath returns the SQLite database file path
func (c *Config) DatabasePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.DataDir, "diun2homer.db")
}

// DebugLogPath returns the debug log file path
func (c *Config) DebugLogPath() string {
	if c.DebugLogFile == "" || filepath.IsAbs(c.DebugLogFile) {
		return c.DebugLogFile
	}
	return filepath.Join(c.DataDir, c.DebugLogFile)
}

// UseRedisEvents reports whether the Redis Streams event bus should be used
func (c *Config) UseRedisEvents() bool {
	switch c.Storage.EventBus {
	case EventBusRedis:
		return true
	case EventBusAuto:
		return c.Storage.Backend == BackendRedis
	default:
		return false
	}
}

// NeedsRedis reports whether a Redis client must be created
func (c *Config) NeedsRedis() bool {
	return c.Storage.Backend == BackendRedis || c.UseRedisEvents()
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
