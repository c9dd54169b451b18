// Package config loads per-service configuration from the environment.
// Each binary has its own Config struct composed of the shared sections
// below; required fields are validated per binary so a service refuses to
// start (non-zero exit) when its own dependencies are missing.
package config

import (
	"errors"
	"time"
)

// Required-dependency errors surfaced at startup.
var (
	ErrPostgresDSNRequired = errors.New("TASKFLOW_POSTGRES_DSN is required")
	ErrRedisAddrRequired   = errors.New("TASKFLOW_REDIS_ADDR is required")
	ErrJWTSecretRequired   = errors.New("TASKFLOW_JWT_SECRET is required")
)

// HTTPConfig holds the HTTP listener settings shared by every service.
type HTTPConfig struct {
	Host              string        `env:"TASKFLOW_HTTP_HOST"`
	Port              string        `env:"TASKFLOW_HTTP_PORT" default:"8080"`
	ReadTimeout       time.Duration `env:"TASKFLOW_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout      time.Duration `env:"TASKFLOW_HTTP_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout       time.Duration `env:"TASKFLOW_HTTP_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout   time.Duration `env:"TASKFLOW_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxBodyBytes      int64         `env:"TASKFLOW_HTTP_MAX_BODY_BYTES"`
	ReadHeaderTimeout time.Duration `env:"TASKFLOW_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
}

// PostgresConfig holds database connection settings. Only the command and
// audit services open a database.
type PostgresConfig struct {
	DSN             string        `env:"TASKFLOW_POSTGRES_DSN"`
	MaxOpenConns    int           `env:"TASKFLOW_POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `env:"TASKFLOW_POSTGRES_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `env:"TASKFLOW_POSTGRES_CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `env:"TASKFLOW_POSTGRES_CONN_MAX_IDLE_TIME"`
}

// RedisConfig holds the shared bus/KV connection settings.
type RedisConfig struct {
	Addr     string `env:"TASKFLOW_REDIS_ADDR" default:"localhost:6379"`
	Password string `env:"TASKFLOW_REDIS_PASSWORD"`
	DB       int    `env:"TASKFLOW_REDIS_DB"`
}

// SchedulerConfig holds the job-scheduler sidecar settings.
type SchedulerConfig struct {
	BaseURL string `env:"TASKFLOW_SCHEDULER_BASE_URL" default:"http://localhost:3500"`
}

// InvocationConfig holds the service-invocation sidecar settings.
type InvocationConfig struct {
	BaseURL      string `env:"TASKFLOW_INVOCATION_BASE_URL" default:"http://localhost:3500"`
	CommandAppID string `env:"TASKFLOW_COMMAND_APP_ID" default:"command-service"`
}

// AuthConfig holds the bearer-token settings.
type AuthConfig struct {
	JWTSecret string        `env:"TASKFLOW_JWT_SECRET"`
	TokenTTL  time.Duration `env:"TASKFLOW_JWT_TTL" default:"24h"`
}

// ObservabilityConfig toggles the OpenTelemetry pipeline; exporter
// endpoints come from the standard OTEL_* environment variables.
type ObservabilityConfig struct {
	Enabled bool `env:"TASKFLOW_OTEL_ENABLED" default:"false"`
}

// BusConfig tunes the stream subscriber loops.
type BusConfig struct {
	BlockTimeout   time.Duration `env:"TASKFLOW_BUS_BLOCK_TIMEOUT" default:"5s"`
	ReclaimMinIdle time.Duration `env:"TASKFLOW_BUS_RECLAIM_MIN_IDLE" default:"30s"`
}
