package config

import (
	"fmt"
	"time"

	"github.com/rezkam/taskflow/internal/env"
)

// CommandConfig configures the command service: the authoritative task
// store, the event producer, and the outbox relay.
type CommandConfig struct {
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Scheduler     SchedulerConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Bus           BusConfig

	// Outbox relay tuning.
	OutboxPollInterval time.Duration `env:"TASKFLOW_OUTBOX_POLL_INTERVAL" default:"1s"`
	OutboxBatchSize    int           `env:"TASKFLOW_OUTBOX_BATCH_SIZE" default:"50"`
	OutboxMaxAttempts  int           `env:"TASKFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// LoadCommand parses the command service configuration from the
// environment.
func LoadCommand() (*CommandConfig, error) {
	cfg := &CommandConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *CommandConfig) validate() error {
	if c.Postgres.DSN == "" {
		return ErrPostgresDSNRequired
	}
	if c.Redis.Addr == "" {
		return ErrRedisAddrRequired
	}
	if c.Auth.JWTSecret == "" {
		return ErrJWTSecretRequired
	}
	return nil
}
