package config

import (
	"fmt"

	"github.com/rezkam/taskflow/internal/env"
)

// AuditConfig configures the audit service.
type AuditConfig struct {
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Observability ObservabilityConfig
	Bus           BusConfig
}

// LoadAudit parses the audit service configuration from the environment.
func LoadAudit() (*AuditConfig, error) {
	cfg := &AuditConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return nil, ErrPostgresDSNRequired
	}
	if cfg.Redis.Addr == "" {
		return nil, ErrRedisAddrRequired
	}
	return cfg, nil
}
