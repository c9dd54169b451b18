package config

import (
	"fmt"

	"github.com/rezkam/taskflow/internal/env"
)

// RecurringConfig configures the recurring-task service.
type RecurringConfig struct {
	HTTP          HTTPConfig
	Redis         RedisConfig
	Invocation    InvocationConfig
	Observability ObservabilityConfig
	Bus           BusConfig
}

// LoadRecurring parses the recurring-task service configuration from the
// environment.
func LoadRecurring() (*RecurringConfig, error) {
	cfg := &RecurringConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Redis.Addr == "" {
		return nil, ErrRedisAddrRequired
	}
	return cfg, nil
}
