package config

import (
	"fmt"

	"github.com/rezkam/taskflow/internal/env"
)

// NotificationConfig configures the notification service.
type NotificationConfig struct {
	HTTP          HTTPConfig
	Redis         RedisConfig
	Scheduler     SchedulerConfig
	Observability ObservabilityConfig
	Bus           BusConfig
}

// LoadNotification parses the notification service configuration from the
// environment.
func LoadNotification() (*NotificationConfig, error) {
	cfg := &NotificationConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Redis.Addr == "" {
		return nil, ErrRedisAddrRequired
	}
	return cfg, nil
}
