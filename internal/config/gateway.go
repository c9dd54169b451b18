package config

import (
	"fmt"

	"github.com/rezkam/taskflow/internal/env"
)

// GatewayConfig configures the websocket gateway.
type GatewayConfig struct {
	HTTP          HTTPConfig
	Redis         RedisConfig
	Observability ObservabilityConfig
	Bus           BusConfig

	// Instance identifies this gateway in presence entries and in its
	// per-instance (broadcast) consumer group. Defaults to the hostname.
	Instance string `env:"TASKFLOW_GATEWAY_INSTANCE"`
}

// LoadGateway parses the gateway configuration from the environment.
func LoadGateway() (*GatewayConfig, error) {
	cfg := &GatewayConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Redis.Addr == "" {
		return nil, ErrRedisAddrRequired
	}
	return cfg, nil
}
