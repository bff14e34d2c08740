package invalidation

import (
	"fmt"

	"github.com/querylens/querylens/pkg/config"
)

// NewProviderFromConfig builds the transport named by configuration.
// The redis transport reuses the cache's Redis connection settings.
func NewProviderFromConfig(cfg config.InvalidationConfig, redisCfg config.RedisConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "memory":
		return NewMemoryProvider(), nil
	case "redis":
		return NewRedisProvider(RedisProviderConfig{
			Host:     redisCfg.Host,
			Port:     redisCfg.Port,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Channel:  cfg.Channel,
		})
	case "nats":
		return NewNATSProvider(NATSProviderConfig{
			URL:     cfg.NATSUrl,
			Subject: cfg.Channel,
		})
	default:
		return nil, fmt.Errorf("unknown invalidation provider: %s", cfg.Provider)
	}
}
