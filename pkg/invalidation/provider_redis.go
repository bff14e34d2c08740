package invalidation

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/querylens/querylens/pkg/logger"
)

// RedisProvider broadcasts invalidation tags over a Redis pub-sub
// channel. Delivery is fire-and-forget: a missed message only means a
// peer serves one stale TTL window.
type RedisProvider struct {
	client     *redis.Client
	channel    string
	instanceID string

	mu   sync.Mutex
	subs []*redis.PubSub
}

// RedisProviderConfig configures the Redis transport.
type RedisProviderConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

// NewRedisProvider connects to Redis and verifies the connection.
func NewRedisProvider(cfg RedisProviderConfig) (*RedisProvider, error) {
	if cfg.Channel == "" {
		cfg.Channel = "querylens.invalidate"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisProvider{
		client:     client,
		channel:    cfg.Channel,
		instanceID: newInstanceID(),
	}, nil
}

// Publish implements Provider.
func (r *RedisProvider) Publish(tag string) error {
	data, err := encode(r.instanceID, tag)
	if err != nil {
		return err
	}
	return r.client.Publish(context.Background(), r.channel, data).Err()
}

// Subscribe implements Provider.
func (r *RedisProvider) Subscribe(handler Handler) error {
	ps := r.client.Subscribe(context.Background(), r.channel)

	r.mu.Lock()
	r.subs = append(r.subs, ps)
	r.mu.Unlock()

	go func() {
		for raw := range ps.Channel() {
			msg, err := decode([]byte(raw.Payload))
			if err != nil {
				logger.Warn("dropping malformed invalidation message: %v", err)
				continue
			}
			if msg.InstanceID == r.instanceID {
				continue
			}
			handler(msg.Tag)
		}
	}()

	return nil
}

// Close implements Provider.
func (r *RedisProvider) Close() error {
	r.mu.Lock()
	for _, ps := range r.subs {
		_ = ps.Close()
	}
	r.subs = nil
	r.mu.Unlock()
	return r.client.Close()
}
