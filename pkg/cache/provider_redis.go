package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProvider is a Redis implementation of the Provider interface.
// Tag sets are kept as Redis sets alongside the cached values so that
// DeleteByTag works across instances.
type RedisProvider struct {
	client  *redis.Client
	options *Options
}

// RedisConfig contains Redis-specific configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Options  *Options
}

// NewRedisProvider creates a new Redis cache provider.
func NewRedisProvider(config *RedisConfig) (*RedisProvider, error) {
	if config == nil {
		config = &RedisConfig{}
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 6379
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}
	if config.Options == nil {
		config.Options = &Options{DefaultTTL: 5 * time.Minute}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisProvider{client: client, options: config.Options}, nil
}

// Get retrieves a value from the cache by key.
func (r *RedisProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores a value in the cache with the specified TTL.
func (r *RedisProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.options.DefaultTTL
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// SetWithTags stores a value and records the key in each tag's set.
func (r *RedisProvider) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if ttl == 0 {
		ttl = r.options.DefaultTTL
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, value, ttl)

	for _, tag := range tags {
		tagKey := tagSetKey(tag)
		pipe.SAdd(ctx, tagKey, key)
		// Tag sets outlive their members so DeleteByTag still finds
		// keys set shortly before expiry.
		if ttl > 0 {
			pipe.Expire(ctx, tagKey, ttl+time.Hour)
		}
	}

	if len(tags) > 0 {
		tagsKey := keyTagsKey(key)
		pipe.SAdd(ctx, tagsKey, tags)
		if ttl > 0 {
			pipe.Expire(ctx, tagsKey, ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes a key and its tag associations.
func (r *RedisProvider) Delete(ctx context.Context, key string) error {
	pipe := r.client.Pipeline()

	tagsKey := keyTagsKey(key)
	tags, err := r.client.SMembers(ctx, tagsKey).Result()
	if err == nil && len(tags) > 0 {
		for _, tag := range tags {
			pipe.SRem(ctx, tagSetKey(tag), key)
		}
		pipe.Del(ctx, tagsKey)
	}

	pipe.Del(ctx, key)

	_, err = pipe.Exec(ctx)
	return err
}

// DeleteByTag removes all keys associated with the given tag.
func (r *RedisProvider) DeleteByTag(ctx context.Context, tag string) error {
	tagKey := tagSetKey(tag)

	keys, err := r.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
		pipe.Del(ctx, keyTagsKey(key))
	}
	pipe.Del(ctx, tagKey)

	_, err = pipe.Exec(ctx)
	return err
}

// Clear removes all items from the cache.
func (r *RedisProvider) Clear(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

// Exists checks if a key exists in the cache.
func (r *RedisProvider) Exists(ctx context.Context, key string) bool {
	result, err := r.client.Exists(ctx, key).Result()
	return err == nil && result > 0
}

// Close closes the provider and releases any resources.
func (r *RedisProvider) Close() error {
	return r.client.Close()
}

// Stats returns statistics about the cache provider.
func (r *RedisProvider) Stats(ctx context.Context) (*CacheStats, error) {
	info, err := r.client.Info(ctx, "stats", "keyspace").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis stats: %w", err)
	}

	dbSize, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB size: %w", err)
	}

	return &CacheStats{
		Keys:         dbSize,
		ProviderType: "redis",
		ProviderStats: map[string]any{
			"info": info,
		},
	}, nil
}

func tagSetKey(tag string) string  { return "cache:tag:" + tag }
func keyTagsKey(key string) string { return "cache:tags:" + key }
