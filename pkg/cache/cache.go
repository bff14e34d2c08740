package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/querylens/querylens/pkg/config"
)

// compressThreshold is the serialized size above which entries are
// gzip-compressed before being handed to the provider. Query results
// for wide tables compress well; small scorecard payloads are stored
// as-is.
const compressThreshold = 4096

var gzipMagic = []byte{0x1f, 0x8b}

// Cache wraps a Provider with JSON serialization and transparent
// compression of large entries.
type Cache struct {
	provider Provider
}

// NewCache creates a cache manager with the specified provider.
func NewCache(provider Provider) *Cache {
	return &Cache{provider: provider}
}

// NewFromConfig builds a Cache from application config.
func NewFromConfig(cfg config.CacheConfig) (*Cache, error) {
	opts := &Options{
		DefaultTTL:    cfg.TTL,
		MaxSize:       cfg.MaxItems,
		SweepInterval: time.Minute,
	}

	switch cfg.Provider {
	case "memory", "":
		return NewCache(NewMemoryProvider(opts)), nil
	case "redis":
		provider, err := NewRedisProvider(&RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Options:  opts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis provider: %w", err)
		}
		return NewCache(provider), nil
	case "memcache":
		provider, err := NewMemcacheProvider(&MemcacheConfig{
			Servers:      cfg.Memcache.Servers,
			MaxIdleConns: cfg.Memcache.MaxIdleConns,
			Timeout:      cfg.Memcache.Timeout,
			Options:      opts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Memcache provider: %w", err)
		}
		return NewCache(provider), nil
	default:
		return nil, fmt.Errorf("unknown cache provider: %s", cfg.Provider)
	}
}

// Get retrieves and deserializes a value from the cache.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, exists := c.provider.Get(ctx, key)
	if !exists {
		return fmt.Errorf("key not found: %s", key)
	}

	data, err := maybeDecompress(data)
	if err != nil {
		return fmt.Errorf("failed to decompress: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}
	return nil
}

// Set serializes and stores a value with the specified TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.SetWithTags(ctx, key, value, ttl, nil)
}

// SetWithTags serializes and stores a value with tags for group
// invalidation.
func (c *Cache) SetWithTags(ctx context.Context, key string, value interface{}, ttl time.Duration, tags []string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}

	if len(data) > compressThreshold {
		data, err = compress(data)
		if err != nil {
			return fmt.Errorf("failed to compress: %w", err)
		}
	}

	if len(tags) > 0 {
		return c.provider.SetWithTags(ctx, key, data, ttl, tags)
	}
	return c.provider.Set(ctx, key, data, ttl)
}

// Delete removes a key from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.provider.Delete(ctx, key)
}

// DeleteByTag removes every key carrying the given tag.
func (c *Cache) DeleteByTag(ctx context.Context, tag string) error {
	return c.provider.DeleteByTag(ctx, tag)
}

// Clear removes all items from the cache.
func (c *Cache) Clear(ctx context.Context) error {
	return c.provider.Clear(ctx)
}

// Exists checks if a key exists in the cache.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	return c.provider.Exists(ctx, key)
}

// Stats returns statistics about the cache.
func (c *Cache) Stats(ctx context.Context) (*CacheStats, error) {
	return c.provider.Stats(ctx)
}

// Close closes the cache and releases any resources.
func (c *Cache) Close() error {
	return c.provider.Close()
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func maybeDecompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
