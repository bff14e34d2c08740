package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheProvider is a Memcache implementation of the Provider
// interface. Memcache has no server-side set structures, so the tag
// index lives in this process: each instance tracks the keys it wrote
// per tag and evicts those on DeleteByTag. Peer instances evict their
// own share when the invalidation bus rebroadcasts the tag.
type MemcacheProvider struct {
	client  *memcache.Client
	options *Options
	tags    *tagIndex
}

// MemcacheConfig contains Memcache-specific configuration.
type MemcacheConfig struct {
	Servers      []string
	MaxIdleConns int
	Timeout      time.Duration
	Options      *Options
}

// NewMemcacheProvider creates a new Memcache cache provider.
func NewMemcacheProvider(config *MemcacheConfig) (*MemcacheProvider, error) {
	if config == nil {
		config = &MemcacheConfig{}
	}
	if len(config.Servers) == 0 {
		config.Servers = []string{"localhost:11211"}
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 1 * time.Second
	}
	if config.Options == nil {
		config.Options = &Options{DefaultTTL: 5 * time.Minute}
	}

	client := memcache.New(config.Servers...)
	client.MaxIdleConns = config.MaxIdleConns
	client.Timeout = config.Timeout

	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to Memcache: %w", err)
	}

	return &MemcacheProvider{client: client, options: config.Options, tags: newTagIndex()}, nil
}

// Get retrieves a value from the cache by key.
func (m *MemcacheProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, false
	}
	return item.Value, true
}

// Set stores a value in the cache with the specified TTL.
func (m *MemcacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.options.DefaultTTL
	}
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ttl.Seconds()),
	})
}

// SetWithTags stores the value and records the key in the local tag
// index.
func (m *MemcacheProvider) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if err := m.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	m.tags.add(key, tags)
	return nil
}

// Delete removes a key from the cache.
func (m *MemcacheProvider) Delete(ctx context.Context, key string) error {
	m.tags.remove(key)

	err := m.client.Delete(key)
	if err == memcache.ErrCacheMiss {
		return nil
	}
	return err
}

// DeleteByTag evicts every key this instance wrote under the tag. The
// index is per-process; cross-instance coverage comes from the
// invalidation bus delivering the same tag to every peer.
func (m *MemcacheProvider) DeleteByTag(ctx context.Context, tag string) error {
	for _, key := range m.tags.take(tag) {
		if err := m.client.Delete(key); err != nil && err != memcache.ErrCacheMiss {
			return err
		}
	}
	return nil
}

// Clear removes all items from the cache.
func (m *MemcacheProvider) Clear(ctx context.Context) error {
	m.tags.reset()
	return m.client.FlushAll()
}

// Exists checks if a key exists in the cache.
func (m *MemcacheProvider) Exists(ctx context.Context, key string) bool {
	_, err := m.client.Get(key)
	return err == nil
}

// Close closes the provider and releases any resources.
func (m *MemcacheProvider) Close() error {
	// The memcache client has no close method
	return nil
}

// Stats returns statistics about the cache provider.
func (m *MemcacheProvider) Stats(ctx context.Context) (*CacheStats, error) {
	return &CacheStats{
		ProviderType: "memcache",
		ProviderStats: map[string]any{
			"tracked_tags": m.tags.size(),
			"note":         "Memcache does not expose detailed statistics through the standard client",
		},
	}, nil
}
