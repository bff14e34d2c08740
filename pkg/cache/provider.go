package cache

import (
	"context"
	"time"
)

// Provider defines the interface that all cache providers must implement.
type Provider interface {
	// Get retrieves a value from the cache by key.
	// Returns nil, false if key doesn't exist or is expired.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in the cache with the specified TTL.
	// If ttl is 0, the provider's default TTL applies.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetWithTags stores a value with tags that can later invalidate
	// groups of related keys (e.g. every result of one dataset).
	SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// DeleteByTag removes all keys associated with the given tag.
	DeleteByTag(ctx context.Context, tag string) error

	// Clear removes all items from the cache.
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) bool

	// Close closes the provider and releases any resources.
	Close() error

	// Stats returns statistics about the cache provider.
	Stats(ctx context.Context) (*CacheStats, error)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Hits          int64          `json:"hits"`
	Misses        int64          `json:"misses"`
	Keys          int64          `json:"keys"`
	ProviderType  string         `json:"provider_type"`
	ProviderStats map[string]any `json:"provider_stats,omitempty"`
}

// Options contains configuration options for cache providers.
type Options struct {
	// DefaultTTL is the default time-to-live for cache items.
	DefaultTTL time.Duration

	// MaxSize is the maximum number of items (for the memory provider).
	MaxSize int

	// SweepInterval is how often the memory provider evicts expired
	// items proactively. Zero disables the sweep.
	SweepInterval time.Duration
}
