package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// memoryItem represents a cached item in memory.
type memoryItem struct {
	Value      []byte
	Expiration time.Time
	LastAccess time.Time
	HitCount   int64
	Tags       []string
}

func (m *memoryItem) isExpired(now time.Time) bool {
	if m.Expiration.IsZero() {
		return false
	}
	return now.After(m.Expiration)
}

// MemoryProvider is an in-memory implementation of the Provider
// interface. Expiry is checked lazily on read; a background sweep
// additionally removes expired items so a long-running process stays
// bounded, and the MaxSize option enforces an LRU ceiling.
type MemoryProvider struct {
	mu        sync.RWMutex
	items     map[string]*memoryItem
	tagToKeys map[string]map[string]struct{} // tag -> set of keys
	options   *Options
	hits      atomic.Int64
	misses    atomic.Int64

	// now is replaceable for TTL tests.
	now func() time.Time

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// NewMemoryProvider creates a new in-memory cache provider.
func NewMemoryProvider(opts *Options) *MemoryProvider {
	if opts == nil {
		opts = &Options{
			DefaultTTL:    5 * time.Minute,
			MaxSize:       10000,
			SweepInterval: time.Minute,
		}
	}

	p := &MemoryProvider{
		items:     make(map[string]*memoryItem),
		tagToKeys: make(map[string]map[string]struct{}),
		options:   opts,
		now:       time.Now,
		sweepStop: make(chan struct{}),
	}

	if opts.SweepInterval > 0 {
		go p.sweepLoop(opts.SweepInterval)
	}

	return p
}

// Get retrieves a value from the cache by key.
func (m *MemoryProvider) Get(ctx context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	item, exists := m.items[key]
	if !exists {
		m.mu.RUnlock()
		m.misses.Add(1)
		return nil, false
	}

	if item.isExpired(m.now()) {
		m.mu.RUnlock()
		m.mu.Lock()
		m.removeLocked(key)
		m.mu.Unlock()
		m.misses.Add(1)
		return nil, false
	}

	value := item.Value
	m.mu.RUnlock()

	m.mu.Lock()
	item.LastAccess = m.now()
	item.HitCount++
	m.mu.Unlock()

	m.hits.Add(1)
	return value, true
}

// Set stores a value in the cache with the specified TTL.
func (m *MemoryProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.SetWithTags(ctx, key, value, ttl, nil)
}

// SetWithTags stores a value in the cache with the specified TTL and tags.
func (m *MemoryProvider) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl == 0 {
		ttl = m.options.DefaultTTL
	}

	var expiration time.Time
	if ttl > 0 {
		expiration = m.now().Add(ttl)
	}

	if m.options.MaxSize > 0 && len(m.items) >= m.options.MaxSize {
		if _, exists := m.items[key]; !exists {
			m.evictOneLocked()
		}
	}

	// Drop stale tag associations when overwriting
	if old, exists := m.items[key]; exists {
		m.dropTagsLocked(key, old.Tags)
	}

	m.items[key] = &memoryItem{
		Value:      value,
		Expiration: expiration,
		LastAccess: m.now(),
		Tags:       tags,
	}

	for _, tag := range tags {
		if m.tagToKeys[tag] == nil {
			m.tagToKeys[tag] = make(map[string]struct{})
		}
		m.tagToKeys[tag][key] = struct{}{}
	}

	return nil
}

// Delete removes a key from the cache.
func (m *MemoryProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
	return nil
}

// DeleteByTag removes all keys associated with the given tag.
func (m *MemoryProvider) DeleteByTag(ctx context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keySet, exists := m.tagToKeys[tag]
	if !exists {
		return nil
	}

	for key := range keySet {
		m.removeLocked(key)
	}
	delete(m.tagToKeys, tag)
	return nil
}

// Clear removes all items from the cache.
func (m *MemoryProvider) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]*memoryItem)
	m.tagToKeys = make(map[string]map[string]struct{})
	m.hits.Store(0)
	m.misses.Store(0)
	return nil
}

// Exists checks if a key exists in the cache.
func (m *MemoryProvider) Exists(ctx context.Context, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, exists := m.items[key]
	if !exists {
		return false
	}
	return !item.isExpired(m.now())
}

// Close stops the sweep goroutine and drops all items.
func (m *MemoryProvider) Close() error {
	m.sweepOnce.Do(func() { close(m.sweepStop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.tagToKeys = nil
	return nil
}

// Stats returns statistics about the cache provider.
func (m *MemoryProvider) Stats(ctx context.Context) (*CacheStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	validKeys := 0
	now := m.now()
	for _, item := range m.items {
		if !item.isExpired(now) {
			validKeys++
		}
	}

	return &CacheStats{
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
		Keys:         int64(validKeys),
		ProviderType: "memory",
		ProviderStats: map[string]any{
			"capacity": m.options.MaxSize,
		},
	}, nil
}

// CleanExpired removes all expired items and returns how many were
// dropped.
func (m *MemoryProvider) CleanExpired(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	now := m.now()
	for key, item := range m.items {
		if item.isExpired(now) {
			m.removeLocked(key)
			count++
		}
	}
	return count
}

func (m *MemoryProvider) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanExpired(context.Background())
		case <-m.sweepStop:
			return
		}
	}
}

// removeLocked deletes a key and its tag associations. Caller holds
// the write lock.
func (m *MemoryProvider) removeLocked(key string) {
	if item, exists := m.items[key]; exists {
		m.dropTagsLocked(key, item.Tags)
	}
	delete(m.items, key)
}

func (m *MemoryProvider) dropTagsLocked(key string, tags []string) {
	for _, tag := range tags {
		if keySet, ok := m.tagToKeys[tag]; ok {
			delete(keySet, key)
			if len(keySet) == 0 {
				delete(m.tagToKeys, tag)
			}
		}
	}
}

// evictOneLocked removes one item using LRU, preferring anything
// already expired. Caller holds the write lock.
func (m *MemoryProvider) evictOneLocked() {
	var oldestKey string
	var oldestTime time.Time
	now := m.now()

	for key, item := range m.items {
		if item.isExpired(now) {
			m.removeLocked(key)
			return
		}
		if oldestKey == "" || item.LastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.LastAccess
		}
	}

	if oldestKey != "" {
		m.removeLocked(oldestKey)
	}
}
