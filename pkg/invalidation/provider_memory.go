package invalidation

import "sync"

// MemoryProvider is an in-process loopback transport for single
// instance deployments and tests. Publish delivers to subscribers on
// the same process, mirroring how a peer would receive the message.
type MemoryProvider struct {
	mu       sync.RWMutex
	handlers []Handler
	closed   bool
}

// NewMemoryProvider creates a MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// Publish implements Provider.
func (m *MemoryProvider) Publish(tag string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}
	for _, h := range m.handlers {
		h(tag)
	}
	return nil
}

// Subscribe implements Provider.
func (m *MemoryProvider) Subscribe(handler Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
	return nil
}

// Close implements Provider.
func (m *MemoryProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.handlers = nil
	return nil
}
