package invalidation

import (
	"context"

	"github.com/querylens/querylens/pkg/logger"
)

// TagEvictor evicts cached entries by tag.
type TagEvictor interface {
	DeleteByTag(ctx context.Context, tag string) error
}

// Bus ties a transport to the local cache: outgoing invalidations are
// published, incoming ones evict locally.
type Bus struct {
	provider Provider
	evictor  TagEvictor
}

// NewBus subscribes the cache to the transport and returns the bus.
func NewBus(provider Provider, evictor TagEvictor) (*Bus, error) {
	bus := &Bus{provider: provider, evictor: evictor}

	err := provider.Subscribe(func(tag string) {
		if err := evictor.DeleteByTag(context.Background(), tag); err != nil {
			logger.Warn("evicting tag %s from peer invalidation: %v", tag, err)
		}
	})
	if err != nil {
		return nil, err
	}

	return bus, nil
}

// Invalidate broadcasts a tag to peer instances.
func (b *Bus) Invalidate(tag string) error {
	return b.provider.Publish(tag)
}

// Close tears down the transport.
func (b *Bus) Close() error {
	return b.provider.Close()
}
