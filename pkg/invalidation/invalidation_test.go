package invalidation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvictor struct {
	mu   sync.Mutex
	tags []string
	err  error
}

func (f *fakeEvictor) DeleteByTag(_ context.Context, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tag)
	return f.err
}

func (f *fakeEvictor) evicted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tags...)
}

func TestMemoryProviderDeliversToSubscribers(t *testing.T) {
	provider := NewMemoryProvider()

	var got []string
	err := provider.Subscribe(func(tag string) {
		got = append(got, tag)
	})
	require.NoError(t, err)

	require.NoError(t, provider.Publish("dataset:ds1"))
	require.NoError(t, provider.Publish("connection:conn1"))

	assert.Equal(t, []string{"dataset:ds1", "connection:conn1"}, got)
}

func TestMemoryProviderClosedDropsMessages(t *testing.T) {
	provider := NewMemoryProvider()

	delivered := false
	require.NoError(t, provider.Subscribe(func(string) { delivered = true }))
	require.NoError(t, provider.Close())

	require.NoError(t, provider.Publish("dataset:ds1"))
	assert.False(t, delivered)
}

func TestBusEvictsOnPeerMessage(t *testing.T) {
	provider := NewMemoryProvider()
	evictor := &fakeEvictor{}

	bus, err := NewBus(provider, evictor)
	require.NoError(t, err)
	defer bus.Close()

	require.NoError(t, bus.Invalidate("dataset:ds1"))

	assert.Equal(t, []string{"dataset:ds1"}, evictor.evicted())
}

func TestMessageRoundTrip(t *testing.T) {
	data, err := encode("instance-a", "org:acme")
	require.NoError(t, err)

	msg, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, "org:acme", msg.Tag)
	assert.Equal(t, "instance-a", msg.InstanceID)
	assert.False(t, msg.SentAt.IsZero())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decode([]byte("not json"))
	assert.Error(t, err)
}
