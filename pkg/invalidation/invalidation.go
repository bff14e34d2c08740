// Package invalidation broadcasts cache eviction tags between engine
// instances. A local eviction publishes its tag; every peer's
// subscriber evicts the same tag from its own cache. Messages from the
// publishing instance itself are skipped, the local eviction already
// happened.
package invalidation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message is one invalidation broadcast.
type Message struct {
	Tag        string    `json:"tag"`
	InstanceID string    `json:"instance_id"`
	SentAt     time.Time `json:"sent_at"`
}

// Handler receives invalidation tags from peers.
type Handler func(tag string)

// Provider is a pub-sub transport for invalidation messages.
type Provider interface {
	// Publish broadcasts a tag to all instances.
	Publish(tag string) error

	// Subscribe registers a handler for tags published by other
	// instances. Self-originated messages are filtered out.
	Subscribe(handler Handler) error

	// Close tears down the transport.
	Close() error
}

// newInstanceID labels this process for self-filtering.
func newInstanceID() string {
	return uuid.NewString()
}

func encode(instanceID, tag string) ([]byte, error) {
	return json.Marshal(Message{Tag: tag, InstanceID: instanceID, SentAt: time.Now().UTC()})
}

func decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
