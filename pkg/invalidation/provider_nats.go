package invalidation

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/querylens/querylens/pkg/logger"
)

// NATSProvider broadcasts invalidation tags over a core NATS subject.
// Invalidations are advisory, so plain at-most-once delivery is
// enough; no JetStream persistence is involved.
type NATSProvider struct {
	nc         *nats.Conn
	subject    string
	instanceID string

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NATSProviderConfig configures the NATS transport.
type NATSProviderConfig struct {
	URL     string
	Subject string
}

// NewNATSProvider connects to NATS.
func NewNATSProvider(cfg NATSProviderConfig) (*NATSProvider, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		cfg.Subject = "querylens.invalidate"
	}

	instanceID := newInstanceID()
	nc, err := nats.Connect(cfg.URL,
		nats.Name("querylens-invalidation-"+instanceID),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSProvider{nc: nc, subject: cfg.Subject, instanceID: instanceID}, nil
}

// Publish implements Provider.
func (n *NATSProvider) Publish(tag string) error {
	data, err := encode(n.instanceID, tag)
	if err != nil {
		return err
	}
	return n.nc.Publish(n.subject, data)
}

// Subscribe implements Provider.
func (n *NATSProvider) Subscribe(handler Handler) error {
	sub, err := n.nc.Subscribe(n.subject, func(m *nats.Msg) {
		msg, err := decode(m.Data)
		if err != nil {
			logger.Warn("dropping malformed invalidation message: %v", err)
			return
		}
		if msg.InstanceID == n.instanceID {
			return
		}
		handler(msg.Tag)
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
	return nil
}

// Close implements Provider.
func (n *NATSProvider) Close() error {
	n.mu.Lock()
	for _, sub := range n.subs {
		_ = sub.Unsubscribe()
	}
	n.subs = nil
	n.mu.Unlock()
	n.nc.Close()
	return nil
}
