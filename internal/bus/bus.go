package bus

import (
	"context"
	"sync"
)

// Publisher is what the outbox relay needs from a message bus: at-least-once
// publish with per-key ordering.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

type Message struct {
	Topic   string
	Key     string
	Payload []byte
}

// MemoryBus is an in-process bus used by tests and single-binary deployments
// where the projector runs next to the writer. Delivery preserves publish
// order per subscriber channel.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscribers: make(map[string][]chan Message)}
}

func (b *MemoryBus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- Message{Topic: topic, Key: key, Payload: payload}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(topic string) <-chan Message {
	ch := make(chan Message, 256)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}
