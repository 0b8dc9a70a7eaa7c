package messaging

import (
	"context"
	"sync"
)

// MemoryBroker delivers messages synchronously inside the process. It backs
// the "none" broker setting and tests.
type MemoryBroker struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{handlers: map[string][]Handler{}}
}

func (b *MemoryBroker) Name() string { return "memory" }

// Publish runs every handler subscribed to msg.Topic and returns the first
// handler error.
func (b *MemoryBroker) Publish(ctx context.Context, msg *Message) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[msg.Topic]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

func (b *MemoryBroker) Close() error { return nil }
