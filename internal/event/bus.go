package event

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string]chan Event),
	}
}

func (b *InMemoryBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		// Never block the publisher; a full subscriber misses the event.
		select {
		case ch <- e:
		default:
			slog.Warn("event dropped for slow subscriber", "subscriber", id, "type", e.Type)
		}
	}
}

func (b *InMemoryBus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, 32)
	b.subscribers[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if ch, exists := b.subscribers[id]; exists {
				close(ch)
				delete(b.subscribers, id)
			}
		})
	}

	return ch, unsubscribe
}
