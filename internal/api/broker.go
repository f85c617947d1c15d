package api

import (
	"sync"
)

// Event is one hunt event fanned out to SSE streams, websockets, and the
// webhook publisher.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// EventBroker fans hunt events out to subscribers. Implementations must not
// block in Publish; slow subscribers lose events.
type EventBroker interface {
	Subscribe(huntID string) chan Event
	Unsubscribe(huntID string, ch chan Event)
	Publish(huntID string, evt Event)
}

// Broker is the in-process EventBroker used when REDIS_URL is unset.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // huntId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(huntID string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[huntID] == nil {
		b.subs[huntID] = map[chan Event]struct{}{}
	}
	b.subs[huntID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(huntID string, ch chan Event) {
	b.mu.Lock()
	if m := b.subs[huntID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, huntID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(huntID string, evt Event) {
	b.mu.Lock()
	for ch := range b.subs[huntID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
