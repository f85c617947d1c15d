package api

import (
	"sync"
)

// EventCache keeps the most recent events per hunt so new SSE and websocket
// subscribers see what just happened before live delivery kicks in.
type EventCache struct {
	mu   sync.Mutex
	size int
	m    map[string][]Event
}

func NewEventCache(size int) *EventCache {
	if size <= 0 {
		size = 16
	}
	return &EventCache{size: size, m: map[string][]Event{}}
}

// Add appends an event, evicting the oldest past the cache size.
func (c *EventCache) Add(huntID string, evt Event) {
	if huntID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	evts := append(c.m[huntID], evt)
	if len(evts) > c.size {
		evts = evts[len(evts)-c.size:]
	}
	c.m[huntID] = evts
}

// Recent returns a copy of the cached events for a hunt, oldest first.
func (c *EventCache) Recent(huntID string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.m[huntID]))
	copy(out, c.m[huntID])
	return out
}
