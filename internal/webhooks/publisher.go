package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"huntnav/internal/store"
)

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit fans an event out to every subscription matching the event type and
// hunt. Deliveries are queued; the worker posts them asynchronously.
func (p *Publisher) Emit(ctx context.Context, huntID, eventType string, data any) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, eventType, huntID)
	if err != nil || len(subs) == 0 {
		return
	}
	payload := map[string]any{
		"id":     fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type":   eventType,
		"huntId": huntID,
		"ts":     time.Now().UTC().Format(time.RFC3339),
		"data":   data,
	}
	body, _ := json.Marshal(payload)
	for _, s := range subs {
		_, _ = p.Store.EnqueueWebhook(ctx, huntID, s.ID, eventType, s.URL, s.Secret, body)
	}
}
